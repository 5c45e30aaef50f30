// Package logging provides structured logging using uber/zap.
//
// Production mode writes JSON lines, development mode writes colored console
// output. Components take a *zap.Logger scoped with Component so every line
// carries the name of the part of the service that wrote it.
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	runner := sandbox.NewRunner(cfg, pool, logger.Component("sandbox"))
//	logger.Info("Server starting", zap.String("port", "8000"))
package logging
