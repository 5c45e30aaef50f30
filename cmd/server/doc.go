// Package main is the entry point for the CodeFixLab sandbox server.
//
// The server renders user supplied HTML, CSS and JavaScript into isolated
// frames and serves the learning site's catalog, assistant and form demos.
//
// Configuration:
//   - Environment variables (see internal/infrastructure/config)
//   - CLI flags (override env vars)
//
// Usage:
//
//	# Production mode
//	./server -port 8000
//
//	# Development mode (colored logs, debug level) with extra catalog entries
//	./server -dev -catalog ./catalog.d
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
