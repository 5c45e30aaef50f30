// Package config provides 12-factor configuration management for the
// CodeFixLab service.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags in cmd/server can override the listen address and log mode.
//
// Environment Variables:
//   - PORT, HOST
//   - SANDBOX_TIMEOUT, SANDBOX_POOL_SIZE, SANDBOX_ACQUIRE_TIMEOUT,
//     SANDBOX_MAX_TIMERS, SANDBOX_MAX_FRAMES, SANDBOX_MAX_SOURCE_BYTES,
//     SANDBOX_BREAKER_THRESHOLD, SANDBOX_BREAKER_COOLDOWN
//   - ASSISTANT_DELAY, CONTACT_DELAY
//   - CATALOG_DIR
//   - LOG_LEVEL, LOG_DEV
//   - TRACING_ENABLED, TRACING_BUFFER
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED,
//     RATE_LIMIT_RUNS_RPS, RATE_LIMIT_RUNS_BURST
//   - CORS_ORIGINS (comma separated)
package config
