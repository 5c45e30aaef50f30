/*
Package monitoring provides performance monitoring and metrics collection.

# Overview

This package implements Prometheus-based metrics collection for the sandbox
service, tracking HTTP requests, sandbox runs, render targets and the
supporting providers.

# Features

- HTTP request metrics (latency, throughput, size)
- Sandbox run metrics (outcome, duration, dispatched events)
- Render target lifecycle metrics
- Assistant and contact provider counters
- WebSocket connection metrics
- Uptime

Each Metrics value owns its registry, so collectors can be created freely in
tests without duplicate registration panics.

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	metrics.RecordRun("completed", time.Since(start))
*/
package monitoring
