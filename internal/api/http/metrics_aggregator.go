package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/codefixlab/internal/domain/frame"
	"github.com/GriffinCanCode/codefixlab/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/codefixlab/internal/sandbox"
)

// MetricsAggregator combines request metrics with sandbox state
type MetricsAggregator struct {
	metrics *monitoring.Metrics
	frames  *frame.Manager
	pool    *sandbox.Pool
}

// NewMetricsAggregator creates a metrics aggregator. pool may be nil.
func NewMetricsAggregator(metrics *monitoring.Metrics, frames *frame.Manager, pool *sandbox.Pool) *MetricsAggregator {
	return &MetricsAggregator{
		metrics: metrics,
		frames:  frames,
		pool:    pool,
	}
}

// MetricsSnapshot represents a snapshot of service metrics
type MetricsSnapshot struct {
	Timestamp time.Time                  `json:"timestamp"`
	Requests  monitoring.MetricsSnapshot `json:"requests"`
	Frames    frame.Stats                `json:"frames"`
	Pool      map[string]interface{}     `json:"pool,omitempty"`
	Summary   MetricsSummary             `json:"summary"`
}

// MetricsSummary provides high-level metrics
type MetricsSummary struct {
	TotalRequests    int64   `json:"total_requests"`
	AverageLatencyMs float64 `json:"average_latency_ms"`
	ErrorRate        float64 `json:"error_rate"`
	RunFailureRate   float64 `json:"run_failure_rate"`
	UptimeSeconds    float64 `json:"uptime_seconds"`
}

// GetAggregatedMetrics returns all metrics as JSON
func (ma *MetricsAggregator) GetAggregatedMetrics(c *gin.Context) {
	snapshot := MetricsSnapshot{
		Timestamp: time.Now(),
		Requests:  ma.metrics.Snapshot(),
		Frames:    ma.frames.Stats(),
		Summary:   ma.calculateSummary(),
	}
	if ma.pool != nil {
		snapshot.Pool = ma.pool.Stats()
	}
	c.JSON(http.StatusOK, snapshot)
}

// calculateSummary computes high-level summary metrics
func (ma *MetricsAggregator) calculateSummary() MetricsSummary {
	snapshot := ma.metrics.Snapshot()

	var avgLatency float64
	if snapshot.RequestCount > 0 {
		avgLatency = (snapshot.TotalDuration / float64(snapshot.RequestCount)) * 1000
	}

	var errorRate float64
	if snapshot.TotalRequests > 0 {
		errorRate = float64(snapshot.TotalErrors) / float64(snapshot.TotalRequests)
	}

	var runFailureRate float64
	if snapshot.TotalRuns > 0 {
		runFailureRate = float64(snapshot.FailedRuns) / float64(snapshot.TotalRuns)
	}

	return MetricsSummary{
		TotalRequests:    snapshot.TotalRequests,
		AverageLatencyMs: avgLatency,
		ErrorRate:        errorRate,
		RunFailureRate:   runFailureRate,
		UptimeSeconds:    ma.metrics.UptimeDuration().Seconds(),
	}
}
