package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Sandbox metrics
	RunsTotal      *prometheus.CounterVec
	RunDuration    *prometheus.HistogramVec
	DispatchTotal  *prometheus.CounterVec
	FramesActive   prometheus.Gauge
	FramesTotal    prometheus.Counter
	PoolWaitErrors *prometheus.CounterVec

	// Provider metrics
	AssistantQuestions *prometheus.CounterVec
	ContactSubmissions *prometheus.CounterVec

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.GaugeFunc
	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot MetricsSnapshot

	mu sync.RWMutex
}

// MetricsSnapshot holds current metric values for JSON API
type MetricsSnapshot struct {
	TotalRequests int64   `json:"total_requests"`
	TotalErrors   int64   `json:"total_errors"`
	TotalRuns     int64   `json:"total_runs"`
	FailedRuns    int64   `json:"failed_runs"`
	ActiveFrames  int64   `json:"active_frames"`
	TotalDuration float64 `json:"total_duration_seconds"` // sum of all request durations
	RequestCount  int64   `json:"request_count"`          // count for averaging
}

// NewMetrics creates a metrics collector backed by its own registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		// HTTP metrics
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codefixlab_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "codefixlab_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "codefixlab_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "codefixlab_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),

		// Sandbox metrics
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codefixlab_sandbox_runs_total",
				Help: "Total number of sandbox runs by outcome",
			},
			[]string{"status"},
		),
		RunDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "codefixlab_sandbox_run_duration_seconds",
				Help:    "Sandbox run duration in seconds",
				Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"status"},
		),
		DispatchTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codefixlab_sandbox_dispatch_total",
				Help: "Total number of events dispatched into frames",
			},
			[]string{"event", "status"},
		),
		FramesActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "codefixlab_frames_active",
				Help: "Number of live render targets",
			},
		),
		FramesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "codefixlab_frames_total",
				Help: "Total number of render targets created",
			},
		),
		PoolWaitErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codefixlab_sandbox_pool_errors_total",
				Help: "Failed attempts to acquire an execution slot",
			},
			[]string{"reason"},
		),

		// Provider metrics
		AssistantQuestions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codefixlab_assistant_questions_total",
				Help: "Questions answered by the canned assistant, by topic",
			},
			[]string{"topic"},
		),
		ContactSubmissions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codefixlab_contact_submissions_total",
				Help: "Contact form submissions by result",
			},
			[]string{"result"},
		),

		// WebSocket metrics
		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "codefixlab_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codefixlab_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),
	}

	m.Uptime = factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "codefixlab_uptime_seconds",
			Help: "Service uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Handler exposes the registry in Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	// Update snapshot
	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.TotalDuration += duration.Seconds()
	m.snapshot.RequestCount++
	if status[0] == '4' || status[0] == '5' {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordRun records a sandbox run
func (m *Metrics) RecordRun(status string, duration time.Duration) {
	m.RunsTotal.WithLabelValues(status).Inc()
	m.RunDuration.WithLabelValues(status).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.TotalRuns++
	if status != "completed" {
		m.snapshot.FailedRuns++
	}
	m.mu.Unlock()
}

// RecordDispatch records an event dispatched into a frame
func (m *Metrics) RecordDispatch(event, status string) {
	m.DispatchTotal.WithLabelValues(event, status).Inc()
}

// RecordPoolError records a failed slot acquisition
func (m *Metrics) RecordPoolError(reason string) {
	m.PoolWaitErrors.WithLabelValues(reason).Inc()
}

// SetFramesActive sets the number of live frames
func (m *Metrics) SetFramesActive(count int) {
	m.FramesActive.Set(float64(count))
	m.mu.Lock()
	m.snapshot.ActiveFrames = int64(count)
	m.mu.Unlock()
}

// IncFramesTotal increments the total frames counter
func (m *Metrics) IncFramesTotal() {
	m.FramesTotal.Inc()
}

// RecordQuestion records an assistant question by matched topic
func (m *Metrics) RecordQuestion(topic string) {
	m.AssistantQuestions.WithLabelValues(topic).Inc()
}

// RecordContact records a contact form submission
func (m *Metrics) RecordContact(result string) {
	m.ContactSubmissions.WithLabelValues(result).Inc()
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
}

// Snapshot returns current values for the JSON API
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

// UptimeDuration returns time since the collector was created
func (m *Metrics) UptimeDuration() time.Duration {
	return time.Since(m.startTime)
}
