package http

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/codefixlab/internal/domain/frame"
	"github.com/GriffinCanCode/codefixlab/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/codefixlab/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/codefixlab/internal/providers/assistant"
	"github.com/GriffinCanCode/codefixlab/internal/providers/catalog"
	"github.com/GriffinCanCode/codefixlab/internal/providers/contact"
	"github.com/GriffinCanCode/codefixlab/internal/sandbox"
)

// Version is reported by the root endpoint
const Version = "1.0.0"

// Handlers contains all HTTP handlers
type Handlers struct {
	frames    *frame.Manager
	pool      *sandbox.Pool
	assistant *assistant.Assistant
	catalog   *catalog.Catalog
	contact   *contact.Service
	metrics   *monitoring.Metrics
	logger    *zap.Logger
}

// NewHandlers creates a new handler set. pool and metrics may be nil.
func NewHandlers(
	frames *frame.Manager,
	pool *sandbox.Pool,
	assistant *assistant.Assistant,
	catalog *catalog.Catalog,
	contact *contact.Service,
	metrics *monitoring.Metrics,
	logger *zap.Logger,
) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		frames:    frames,
		pool:      pool,
		assistant: assistant,
		catalog:   catalog,
		contact:   contact,
		metrics:   metrics,
		logger:    logger,
	}
}

// Root handles health check
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "CodeFixLab Sandbox Service",
		"version": Version,
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	resp := gin.H{
		"status": "healthy",
		"frames": h.frames.Stats(),
	}
	if h.pool != nil {
		resp["pool"] = h.pool.Stats()
	}
	c.JSON(http.StatusOK, resp)
}

// statusFor maps domain errors onto HTTP status codes
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, frame.ErrNotFound),
		errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, sandbox.ErrNoElement):
		return http.StatusNotFound
	case errors.Is(err, sandbox.ErrFrameClosed):
		return http.StatusGone
	case errors.Is(err, sandbox.ErrNotLoaded):
		return http.StatusConflict
	case errors.Is(err, catalog.ErrUnknownKind),
		errors.Is(err, assistant.ErrEmptyQuestion),
		errors.Is(err, errInvalidSource):
		return http.StatusBadRequest
	case errors.Is(err, frame.ErrLimit):
		return http.StatusTooManyRequests
	case errors.Is(err, sandbox.ErrTimeout),
		errors.Is(err, sandbox.ErrPoolClosed),
		errors.Is(err, resilience.ErrCircuitOpen),
		errors.Is(err, resilience.ErrTooManyRequests),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as a JSON error body with its mapped status
func (h *Handlers) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// bind decodes an optional JSON body into v. An empty body leaves v untouched.
func (h *Handlers) bind(c *gin.Context, v interface{}) bool {
	err := c.ShouldBindJSON(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
		return false
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
	return false
}

// LimitBody caps request bodies at n bytes
func LimitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if n > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}
