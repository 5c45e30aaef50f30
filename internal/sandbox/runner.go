package sandbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/codefixlab/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/codefixlab/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/codefixlab/internal/infrastructure/tracing"
)

// Runner assembles source bundles and renders them into frames
type Runner struct {
	config  Config
	pool    *Pool
	breaker *resilience.Breaker
	tracer  *tracing.Tracer
	logger  *zap.Logger
	metrics *monitoring.Metrics
}

// NewRunner creates a runner. pool may be nil, in which case runs are not
// bounded across frames.
func NewRunner(config Config, pool *Pool, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		config: config,
		pool:   pool,
		logger: logger,
	}
}

// WithMetrics adds metrics tracking to the runner
func (r *Runner) WithMetrics(metrics *monitoring.Metrics) *Runner {
	r.metrics = metrics
	return r
}

// WithBreaker sheds runs while pool admission keeps timing out
func (r *Runner) WithBreaker(breaker *resilience.Breaker) *Runner {
	r.breaker = breaker
	return r
}

// WithTracer records a span for every run and dispatch
func (r *Runner) WithTracer(tracer *tracing.Tracer) *Runner {
	r.tracer = tracer
	return r
}

// Run assembles b into one document and renders it into f, replacing
// whatever f held before. Script failures never surface as errors: they are
// reported by a visible error block in the document and mirrored in the
// Outcome. The error return covers only host-side problems such as a closed
// frame or an exhausted pool.
func (r *Runner) Run(ctx context.Context, f *Frame, b SourceBundle) (*Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := r.acquire(ctx); err != nil {
		return nil, err
	}
	defer r.release()

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, ErrFrameClosed
	}

	span, ctx := r.startSpan(ctx, "sandbox.run", f)
	defer r.finishSpan(span)

	start := time.Now()

	// Every run starts from a fresh empty document
	f.reset()

	dom, err := ParseDOM(Assemble(b))
	if err != nil {
		return nil, fmt.Errorf("failed to parse assembled document: %w", err)
	}
	f.dom = dom

	rt := NewRuntime(r.config, dom)
	fail := rt.load(ctx)
	if fail != nil {
		r.appendErrorBlock(dom, fail.Message)
	}
	if fail == nil || !fail.Interrupted {
		f.runtime = rt
	}

	outcome := &Outcome{
		Status:   StatusCompleted,
		Console:  rt.Console(),
		Alerts:   rt.Alerts(),
		Document: dom.Render(),
		Duration: time.Since(start),
	}
	switch {
	case fail != nil:
		outcome.Status = StatusFailed
		outcome.Error = fail.Message
	case len(rt.reported) > 0:
		outcome.Status = StatusFailed
		outcome.Error = rt.reported[len(rt.reported)-1]
	}

	if span != nil {
		span.SetTag("status", string(outcome.Status))
		if outcome.Failed() {
			span.Log("script failed", map[string]interface{}{"error": outcome.Error})
		}
	}

	f.last = outcome
	f.runs++
	f.updated = time.Now()

	r.logger.Debug("Sandbox run finished",
		zap.String("frame", f.id),
		zap.String("status", string(outcome.Status)),
		zap.Duration("duration", outcome.Duration),
		zap.Int("console_entries", len(outcome.Console)),
	)
	if outcome.Failed() {
		r.logger.Debug("Sandbox script failed", zap.String("frame", f.id), zap.String("error", outcome.Error))
	}
	if r.metrics != nil {
		r.metrics.RecordRun(string(outcome.Status), outcome.Duration)
	}

	return outcome, nil
}

// Clear resets f to an empty document. Calling it repeatedly is harmless.
func (r *Runner) Clear(f *Frame) {
	f.Clear()
	r.logger.Debug("Sandbox frame cleared", zap.String("frame", f.id))
}

// Dispatch delivers a DOM event to the first element matching selector in
// the live document of f. The returned Outcome carries console output and
// alerts produced by the handlers.
func (r *Runner) Dispatch(ctx context.Context, f *Frame, selector, eventType string) (*Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := r.acquire(ctx); err != nil {
		return nil, err
	}
	defer r.release()

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, ErrFrameClosed
	}
	rt := f.runtime
	if rt == nil {
		return nil, ErrNotLoaded
	}

	span, ctx := r.startSpan(ctx, "sandbox.dispatch", f)
	defer r.finishSpan(span)
	if span != nil {
		span.SetTag("selector", selector)
		span.SetTag("event", eventType)
	}

	start := time.Now()
	consoleBefore, alertsBefore := len(rt.console), len(rt.alerts)

	outcome := &Outcome{Status: StatusCompleted}
	err := rt.fire(ctx, selector, eventType)
	var interrupted *interruptError
	switch {
	case errors.As(err, &interrupted):
		r.appendErrorBlock(f.dom, interrupted.msg)
		f.runtime = nil
		outcome.Status = StatusFailed
		outcome.Error = interrupted.msg
	case err != nil:
		if span != nil {
			span.SetError(err)
		}
		if r.metrics != nil {
			r.metrics.RecordDispatch(eventType, "not_found")
		}
		return nil, err
	}

	outcome.Console = append([]LogEntry{}, rt.console[consoleBefore:]...)
	outcome.Alerts = append([]string{}, rt.alerts[alertsBefore:]...)
	outcome.Document = f.dom.Render()
	outcome.Duration = time.Since(start)
	f.updated = time.Now()

	if r.metrics != nil {
		r.metrics.RecordDispatch(eventType, string(outcome.Status))
	}
	return outcome, nil
}

func (r *Runner) acquire(ctx context.Context) error {
	if r.pool == nil {
		return nil
	}
	acquire := func() error { return r.pool.Acquire(ctx) }
	var err error
	if r.breaker != nil {
		err = r.breaker.Guard(acquire)
	} else {
		err = acquire()
	}
	if err != nil {
		if r.metrics != nil {
			r.metrics.RecordPoolError(poolErrorReason(err))
		}
		return err
	}
	return nil
}

func (r *Runner) startSpan(ctx context.Context, name string, f *Frame) (*tracing.Span, context.Context) {
	if r.tracer == nil {
		return nil, ctx
	}
	span, ctx := r.tracer.StartSpan(ctx, name)
	span.SetTag("frame.id", f.id)
	return span, ctx
}

func (r *Runner) finishSpan(span *tracing.Span) {
	if span == nil {
		return
	}
	span.Finish()
	r.tracer.Submit(span)
}

func (r *Runner) release() {
	if r.pool != nil {
		r.pool.Release()
	}
}

func (r *Runner) appendErrorBlock(dom *DOM, message string) {
	body := dom.Body()
	if body == nil {
		return
	}
	if err := AppendHTML(body, ErrorBlock(message)); err != nil {
		r.logger.Warn("Failed to append error block", zap.Error(err))
	}
}

// ErrorBlocks returns the visible error blocks of a rendered document
func ErrorBlocks(document string) []string {
	dom, err := ParseDOM(document)
	if err != nil {
		return nil
	}
	var blocks []string
	for _, n := range dom.Query("." + ErrorBlockClass) {
		blocks = append(blocks, strings.TrimSpace(textContent(n)))
	}
	return blocks
}

func poolErrorReason(err error) string {
	switch {
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrPoolClosed):
		return "closed"
	case errors.Is(err, resilience.ErrCircuitOpen), errors.Is(err, resilience.ErrTooManyRequests):
		return "shed"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "unknown"
	}
}
