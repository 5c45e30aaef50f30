package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObserved(t *testing.T, buffer int) (*Tracer, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	return NewWithBuffer("test", buffer, zap.New(core)), logs
}

func TestStartSpanParentsChildren(t *testing.T) {
	tracer, _ := newObserved(t, 10)
	defer tracer.Close()

	root, ctx := tracer.StartSpan(context.Background(), "request")
	child, childCtx := tracer.StartSpan(ctx, "sandbox.run")

	assert.NotEmpty(t, root.TraceID)
	assert.Empty(t, root.ParentID)
	assert.Equal(t, root.TraceID, child.TraceID)
	assert.Equal(t, root.SpanID, child.ParentID)
	assert.NotEqual(t, root.SpanID, child.SpanID)
	assert.Equal(t, child.SpanID, GetSpanID(childCtx))
	assert.Equal(t, root.TraceID, GetTraceID(childCtx))
}

func TestWithTraceJoinsUpstream(t *testing.T) {
	tracer, _ := newObserved(t, 10)
	defer tracer.Close()

	ctx := WithTrace(context.Background(), "abc", "parent")
	span, _ := tracer.StartSpan(ctx, "op")

	assert.Equal(t, TraceID("abc"), span.TraceID)
	assert.Equal(t, SpanID("parent"), span.ParentID)
}

func TestCloseFlushesSpans(t *testing.T) {
	tracer, logs := newObserved(t, 10)

	ok, _ := tracer.StartSpan(context.Background(), "ok")
	ok.SetTag("frame.id", "f1")
	ok.Finish()
	tracer.Submit(ok)

	failed, _ := tracer.StartSpan(context.Background(), "failed")
	failed.SetError(errors.New("boom"))
	failed.Finish()
	tracer.Submit(failed)

	tracer.Close()
	tracer.Close()

	require.Equal(t, 2, logs.Len())
	entries := logs.All()
	assert.Equal(t, "span completed", entries[0].Message)
	assert.Equal(t, "f1", entries[0].ContextMap()["tag.frame.id"])
	assert.Equal(t, "span completed with error", entries[1].Message)
	assert.Equal(t, int64(500), entries[1].ContextMap()["status"])

	// Submitting after close is a no-op
	late, _ := tracer.StartSpan(context.Background(), "late")
	tracer.Submit(late)
	assert.Equal(t, 2, logs.Len())
}

func TestHTTPMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tracer, logs := newObserved(t, 10)

	var seen TraceID
	router := gin.New()
	router.Use(HTTPMiddleware(tracer))
	router.GET("/frames/:id", func(c *gin.Context) {
		seen = GetTraceID(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/frames/f1", nil)
	req.Header.Set(TraceHeader, "trace-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, TraceID("trace-1"), seen)
	assert.Equal(t, "trace-1", w.Header().Get(TraceHeader))
	assert.NotEmpty(t, w.Header().Get(SpanHeader))

	tracer.Close()
	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "GET /frames/:id", fields["operation"])
	assert.Equal(t, "f1", fields["tag.frame.id"])
	assert.Equal(t, "204", fields["tag.http.status"])
}
