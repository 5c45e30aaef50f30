/*
Package tracing provides lightweight request tracing.

A Tracer hands out spans that share a trace id through the request context.
The HTTP middleware opens one span per request; the sandbox runner opens a
child span for every run and dispatch, so a slow preview can be pinned to
the script that caused it. Finished spans are logged by a background
collector.

	tracer := tracing.New("codefixlab", logger)
	defer tracer.Close()

	router.Use(tracing.HTTPMiddleware(tracer))

	span, ctx := tracer.StartSpan(ctx, "sandbox.run")
	defer func() {
		span.Finish()
		tracer.Submit(span)
	}()

Traces propagate through the X-Trace-ID and X-Span-ID headers.
*/
package tracing
