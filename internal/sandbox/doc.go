/*
Package sandbox renders user supplied HTML, CSS and JavaScript into isolated
frames.

A run assembles a SourceBundle into one standalone document, parses it with
golang.org/x/net/html and executes its inline scripts in a fresh goja
runtime bound to that document. The user script is wrapped in a try/catch
guard inside the document itself, so a runtime error becomes a visible error
block appended to the body rather than a Go error. Failures the guard cannot
see (syntax errors, timeouts) are reported with the same block by the
Runner. The Outcome returned by Run mirrors what the document shows.

	runner := sandbox.NewRunner(sandbox.DefaultConfig(), sandbox.NewPool(4, 5*time.Second), logger)
	f := sandbox.NewFrame("preview")

	outcome, err := runner.Run(ctx, f, sandbox.SourceBundle{
		Markup: "<p>hi</p>",
		Style:  "p{color:red}",
		Script: "throw new Error('boom')",
	})
	// err == nil, outcome.Status == sandbox.StatusFailed, outcome.Error == "boom"

Every run replaces the frame's document and runtime wholesale. Runs against
one frame are serialized by the frame's lock; the Pool bounds how many run
at once across frames.

The runtime offers a small browser surface: document queries backed by
goquery, element properties and events, console, alert, setTimeout with a
virtual clock, and an in-memory localStorage. Timers are drained right after
load, so a run always finishes.
*/
package sandbox
