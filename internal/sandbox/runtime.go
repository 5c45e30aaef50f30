package sandbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dop251/goja"
	"golang.org/x/net/html"
)

const guardAttr = "data-sandbox-guard"

// failure is a script failure the in-document guard could not report itself
type failure struct {
	Message     string
	Interrupted bool
}

// Runtime wraps a goja VM bound to one rendered document. A Runtime is never
// shared between runs, so globals defined by one run cannot leak into another
// or into the host.
type Runtime struct {
	vm     *goja.Runtime
	config Config
	dom    *DOM

	// Proxies are cached so element identity holds inside the VM
	proxies map[*html.Node]*goja.Object
	nodes   map[*goja.Object]*html.Node

	listeners map[*html.Node]map[string][]goja.Value
	window    *html.Node

	console  []LogEntry
	alerts   []string
	reported []string
	timers  []*timer
	timerID int64
	clock   int64
	storage map[string]string
}

// NewRuntime creates an isolated runtime for dom
func NewRuntime(config Config, dom *DOM) *Runtime {
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	r := &Runtime{
		vm:        goja.New(),
		config:    config,
		dom:       dom,
		proxies:   make(map[*html.Node]*goja.Object),
		nodes:     make(map[*goja.Object]*html.Node),
		listeners: make(map[*html.Node]map[string][]goja.Value),
		window:    &html.Node{Type: html.DocumentNode},
		console:   []LogEntry{},
		alerts:    []string{},
		storage:   make(map[string]string),
	}
	if config.MaxCallStack > 0 {
		r.vm.SetMaxCallStackSize(config.MaxCallStack)
	}
	r.setupGlobals()
	return r
}

// Console returns captured console output
func (r *Runtime) Console() []LogEntry {
	return append([]LogEntry{}, r.console...)
}

// Alerts returns messages passed to alert/confirm
func (r *Runtime) Alerts() []string {
	return append([]string{}, r.alerts...)
}

// load executes inline scripts in document order, then fires
// DOMContentLoaded and load, then drains queued timers.
func (r *Runtime) load(ctx context.Context) *failure {
	scripts := r.dom.Scripts()

	var escaped *failure
	err := r.guarded(ctx, func() error {
		for i, s := range scripts {
			src := textContent(s)
			_, guard := attrLookup(s, guardAttr)
			if guard {
				src = exposeBlockFunctions(src)
			}
			_, err := r.vm.RunScript(fmt.Sprintf("script-%d.js", i), src)
			if err == nil {
				continue
			}
			if isInterrupt(err) {
				return err
			}
			msg := errorMessage(err)
			r.log("error", "Uncaught "+msg)
			if guard && escaped == nil {
				escaped = &failure{Message: msg}
			}
		}

		if _, err := r.dispatch(r.dom.root, "DOMContentLoaded", true); err != nil {
			return err
		}
		if _, err := r.dispatch(r.window, "load", false); err != nil {
			return err
		}
		return r.drainTimers()
	})

	if err != nil {
		return &failure{Message: interruptMessage(err), Interrupted: true}
	}
	return escaped
}

// fire dispatches a DOM event at the first element matching selector
func (r *Runtime) fire(ctx context.Context, selector, eventType string) error {
	matches := r.dom.Query(selector)
	if len(matches) == 0 {
		return fmt.Errorf("%w: %s", ErrNoElement, selector)
	}
	target := matches[0]

	err := r.guarded(ctx, func() error {
		if _, err := r.dispatch(target, eventType, bubbles(eventType)); err != nil {
			return err
		}
		return r.drainTimers()
	})
	if err != nil {
		return &interruptError{msg: interruptMessage(err)}
	}
	return nil
}

type interruptError struct {
	msg string
}

func (e *interruptError) Error() string {
	return e.msg
}

// guarded runs fn with the configured timeout and ctx cancellation wired to
// the VM interrupt
func (r *Runtime) guarded(ctx context.Context, fn func() error) error {
	timer := time.NewTimer(r.config.Timeout)
	defer timer.Stop()

	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		select {
		case <-timer.C:
			r.vm.Interrupt("execution timeout exceeded")
		case <-ctx.Done():
			r.vm.Interrupt("context cancelled")
		case <-done:
		}
	}()

	err := fn()

	close(done)
	<-exited
	r.vm.ClearInterrupt()
	return err
}

// setupGlobals configures global objects and security
func (r *Runtime) setupGlobals() {
	vm := r.vm
	global := vm.GlobalObject()

	// Remove dangerous globals
	vm.Set("require", goja.Undefined())
	vm.Set("process", goja.Undefined())
	vm.Set("module", goja.Undefined())
	vm.Set("exports", goja.Undefined())

	vm.Set("window", global)
	vm.Set("self", global)
	vm.Set("document", r.wrap(r.dom.root))

	console := vm.NewObject()
	for _, level := range []string{"log", "info", "warn", "error", "debug"} {
		console.Set(level, r.makeConsoleFunc(level))
	}
	vm.Set("console", console)

	vm.Set("alert", func(call goja.FunctionCall) goja.Value {
		r.alerts = append(r.alerts, call.Argument(0).String())
		return goja.Undefined()
	})
	vm.Set("confirm", func(call goja.FunctionCall) goja.Value {
		r.alerts = append(r.alerts, call.Argument(0).String())
		return vm.ToValue(true)
	})
	vm.Set("prompt", func(call goja.FunctionCall) goja.Value {
		r.alerts = append(r.alerts, call.Argument(0).String())
		return goja.Null()
	})

	vm.Set("setTimeout", r.setTimeout)
	vm.Set("clearTimeout", r.clearTimeout)
	// Intervals would never terminate in a drained queue; they are ignored
	vm.Set("setInterval", func(call goja.FunctionCall) goja.Value {
		return goja.Undefined()
	})
	vm.Set("clearInterval", func(call goja.FunctionCall) goja.Value {
		return goja.Undefined()
	})

	vm.Set("addEventListener", r.makeAddListener(r.window))
	vm.Set("removeEventListener", r.makeRemoveListener(r.window))

	location := vm.NewObject()
	location.Set("href", "about:srcdoc")
	location.Set("reload", func(goja.FunctionCall) goja.Value { return goja.Undefined() })
	vm.Set("location", location)

	navigator := vm.NewObject()
	navigator.Set("userAgent", "CodeFixLab-Sandbox")
	navigator.Set("language", "en-US")
	vm.Set("navigator", navigator)

	vm.Set("localStorage", r.makeStorage())

	// Not enumerable, so for-in over window does not surface it
	report := vm.ToValue(func(call goja.FunctionCall) goja.Value {
		r.reported = append(r.reported, call.Argument(0).String())
		return goja.Undefined()
	})
	_ = global.DefineDataProperty(reportFunc, report, goja.FLAG_FALSE, goja.FLAG_FALSE, goja.FLAG_FALSE)
}

// makeConsoleFunc creates a console function
func (r *Runtime) makeConsoleFunc(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		if !r.config.EnableConsole {
			return goja.Undefined()
		}
		parts := make([]string, 0, len(call.Arguments))
		for _, arg := range call.Arguments {
			parts = append(parts, arg.String())
		}
		r.log(level, strings.Join(parts, " "))
		return goja.Undefined()
	}
}

func (r *Runtime) log(level, msg string) {
	r.console = append(r.console, LogEntry{
		Level:   level,
		Message: msg,
		Time:    time.Now(),
	})
}

// makeStorage returns a localStorage stand-in that lives only as long as the run
func (r *Runtime) makeStorage() *goja.Object {
	vm := r.vm
	storage := vm.NewObject()
	storage.Set("getItem", func(call goja.FunctionCall) goja.Value {
		if v, ok := r.storage[call.Argument(0).String()]; ok {
			return vm.ToValue(v)
		}
		return goja.Null()
	})
	storage.Set("setItem", func(call goja.FunctionCall) goja.Value {
		r.storage[call.Argument(0).String()] = call.Argument(1).String()
		return goja.Undefined()
	})
	storage.Set("removeItem", func(call goja.FunctionCall) goja.Value {
		delete(r.storage, call.Argument(0).String())
		return goja.Undefined()
	})
	storage.Set("clear", func(call goja.FunctionCall) goja.Value {
		r.storage = make(map[string]string)
		return goja.Undefined()
	})
	return storage
}

// call invokes a JS handler. Exceptions are reported to the console the way
// an uncaught handler error would be; only interrupts are returned.
func (r *Runtime) call(fn goja.Value, this goja.Value, args ...goja.Value) error {
	callable, ok := goja.AssertFunction(fn)
	if !ok {
		return nil
	}
	if _, err := callable(this, args...); err != nil {
		if isInterrupt(err) {
			return err
		}
		r.log("error", "Uncaught "+errorMessage(err))
	}
	return nil
}

func isInterrupt(err error) bool {
	var interrupted *goja.InterruptedError
	return errors.As(err, &interrupted)
}

func interruptMessage(err error) string {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		if msg, ok := interrupted.Value().(string); ok {
			return msg
		}
	}
	return err.Error()
}

// stackOverflowMessage matches what browsers report for runaway recursion
const stackOverflowMessage = "RangeError: Maximum call stack size exceeded"

// errorMessage extracts the thrown value's message, falling back to its
// string form for non-Error throws and compile errors
func errorMessage(err error) string {
	// goja raises this outside of JS, so no try/catch ever sees it
	var overflow *goja.StackOverflowError
	if errors.As(err, &overflow) {
		return stackOverflowMessage
	}
	var exc *goja.Exception
	if errors.As(err, &exc) {
		if v := exc.Value(); v != nil {
			if obj, ok := v.(*goja.Object); ok {
				if msg := obj.Get("message"); msg != nil && !goja.IsUndefined(msg) {
					name := obj.Get("name")
					if name != nil && !goja.IsUndefined(name) {
						return name.String() + ": " + msg.String()
					}
					return msg.String()
				}
			}
			return v.String()
		}
	}
	return err.Error()
}
