package sandbox

import (
	"fmt"

	"github.com/dop251/goja"
)

// timer is a queued setTimeout callback. Time is virtual: the queue is
// drained in due order right after load, without sleeping.
type timer struct {
	id   int64
	due  int64
	fn   goja.Value
	code string
	args []goja.Value
}

func (r *Runtime) setTimeout(call goja.FunctionCall) goja.Value {
	delay := call.Argument(1).ToInteger()
	if delay < 0 {
		delay = 0
	}
	r.timerID++
	t := &timer{id: r.timerID, due: r.clock + delay}

	fn := call.Argument(0)
	if _, ok := goja.AssertFunction(fn); ok {
		t.fn = fn
	} else {
		t.code = fn.String()
	}
	if len(call.Arguments) > 2 {
		t.args = append([]goja.Value{}, call.Arguments[2:]...)
	}
	r.timers = append(r.timers, t)
	return r.vm.ToValue(t.id)
}

func (r *Runtime) clearTimeout(call goja.FunctionCall) goja.Value {
	id := call.Argument(0).ToInteger()
	for i, t := range r.timers {
		if t.id == id {
			r.timers = append(r.timers[:i], r.timers[i+1:]...)
			break
		}
	}
	return goja.Undefined()
}

// next removes and returns the earliest due timer; ties keep insertion order
func (r *Runtime) next() *timer {
	if len(r.timers) == 0 {
		return nil
	}
	best := 0
	for i, t := range r.timers {
		if t.due < r.timers[best].due {
			best = i
		}
	}
	t := r.timers[best]
	r.timers = append(r.timers[:best], r.timers[best+1:]...)
	return t
}

func (r *Runtime) drainTimers() error {
	limit := r.config.MaxTimers
	for fired := 0; limit <= 0 || fired < limit; fired++ {
		t := r.next()
		if t == nil {
			return nil
		}
		if t.due > r.clock {
			r.clock = t.due
		}

		if t.fn == nil {
			if _, err := r.vm.RunString(t.code); err != nil {
				if isInterrupt(err) {
					return err
				}
				r.log("error", "Uncaught "+errorMessage(err))
			}
			continue
		}
		if err := r.call(t.fn, goja.Undefined(), t.args...); err != nil {
			return err
		}
	}
	if pending := len(r.timers); pending > 0 {
		r.log("warn", fmt.Sprintf("%d pending timers dropped", pending))
		r.timers = nil
	}
	return nil
}
