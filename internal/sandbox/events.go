package sandbox

import (
	"github.com/dop251/goja"
	"golang.org/x/net/html"
)

// bubbles reports whether eventType propagates to ancestors
func bubbles(eventType string) bool {
	switch eventType {
	case "load", "focus", "blur", "mouseenter", "mouseleave":
		return false
	}
	return true
}

func (r *Runtime) makeAddListener(target *html.Node) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		eventType := call.Argument(0).String()
		fn := call.Argument(1)
		if _, ok := goja.AssertFunction(fn); !ok {
			return goja.Undefined()
		}
		byType := r.listeners[target]
		if byType == nil {
			byType = make(map[string][]goja.Value)
			r.listeners[target] = byType
		}
		for _, existing := range byType[eventType] {
			if existing.SameAs(fn) {
				return goja.Undefined()
			}
		}
		byType[eventType] = append(byType[eventType], fn)
		return goja.Undefined()
	}
}

func (r *Runtime) makeRemoveListener(target *html.Node) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		eventType := call.Argument(0).String()
		fn := call.Argument(1)
		byType := r.listeners[target]
		if byType == nil {
			return goja.Undefined()
		}
		kept := byType[eventType][:0]
		for _, existing := range byType[eventType] {
			if !existing.SameAs(fn) {
				kept = append(kept, existing)
			}
		}
		byType[eventType] = kept
		return goja.Undefined()
	}
}

// path returns target followed by its ancestors and the window
func (r *Runtime) path(target *html.Node) []*html.Node {
	if target == r.window {
		return []*html.Node{r.window}
	}
	var nodes []*html.Node
	for n := target; n != nil; n = n.Parent {
		nodes = append(nodes, n)
	}
	return append(nodes, r.window)
}

// dispatch delivers an event of eventType to target. Handler exceptions are
// logged; only an interrupt aborts delivery.
func (r *Runtime) dispatch(target *html.Node, eventType string, bubbles bool) (*goja.Object, error) {
	vm := r.vm
	stopped := false

	event := vm.NewObject()
	event.Set("type", eventType)
	event.Set("target", r.wrap(target))
	event.Set("bubbles", bubbles)
	event.Set("defaultPrevented", false)
	event.Set("preventDefault", func(goja.FunctionCall) goja.Value {
		event.Set("defaultPrevented", true)
		return goja.Undefined()
	})
	event.Set("stopPropagation", func(goja.FunctionCall) goja.Value {
		stopped = true
		return goja.Undefined()
	})

	for i, current := range r.path(target) {
		if i > 0 && !bubbles {
			break
		}
		this := r.wrap(current)
		event.Set("currentTarget", this)

		if err := r.inlineHandler(current, this, eventType, event); err != nil {
			return event, err
		}

		// Copy so handlers may add or remove listeners while we iterate
		listeners := append([]goja.Value{}, r.listeners[current][eventType]...)
		for _, fn := range listeners {
			if err := r.call(fn, this, event); err != nil {
				return event, err
			}
		}
		if stopped {
			break
		}
	}
	return event, nil
}

// inlineHandler runs an on<type> property, or failing that the on<type>
// attribute compiled as a function body
func (r *Runtime) inlineHandler(n *html.Node, this goja.Value, eventType string, event *goja.Object) error {
	prop := "on" + eventType
	if obj, ok := this.(*goja.Object); ok {
		if fn := obj.Get(prop); fn != nil {
			if _, ok := goja.AssertFunction(fn); ok {
				return r.call(fn, this, event)
			}
		}
	}
	if n.Type != html.ElementNode {
		return nil
	}
	code, ok := attrLookup(n, prop)
	if !ok || code == "" {
		return nil
	}
	fn, err := r.vm.RunString("(function(event) {\n" + code + "\n})")
	if err != nil {
		if isInterrupt(err) {
			return err
		}
		r.log("error", "Uncaught "+errorMessage(err))
		return nil
	}
	return r.call(fn, this, event)
}
