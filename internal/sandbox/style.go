package sandbox

import (
	"sort"
	"strings"

	"github.com/dop251/goja"
	"golang.org/x/net/html"
)

type styleProp struct {
	name  string
	value string
}

// styleDecl exposes an element's inline style attribute as element.style
type styleDecl struct {
	r *Runtime
	n *html.Node
}

func parseStyle(s string) []styleProp {
	var props []styleProp
	for _, decl := range strings.Split(s, ";") {
		name, value, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		props = append(props, styleProp{name: name, value: strings.TrimSpace(value)})
	}
	return props
}

func formatStyle(props []styleProp) string {
	parts := make([]string, 0, len(props))
	for _, p := range props {
		parts = append(parts, p.name+": "+p.value+";")
	}
	return strings.Join(parts, " ")
}

// cssName maps a camelCase property (backgroundColor) to its CSS name
func cssName(key string) string {
	if key == "cssFloat" {
		return "float"
	}
	if strings.HasPrefix(key, "--") {
		return key
	}
	var b strings.Builder
	for _, ch := range key {
		if ch >= 'A' && ch <= 'Z' {
			b.WriteByte('-')
			b.WriteRune(ch + ('a' - 'A'))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

func (s *styleDecl) props() []styleProp {
	return parseStyle(attr(s.n, "style"))
}

func (s *styleDecl) lookup(name string) (string, bool) {
	for _, p := range s.props() {
		if p.name == name {
			return p.value, true
		}
	}
	return "", false
}

func (s *styleDecl) put(name, value string) {
	props := s.props()
	if value == "" {
		kept := props[:0]
		for _, p := range props {
			if p.name != name {
				kept = append(kept, p)
			}
		}
		props = kept
	} else {
		found := false
		for i := range props {
			if props[i].name == name {
				props[i].value = value
				found = true
			}
		}
		if !found {
			props = append(props, styleProp{name: name, value: value})
		}
	}
	if len(props) == 0 {
		removeAttr(s.n, "style")
		return
	}
	setAttr(s.n, "style", formatStyle(props))
}

func (s *styleDecl) Get(key string) goja.Value {
	vm := s.r.vm
	switch key {
	case "cssText":
		return vm.ToValue(attr(s.n, "style"))
	case "setProperty":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			s.put(strings.ToLower(call.Argument(0).String()), call.Argument(1).String())
			return goja.Undefined()
		})
	case "removeProperty":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			name := strings.ToLower(call.Argument(0).String())
			old, _ := s.lookup(name)
			s.put(name, "")
			return vm.ToValue(old)
		})
	case "getPropertyValue":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			v, _ := s.lookup(strings.ToLower(call.Argument(0).String()))
			return vm.ToValue(v)
		})
	}
	v, _ := s.lookup(cssName(key))
	return vm.ToValue(v)
}

func (s *styleDecl) Set(key string, val goja.Value) bool {
	value := ""
	if val != nil && !goja.IsUndefined(val) && !goja.IsNull(val) {
		value = val.String()
	}
	if key == "cssText" {
		if value == "" {
			removeAttr(s.n, "style")
		} else {
			setAttr(s.n, "style", formatStyle(parseStyle(value)))
		}
		return true
	}
	s.put(cssName(key), value)
	return true
}

func (s *styleDecl) Has(key string) bool {
	_, ok := s.lookup(cssName(key))
	return ok
}

func (s *styleDecl) Delete(key string) bool {
	s.put(cssName(key), "")
	return true
}

func (s *styleDecl) Keys() []string {
	props := s.props()
	keys := make([]string, 0, len(props))
	for _, p := range props {
		keys = append(keys, p.name)
	}
	sort.Strings(keys)
	return keys
}
