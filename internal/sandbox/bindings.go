package sandbox

import (
	"strings"

	"github.com/dop251/goja"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// wrap returns the JS proxy for n, creating it on first use
func (r *Runtime) wrap(n *html.Node) goja.Value {
	if n == nil {
		return goja.Null()
	}
	if n == r.window {
		return r.vm.GlobalObject()
	}
	if obj, ok := r.proxies[n]; ok {
		return obj
	}

	var obj *goja.Object
	switch n.Type {
	case html.DocumentNode:
		obj = r.documentProxy(n)
	case html.ElementNode:
		obj = r.elementProxy(n)
	default:
		obj = r.textProxy(n)
	}
	r.proxies[n] = obj
	r.nodes[obj] = n
	return obj
}

func (r *Runtime) wrapAll(nodes []*html.Node) goja.Value {
	items := make([]interface{}, 0, len(nodes))
	for _, n := range nodes {
		items = append(items, r.wrap(n))
	}
	return r.vm.NewArray(items...)
}

// unwrap maps a proxy back to its node, throwing a TypeError otherwise
func (r *Runtime) unwrap(v goja.Value) *html.Node {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		panic(r.vm.NewTypeError("parameter is not of type 'Node'"))
	}
	obj := v.ToObject(r.vm)
	n, ok := r.nodes[obj]
	if !ok {
		panic(r.vm.NewTypeError("parameter is not of type 'Node'"))
	}
	return n
}

// accessor defines a getter/setter pair; a nil set makes the property read-only
func (r *Runtime) accessor(obj *goja.Object, name string, get func() interface{}, set func(goja.Value)) {
	getter := r.vm.ToValue(func(goja.FunctionCall) goja.Value {
		return r.vm.ToValue(get())
	})
	setter := r.vm.ToValue(func(call goja.FunctionCall) goja.Value {
		if set != nil {
			set(call.Argument(0))
		}
		return goja.Undefined()
	})
	_ = obj.DefineAccessorProperty(name, getter, setter, goja.FLAG_TRUE, goja.FLAG_TRUE)
}

// nodeAccessors are shared by every node kind
func (r *Runtime) nodeAccessors(obj *goja.Object, n *html.Node) {
	r.accessor(obj, "parentNode", func() interface{} { return r.wrap(n.Parent) }, nil)
	r.accessor(obj, "parentElement", func() interface{} {
		if n.Parent == nil || n.Parent.Type != html.ElementNode {
			return goja.Null()
		}
		return r.wrap(n.Parent)
	}, nil)
	r.accessor(obj, "firstChild", func() interface{} { return r.wrap(n.FirstChild) }, nil)
	r.accessor(obj, "lastChild", func() interface{} { return r.wrap(n.LastChild) }, nil)
	r.accessor(obj, "nextSibling", func() interface{} { return r.wrap(n.NextSibling) }, nil)
	r.accessor(obj, "previousSibling", func() interface{} { return r.wrap(n.PrevSibling) }, nil)
	r.accessor(obj, "childNodes", func() interface{} {
		var nodes []*html.Node
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			nodes = append(nodes, c)
		}
		return r.wrapAll(nodes)
	}, nil)
	obj.Set("remove", func(goja.FunctionCall) goja.Value {
		detach(n)
		return goja.Undefined()
	})
}

// containerMethods are shared by the document and elements
func (r *Runtime) containerMethods(obj *goja.Object, n *html.Node) {
	vm := r.vm
	obj.Set("querySelector", func(call goja.FunctionCall) goja.Value {
		matches := queryAll(n, call.Argument(0).String())
		if len(matches) == 0 {
			return goja.Null()
		}
		return r.wrap(matches[0])
	})
	obj.Set("querySelectorAll", func(call goja.FunctionCall) goja.Value {
		return r.wrapAll(queryAll(n, call.Argument(0).String()))
	})
	obj.Set("getElementsByClassName", func(call goja.FunctionCall) goja.Value {
		classes := strings.Fields(call.Argument(0).String())
		return r.wrapAll(findAll(n, func(m *html.Node) bool {
			if m.Type != html.ElementNode || len(classes) == 0 {
				return false
			}
			for _, c := range classes {
				if !hasClass(m, c) {
					return false
				}
			}
			return true
		}))
	})
	obj.Set("getElementsByTagName", func(call goja.FunctionCall) goja.Value {
		tag := call.Argument(0).String()
		return r.wrapAll(findAll(n, func(m *html.Node) bool {
			return m.Type == html.ElementNode && (tag == "*" || strings.EqualFold(m.Data, tag))
		}))
	})
	obj.Set("appendChild", func(call goja.FunctionCall) goja.Value {
		child := r.unwrap(call.Argument(0))
		if child == n || isAncestor(child, n) {
			panic(vm.NewTypeError("the new child element contains the parent"))
		}
		detach(child)
		n.AppendChild(child)
		return call.Argument(0)
	})
	obj.Set("removeChild", func(call goja.FunctionCall) goja.Value {
		child := r.unwrap(call.Argument(0))
		if child.Parent != n {
			panic(vm.NewTypeError("the node to be removed is not a child of this node"))
		}
		n.RemoveChild(child)
		return call.Argument(0)
	})
	obj.Set("insertBefore", func(call goja.FunctionCall) goja.Value {
		child := r.unwrap(call.Argument(0))
		ref := call.Argument(1)
		if goja.IsNull(ref) || goja.IsUndefined(ref) {
			detach(child)
			n.AppendChild(child)
			return call.Argument(0)
		}
		refNode := r.unwrap(ref)
		if refNode.Parent != n {
			panic(vm.NewTypeError("the node before which the new node is to be inserted is not a child of this node"))
		}
		detach(child)
		n.InsertBefore(child, refNode)
		return call.Argument(0)
	})
	obj.Set("addEventListener", r.makeAddListener(n))
	obj.Set("removeEventListener", r.makeRemoveListener(n))
	r.accessor(obj, "children", func() interface{} { return r.wrapAll(elementChildren(n)) }, nil)
	r.accessor(obj, "firstElementChild", func() interface{} {
		if kids := elementChildren(n); len(kids) > 0 {
			return r.wrap(kids[0])
		}
		return goja.Null()
	}, nil)
	r.accessor(obj, "lastElementChild", func() interface{} {
		if kids := elementChildren(n); len(kids) > 0 {
			return r.wrap(kids[len(kids)-1])
		}
		return goja.Null()
	}, nil)
}

func (r *Runtime) documentProxy(n *html.Node) *goja.Object {
	vm := r.vm
	doc := vm.NewObject()
	doc.Set("nodeType", 9)
	doc.Set("nodeName", "#document")
	doc.Set("readyState", "complete")

	r.nodeAccessors(doc, n)
	r.containerMethods(doc, n)

	doc.Set("getElementById", func(call goja.FunctionCall) goja.Value {
		id := call.Argument(0).String()
		return r.wrap(findFirst(n, func(m *html.Node) bool {
			return m.Type == html.ElementNode && attr(m, "id") == id
		}))
	})
	doc.Set("createElement", func(call goja.FunctionCall) goja.Value {
		return r.wrap(newElement(call.Argument(0).String()))
	})
	doc.Set("createTextNode", func(call goja.FunctionCall) goja.Value {
		return r.wrap(&html.Node{Type: html.TextNode, Data: call.Argument(0).String()})
	})

	r.accessor(doc, "body", func() interface{} { return r.wrap(r.dom.Body()) }, nil)
	r.accessor(doc, "head", func() interface{} { return r.wrap(r.dom.Head()) }, nil)
	r.accessor(doc, "documentElement", func() interface{} {
		return r.wrap(findFirst(n, func(m *html.Node) bool { return m.DataAtom == atom.Html }))
	}, nil)
	r.accessor(doc, "title", func() interface{} {
		if t := findFirst(n, func(m *html.Node) bool { return m.DataAtom == atom.Title }); t != nil {
			return strings.TrimSpace(textContent(t))
		}
		return ""
	}, func(v goja.Value) {
		t := findFirst(n, func(m *html.Node) bool { return m.DataAtom == atom.Title })
		if t == nil {
			head := r.dom.Head()
			if head == nil {
				return
			}
			t = newElement("title")
			head.AppendChild(t)
		}
		setTextContent(t, v.String())
	})
	return doc
}

func (r *Runtime) elementProxy(n *html.Node) *goja.Object {
	vm := r.vm
	el := vm.NewObject()
	el.Set("nodeType", 1)

	r.nodeAccessors(el, n)
	r.containerMethods(el, n)

	r.accessor(el, "tagName", func() interface{} { return strings.ToUpper(n.Data) }, nil)
	r.accessor(el, "nodeName", func() interface{} { return strings.ToUpper(n.Data) }, nil)
	r.attrAccessor(el, n, "id", "id")
	r.attrAccessor(el, n, "className", "class")
	r.attrAccessor(el, n, "href", "href")
	r.attrAccessor(el, n, "src", "src")
	r.attrAccessor(el, n, "type", "type")
	r.attrAccessor(el, n, "name", "name")
	r.attrAccessor(el, n, "placeholder", "placeholder")
	r.boolAttrAccessor(el, n, "disabled")
	r.boolAttrAccessor(el, n, "checked")
	r.boolAttrAccessor(el, n, "hidden")

	text := func() interface{} { return textContent(n) }
	setText := func(v goja.Value) { setTextContent(n, v.String()) }
	r.accessor(el, "textContent", text, setText)
	r.accessor(el, "innerText", text, setText)

	r.accessor(el, "innerHTML", func() interface{} { return innerHTML(n) }, func(v goja.Value) {
		if err := setInnerHTML(n, v.String()); err != nil {
			panic(vm.NewGoError(err))
		}
	})
	r.accessor(el, "outerHTML", func() interface{} { return outerHTML(n) }, nil)

	r.accessor(el, "value", func() interface{} {
		if n.DataAtom == atom.Textarea {
			return textContent(n)
		}
		return attr(n, "value")
	}, func(v goja.Value) {
		if n.DataAtom == atom.Textarea {
			setTextContent(n, v.String())
			return
		}
		setAttr(n, "value", v.String())
	})

	r.accessor(el, "nextElementSibling", func() interface{} {
		for s := n.NextSibling; s != nil; s = s.NextSibling {
			if s.Type == html.ElementNode {
				return r.wrap(s)
			}
		}
		return goja.Null()
	}, nil)
	r.accessor(el, "previousElementSibling", func() interface{} {
		for s := n.PrevSibling; s != nil; s = s.PrevSibling {
			if s.Type == html.ElementNode {
				return r.wrap(s)
			}
		}
		return goja.Null()
	}, nil)

	el.Set("style", vm.NewDynamicObject(&styleDecl{r: r, n: n}))
	el.Set("classList", r.classListProxy(n))
	el.Set("dataset", r.datasetProxy(n))

	el.Set("getAttribute", func(call goja.FunctionCall) goja.Value {
		if v, ok := attrLookup(n, call.Argument(0).String()); ok {
			return vm.ToValue(v)
		}
		return goja.Null()
	})
	el.Set("setAttribute", func(call goja.FunctionCall) goja.Value {
		setAttr(n, call.Argument(0).String(), call.Argument(1).String())
		return goja.Undefined()
	})
	el.Set("removeAttribute", func(call goja.FunctionCall) goja.Value {
		removeAttr(n, call.Argument(0).String())
		return goja.Undefined()
	})
	el.Set("hasAttribute", func(call goja.FunctionCall) goja.Value {
		_, ok := attrLookup(n, call.Argument(0).String())
		return vm.ToValue(ok)
	})
	el.Set("click", func(goja.FunctionCall) goja.Value {
		// The nested call consumed the interrupt; re-arm it so the caller stops too
		if _, err := r.dispatch(n, "click", true); err != nil {
			r.vm.Interrupt(interruptMessage(err))
		}
		return goja.Undefined()
	})
	el.Set("focus", func(goja.FunctionCall) goja.Value { return goja.Undefined() })
	el.Set("blur", func(goja.FunctionCall) goja.Value { return goja.Undefined() })
	el.Set("scrollIntoView", func(goja.FunctionCall) goja.Value { return goja.Undefined() })
	el.Set("reset", func(goja.FunctionCall) goja.Value {
		walk(n, func(m *html.Node) {
			if m.DataAtom == atom.Input {
				removeAttr(m, "value")
			}
			if m.DataAtom == atom.Textarea {
				setTextContent(m, "")
			}
		})
		return goja.Undefined()
	})
	return el
}

func (r *Runtime) textProxy(n *html.Node) *goja.Object {
	obj := r.vm.NewObject()
	obj.Set("nodeType", 3)
	obj.Set("nodeName", "#text")
	r.nodeAccessors(obj, n)
	data := func() interface{} { return n.Data }
	setData := func(v goja.Value) { n.Data = v.String() }
	r.accessor(obj, "textContent", data, setData)
	r.accessor(obj, "nodeValue", data, setData)
	r.accessor(obj, "data", data, setData)
	return obj
}

func (r *Runtime) attrAccessor(obj *goja.Object, n *html.Node, prop, name string) {
	r.accessor(obj, prop, func() interface{} { return attr(n, name) }, func(v goja.Value) {
		setAttr(n, name, v.String())
	})
}

func (r *Runtime) boolAttrAccessor(obj *goja.Object, n *html.Node, name string) {
	r.accessor(obj, name, func() interface{} {
		_, ok := attrLookup(n, name)
		return ok
	}, func(v goja.Value) {
		if v.ToBoolean() {
			setAttr(n, name, "")
			return
		}
		removeAttr(n, name)
	})
}

func (r *Runtime) classListProxy(n *html.Node) *goja.Object {
	vm := r.vm
	list := vm.NewObject()
	list.Set("add", func(call goja.FunctionCall) goja.Value {
		for _, arg := range call.Arguments {
			addClass(n, arg.String())
		}
		return goja.Undefined()
	})
	list.Set("remove", func(call goja.FunctionCall) goja.Value {
		for _, arg := range call.Arguments {
			removeClass(n, arg.String())
		}
		return goja.Undefined()
	})
	list.Set("contains", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(hasClass(n, call.Argument(0).String()))
	})
	list.Set("toggle", func(call goja.FunctionCall) goja.Value {
		class := call.Argument(0).String()
		on := !hasClass(n, class)
		if force := call.Argument(1); !goja.IsUndefined(force) {
			on = force.ToBoolean()
		}
		if on {
			addClass(n, class)
		} else {
			removeClass(n, class)
		}
		return vm.ToValue(on)
	})
	r.accessor(list, "length", func() interface{} { return len(classList(n)) }, nil)
	return list
}

// datasetProxy exposes data-* attributes
func (r *Runtime) datasetProxy(n *html.Node) *goja.Object {
	return r.vm.NewDynamicObject(&dataset{r: r, n: n})
}

type dataset struct {
	r *Runtime
	n *html.Node
}

func (d *dataset) Get(key string) goja.Value {
	if v, ok := attrLookup(d.n, "data-"+cssName(key)); ok {
		return d.r.vm.ToValue(v)
	}
	return goja.Undefined()
}

func (d *dataset) Set(key string, val goja.Value) bool {
	setAttr(d.n, "data-"+cssName(key), val.String())
	return true
}

func (d *dataset) Has(key string) bool {
	_, ok := attrLookup(d.n, "data-"+cssName(key))
	return ok
}

func (d *dataset) Delete(key string) bool {
	removeAttr(d.n, "data-"+cssName(key))
	return true
}

func (d *dataset) Keys() []string {
	var keys []string
	for _, a := range d.n.Attr {
		if name, ok := strings.CutPrefix(a.Key, "data-"); ok {
			keys = append(keys, camelName(name))
		}
	}
	return keys
}

func camelName(s string) string {
	parts := strings.Split(s, "-")
	for i := 1; i < len(parts); i++ {
		if parts[i] != "" {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, "")
}

func isAncestor(ancestor, n *html.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p == ancestor {
			return true
		}
	}
	return false
}
