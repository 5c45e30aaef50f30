package sandbox

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DOM is the document tree of a rendered frame
type DOM struct {
	root *html.Node
}

// NewDOM returns an empty document (html, head and body only)
func NewDOM() *DOM {
	dom, _ := ParseDOM("")
	return dom
}

// ParseDOM parses a complete document. Malformed markup is repaired the way
// an HTML5 parser would; it is never rejected.
func ParseDOM(src string) (*DOM, error) {
	root, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return nil, err
	}
	return &DOM{root: root}, nil
}

// Root returns the document node
func (d *DOM) Root() *html.Node {
	return d.root
}

// Body returns the body element
func (d *DOM) Body() *html.Node {
	return findFirst(d.root, func(n *html.Node) bool { return n.DataAtom == atom.Body })
}

// Head returns the head element
func (d *DOM) Head() *html.Node {
	return findFirst(d.root, func(n *html.Node) bool { return n.DataAtom == atom.Head })
}

// Render serializes the whole document
func (d *DOM) Render() string {
	var buf bytes.Buffer
	if err := html.Render(&buf, d.root); err != nil {
		return ""
	}
	return buf.String()
}

// Document wraps the tree for selector queries
func (d *DOM) Document() *goquery.Document {
	return goquery.NewDocumentFromNode(d.root)
}

// Query finds elements by CSS selector in document order
func (d *DOM) Query(selector string) []*html.Node {
	return queryAll(d.root, selector)
}

// ByID finds the first element with the given id
func (d *DOM) ByID(id string) *html.Node {
	return findFirst(d.root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && attr(n, "id") == id
	})
}

// Scripts returns inline script elements in document order
func (d *DOM) Scripts() []*html.Node {
	var scripts []*html.Node
	walk(d.root, func(n *html.Node) {
		if n.Type != html.ElementNode || n.DataAtom != atom.Script {
			return
		}
		if _, ok := attrLookup(n, "src"); ok {
			return
		}
		switch strings.ToLower(strings.TrimSpace(attr(n, "type"))) {
		case "", "text/javascript", "application/javascript", "module":
			scripts = append(scripts, n)
		}
	})
	return scripts
}

// AppendHTML parses fragment in the context of parent and appends the result
func AppendHTML(parent *html.Node, fragment string) error {
	nodes, err := html.ParseFragment(strings.NewReader(fragment), parent)
	if err != nil {
		return err
	}
	for _, n := range nodes {
		parent.AppendChild(n)
	}
	return nil
}

// Helper methods for querying

func queryAll(root *html.Node, selector string) []*html.Node {
	if strings.TrimSpace(selector) == "" {
		return nil
	}
	return goquery.NewDocumentFromNode(root).Find(selector).Nodes
}

func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, match); found != nil {
			return found
		}
	}
	return nil
}

func findAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var result []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, func(m *html.Node) {
			if match(m) {
				result = append(result, m)
			}
		})
	}
	return result
}

func attrLookup(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, name) {
			return a.Val, true
		}
	}
	return "", false
}

func attr(n *html.Node, name string) string {
	v, _ := attrLookup(n, name)
	return v
}

func setAttr(n *html.Node, name, value string) {
	name = strings.ToLower(name)
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: value})
}

func removeAttr(n *html.Node, name string) {
	name = strings.ToLower(name)
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			continue
		}
		kept = append(kept, a)
	}
	n.Attr = kept
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	walk(n, func(m *html.Node) {
		if m.Type == html.TextNode {
			buf.WriteString(m.Data)
		}
	})
	return buf.String()
}

func setTextContent(n *html.Node, text string) {
	removeChildren(n)
	if text != "" {
		n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	}
}

func innerHTML(n *html.Node) string {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			break
		}
	}
	return buf.String()
}

func outerHTML(n *html.Node) string {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return ""
	}
	return buf.String()
}

func setInnerHTML(n *html.Node, fragment string) error {
	nodes, err := html.ParseFragment(strings.NewReader(fragment), n)
	if err != nil {
		return err
	}
	removeChildren(n)
	for _, c := range nodes {
		n.AppendChild(c)
	}
	return nil
}

func removeChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
}

// detach removes n from its parent, if any
func detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

func elementChildren(n *html.Node) []*html.Node {
	var result []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			result = append(result, c)
		}
	}
	return result
}

func newElement(tag string) *html.Node {
	tag = strings.ToLower(tag)
	return &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}
}

func classList(n *html.Node) []string {
	return strings.Fields(attr(n, "class"))
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range classList(n) {
		if c == class {
			return true
		}
	}
	return false
}

func addClass(n *html.Node, class string) {
	if hasClass(n, class) {
		return
	}
	setAttr(n, "class", strings.TrimSpace(attr(n, "class")+" "+class))
}

func removeClass(n *html.Node, class string) {
	var kept []string
	for _, c := range classList(n) {
		if c != class {
			kept = append(kept, c)
		}
	}
	setAttr(n, "class", strings.Join(kept, " "))
}
