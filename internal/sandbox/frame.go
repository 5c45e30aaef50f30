package sandbox

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// ErrNotLoaded is returned when interacting with a frame that holds no live document
var ErrNotLoaded = errors.New("frame has no live document")

// Frame is a render target: an isolated context that receives one complete
// document per run. Its content is replaced wholesale by every run and only
// the Runner writes to it.
type Frame struct {
	mu      sync.Mutex
	id      string
	dom     *DOM
	runtime *Runtime
	last    *Outcome
	runs    int
	closed  bool
	created time.Time
	updated time.Time
}

// Match describes an element found by a frame query
type Match struct {
	Tag  string            `json:"tag"`
	Text string            `json:"text"`
	HTML string            `json:"html"`
	Attr map[string]string `json:"attributes,omitempty"`
}

// FrameInfo is a snapshot of frame state
type FrameInfo struct {
	ID        string    `json:"id"`
	Runs      int       `json:"runs"`
	Loaded    bool      `json:"loaded"`
	LastState Status    `json:"last_status,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewFrame creates a frame holding an empty document
func NewFrame(id string) *Frame {
	now := time.Now()
	return &Frame{
		id:      id,
		dom:     NewDOM(),
		created: now,
		updated: now,
	}
}

// ID returns the frame identifier
func (f *Frame) ID() string {
	return f.id
}

// Info returns a snapshot of the frame
func (f *Frame) Info() FrameInfo {
	f.mu.Lock()
	defer f.mu.Unlock()

	info := FrameInfo{
		ID:        f.id,
		Runs:      f.runs,
		Loaded:    f.runtime != nil,
		CreatedAt: f.created,
		UpdatedAt: f.updated,
	}
	if f.last != nil {
		info.LastState = f.last.Status
	}
	return info
}

// HTML serializes the current document
func (f *Frame) HTML() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dom.Render()
}

// Last returns the outcome of the most recent run, if any
func (f *Frame) Last() *Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

// Query returns elements matching a CSS selector
func (f *Frame) Query(selector string) []Match {
	f.mu.Lock()
	defer f.mu.Unlock()
	return matches(f.dom.Query(selector))
}

// QueryXPath returns elements matching an XPath expression
func (f *Frame) QueryXPath(expr string) ([]Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	nodes, err := htmlquery.QueryAll(f.dom.Root(), expr)
	if err != nil {
		return nil, fmt.Errorf("invalid xpath: %w", err)
	}
	return matches(nodes), nil
}

// Clear resets the frame to an empty document. It is idempotent.
func (f *Frame) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reset()
	f.last = nil
}

// Close releases the live runtime; later runs fail with ErrFrameClosed
func (f *Frame) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reset()
	f.closed = true
}

// reset must be called with mu held
func (f *Frame) reset() {
	f.dom = NewDOM()
	f.runtime = nil
	f.updated = time.Now()
}

func matches(nodes []*html.Node) []Match {
	result := make([]Match, 0, len(nodes))
	for _, n := range nodes {
		m := Match{
			Tag:  n.Data,
			Text: strings.TrimSpace(textContent(n)),
			HTML: outerHTML(n),
		}
		if n.Type == html.ElementNode && len(n.Attr) > 0 {
			m.Attr = make(map[string]string, len(n.Attr))
			for _, a := range n.Attr {
				m.Attr[a.Key] = a.Val
			}
		}
		result = append(result, m)
	}
	return result
}
