package assistant

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// DefaultTopic is reported when no rule matches
const DefaultTopic = "default"

//go:embed responses.toml
var builtinResponses []byte

// Rule maps question keywords to a canned answer
type Rule struct {
	Topic    string   `toml:"topic" json:"topic"`
	Keywords []string `toml:"keywords" json:"keywords"`
	Answer   string   `toml:"answer" json:"answer"`
}

// Link points at an external assistant
type Link struct {
	Name string `toml:"name" json:"name"`
	URL  string `toml:"url" json:"url"`
}

// Table is the immutable response table. Rules are tried in order.
type Table struct {
	Rules   []Rule `toml:"rules"`
	Default string `toml:"default"`
	Tip     string `toml:"tip"`
	Links   []Link `toml:"links"`
}

// ParseTable decodes a TOML response table
func ParseTable(data []byte) (*Table, error) {
	var t Table
	if err := toml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse response table: %w", err)
	}
	if strings.TrimSpace(t.Default) == "" {
		return nil, errors.New("response table has no default answer")
	}
	for i, r := range t.Rules {
		if r.Topic == "" || len(r.Keywords) == 0 {
			return nil, fmt.Errorf("rule %d needs a topic and keywords", i)
		}
	}
	return &t, nil
}

// BuiltinTable returns the table shipped with the binary
func BuiltinTable() *Table {
	t, err := ParseTable(builtinResponses)
	if err != nil {
		panic(err)
	}
	return t
}

// Match returns the topic and answer for an already normalized question
func (t *Table) Match(question string) (string, string) {
	for _, r := range t.Rules {
		for _, kw := range r.Keywords {
			if strings.Contains(question, kw) {
				return r.Topic, r.Answer
			}
		}
	}
	return DefaultTopic, t.Default
}
