package assistant

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/codefixlab/internal/infrastructure/monitoring"
)

// ErrEmptyQuestion is returned for blank questions
var ErrEmptyQuestion = errors.New("question is empty")

// EmptyQuestionMessage is shown to users who ask nothing
const EmptyQuestionMessage = "Please enter a coding question first."

// Answer is a rendered assistant reply
type Answer struct {
	Question string `json:"question"`
	Topic    string `json:"topic"`
	Markdown string `json:"markdown"`
	HTML     string `json:"html"`
}

// Assistant answers coding questions from a fixed keyword table
type Assistant struct {
	table   *Table
	delay   time.Duration
	md      goldmark.Markdown
	policy  *bluemonday.Policy
	logger  *zap.Logger
	metrics *monitoring.Metrics
}

// New creates an assistant over table. delay simulates thinking time.
func New(table *Table, delay time.Duration, logger *zap.Logger) *Assistant {
	if table == nil {
		table = BuiltinTable()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assistant{
		table:  table,
		delay:  delay,
		md:     goldmark.New(),
		policy: bluemonday.UGCPolicy(),
		logger: logger,
	}
}

// WithMetrics adds metrics tracking to the assistant
func (a *Assistant) WithMetrics(metrics *monitoring.Metrics) *Assistant {
	a.metrics = metrics
	return a
}

// Ask answers question after the configured delay. It returns early with the
// context error if ctx is cancelled while waiting.
func (a *Assistant) Ask(ctx context.Context, question string) (*Answer, error) {
	normalized := strings.ToLower(strings.TrimSpace(question))
	if normalized == "" {
		return nil, ErrEmptyQuestion
	}

	if a.delay > 0 {
		timer := time.NewTimer(a.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	topic, markdown := a.table.Match(normalized)
	rendered, err := a.render(markdown)
	if err != nil {
		return nil, err
	}

	a.logger.Debug("Assistant answered", zap.String("topic", topic))
	if a.metrics != nil {
		a.metrics.RecordQuestion(topic)
	}

	return &Answer{
		Question: question,
		Topic:    topic,
		Markdown: strings.TrimSpace(markdown),
		HTML:     rendered,
	}, nil
}

// Links returns the external assistants offered next to the canned answers
func (a *Assistant) Links() []Link {
	return append([]Link{}, a.table.Links...)
}

// render converts markdown to sanitized HTML inside the suggestion card
func (a *Assistant) render(markdown string) (string, error) {
	var body bytes.Buffer
	if err := a.md.Convert([]byte(markdown), &body); err != nil {
		return "", fmt.Errorf("failed to render answer: %w", err)
	}

	var card strings.Builder
	card.WriteString(`<div class="ai-suggestion" style="background: white; padding: 15px; border-radius: 8px; border-left: 4px solid #4a6bff;">`)
	card.WriteString(`<h4 style="margin-top: 0; color: #4a6bff;">AI Suggestion:</h4>`)
	card.WriteString(a.policy.Sanitize(body.String()))
	card.WriteString(`<hr style="margin: 15px 0;">`)
	card.WriteString(`<p style="font-size: 0.9em; color: #666;"><strong>Tip:</strong> `)
	card.WriteString(html.EscapeString(a.table.Tip))
	card.WriteString(`</p></div>`)
	return card.String(), nil
}
