package sandbox

import (
	"errors"
	"time"
)

var (
	ErrFrameClosed = errors.New("sandbox frame is closed")
	ErrNoElement   = errors.New("no element matches selector")
)

// Config defines sandbox configuration
type Config struct {
	Timeout       time.Duration // Per-run execution timeout
	MaxCallStack  int           // Maximum JS call stack depth
	MaxTimers     int           // setTimeout callbacks drained per run
	EnableConsole bool          // Capture console.log/warn/error
}

// DefaultConfig returns the configuration used by the server
func DefaultConfig() Config {
	return Config{
		Timeout:       5 * time.Second,
		MaxCallStack:  1024,
		MaxTimers:     100,
		EnableConsole: true,
	}
}

// SourceBundle holds the three independently edited sources of a run.
// No relationship between the fields is enforced.
type SourceBundle struct {
	Markup string `json:"markup"`
	Style  string `json:"style"`
	Script string `json:"script"`
}

// Status is the terminal state of a run
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Outcome is the structured view of a run. The visible error block inside
// the rendered document remains the primary report; Outcome mirrors it.
type Outcome struct {
	Status   Status        `json:"status"`
	Error    string        `json:"error,omitempty"`
	Console  []LogEntry    `json:"console"`
	Alerts   []string      `json:"alerts"`
	Document string        `json:"document"`
	Duration time.Duration `json:"duration_ns"`
}

// Failed reports whether the user script raised
func (o *Outcome) Failed() bool {
	return o.Status == StatusFailed
}

// LogEntry represents console output
type LogEntry struct {
	Level   string    `json:"level"`   // log, info, warn, error
	Message string    `json:"message"` // Joined arguments
	Time    time.Time `json:"time"`
}
