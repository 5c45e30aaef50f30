package resilience

import (
	"errors"
	"sync"
	"time"
)

var (
	ErrCircuitOpen     = errors.New("circuit breaker is open")
	ErrTooManyRequests = errors.New("too many probe requests")
)

// State represents the circuit breaker state
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Settings configures when the breaker trips and how it recovers
type Settings struct {
	// Threshold is the number of consecutive failures that opens the breaker
	Threshold int
	// Cooldown is how long the breaker stays open before probing
	Cooldown time.Duration
	// Probes is how many calls may run while half-open; that many
	// consecutive successes close the breaker again
	Probes int
	// IsFailure decides which errors count against the breaker. Errors it
	// rejects are returned to the caller but counted as successes.
	IsFailure func(err error) bool
	// OnStateChange is called with the breaker lock held
	OnStateChange func(name string, from, to State)
}

// Counts holds the statistics of the current state
type Counts struct {
	Calls                uint32
	Failures             uint32
	ConsecutiveFailures  uint32
	ConsecutiveSuccesses uint32
}

// Breaker sheds calls to a resource that keeps failing
type Breaker struct {
	name     string
	settings Settings

	mu       sync.Mutex
	state    State
	counts   Counts
	openedAt time.Time
	epoch    uint64 // Bumped on every state change
	now      func() time.Time
}

// New creates a closed breaker
func New(name string, settings Settings) *Breaker {
	if settings.Threshold <= 0 {
		settings.Threshold = 5
	}
	if settings.Cooldown <= 0 {
		settings.Cooldown = 10 * time.Second
	}
	if settings.Probes <= 0 {
		settings.Probes = 1
	}
	if settings.IsFailure == nil {
		settings.IsFailure = func(err error) bool { return err != nil }
	}
	return &Breaker{
		name:     name,
		settings: settings,
		now:      time.Now,
	}
}

// Name returns the breaker name
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current state, moving open to half-open once the
// cooldown has passed
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current()
}

// Counts returns a copy of the counts for the current state
func (b *Breaker) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts
}

// Guard runs fn unless the breaker is open. fn's error is returned as is.
func (b *Breaker) Guard(fn func() error) error {
	epoch, err := b.admit()
	if err != nil {
		return err
	}

	failed := true
	defer func() {
		if failed {
			// fn panicked
			b.record(epoch, true)
		}
	}()

	err = fn()
	failed = false
	b.record(epoch, b.settings.IsFailure(err))
	return err
}

func (b *Breaker) admit() (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.current() {
	case StateOpen:
		return b.epoch, ErrCircuitOpen
	case StateHalfOpen:
		if int(b.counts.Calls) >= b.settings.Probes {
			return b.epoch, ErrTooManyRequests
		}
	}
	b.counts.Calls++
	return b.epoch, nil
}

func (b *Breaker) record(epoch uint64, failed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	state := b.current()
	// Results from before a state change say nothing about the new state
	if epoch != b.epoch {
		return
	}

	if !failed {
		b.counts.ConsecutiveSuccesses++
		b.counts.ConsecutiveFailures = 0
		if state == StateHalfOpen && int(b.counts.ConsecutiveSuccesses) >= b.settings.Probes {
			b.transition(StateClosed)
		}
		return
	}

	b.counts.Failures++
	b.counts.ConsecutiveFailures++
	b.counts.ConsecutiveSuccesses = 0
	switch state {
	case StateClosed:
		if int(b.counts.ConsecutiveFailures) >= b.settings.Threshold {
			b.transition(StateOpen)
		}
	case StateHalfOpen:
		b.transition(StateOpen)
	}
}

// current must be called with mu held
func (b *Breaker) current() State {
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.settings.Cooldown {
		b.transition(StateHalfOpen)
	}
	return b.state
}

// transition must be called with mu held
func (b *Breaker) transition(to State) {
	if b.state == to {
		return
	}
	from := b.state
	b.state = to
	b.counts = Counts{}
	b.epoch++
	if to == StateOpen {
		b.openedAt = b.now()
	}
	if b.settings.OnStateChange != nil {
		b.settings.OnStateChange(b.name, from, to)
	}
}
