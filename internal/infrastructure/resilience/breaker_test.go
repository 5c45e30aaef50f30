package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBusy = errors.New("busy")

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(settings Settings) (*Breaker, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	b := New("test", settings)
	b.now = clock.Now
	return b, clock
}

func fail() error    { return errBusy }
func succeed() error { return nil }

func TestBreakerStateTransitions(t *testing.T) {
	tests := []struct {
		name     string
		calls    []func() error
		expected State
	}{
		{"stays closed on successes", []func() error{succeed, succeed, succeed}, StateClosed},
		{"stays closed below threshold", []func() error{fail, fail}, StateClosed},
		{"success resets the streak", []func() error{fail, fail, succeed, fail, fail}, StateClosed},
		{"opens at threshold", []func() error{fail, fail, fail}, StateOpen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, _ := newTestBreaker(Settings{Threshold: 3, Cooldown: time.Minute})
			for _, call := range tt.calls {
				_ = b.Guard(call)
			}
			assert.Equal(t, tt.expected, b.State())
		})
	}
}

func TestBreakerOpenRejects(t *testing.T) {
	b, _ := newTestBreaker(Settings{Threshold: 2, Cooldown: time.Minute})
	_ = b.Guard(fail)
	_ = b.Guard(fail)

	ran := false
	err := b.Guard(func() error {
		ran = true
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, ran)
}

func TestBreakerHalfOpenRecovery(t *testing.T) {
	b, clock := newTestBreaker(Settings{Threshold: 2, Cooldown: time.Second, Probes: 2})
	_ = b.Guard(fail)
	_ = b.Guard(fail)
	require.Equal(t, StateOpen, b.State())

	clock.Advance(time.Second)
	assert.Equal(t, StateHalfOpen, b.State())

	require.NoError(t, b.Guard(succeed))
	assert.Equal(t, StateHalfOpen, b.State())
	require.NoError(t, b.Guard(succeed))
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	b, clock := newTestBreaker(Settings{Threshold: 1, Cooldown: time.Second})
	_ = b.Guard(fail)
	clock.Advance(time.Second)
	require.Equal(t, StateHalfOpen, b.State())

	assert.ErrorIs(t, b.Guard(fail), errBusy)
	assert.Equal(t, StateOpen, b.State())
}

func TestBreakerIsFailure(t *testing.T) {
	b, _ := newTestBreaker(Settings{
		Threshold: 1,
		IsFailure: func(err error) bool { return errors.Is(err, errBusy) },
	})

	other := errors.New("bad input")
	assert.ErrorIs(t, b.Guard(func() error { return other }), other)
	assert.Equal(t, StateClosed, b.State())

	_ = b.Guard(fail)
	assert.Equal(t, StateOpen, b.State())
}

func TestBreakerCounts(t *testing.T) {
	b, _ := newTestBreaker(Settings{Threshold: 10})
	_ = b.Guard(succeed)
	_ = b.Guard(fail)

	counts := b.Counts()
	assert.Equal(t, uint32(2), counts.Calls)
	assert.Equal(t, uint32(1), counts.Failures)
	assert.Equal(t, uint32(1), counts.ConsecutiveFailures)
	assert.Equal(t, uint32(0), counts.ConsecutiveSuccesses)
}

func TestBreakerCallbacks(t *testing.T) {
	var transitions []string
	b, clock := newTestBreaker(Settings{
		Threshold: 1,
		Cooldown:  time.Second,
		OnStateChange: func(name string, from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})

	_ = b.Guard(fail)
	clock.Advance(time.Second)
	_ = b.Guard(succeed)

	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, transitions)
}

func TestBreakerPanicCountsAsFailure(t *testing.T) {
	b, _ := newTestBreaker(Settings{Threshold: 1})
	assert.Panics(t, func() {
		_ = b.Guard(func() error { panic("boom") })
	})
	assert.Equal(t, StateOpen, b.State())
}
