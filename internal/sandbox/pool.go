package sandbox

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrPoolClosed = errors.New("sandbox pool is closed")
	ErrTimeout    = errors.New("sandbox acquisition timeout")
)

// Pool bounds how many runs execute at once across all frames. Runtimes
// themselves are never reused; a slot only grants the right to create one.
type Pool struct {
	slots   chan struct{}
	done    chan struct{}
	size    int
	timeout time.Duration
	mu      sync.RWMutex
	closed  bool
}

// NewPool creates a pool with size execution slots
func NewPool(size int, acquireTimeout time.Duration) *Pool {
	if size <= 0 {
		size = 4
	}
	if acquireTimeout <= 0 {
		acquireTimeout = 5 * time.Second
	}

	pool := &Pool{
		slots:   make(chan struct{}, size),
		done:    make(chan struct{}),
		size:    size,
		timeout: acquireTimeout,
	}
	for i := 0; i < size; i++ {
		pool.slots <- struct{}{}
	}
	return pool
}

// Acquire takes a slot, waiting up to the acquire timeout
func (p *Pool) Acquire(ctx context.Context) error {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return ErrPoolClosed
	}

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()

	select {
	case <-p.slots:
		return nil
	case <-p.done:
		return ErrPoolClosed
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrTimeout
	}
}

// Release returns a slot to the pool
func (p *Pool) Release() {
	select {
	case p.slots <- struct{}{}:
	default:
		// Pool full; Release without Acquire
	}
}

// Close stops handing out slots
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	close(p.done)
	return nil
}

// Stats returns pool statistics
func (p *Pool) Stats() map[string]interface{} {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return map[string]interface{}{
		"size":      p.size,
		"available": len(p.slots),
		"in_use":    p.size - len(p.slots),
		"closed":    p.closed,
	}
}
