package frame

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/GriffinCanCode/codefixlab/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/codefixlab/internal/sandbox"
)

var (
	ErrNotFound = errors.New("frame not found")
	ErrLimit    = errors.New("frame limit reached")
)

// durationWindow is how many recent run durations feed the latency summary
const durationWindow = 256

// Manager owns render targets by id and routes runs to them
type Manager struct {
	mu        sync.RWMutex
	frames    map[string]*sandbox.Frame // Protected by mu
	durations []float64                 // Protected by mu, milliseconds
	next      int                       // Protected by mu, ring position
	runner    *sandbox.Runner
	maxFrames int
	metrics   *monitoring.Metrics
}

// Stats summarizes the registry and recent run latency
type Stats struct {
	Frames        int     `json:"frames"`
	Loaded        int     `json:"loaded"`
	Runs          int     `json:"runs"`
	Failed        int     `json:"failed"`
	MeanRunMillis float64 `json:"mean_run_ms"`
	P50RunMillis  float64 `json:"p50_run_ms"`
	P95RunMillis  float64 `json:"p95_run_ms"`
}

// NewManager creates a frame manager. maxFrames <= 0 means unlimited.
func NewManager(runner *sandbox.Runner, maxFrames int) *Manager {
	return &Manager{
		frames:    make(map[string]*sandbox.Frame),
		runner:    runner,
		maxFrames: maxFrames,
	}
}

// WithMetrics adds metrics tracking to the manager
func (m *Manager) WithMetrics(metrics *monitoring.Metrics) *Manager {
	m.metrics = metrics
	return m
}

// Create registers a new empty frame
func (m *Manager) Create() (*sandbox.Frame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.maxFrames > 0 && len(m.frames) >= m.maxFrames {
		return nil, ErrLimit
	}

	f := sandbox.NewFrame(uuid.New().String())
	m.frames[f.ID()] = f

	if m.metrics != nil {
		m.metrics.IncFramesTotal()
		m.metrics.SetFramesActive(len(m.frames))
	}
	return f, nil
}

// Get retrieves a frame by id
func (m *Manager) Get(id string) (*sandbox.Frame, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	f, ok := m.frames[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return f, nil
}

// List returns a snapshot of every frame, oldest first
func (m *Manager) List() []sandbox.FrameInfo {
	m.mu.RLock()
	frames := make([]*sandbox.Frame, 0, len(m.frames))
	for _, f := range m.frames {
		frames = append(frames, f)
	}
	m.mu.RUnlock()

	infos := make([]sandbox.FrameInfo, 0, len(frames))
	for _, f := range frames {
		infos = append(infos, f.Info())
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].CreatedAt.Before(infos[j].CreatedAt)
	})
	return infos
}

// Delete closes a frame and forgets it
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	f, ok := m.frames[id]
	if ok {
		delete(m.frames, id)
	}
	count := len(m.frames)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	f.Close()

	if m.metrics != nil {
		m.metrics.SetFramesActive(count)
	}
	return nil
}

// Run renders b into the frame with the given id
func (m *Manager) Run(ctx context.Context, id string, b sandbox.SourceBundle) (*sandbox.Outcome, error) {
	f, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	outcome, err := m.runner.Run(ctx, f, b)
	if err != nil {
		return nil, err
	}
	m.observe(outcome.Duration)
	return outcome, nil
}

// Preview renders b into a brand new frame
func (m *Manager) Preview(ctx context.Context, b sandbox.SourceBundle) (*sandbox.Frame, *sandbox.Outcome, error) {
	f, err := m.Create()
	if err != nil {
		return nil, nil, err
	}
	outcome, err := m.Run(ctx, f.ID(), b)
	if err != nil {
		_ = m.Delete(f.ID())
		return nil, nil, err
	}
	return f, outcome, nil
}

// Clear empties the frame with the given id
func (m *Manager) Clear(id string) error {
	f, err := m.Get(id)
	if err != nil {
		return err
	}
	m.runner.Clear(f)
	return nil
}

// Dispatch fires an event inside the frame's live document
func (m *Manager) Dispatch(ctx context.Context, id, selector, event string) (*sandbox.Outcome, error) {
	f, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	return m.runner.Dispatch(ctx, f, selector, event)
}

// Close closes every frame
func (m *Manager) Close() {
	m.mu.Lock()
	frames := m.frames
	m.frames = make(map[string]*sandbox.Frame)
	m.mu.Unlock()

	for _, f := range frames {
		f.Close()
	}
	if m.metrics != nil {
		m.metrics.SetFramesActive(0)
	}
}

func (m *Manager) observe(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ms := float64(d) / float64(time.Millisecond)
	if len(m.durations) < durationWindow {
		m.durations = append(m.durations, ms)
		return
	}
	m.durations[m.next] = ms
	m.next = (m.next + 1) % durationWindow
}

// Stats returns manager statistics
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	frames := make([]*sandbox.Frame, 0, len(m.frames))
	for _, f := range m.frames {
		frames = append(frames, f)
	}
	sorted := make([]float64, len(m.durations))
	copy(sorted, m.durations)
	m.mu.RUnlock()

	s := Stats{Frames: len(frames)}
	for _, f := range frames {
		info := f.Info()
		s.Runs += info.Runs
		if info.Loaded {
			s.Loaded++
		}
		if info.LastState == sandbox.StatusFailed {
			s.Failed++
		}
	}

	if len(sorted) > 0 {
		sort.Float64s(sorted)
		s.MeanRunMillis = stat.Mean(sorted, nil)
		s.P50RunMillis = stat.Quantile(0.5, stat.Empirical, sorted, nil)
		s.P95RunMillis = stat.Quantile(0.95, stat.Empirical, sorted, nil)
	}
	return s
}
