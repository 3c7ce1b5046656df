package daemon

import (
	"errors"
	"sync"

	"github.com/eliteGoblin/focusd/act_mon/internal/domain"
)

// memorySink implements domain.EventSink for testing
type memorySink struct {
	mu     sync.Mutex
	events []domain.ActivityEvent
	closed bool
}

func (s *memorySink) Write(ev domain.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *memorySink) Flush() error { return nil }

func (s *memorySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *memorySink) Kinds() []domain.EventKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kinds []domain.EventKind
	for _, ev := range s.events {
		kinds = append(kinds, ev.Kind)
	}
	return kinds
}

func (s *memorySink) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// fixedInspector always reports the same window
type fixedInspector struct {
	win domain.ForegroundWindow
}

func (f *fixedInspector) Current() (domain.ForegroundWindow, error) {
	return f.win, nil
}

// mockProcessManager implements domain.ProcessManager for testing
type mockProcessManager struct {
	mu         sync.Mutex
	terminated []int
}

func (m *mockProcessManager) Name(pid int) (string, error) { return "", domain.ErrProcessGone }

func (m *mockProcessManager) Terminate(pid int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.terminated = append(m.terminated, pid)
	return nil
}

func (m *mockProcessManager) IsRunning(pid int) bool { return true }

func (m *mockProcessManager) Terminated() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.terminated...)
}

// countingHook implements domain.InputHookSource for testing
type countingHook struct {
	mu     sync.Mutex
	starts int
	stops  int
}

func (h *countingHook) Start(cfg *domain.Config, onEvent func(domain.ActivityEvent)) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.starts++
	return nil
}

func (h *countingHook) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stops++
	return nil
}

func (h *countingHook) Counts() (int, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.starts, h.stops
}

// deniedNotifier fails every subscription
type deniedNotifier struct{}

func (deniedNotifier) Subscribe(onStart, onStop func(domain.ProcessInfo)) (domain.Subscription, error) {
	return nil, errors.New("permission denied")
}

// recordingApplier implements ConfigApplier for testing
type recordingApplier struct {
	mu    sync.Mutex
	calls [][2]*domain.Config
}

func (r *recordingApplier) ApplyConfig(old, next *domain.Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, [2]*domain.Config{old, next})
}

func (r *recordingApplier) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// emittingHook implements domain.InputHookSource and lets the test push events
type emittingHook struct {
	mu      sync.Mutex
	onEvent func(domain.ActivityEvent)
}

func (h *emittingHook) Start(cfg *domain.Config, onEvent func(domain.ActivityEvent)) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onEvent = onEvent
	return nil
}

func (h *emittingHook) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onEvent = nil
	return nil
}

func (h *emittingHook) Emit(ev domain.ActivityEvent) {
	h.mu.Lock()
	onEvent := h.onEvent
	h.mu.Unlock()
	if onEvent != nil {
		onEvent(ev)
	}
}
