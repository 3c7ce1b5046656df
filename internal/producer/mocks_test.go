package producer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/eliteGoblin/focusd/act_mon/internal/config"
	"github.com/eliteGoblin/focusd/act_mon/internal/domain"
	"github.com/eliteGoblin/focusd/act_mon/internal/usecase"
)

// recordingQueue implements domain.EventQueue for testing
type recordingQueue struct {
	mu     sync.Mutex
	events []domain.ActivityEvent
}

func (q *recordingQueue) Enqueue(ev domain.ActivityEvent) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.events = append(q.events, ev)
	return true
}

func (q *recordingQueue) Events() []domain.ActivityEvent {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]domain.ActivityEvent(nil), q.events...)
}

// mockHookSource implements domain.InputHookSource for testing
type mockHookSource struct {
	startErr error
	starts   int
	stops    int
	onEvent  func(domain.ActivityEvent)
}

func (m *mockHookSource) Start(cfg *domain.Config, onEvent func(domain.ActivityEvent)) error {
	m.starts++
	if m.startErr != nil {
		return m.startErr
	}
	m.onEvent = onEvent
	return nil
}

func (m *mockHookSource) Stop() error {
	m.stops++
	m.onEvent = nil
	return nil
}

// mockSubscription implements domain.Subscription for testing
type mockSubscription struct {
	closed int
}

func (s *mockSubscription) Close() error {
	s.closed++
	return nil
}

// mockLifecycleNotifier implements domain.ProcessLifecycleNotifier for testing
type mockLifecycleNotifier struct {
	err     error
	sub     *mockSubscription
	onStart func(domain.ProcessInfo)
	onStop  func(domain.ProcessInfo)
}

func (m *mockLifecycleNotifier) Subscribe(onStart, onStop func(domain.ProcessInfo)) (domain.Subscription, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.onStart, m.onStop = onStart, onStop
	m.sub = &mockSubscription{}
	return m.sub, nil
}

// mockDeviceNotifier implements domain.DeviceNotifier for testing
type mockDeviceNotifier struct {
	err      error
	sub      *mockSubscription
	onChange func(domain.DeviceChange)
}

func (m *mockDeviceNotifier) Subscribe(onChange func(domain.DeviceChange)) (domain.Subscription, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.onChange = onChange
	m.sub = &mockSubscription{}
	return m.sub, nil
}

// scriptedInspector returns a fixed foreground window until changed
type scriptedInspector struct {
	win   domain.ForegroundWindow
	err   error
	calls int
}

func (s *scriptedInspector) Current() (domain.ForegroundWindow, error) {
	s.calls++
	return s.win, s.err
}

type foregroundCall struct {
	pid  int
	name string
	at   time.Time
}

// mockHandler records foreground changes
type mockHandler struct {
	mu    sync.Mutex
	calls []foregroundCall
}

func (m *mockHandler) OnForegroundChange(ctx context.Context, pid int, name string, now time.Time) usecase.Decision {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, foregroundCall{pid: pid, name: name, at: now})
	return usecase.DecisionAllowed
}

func (m *mockHandler) Calls() []foregroundCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]foregroundCall(nil), m.calls...)
}

func newHolder() *config.Holder {
	return config.NewHolder(config.Default())
}

var errDenied = errors.New("operation not permitted")
