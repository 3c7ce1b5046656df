package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/act_mon/internal/config"
	"github.com/eliteGoblin/focusd/act_mon/internal/domain"
	"github.com/eliteGoblin/focusd/act_mon/internal/queue"
)

// mockSink implements domain.EventSink for testing
type mockSink struct {
	mu      sync.Mutex
	written []domain.ActivityEvent
	failPID int // Write fails for ProcessInfo with this pid
	flushes int
	closed  bool
}

func (m *mockSink) Write(ev domain.ActivityEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errors.New("sink closed")
	}
	if info, ok := ev.Payload.(domain.ProcessInfo); ok && m.failPID != 0 && info.PID == m.failPID {
		return errors.New("disk full")
	}
	m.written = append(m.written, ev)
	return nil
}

func (m *mockSink) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flushes++
	return nil
}

func (m *mockSink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockSink) Written() []domain.ActivityEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.ActivityEvent(nil), m.written...)
}

// mockRotator implements domain.LogRotator for testing
type mockRotator struct {
	retention, maxMB int
	calls            int
}

func (m *mockRotator) Rotate(now time.Time, retentionDays, maxSizeMB int) ([]string, error) {
	m.calls++
	m.retention, m.maxMB = retentionDays, maxSizeMB
	return []string{"events-20200101.jsonl"}, nil
}

func procEvent(pid int) domain.ActivityEvent {
	return domain.NewEvent(domain.KindProcessStart, time.Now(), domain.ProcessInfo{Name: "p", PID: pid})
}

// TestWriter_WritesInOrder verifies events reach the sink in enqueue order
func TestWriter_WritesInOrder(t *testing.T) {
	q := queue.New(nil)
	sink := &mockSink{}
	w := NewWriter(q, sink, nil, nil, zap.NewNop())
	w.Start(context.Background(), config.Default())

	for pid := 1; pid <= 100; pid++ {
		q.Enqueue(procEvent(pid))
	}

	require.Eventually(t, func() bool {
		return len(sink.Written()) == 100
	}, 2*time.Second, 10*time.Millisecond)

	for i, ev := range sink.Written() {
		assert.Equal(t, i+1, ev.Payload.(domain.ProcessInfo).PID)
	}

	q.Close()
	w.Stop()
	assert.True(t, sink.closed)
}

// TestWriter_SwallowsSingleWriteFailure verifies one bad event does not stop the pipeline
func TestWriter_SwallowsSingleWriteFailure(t *testing.T) {
	q := queue.New(nil)
	sink := &mockSink{failPID: 2}
	w := NewWriter(q, sink, nil, nil, zap.NewNop())
	w.Start(context.Background(), config.Default())

	q.Enqueue(procEvent(1))
	q.Enqueue(procEvent(2))
	q.Enqueue(procEvent(3))

	require.Eventually(t, func() bool {
		return len(sink.Written()) == 2
	}, 2*time.Second, 10*time.Millisecond)

	q.Enqueue(procEvent(4))
	require.Eventually(t, func() bool {
		return len(sink.Written()) == 3
	}, 2*time.Second, 10*time.Millisecond)

	q.Close()
	w.Stop()
}

// TestWriter_StopDrainsAcceptedEvents verifies shutdown delivers the backlog before closing the sink
func TestWriter_StopDrainsAcceptedEvents(t *testing.T) {
	q := queue.New(nil)
	sink := &mockSink{}
	w := NewWriter(q, sink, nil, nil, zap.NewNop())

	for pid := 1; pid <= 50; pid++ {
		q.Enqueue(procEvent(pid))
	}
	q.Close()

	w.Start(context.Background(), config.Default())
	w.Stop()
	w.Stop() // idempotent

	assert.Len(t, sink.Written(), 50)
	assert.True(t, sink.closed)

	select {
	case <-w.Done():
	default:
		t.Fatal("drain loop should have exited")
	}
}

// TestWriter_RotatesOnStart verifies retention settings are passed to the rotator
func TestWriter_RotatesOnStart(t *testing.T) {
	q := queue.New(nil)
	rot := &mockRotator{}
	cfg := config.Default()
	cfg.LogRetentionDays = 7
	cfg.LogMaxSizeMB = 5

	w := NewWriter(q, &mockSink{}, rot, nil, zap.NewNop())
	w.Start(context.Background(), cfg)
	w.Start(context.Background(), cfg) // second start is a no-op

	assert.Equal(t, 1, rot.calls)
	assert.Equal(t, 7, rot.retention)
	assert.Equal(t, 5, rot.maxMB)

	q.Close()
	w.Stop()
}

// TestWriter_OutlivesParentContext verifies cancelling the caller's context does not end the drain loop
func TestWriter_OutlivesParentContext(t *testing.T) {
	q := queue.New(nil)
	sink := &mockSink{}
	w := NewWriter(q, sink, nil, nil, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx, config.Default())
	cancel()

	require.Never(t, func() bool {
		select {
		case <-w.Done():
			return true
		default:
			return false
		}
	}, 100*time.Millisecond, 10*time.Millisecond, "drain loop must wait for the queue to close")

	// A producer still running during shutdown.
	require.True(t, q.Enqueue(procEvent(42)))
	q.Close()
	w.Stop()

	written := sink.Written()
	require.Len(t, written, 1)
	assert.Equal(t, 42, written[0].Payload.(domain.ProcessInfo).PID)
	assert.Equal(t, 0, q.Len())
	assert.True(t, sink.closed)
}
