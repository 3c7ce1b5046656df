// Package queue is the transport between activity producers and the
// persistence writer: many producers, exactly one consumer.
package queue

import (
	"context"
	"sync"

	"github.com/eliteGoblin/focusd/act_mon/internal/domain"
)

// Observer receives queue accounting. *metrics.Registry implements it.
type Observer interface {
	EventEnqueued(kind domain.EventKind)
	EventDropped(kind domain.EventKind)
	QueueDepth(n int)
}

// Queue is an unbounded FIFO of activity events.
// Enqueue never blocks; a closed queue drops silently. Events accepted before
// Close are still handed to the consumer.
type Queue struct {
	mu     sync.Mutex
	items  []domain.ActivityEvent
	closed bool

	ready  chan struct{} // Capacity 1, signalled when items become available
	done   chan struct{} // Closed by Close
	closer sync.Once

	observer Observer
}

// New creates an empty, open queue. observer may be nil.
func New(observer Observer) *Queue {
	return &Queue{
		ready:    make(chan struct{}, 1),
		done:     make(chan struct{}),
		observer: observer,
	}
}

// Enqueue appends an event. Returns false if the queue is closed.
func (q *Queue) Enqueue(ev domain.ActivityEvent) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		if q.observer != nil {
			q.observer.EventDropped(ev.Kind)
		}
		return false
	}
	q.items = append(q.items, ev)
	depth := len(q.items)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}

	if q.observer != nil {
		q.observer.EventEnqueued(ev.Kind)
		q.observer.QueueDepth(depth)
	}
	return true
}

// Dequeue blocks until events are available and returns all of them in
// enqueue order. It returns false once the queue is closed and empty, or
// when ctx is done.
func (q *Queue) Dequeue(ctx context.Context) ([]domain.ActivityEvent, bool) {
	for {
		batch, closed := q.take()
		if len(batch) > 0 {
			return batch, true
		}
		if closed {
			return nil, false
		}

		select {
		case <-q.ready:
		case <-q.done:
		case <-ctx.Done():
			return nil, false
		}
	}
}

// Drain returns whatever is queued right now without waiting.
func (q *Queue) Drain() []domain.ActivityEvent {
	batch, _ := q.take()
	return batch
}

// Close stops accepting events. Idempotent.
func (q *Queue) Close() {
	q.closer.Do(func() {
		q.mu.Lock()
		q.closed = true
		q.mu.Unlock()
		close(q.done)
	})
}

// Closed reports whether Close has been called.
func (q *Queue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Len returns the number of events waiting for the consumer.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue) take() ([]domain.ActivityEvent, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	batch := q.items
	q.items = nil
	if q.observer != nil && len(batch) > 0 {
		q.observer.QueueDepth(0)
	}
	return batch, q.closed
}

// Ensure Queue implements domain.EventQueue.
var _ domain.EventQueue = (*Queue)(nil)
