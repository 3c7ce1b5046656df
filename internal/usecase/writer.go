package usecase

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/act_mon/internal/domain"
	"github.com/eliteGoblin/focusd/act_mon/internal/metrics"
)

// EventSource is the consumer side of the event queue.
type EventSource interface {
	// Dequeue blocks until events are available and returns all of them.
	// Returns false once the source is closed and empty, or ctx is done.
	Dequeue(ctx context.Context) ([]domain.ActivityEvent, bool)

	// Drain returns whatever is queued right now without waiting.
	Drain() []domain.ActivityEvent
}

// Writer is the single consumer of the event queue. It appends every event
// to the sink and owns the sink's lifecycle and retention.
type Writer struct {
	source  EventSource
	sink    domain.EventSink
	rotator domain.LogRotator // Optional
	metrics *metrics.Registry
	logger  *zap.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	stopped bool
}

// NewWriter creates a persistence writer.
func NewWriter(
	source EventSource,
	sink domain.EventSink,
	rotator domain.LogRotator,
	m *metrics.Registry,
	logger *zap.Logger,
) *Writer {
	return &Writer{
		source:  source,
		sink:    sink,
		rotator: rotator,
		metrics: m,
		logger:  logger,
	}
}

// Start prunes old logs and launches the drain loop. The loop outlives ctx:
// it ends when the source is closed and empty, or when Stop is called, so
// events accepted while the caller is shutting down are still written.
func (w *Writer) Start(ctx context.Context, cfg *domain.Config) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done != nil {
		return
	}

	w.rotate(time.Now(), cfg)

	ctx, w.cancel = context.WithCancel(context.WithoutCancel(ctx))
	w.done = make(chan struct{})
	go w.run(ctx, w.done)
}

// Stop cancels the drain loop, waits for it to exit and closes the sink.
// Close the source first: events it accepted are written before the sink
// closes.
func (w *Writer) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done == nil || w.stopped {
		return
	}
	w.stopped = true

	w.cancel()
	<-w.done

	if err := w.sink.Close(); err != nil {
		w.logger.Warn("failed to close event log", zap.Error(err))
	}
}

// Done is closed when the drain loop has exited.
func (w *Writer) Done() <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.done
}

func (w *Writer) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		batch, ok := w.source.Dequeue(ctx)
		if !ok {
			break
		}
		w.writeBatch(batch)
	}

	// Stop can race with events accepted just before the source closed.
	if rest := w.source.Drain(); len(rest) > 0 {
		w.writeBatch(rest)
	}
}

func (w *Writer) writeBatch(batch []domain.ActivityEvent) {
	for _, ev := range batch {
		if err := w.sink.Write(ev); err != nil {
			w.metrics.WriteFailed()
			w.logger.Warn("failed to write event",
				zap.String("kind", string(ev.Kind)),
				zap.Error(err))
			continue
		}
		w.metrics.EventWritten(ev.Kind)
	}
	if err := w.sink.Flush(); err != nil {
		w.logger.Warn("failed to flush event log", zap.Error(err))
	}
}

func (w *Writer) rotate(now time.Time, cfg *domain.Config) {
	if w.rotator == nil {
		return
	}
	removed, err := w.rotator.Rotate(now, cfg.LogRetentionDays, cfg.LogMaxSizeMB)
	if err != nil {
		w.logger.Warn("log rotation failed", zap.Error(err))
	}
	if len(removed) > 0 {
		w.metrics.Rotated(len(removed))
		w.logger.Info("rotated event logs",
			zap.Int("removed", len(removed)),
			zap.Strings("files", removed))
	}
}
