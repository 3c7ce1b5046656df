package producer

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/act_mon/internal/domain"
	"github.com/eliteGoblin/focusd/act_mon/internal/metrics"
)

const processProducerName = "process"

// ProcessWatcher turns process lifecycle notifications into
// ProcessStart/ProcessStop events.
type ProcessWatcher struct {
	notifier domain.ProcessLifecycleNotifier
	queue    domain.EventQueue
	metrics  *metrics.Registry
	logger   *zap.Logger
	now      func() time.Time

	mu  sync.Mutex
	sub domain.Subscription
}

// NewProcessWatcher creates a process lifecycle producer.
func NewProcessWatcher(notifier domain.ProcessLifecycleNotifier, q domain.EventQueue, m *metrics.Registry, logger *zap.Logger) *ProcessWatcher {
	return &ProcessWatcher{
		notifier: notifier,
		queue:    q,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

// Start subscribes to the notifier. There is no polling fallback: on
// failure the watcher reports Unavailable and the agent runs without
// process events.
func (w *ProcessWatcher) Start() domain.SubscriptionResult {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.sub != nil {
		return domain.SubscriptionResult{Status: domain.Subscribed}
	}

	sub, err := w.notifier.Subscribe(w.onStart, w.onStop)
	if err != nil {
		w.logger.Warn("process tracking unavailable, continuing without it", zap.Error(err))
		res := domain.SubscriptionResult{Status: domain.Unavailable, Reason: err.Error()}
		w.metrics.Producer(processProducerName, res)
		return res
	}

	w.sub = sub
	res := domain.SubscriptionResult{Status: domain.Subscribed}
	w.metrics.Producer(processProducerName, res)
	w.logger.Info("process tracking enabled")
	return res
}

// Stop closes the subscription.
func (w *ProcessWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.sub == nil {
		return
	}
	if err := w.sub.Close(); err != nil {
		w.logger.Warn("failed to close process subscription", zap.Error(err))
	}
	w.sub = nil
}

func (w *ProcessWatcher) onStart(p domain.ProcessInfo) {
	w.queue.Enqueue(domain.NewEvent(domain.KindProcessStart, w.now(), p))
}

func (w *ProcessWatcher) onStop(p domain.ProcessInfo) {
	w.queue.Enqueue(domain.NewEvent(domain.KindProcessStop, w.now(), p))
}
