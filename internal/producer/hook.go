// Package producer contains the activity producers feeding the event queue.
package producer

import (
	"sync"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/act_mon/internal/domain"
	"github.com/eliteGoblin/focusd/act_mon/internal/metrics"
)

const hookProducerName = "input"

// HookAdapter bridges the raw input hook into the event queue. It can be
// started and stopped repeatedly as enableInputMonitoring toggles.
type HookAdapter struct {
	source  domain.InputHookSource
	queue   domain.EventQueue
	metrics *metrics.Registry
	logger  *zap.Logger

	mu       sync.Mutex
	running  bool
	degraded bool
	reason   string
}

// NewHookAdapter creates an input hook adapter.
func NewHookAdapter(source domain.InputHookSource, q domain.EventQueue, m *metrics.Registry, logger *zap.Logger) *HookAdapter {
	return &HookAdapter{
		source:  source,
		queue:   q,
		metrics: m,
		logger:  logger,
	}
}

// Start installs the hook. A failing source is logged once and leaves the
// adapter degraded; monitoring continues without input events.
func (h *HookAdapter) Start(cfg *domain.Config) domain.SubscriptionResult {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.running {
		return domain.SubscriptionResult{Status: domain.Subscribed}
	}

	if err := h.source.Start(cfg, h.forward); err != nil {
		if !h.degraded {
			h.logger.Warn("input monitoring unavailable, continuing without it", zap.Error(err))
		}
		h.degraded = true
		h.reason = err.Error()
		res := domain.SubscriptionResult{Status: domain.Unavailable, Reason: h.reason}
		h.metrics.Producer(hookProducerName, res)
		return res
	}

	h.running = true
	h.degraded = false
	h.reason = ""
	res := domain.SubscriptionResult{Status: domain.Subscribed}
	h.metrics.Producer(hookProducerName, res)
	h.logger.Info("input monitoring enabled")
	return res
}

// Stop releases the hook. Safe to call when not running.
func (h *HookAdapter) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.running {
		return
	}
	if err := h.source.Stop(); err != nil {
		h.logger.Warn("failed to release input hook", zap.Error(err))
	}
	h.running = false
	h.logger.Info("input monitoring disabled")
}

// Running reports whether the hook is installed.
func (h *HookAdapter) Running() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.running
}

// Degraded reports whether the last Start failed.
func (h *HookAdapter) Degraded() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.degraded
}

func (h *HookAdapter) forward(ev domain.ActivityEvent) {
	h.queue.Enqueue(ev)
}
