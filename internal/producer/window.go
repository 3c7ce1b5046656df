package producer

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/act_mon/internal/domain"
	"github.com/eliteGoblin/focusd/act_mon/internal/usecase"
)

// DefaultPollInterval is how often the foreground window is sampled.
const DefaultPollInterval = time.Second

// ForegroundHandler receives foreground changes on the poller's goroutine.
type ForegroundHandler interface {
	OnForegroundChange(ctx context.Context, pid int, processName string, now time.Time) usecase.Decision
}

// WindowPoller samples the foreground window, records changes and hands
// them to the policy engine.
type WindowPoller struct {
	interval  time.Duration
	inspector domain.ForegroundWindowInspector
	source    domain.ConfigSource
	queue     domain.EventQueue
	handler   ForegroundHandler // Optional
	logger    *zap.Logger

	// Only touched from the polling goroutine.
	lastHandle      uint64
	hasLast         bool
	lastUnavailable bool
}

// NewWindowPoller creates a foreground window poller.
func NewWindowPoller(
	interval time.Duration,
	inspector domain.ForegroundWindowInspector,
	source domain.ConfigSource,
	q domain.EventQueue,
	handler ForegroundHandler,
	logger *zap.Logger,
) *WindowPoller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &WindowPoller{
		interval:  interval,
		inspector: inspector,
		source:    source,
		queue:     q,
		handler:   handler,
		logger:    logger,
	}
}

// Run polls until ctx is cancelled.
func (p *WindowPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("window poller started", zap.Duration("interval", p.interval))

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("window poller stopping")
			return
		case now := <-ticker.C:
			p.poll(ctx, now)
		}
	}
}

// poll runs one tick. Returns true if a foreground change was observed.
func (p *WindowPoller) poll(ctx context.Context, now time.Time) bool {
	if !p.source.Current().EnableActiveWindowTracking {
		// Forget the last window so re-enabling reports the current one.
		p.hasLast = false
		return false
	}

	win, err := p.inspector.Current()
	if err != nil {
		if !p.lastUnavailable || !errors.Is(err, domain.ErrUnavailable) {
			p.logger.Debug("failed to read foreground window", zap.Error(err))
		}
		p.lastUnavailable = errors.Is(err, domain.ErrUnavailable)
		return false
	}
	p.lastUnavailable = false

	if p.hasLast && win.Handle == p.lastHandle {
		return false
	}
	p.lastHandle = win.Handle
	p.hasLast = true

	p.queue.Enqueue(domain.NewEvent(domain.KindActiveWindow, now, domain.WindowInfo{
		Title:       win.Title,
		ProcessName: win.ProcessName,
		ProcessID:   win.PID,
	}))

	if p.handler != nil {
		p.handler.OnForegroundChange(ctx, win.PID, win.ProcessName, now)
	}
	return true
}
