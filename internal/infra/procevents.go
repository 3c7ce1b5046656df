package infra

import (
	"sync"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/act_mon/internal/domain"
)

// processTracker turns raw exec/exit notifications into ProcessInfo
// callbacks. Names are captured at exec time because /proc is already gone
// by the time the exit notification arrives.
type processTracker struct {
	pm      domain.ProcessManager
	onStart func(domain.ProcessInfo)
	onStop  func(domain.ProcessInfo)
	logger  *zap.Logger

	mu    sync.Mutex
	names map[int]string
}

func newProcessTracker(pm domain.ProcessManager, onStart, onStop func(domain.ProcessInfo), logger *zap.Logger) *processTracker {
	return &processTracker{
		pm:      pm,
		onStart: onStart,
		onStop:  onStop,
		logger:  logger,
		names:   make(map[int]string),
	}
}

// exec handles a program image replacement for pid.
func (t *processTracker) exec(pid int) {
	name, err := t.pm.Name(pid)
	if err != nil {
		// Short-lived processes exit before we can read them.
		t.logger.Debug("failed to resolve started process", zap.Int("pid", pid), zap.Error(err))
	}

	t.mu.Lock()
	t.names[pid] = name
	t.mu.Unlock()

	if t.onStart != nil {
		t.onStart(domain.ProcessInfo{Name: name, PID: pid})
	}
}

// exit handles termination of a thread-group leader.
func (t *processTracker) exit(pid int) {
	t.mu.Lock()
	name, seen := t.names[pid]
	delete(t.names, pid)
	t.mu.Unlock()

	if !seen {
		// Started before we subscribed. Nothing we can name reliably.
		return
	}
	if t.onStop != nil {
		t.onStop(domain.ProcessInfo{Name: name, PID: pid})
	}
}

// tracked returns the number of processes seen starting and not yet exited.
func (t *processTracker) tracked() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.names)
}

// NetlinkProcessNotifier implements domain.ProcessLifecycleNotifier using the
// kernel proc connector. Subscribing needs CAP_NET_ADMIN; without it
// Subscribe returns an error and callers run degraded.
type NetlinkProcessNotifier struct {
	pm     domain.ProcessManager
	logger *zap.Logger
}

// NewNetlinkProcessNotifier creates a proc connector notifier.
func NewNetlinkProcessNotifier(pm domain.ProcessManager, logger *zap.Logger) *NetlinkProcessNotifier {
	return &NetlinkProcessNotifier{pm: pm, logger: logger}
}

var _ domain.ProcessLifecycleNotifier = (*NetlinkProcessNotifier)(nil)
