// Package usecase contains application business logic.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/act_mon/internal/domain"
	"github.com/eliteGoblin/focusd/act_mon/internal/metrics"
	"github.com/eliteGoblin/focusd/act_mon/internal/policy"
)

const (
	// DefaultWarningCooldown suppresses repeat warnings for the same pid.
	DefaultWarningCooldown = 30 * time.Second

	// DefaultQuietNoticeInterval throttles the quiet-hours advisory.
	DefaultQuietNoticeInterval = 30 * time.Minute

	notificationTitle = "Parental controls"
)

// Decision is the outcome of evaluating one foreground change.
type Decision string

const (
	DecisionAllowed    Decision = "allowed"    // Not on the blocklist
	DecisionSuppressed Decision = "suppressed" // Blocked, warned within the cool-down
	DecisionTerminated Decision = "terminated" // Blocked, closed immediately
	DecisionScheduled  Decision = "scheduled"  // Blocked, delayed termination pending
)

// EnforcerConfig holds the engine's timing knobs.
type EnforcerConfig struct {
	WarningCooldown     time.Duration
	QuietNoticeInterval time.Duration
}

// DefaultEnforcerConfig returns the production timings.
func DefaultEnforcerConfig() EnforcerConfig {
	return EnforcerConfig{
		WarningCooldown:     DefaultWarningCooldown,
		QuietNoticeInterval: DefaultQuietNoticeInterval,
	}
}

// pendingTermination is the cancellation handle of one delayed termination.
type pendingTermination struct {
	cancel context.CancelFunc
}

// Enforcer evaluates the blocking policy on every foreground window change
// and runs debounced, cancellable delayed terminations.
//
// lastWarned and pending are the only shared mutable state. Both live behind
// mu, which is held for map access only and never across a delay.
type Enforcer struct {
	config         EnforcerConfig
	source         domain.ConfigSource
	processManager domain.ProcessManager
	notifier       domain.Notifier
	recorder       domain.EnforcementRecorder // Optional
	metrics        *metrics.Registry          // Optional
	logger         *zap.Logger

	mu              sync.Mutex
	lastWarned      map[int]time.Time
	pending         map[int]*pendingTermination
	lastQuietNotice time.Time

	wg sync.WaitGroup
}

// NewEnforcer creates a new policy enforcement engine.
func NewEnforcer(
	config EnforcerConfig,
	source domain.ConfigSource,
	pm domain.ProcessManager,
	notifier domain.Notifier,
	recorder domain.EnforcementRecorder,
	m *metrics.Registry,
	logger *zap.Logger,
) *Enforcer {
	return &Enforcer{
		config:         config,
		source:         source,
		processManager: pm,
		notifier:       notifier,
		recorder:       recorder,
		metrics:        m,
		logger:         logger,
		lastWarned:     make(map[int]time.Time),
		pending:        make(map[int]*pendingTermination),
	}
}

// OnForegroundChange evaluates the policy for the process that just came to
// the foreground. It runs on the poller's goroutine and never blocks on the
// grace period.
func (e *Enforcer) OnForegroundChange(ctx context.Context, pid int, processName string, now time.Time) Decision {
	cfg := e.source.Current()
	quiet := policy.InQuietHours(cfg.QuietHoursStart, cfg.QuietHoursEnd, now)

	decision := e.evaluate(cfg, pid, processName, now, quiet)

	if quiet {
		e.maybeQuietNotice(now)
	}
	return decision
}

func (e *Enforcer) evaluate(cfg *domain.Config, pid int, processName string, now time.Time, quiet bool) Decision {
	if pid <= 0 || !policy.IsBlocked(cfg.BlockedProcesses, processName) {
		// A process leaving the foreground keeps its pending termination.
		return DecisionAllowed
	}

	e.mu.Lock()
	if last, ok := e.lastWarned[pid]; ok && now.Sub(last) < e.config.WarningCooldown {
		e.mu.Unlock()
		e.logger.Debug("warning suppressed (cool-down)",
			zap.Int("pid", pid),
			zap.String("process", processName))
		return DecisionSuppressed
	}
	e.pruneWarnedLocked(now)
	e.lastWarned[pid] = now
	e.mu.Unlock()

	delay := cfg.WarningDuration()
	if delay <= 0 {
		e.notify(closedMessage(processName, quiet))
		e.terminate(pid, processName, "blocked")
		return DecisionTerminated
	}

	e.notify(warningMessage(processName, cfg.BlockCloseWarningSeconds, quiet))
	e.schedule(pid, processName, delay)
	return DecisionScheduled
}

// schedule starts a delayed termination for pid, replacing any earlier one.
func (e *Enforcer) schedule(pid int, processName string, delay time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	p := &pendingTermination{cancel: cancel}

	e.mu.Lock()
	old, replaced := e.pending[pid]
	e.pending[pid] = p
	count := len(e.pending)
	e.mu.Unlock()
	if replaced {
		old.cancel()
	}

	e.logger.Info("blocked process warned",
		zap.Int("pid", pid),
		zap.String("process", processName),
		zap.Duration("grace", delay))
	e.record(pid, processName, domain.ActionWarned, fmt.Sprintf("closing in %s", delay), count)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer cancel()

		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-ctx.Done():
		}

		// Whoever removes the entry from the table owns the outcome, so a
		// successful Cancel never races with the kill.
		if e.claim(pid, p) {
			e.terminate(pid, processName, "grace period expired")
			return
		}

		e.logger.Debug("delayed termination cancelled",
			zap.Int("pid", pid),
			zap.String("process", processName))
		e.record(pid, processName, domain.ActionCancelled, "cancelled before grace period expired", e.PendingCount())
	}()
}

// claim removes p from the pending table. Returns false if it was already
// cancelled or replaced.
func (e *Enforcer) claim(pid int, p *pendingTermination) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pending[pid] != p {
		return false
	}
	delete(e.pending, pid)
	return true
}

// pruneWarnedLocked forgets pids whose cool-down has elapsed. Caller holds mu.
func (e *Enforcer) pruneWarnedLocked(now time.Time) {
	for pid, last := range e.lastWarned {
		if now.Sub(last) >= e.config.WarningCooldown {
			delete(e.lastWarned, pid)
		}
	}
}

// terminate closes a process. Failures are logged and treated as done: the
// process is either already gone or cannot be touched by us.
func (e *Enforcer) terminate(pid int, processName, reason string) {
	err := e.processManager.Terminate(pid)
	switch {
	case err == nil:
		e.logger.Info("terminated blocked process",
			zap.Int("pid", pid),
			zap.String("process", processName),
			zap.String("reason", reason))
	case errors.Is(err, domain.ErrProcessGone):
		e.logger.Debug("blocked process already exited",
			zap.Int("pid", pid),
			zap.String("process", processName))
	default:
		e.logger.Warn("failed to terminate blocked process",
			zap.Int("pid", pid),
			zap.String("process", processName),
			zap.Error(err))
	}
	e.record(pid, processName, domain.ActionTerminated, reason, e.PendingCount())
}

// Cancel aborts the pending termination for pid. Returns false if none was
// pending or it has already fired; true guarantees the process is not closed.
func (e *Enforcer) Cancel(pid int) bool {
	e.mu.Lock()
	p, ok := e.pending[pid]
	if ok {
		delete(e.pending, pid)
	}
	e.mu.Unlock()
	if ok {
		p.cancel()
	}
	return ok
}

// CancelAll aborts every pending termination and waits for the delay
// goroutines to exit. Processes are left alone.
func (e *Enforcer) CancelAll() {
	e.mu.Lock()
	pending := e.pending
	e.pending = make(map[int]*pendingTermination)
	e.mu.Unlock()

	for _, p := range pending {
		p.cancel()
	}
	e.wg.Wait()
}

// PendingCount returns the number of scheduled terminations.
func (e *Enforcer) PendingCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

// HasPending reports whether pid has a scheduled termination.
func (e *Enforcer) HasPending(pid int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.pending[pid]
	return ok
}

// maybeQuietNotice shows the quiet-hours advisory at most once per interval.
func (e *Enforcer) maybeQuietNotice(now time.Time) {
	e.mu.Lock()
	if !e.lastQuietNotice.IsZero() && now.Sub(e.lastQuietNotice) < e.config.QuietNoticeInterval {
		e.mu.Unlock()
		return
	}
	e.lastQuietNotice = now
	e.mu.Unlock()

	e.notify("It's quiet hours. Time to wind down.")
	e.metrics.QuietHoursNotice()
}

func (e *Enforcer) notify(body string) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Notify(notificationTitle, body); err != nil {
		e.logger.Debug("notification failed", zap.Error(err))
	}
}

func (e *Enforcer) record(pid int, processName string, action domain.EnforcementAction, reason string, pending int) {
	e.metrics.Enforcement(action, pending)
	if e.recorder == nil {
		return
	}
	rec := domain.EnforcementRecord{
		ID:          uuid.NewString(),
		PID:         pid,
		ProcessName: processName,
		Action:      action,
		Reason:      reason,
		At:          time.Now(),
	}
	if err := e.recorder.Record(rec); err != nil {
		e.logger.Warn("failed to record enforcement action",
			zap.String("action", string(action)),
			zap.Error(err))
	}
}

func warningMessage(processName string, seconds int, quiet bool) string {
	if quiet {
		return fmt.Sprintf("It's quiet hours. %s is not allowed and will close in %d seconds.", processName, seconds)
	}
	return fmt.Sprintf("%s is blocked and will close in %d seconds. Save your work.", processName, seconds)
}

func closedMessage(processName string, quiet bool) string {
	if quiet {
		return fmt.Sprintf("It's quiet hours. %s is not allowed and was closed.", processName)
	}
	return fmt.Sprintf("%s is blocked and was closed.", processName)
}
