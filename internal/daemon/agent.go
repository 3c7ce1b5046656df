// Package daemon wires the monitoring agent and its long-running loops.
package daemon

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/act_mon/internal/config"
	"github.com/eliteGoblin/focusd/act_mon/internal/domain"
	"github.com/eliteGoblin/focusd/act_mon/internal/metrics"
	"github.com/eliteGoblin/focusd/act_mon/internal/producer"
	"github.com/eliteGoblin/focusd/act_mon/internal/queue"
	"github.com/eliteGoblin/focusd/act_mon/internal/usecase"
)

// AgentConfig holds agent timing configuration.
type AgentConfig struct {
	PollInterval time.Duration
	Enforcer     usecase.EnforcerConfig
}

// DefaultAgentConfig returns the production timings.
func DefaultAgentConfig() AgentConfig {
	return AgentConfig{
		PollInterval: producer.DefaultPollInterval,
		Enforcer:     usecase.DefaultEnforcerConfig(),
	}
}

// AgentDeps are the collaborators the agent is assembled from.
// Optional collaborators may be nil; the matching producer is then skipped.
type AgentDeps struct {
	Store      *config.Store
	Holder     *config.Holder
	ConfigPath string // Empty disables hot-reload

	Sink    domain.EventSink
	Rotator domain.LogRotator

	Inspector       domain.ForegroundWindowInspector
	ProcessNotifier domain.ProcessLifecycleNotifier
	DeviceNotifier  domain.DeviceNotifier
	HookSource      domain.InputHookSource

	ProcessManager domain.ProcessManager
	Notifier       domain.Notifier
	Recorder       domain.EnforcementRecorder

	Metrics *metrics.Registry
	Logger  *zap.Logger
}

// Agent runs the monitoring pipeline: producers feed the queue, the writer
// persists it, and the window poller drives the enforcer.
type Agent struct {
	config    AgentConfig
	deps      AgentDeps
	sessionID string
	logger    *zap.Logger

	queue    *queue.Queue
	writer   *usecase.Writer
	enforcer *usecase.Enforcer
	hook     *producer.HookAdapter
	process  *producer.ProcessWatcher
	device   *producer.DeviceListener
	poller   *producer.WindowPoller
	reloader *ConfigReloader

	mu      sync.Mutex // Guards lifecycle flags and producer toggling
	started bool
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	status  map[string]domain.SubscriptionResult
}

// NewAgent assembles an agent. Nothing runs until Start.
func NewAgent(config AgentConfig, deps AgentDeps) *Agent {
	sessionID := uuid.NewString()
	logger := deps.Logger.With(zap.String("session", sessionID))

	q := queue.New(deps.Metrics)
	enforcer := usecase.NewEnforcer(config.Enforcer, deps.Holder, deps.ProcessManager,
		deps.Notifier, deps.Recorder, deps.Metrics, logger.Named("enforcer"))

	a := &Agent{
		config:    config,
		deps:      deps,
		sessionID: sessionID,
		logger:    logger,
		queue:     q,
		writer:    usecase.NewWriter(q, deps.Sink, deps.Rotator, deps.Metrics, logger.Named("writer")),
		enforcer:  enforcer,
		status:    make(map[string]domain.SubscriptionResult),
	}

	if deps.HookSource != nil {
		a.hook = producer.NewHookAdapter(deps.HookSource, q, deps.Metrics, logger.Named("input"))
	}
	if deps.ProcessNotifier != nil {
		a.process = producer.NewProcessWatcher(deps.ProcessNotifier, q, deps.Metrics, logger.Named("process"))
	}
	if deps.DeviceNotifier != nil {
		a.device = producer.NewDeviceListener(deps.DeviceNotifier, q, deps.Metrics, logger.Named("usb"))
	}
	if deps.Inspector != nil {
		a.poller = producer.NewWindowPoller(config.PollInterval, deps.Inspector, deps.Holder, q, enforcer, logger.Named("window"))
	}
	if deps.ConfigPath != "" && deps.Store != nil {
		a.reloader = NewConfigReloader(deps.ConfigPath, deps.Store, deps.Holder, a, deps.Metrics, logger.Named("config"))
	}
	return a
}

// SessionID identifies this monitoring run in logs.
func (a *Agent) SessionID() string {
	return a.sessionID
}

// Queue exposes the event queue (for status and tests).
func (a *Agent) Queue() *queue.Queue {
	return a.queue
}

// Enforcer exposes the policy engine (for status and tests).
func (a *Agent) Enforcer() *usecase.Enforcer {
	return a.enforcer
}

// Run starts the agent and blocks until ctx is cancelled, then shuts down.
func (a *Agent) Run(ctx context.Context) error {
	if err := a.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	a.Stop()
	return nil
}

// Start launches the writer and every enabled producer. Producers that
// cannot subscribe leave the agent running in degraded mode.
func (a *Agent) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started {
		return nil
	}
	a.started = true

	cfg := a.deps.Holder.Current()
	ctx, a.cancel = context.WithCancel(ctx)

	a.writer.Start(ctx, cfg)
	a.applyToggles(nil, cfg)

	if a.poller != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.poller.Run(ctx)
		}()
	}

	if a.reloader != nil {
		if err := a.reloader.Start(); err != nil {
			// Hot-reload is a convenience; the agent runs on the loaded config.
			a.logger.Warn("config hot-reload unavailable", zap.Error(err))
			a.reloader = nil
		}
	}

	a.deps.Metrics.Serve(ctx, cfg.MetricsAddress, a.logger.Named("metrics"))

	a.logger.Info("monitoring started",
		zap.String("data_dir", cfg.DataDirectory),
		zap.Int("blocked_processes", len(cfg.BlockedProcesses)))
	return nil
}

// Stop shuts the pipeline down: the queue stops accepting, producers are
// released, the writer drains what was accepted and closes the sink, and
// pending terminations are cancelled without touching their processes.
func (a *Agent) Stop() {
	a.mu.Lock()
	if !a.started || a.stopped {
		a.mu.Unlock()
		return
	}
	a.stopped = true
	reloader := a.reloader
	a.mu.Unlock()

	a.queue.Close()

	// The reloader may be applying a config; ApplyConfig is a no-op from here on.
	if reloader != nil {
		reloader.Stop()
	}
	a.cancel()
	a.wg.Wait()
	if a.process != nil {
		a.process.Stop()
	}
	if a.device != nil {
		a.device.Stop()
	}

	a.writer.Stop()
	a.enforcer.CancelAll()

	if a.hook != nil {
		a.hook.Stop()
	}

	a.logger.Info("monitoring stopped")
}

// ApplyConfig starts or stops producers whose toggle changed.
func (a *Agent) ApplyConfig(old, next *domain.Config) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped {
		return
	}
	a.applyToggles(old, next)
}

// Status returns the subscription outcome of each producer.
func (a *Agent) Status() map[string]domain.SubscriptionResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]domain.SubscriptionResult, len(a.status))
	for k, v := range a.status {
		out[k] = v
	}
	return out
}

// applyToggles diffs the producer switches. A nil old config means every
// enabled producer is started.
func (a *Agent) applyToggles(old, next *domain.Config) {
	if a.hook != nil && (old == nil || old.EnableInputMonitoring != next.EnableInputMonitoring) {
		if next.EnableInputMonitoring {
			a.status["input"] = a.hook.Start(next)
		} else if old != nil {
			a.hook.Stop()
			delete(a.status, "input")
		}
	}

	if a.process != nil && (old == nil || old.EnableProcessTracking != next.EnableProcessTracking) {
		if next.EnableProcessTracking {
			a.status["process"] = a.process.Start()
		} else if old != nil {
			a.process.Stop()
			delete(a.status, "process")
		}
	}

	if a.device != nil && (old == nil || old.EnableUsbMonitoring != next.EnableUsbMonitoring) {
		if next.EnableUsbMonitoring {
			a.status["usb"] = a.device.Start()
		} else if old != nil {
			a.device.Stop()
			delete(a.status, "usb")
		}
	}
}

var _ ConfigApplier = (*Agent)(nil)
