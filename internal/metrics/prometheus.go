// Package metrics exposes pipeline and enforcement counters to Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/act_mon/internal/domain"
)

const namespace = "actmon"

// Registry holds all agent metrics.
// A nil *Registry is valid and records nothing.
type Registry struct {
	gatherer prometheus.Gatherer

	// Pipeline metrics
	EventsEnqueued *prometheus.CounterVec
	EventsDropped  *prometheus.CounterVec
	EventsWritten  *prometheus.CounterVec
	WriteErrors    prometheus.Counter
	QueueLength    prometheus.Gauge

	// Enforcement metrics
	EnforcementActions *prometheus.CounterVec
	PendingTimers      prometheus.Gauge
	QuietHourNotices   prometheus.Counter

	// Lifecycle metrics
	ConfigReloads  *prometheus.CounterVec
	ProducerStatus *prometheus.GaugeVec
	LogsRotated    prometheus.Counter
}

// NewRegistry registers all metrics with reg.
// Pass prometheus.NewRegistry() in tests to avoid duplicate registration.
func NewRegistry(reg *prometheus.Registry) *Registry {
	f := promauto.With(reg)
	r := &Registry{gatherer: reg}

	r.EventsEnqueued = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_enqueued_total",
		Help:      "Activity events accepted by the queue",
	}, []string{"kind"})

	r.EventsDropped = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_dropped_total",
		Help:      "Activity events dropped because the queue was closed",
	}, []string{"kind"})

	r.EventsWritten = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_written_total",
		Help:      "Activity events appended to the event log",
	}, []string{"kind"})

	r.WriteErrors = f.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "event_write_errors_total",
		Help:      "Events that could not be written to the event log",
	})

	r.QueueLength = f.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "queue_length",
		Help:      "Events waiting for the persistence writer",
	})

	r.EnforcementActions = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "enforcement_actions_total",
		Help:      "Enforcement actions by type",
	}, []string{"action"})

	r.PendingTimers = f.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "enforcement_pending",
		Help:      "Delayed terminations currently scheduled",
	})

	r.QuietHourNotices = f.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "quiet_hours_notices_total",
		Help:      "Quiet-hours advisories shown to the user",
	})

	r.ConfigReloads = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "config_reloads_total",
		Help:      "Configuration reloads by result",
	}, []string{"result"})

	r.ProducerStatus = f.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "producer_up",
		Help:      "1 if the producer is subscribed, 0 if running degraded",
	}, []string{"producer"})

	r.LogsRotated = f.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logs_rotated_total",
		Help:      "Event log files deleted by retention",
	})

	return r
}

// EventEnqueued implements queue.Observer.
func (r *Registry) EventEnqueued(kind domain.EventKind) {
	if r == nil {
		return
	}
	r.EventsEnqueued.WithLabelValues(string(kind)).Inc()
}

// EventDropped implements queue.Observer.
func (r *Registry) EventDropped(kind domain.EventKind) {
	if r == nil {
		return
	}
	r.EventsDropped.WithLabelValues(string(kind)).Inc()
}

// QueueDepth implements queue.Observer.
func (r *Registry) QueueDepth(n int) {
	if r == nil {
		return
	}
	r.QueueLength.Set(float64(n))
}

// EventWritten counts a persisted event.
func (r *Registry) EventWritten(kind domain.EventKind) {
	if r == nil {
		return
	}
	r.EventsWritten.WithLabelValues(string(kind)).Inc()
}

// WriteFailed counts a swallowed write error.
func (r *Registry) WriteFailed() {
	if r == nil {
		return
	}
	r.WriteErrors.Inc()
}

// Enforcement counts an enforcement action and tracks pending timers.
func (r *Registry) Enforcement(action domain.EnforcementAction, pending int) {
	if r == nil {
		return
	}
	r.EnforcementActions.WithLabelValues(string(action)).Inc()
	r.PendingTimers.Set(float64(pending))
}

// QuietHoursNotice counts an advisory.
func (r *Registry) QuietHoursNotice() {
	if r == nil {
		return
	}
	r.QuietHourNotices.Inc()
}

// ConfigReload counts a reload attempt ("ok" or "error").
func (r *Registry) ConfigReload(result string) {
	if r == nil {
		return
	}
	r.ConfigReloads.WithLabelValues(result).Inc()
}

// Producer records whether a producer subscribed.
func (r *Registry) Producer(name string, res domain.SubscriptionResult) {
	if r == nil {
		return
	}
	up := 0.0
	if !res.Degraded() {
		up = 1
	}
	r.ProducerStatus.WithLabelValues(name).Set(up)
}

// Rotated counts deleted log files.
func (r *Registry) Rotated(n int) {
	if r == nil {
		return
	}
	r.LogsRotated.Add(float64(n))
}

// Serve exposes /metrics on addr until ctx is canceled.
func (r *Registry) Serve(ctx context.Context, addr string, logger *zap.Logger) {
	if r == nil || addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	go func() {
		logger.Info("metrics endpoint listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics endpoint failed", zap.Error(err))
		}
	}()
}
