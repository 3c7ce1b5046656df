package producer

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/act_mon/internal/domain"
	"github.com/eliteGoblin/focusd/act_mon/internal/metrics"
)

const deviceProducerName = "usb"

// DeviceListener records USB device arrival and removal.
type DeviceListener struct {
	notifier domain.DeviceNotifier
	queue    domain.EventQueue
	metrics  *metrics.Registry
	logger   *zap.Logger
	now      func() time.Time

	mu  sync.Mutex
	sub domain.Subscription
}

// NewDeviceListener creates a USB device producer.
func NewDeviceListener(notifier domain.DeviceNotifier, q domain.EventQueue, m *metrics.Registry, logger *zap.Logger) *DeviceListener {
	return &DeviceListener{
		notifier: notifier,
		queue:    q,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

// Start subscribes to device notifications.
func (l *DeviceListener) Start() domain.SubscriptionResult {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.sub != nil {
		return domain.SubscriptionResult{Status: domain.Subscribed}
	}

	sub, err := l.notifier.Subscribe(l.onChange)
	if err != nil {
		l.logger.Warn("usb monitoring unavailable, continuing without it", zap.Error(err))
		res := domain.SubscriptionResult{Status: domain.Unavailable, Reason: err.Error()}
		l.metrics.Producer(deviceProducerName, res)
		return res
	}

	l.sub = sub
	res := domain.SubscriptionResult{Status: domain.Subscribed}
	l.metrics.Producer(deviceProducerName, res)
	l.logger.Info("usb monitoring enabled")
	return res
}

// Stop closes the subscription.
func (l *DeviceListener) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.sub == nil {
		return
	}
	if err := l.sub.Close(); err != nil {
		l.logger.Warn("failed to close device subscription", zap.Error(err))
	}
	l.sub = nil
}

func (l *DeviceListener) onChange(change domain.DeviceChange) {
	switch change.Action {
	case domain.DeviceArrival, domain.DeviceRemove:
	default:
		l.logger.Debug("ignoring device change", zap.String("action", string(change.Action)))
		return
	}
	l.queue.Enqueue(domain.NewEvent(domain.KindUsbDeviceChange, l.now(), change))
}
