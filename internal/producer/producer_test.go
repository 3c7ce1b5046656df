package producer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/act_mon/internal/config"
	"github.com/eliteGoblin/focusd/act_mon/internal/domain"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestHookAdapter_StartStopIdempotent(t *testing.T) {
	src := &mockHookSource{}
	q := &recordingQueue{}
	h := NewHookAdapter(src, q, nil, zap.NewNop())

	h.Stop() // not started
	assert.Equal(t, 0, src.stops)

	res := h.Start(config.Default())
	assert.False(t, res.Degraded())
	h.Start(config.Default())
	assert.Equal(t, 1, src.starts)
	assert.True(t, h.Running())

	src.onEvent(domain.NewEvent(domain.KindKeyboard, fixedNow, domain.InputInfo{}))
	assert.Len(t, q.Events(), 1)

	h.Stop()
	h.Stop()
	assert.Equal(t, 1, src.stops)
	assert.False(t, h.Running())
}

func TestHookAdapter_DegradedOnFailure(t *testing.T) {
	src := &mockHookSource{startErr: errDenied}
	h := NewHookAdapter(src, &recordingQueue{}, nil, zap.NewNop())

	res := h.Start(config.Default())
	assert.Equal(t, domain.Unavailable, res.Status)
	assert.Contains(t, res.Reason, "not permitted")
	assert.True(t, h.Degraded())
	assert.False(t, h.Running())

	// Stop on a degraded adapter never touches the source
	h.Stop()
	assert.Equal(t, 0, src.stops)

	// A later successful start clears degraded mode
	src.startErr = nil
	res = h.Start(config.Default())
	assert.Equal(t, domain.Subscribed, res.Status)
	assert.False(t, h.Degraded())
}

func TestProcessWatcher(t *testing.T) {
	n := &mockLifecycleNotifier{}
	q := &recordingQueue{}
	w := NewProcessWatcher(n, q, nil, zap.NewNop())
	w.now = func() time.Time { return fixedNow }

	res := w.Start()
	require.Equal(t, domain.Subscribed, res.Status)

	n.onStart(domain.ProcessInfo{Name: "steam", PID: 10})
	n.onStop(domain.ProcessInfo{Name: "steam", PID: 10})

	events := q.Events()
	require.Len(t, events, 2)
	assert.Equal(t, domain.KindProcessStart, events[0].Kind)
	assert.Equal(t, domain.KindProcessStop, events[1].Kind)
	assert.Equal(t, domain.ProcessInfo{Name: "steam", PID: 10}, events[1].Payload)
	assert.Equal(t, fixedNow, events[0].Timestamp)

	w.Stop()
	w.Stop()
	assert.Equal(t, 1, n.sub.closed)
}

func TestProcessWatcher_UnavailableReportsReason(t *testing.T) {
	w := NewProcessWatcher(&mockLifecycleNotifier{err: domain.ErrUnavailable}, &recordingQueue{}, nil, zap.NewNop())

	res := w.Start()
	assert.True(t, res.Degraded())
	assert.Equal(t, domain.ErrUnavailable.Error(), res.Reason)
	w.Stop() // nothing to close
}

func TestDeviceListener(t *testing.T) {
	n := &mockDeviceNotifier{}
	q := &recordingQueue{}
	l := NewDeviceListener(n, q, nil, zap.NewNop())

	require.False(t, l.Start().Degraded())

	n.onChange(domain.DeviceChange{Action: domain.DeviceArrival, Device: "/devices/usb1/1-2"})
	n.onChange(domain.DeviceChange{Action: "Bind"})
	n.onChange(domain.DeviceChange{Action: domain.DeviceRemove, Device: "/devices/usb1/1-2"})

	events := q.Events()
	require.Len(t, events, 2)
	for _, ev := range events {
		assert.Equal(t, domain.KindUsbDeviceChange, ev.Kind)
	}
	assert.Equal(t, domain.DeviceArrival, events[0].Payload.(domain.DeviceChange).Action)
	assert.Equal(t, domain.DeviceRemove, events[1].Payload.(domain.DeviceChange).Action)

	l.Stop()
	assert.Equal(t, 1, n.sub.closed)
}

func TestDeviceListener_Unavailable(t *testing.T) {
	l := NewDeviceListener(&mockDeviceNotifier{err: errDenied}, &recordingQueue{}, nil, zap.NewNop())
	assert.True(t, l.Start().Degraded())
}
