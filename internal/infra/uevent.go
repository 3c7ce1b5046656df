package infra

import (
	"bytes"
	"strings"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/act_mon/internal/domain"
)

// parseUevent decodes a kernel uevent datagram ("action@devpath\0KEY=VALUE\0...")
// and reports whether it describes a whole USB device being added or removed.
// Interface and endpoint events for the same device are ignored.
func parseUevent(msg []byte) (domain.DeviceChange, bool) {
	// Datagrams re-broadcast by udevd start with a binary "libudev" header.
	if bytes.HasPrefix(msg, []byte("libudev")) {
		return domain.DeviceChange{}, false
	}

	env := make(map[string]string)
	for i, field := range bytes.Split(msg, []byte{0}) {
		if i == 0 || len(field) == 0 {
			continue // header "add@/devices/..."
		}
		k, v, ok := strings.Cut(string(field), "=")
		if ok {
			env[k] = v
		}
	}

	if env["SUBSYSTEM"] != "usb" || env["DEVTYPE"] != "usb_device" {
		return domain.DeviceChange{}, false
	}

	var action domain.DeviceAction
	switch env["ACTION"] {
	case "add":
		action = domain.DeviceArrival
	case "remove":
		action = domain.DeviceRemove
	default:
		return domain.DeviceChange{}, false
	}
	return domain.DeviceChange{Action: action, Device: env["DEVPATH"]}, true
}

// UeventDeviceNotifier implements domain.DeviceNotifier by listening to
// kernel kobject uevents over netlink.
type UeventDeviceNotifier struct {
	logger *zap.Logger
}

// NewUeventDeviceNotifier creates a USB device notifier.
func NewUeventDeviceNotifier(logger *zap.Logger) *UeventDeviceNotifier {
	return &UeventDeviceNotifier{logger: logger}
}

var _ domain.DeviceNotifier = (*UeventDeviceNotifier)(nil)
