package infra

import (
	"encoding/binary"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/act_mon/internal/domain"
)

// struct input_event on 64-bit kernels: timeval (16) + type (2) + code (2) + value (4).
const inputEventSize = 24

const (
	evKey = 0x01

	keyPress = 1

	btnMouseFirst = 0x110
	btnMouseLast  = 0x117
	keyMax        = 0x100
)

var mouseButtons = map[uint16]string{
	0x110: "left",
	0x111: "right",
	0x112: "middle",
	0x113: "side",
	0x114: "extra",
	0x115: "forward",
	0x116: "back",
	0x117: "task",
}

// decodeInputEvent turns one raw input_event into an activity event.
// Only presses are reported: key repeats, releases and pointer motion are
// dropped. Keyboard events never carry the key code.
func decodeInputEvent(raw []byte, device string, now time.Time) (domain.ActivityEvent, bool) {
	if len(raw) < inputEventSize {
		return domain.ActivityEvent{}, false
	}
	typ := binary.LittleEndian.Uint16(raw[16:18])
	code := binary.LittleEndian.Uint16(raw[18:20])
	value := int32(binary.LittleEndian.Uint32(raw[20:24]))

	if typ != evKey || value != keyPress {
		return domain.ActivityEvent{}, false
	}

	switch {
	case code >= btnMouseFirst && code <= btnMouseLast:
		return domain.NewEvent(domain.KindMouse, now, domain.InputInfo{
			Device: device,
			Button: mouseButtons[code],
		}), true
	case code > 0 && code < keyMax:
		return domain.NewEvent(domain.KindKeyboard, now, domain.InputInfo{Device: device}), true
	}
	return domain.ActivityEvent{}, false
}

// EvdevHookSource implements domain.InputHookSource by reading the kernel
// input devices under /dev/input. Reading them requires root or membership
// in the input group.
type EvdevHookSource struct {
	pattern string
	logger  *zap.Logger
	stopper evdevStopper
}

// evdevStopper is the platform-specific running state.
type evdevStopper interface {
	stop() error
}

// NewEvdevHookSource creates an input hook reading /dev/input/event*.
func NewEvdevHookSource(logger *zap.Logger) *EvdevHookSource {
	return NewEvdevHookSourceWithPattern("/dev/input/event*", logger)
}

// NewEvdevHookSourceWithPattern creates an input hook reading the device
// nodes matching pattern (for testing).
func NewEvdevHookSourceWithPattern(pattern string, logger *zap.Logger) *EvdevHookSource {
	return &EvdevHookSource{pattern: pattern, logger: logger}
}

var _ domain.InputHookSource = (*EvdevHookSource)(nil)
