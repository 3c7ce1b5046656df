// Package domain contains core business entities and interfaces.
// This is the innermost layer in Clean Architecture - no external dependencies.
package domain

import (
	"errors"
	"time"
)

// EventKind identifies what an ActivityEvent describes.
type EventKind string

const (
	KindKeyboard        EventKind = "Keyboard"
	KindMouse           EventKind = "Mouse"
	KindActiveWindow    EventKind = "ActiveWindow"
	KindProcessStart    EventKind = "ProcessStart"
	KindProcessStop     EventKind = "ProcessStop"
	KindUsbDeviceChange EventKind = "UsbDeviceChange"
	KindSessionSwitch   EventKind = "SessionSwitch"
)

// ActivityEvent is a single observation made by a producer.
// Events are values: producers build them once and nothing mutates them afterwards.
type ActivityEvent struct {
	Timestamp time.Time
	Kind      EventKind
	Payload   Payload // Kind-specific, may be nil
}

// Payload is the kind-specific part of an ActivityEvent.
// Implementations are plain structs serialized as the "data" object of a log line.
type Payload interface {
	isPayload()
}

// WindowInfo describes the foreground window at the time of an ActiveWindow event.
type WindowInfo struct {
	Title       string `json:"title"`
	ProcessName string `json:"processName"`
	ProcessID   int    `json:"processId"`
}

// ProcessInfo describes a process that started or stopped.
type ProcessInfo struct {
	Name string `json:"name"`
	PID  int    `json:"pid"`
}

// DeviceAction is the direction of a device change.
type DeviceAction string

const (
	DeviceArrival DeviceAction = "Arrival"
	DeviceRemove  DeviceAction = "Remove"
)

// DeviceChange describes a USB device arriving or being removed.
type DeviceChange struct {
	Action DeviceAction `json:"action"`
	Device string       `json:"device,omitempty"` // Kernel device path when known
}

// InputInfo describes a raw input event. Key identities are never recorded.
type InputInfo struct {
	Device string `json:"device,omitempty"`
	Button string `json:"button,omitempty"` // Mouse button name, empty for keyboard
}

// SessionInfo describes a user session switch (lock, unlock, logon, logoff).
type SessionInfo struct {
	Reason string `json:"reason"`
}

func (WindowInfo) isPayload() {}
func (ProcessInfo) isPayload() {}
func (DeviceChange) isPayload() {}
func (InputInfo) isPayload() {}
func (SessionInfo) isPayload() {}

// NewEvent stamps a payload with its kind and timestamp.
func NewEvent(kind EventKind, at time.Time, payload Payload) ActivityEvent {
	return ActivityEvent{Timestamp: at, Kind: kind, Payload: payload}
}

// Config is the monitoring and parental-control policy document.
// It is replaced wholesale on reload, never mutated in place.
type Config struct {
	Version                    int      `json:"version"`
	EnableInputMonitoring      bool     `json:"enableInputMonitoring"` // Privacy-sensitive, off by default
	EnableActiveWindowTracking bool     `json:"enableActiveWindowTracking"`
	EnableProcessTracking      bool     `json:"enableProcessTracking"`
	EnableUsbMonitoring        bool     `json:"enableUsbMonitoring"`
	DataDirectory              string   `json:"dataDirectory"`
	BlockedProcesses           []string `json:"blockedProcesses"`
	BlockCloseWarningSeconds   int      `json:"blockCloseWarningSeconds"`
	QuietHoursStart            string   `json:"quietHoursStart"`
	QuietHoursEnd              string   `json:"quietHoursEnd"`
	LogRetentionDays           int      `json:"logRetentionDays"`
	LogMaxSizeMB               int      `json:"logMaxSizeMB"`
	MetricsAddress             string   `json:"metricsAddress,omitempty"`
}

// WarningDuration returns the grace period before a blocked process is closed.
func (c *Config) WarningDuration() time.Duration {
	return time.Duration(c.BlockCloseWarningSeconds) * time.Second
}

// ForegroundWindow is what a ForegroundWindowInspector reports for the current window.
type ForegroundWindow struct {
	Handle      uint64
	Title       string
	PID         int
	ProcessName string // Empty when the owning process could not be resolved
}

// SubscriptionStatus is the outcome of subscribing to an OS notification source.
type SubscriptionStatus string

const (
	Subscribed  SubscriptionStatus = "subscribed"
	Unavailable SubscriptionStatus = "unavailable"
)

// SubscriptionResult reports whether a producer is live or running degraded.
type SubscriptionResult struct {
	Status SubscriptionStatus
	Reason string // Set when Status is Unavailable
}

// Degraded reports whether the source could not be subscribed.
func (r SubscriptionResult) Degraded() bool {
	return r.Status != Subscribed
}

// EnforcementAction names what the enforcement engine did to a process.
type EnforcementAction string

const (
	ActionWarned     EnforcementAction = "warned"
	ActionTerminated EnforcementAction = "terminated"
	ActionCancelled  EnforcementAction = "cancelled"
)

// EnforcementRecord is one row of enforcement history.
type EnforcementRecord struct {
	ID          string
	PID         int
	ProcessName string
	Action      EnforcementAction
	Reason      string
	At          time.Time
}

var (
	// ErrUnavailable is returned by OS integrations that cannot run on this host.
	ErrUnavailable = errors.New("not available on this platform")

	// ErrProcessGone is returned when the target process no longer exists.
	ErrProcessGone = errors.New("process no longer exists")
)
