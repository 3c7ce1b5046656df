package domain

import "time"

// EventQueue is the producer-facing side of the event pipeline.
type EventQueue interface {
	// Enqueue hands an event to the pipeline. It never blocks.
	// Returns false if the event was dropped (queue closed).
	Enqueue(ev ActivityEvent) bool
}

// EventSink is the durable destination of the persistence writer.
type EventSink interface {
	// Write appends a single event.
	Write(ev ActivityEvent) error

	// Flush pushes buffered writes to disk.
	Flush() error

	// Close flushes and releases the underlying file.
	Close() error
}

// LogRotator prunes persisted event logs.
type LogRotator interface {
	// Rotate deletes logs older than retentionDays, then the oldest logs
	// until the total size is under maxSizeMB. Returns the removed paths.
	Rotate(now time.Time, retentionDays, maxSizeMB int) ([]string, error)
}

// ConfigSource returns the currently active configuration.
// Callers must treat the returned value as read-only.
type ConfigSource interface {
	Current() *Config
}

// Subscription is a live registration with an OS notification source.
type Subscription interface {
	Close() error
}

// InputHookSource emits raw keyboard/mouse activity.
// Implementation: evdev devices under /dev/input on Linux.
type InputHookSource interface {
	// Start begins delivering events to onEvent from the source's own goroutines.
	Start(cfg *Config, onEvent func(ActivityEvent)) error

	// Stop releases the hook. Safe to call when not started.
	Stop() error
}

// ProcessLifecycleNotifier reports process start/stop.
// Implementation: kernel proc connector via netlink.
type ProcessLifecycleNotifier interface {
	// Subscribe may fail on restricted hosts; callers treat it as optional.
	Subscribe(onStart, onStop func(ProcessInfo)) (Subscription, error)
}

// DeviceNotifier reports USB device arrival/removal.
// Implementation: kobject uevents via netlink.
type DeviceNotifier interface {
	Subscribe(onChange func(DeviceChange)) (Subscription, error)
}

// ForegroundWindowInspector reads the currently focused window.
type ForegroundWindowInspector interface {
	// Current returns the foreground window. ProcessName is empty when
	// the owning process cannot be resolved; that is not an error.
	Current() (ForegroundWindow, error)
}

// ProcessManager handles OS process operations.
// Implementation: uses gopsutil for cross-platform support.
type ProcessManager interface {
	// Name returns the executable name of a process.
	Name(pid int) (string, error)

	// Terminate asks a process to exit (SIGTERM). Returns ErrProcessGone
	// if it has already exited.
	Terminate(pid int) error

	// IsRunning checks if a PID exists and is running.
	IsRunning(pid int) bool
}

// Notifier shows a message to the logged-in user.
type Notifier interface {
	Notify(title, body string) error
}

// EnforcementRecorder persists enforcement history.
// Implementation: SQLCipher encrypted SQLite database.
type EnforcementRecorder interface {
	// Record stores one enforcement action.
	Record(rec EnforcementRecord) error

	// Recent returns the latest records, newest first.
	Recent(limit int) ([]EnforcementRecord, error)

	// Close releases resources (e.g., database connection).
	Close() error
}

// KeyProvider abstracts retrieval of the audit database encryption key.
// Implementation: local key file with 0600 permissions.
type KeyProvider interface {
	// GetKey returns the 32-byte encryption key.
	GetKey() ([]byte, error)

	// StoreKey persists a key.
	StoreKey(key []byte) error

	// KeyExists checks if a key has been provisioned.
	KeyExists() bool
}

// ServiceManager installs the agent as a service started at login or boot.
// Implementation: systemd unit (user unit or system unit by execution mode).
type ServiceManager interface {
	// Install writes the unit for execPath and enables it.
	Install(execPath, configPath string) error

	// Uninstall disables and removes the unit.
	Uninstall() error

	// IsInstalled checks if the unit file exists.
	IsInstalled() bool

	// NeedsUpdate reports whether the installed unit differs from what
	// Install would write.
	NeedsUpdate(execPath, configPath string) bool

	// UnitPath returns the unit file location.
	UnitPath() string
}
