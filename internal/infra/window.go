package infra

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/act_mon/internal/domain"
)

const xdotoolBin = "xdotool"

// XdotoolInspector implements domain.ForegroundWindowInspector for X11
// sessions by shelling out to xdotool.
type XdotoolInspector struct {
	pm        domain.ProcessManager
	cmdRunner CommandRunner
	logger    *zap.Logger
}

// NewXdotoolInspector creates an inspector backed by the real xdotool binary.
func NewXdotoolInspector(pm domain.ProcessManager, logger *zap.Logger) *XdotoolInspector {
	return NewXdotoolInspectorWithDeps(pm, &RealCommandRunner{}, logger)
}

// NewXdotoolInspectorWithDeps creates an inspector with injectable dependencies (for testing)
func NewXdotoolInspectorWithDeps(pm domain.ProcessManager, cmdRunner CommandRunner, logger *zap.Logger) *XdotoolInspector {
	return &XdotoolInspector{
		pm:        pm,
		cmdRunner: cmdRunner,
		logger:    logger,
	}
}

// Current returns the focused window. Title and process resolution are best
// effort: a window without a pid or an unreadable process yields empty fields.
func (x *XdotoolInspector) Current() (domain.ForegroundWindow, error) {
	out, err := x.cmdRunner.Output(xdotoolBin, "getactivewindow")
	if err != nil {
		return domain.ForegroundWindow{}, fmt.Errorf("%w: xdotool getactivewindow: %v", domain.ErrUnavailable, err)
	}
	handle, err := strconv.ParseUint(strings.TrimSpace(string(out)), 10, 64)
	if err != nil {
		return domain.ForegroundWindow{}, fmt.Errorf("unexpected window id %q: %w", strings.TrimSpace(string(out)), err)
	}

	win := domain.ForegroundWindow{Handle: handle}
	id := strconv.FormatUint(handle, 10)

	if title, err := x.cmdRunner.Output(xdotoolBin, "getwindowname", id); err == nil {
		win.Title = strings.TrimRight(string(title), "\r\n")
	}

	pidOut, err := x.cmdRunner.Output(xdotoolBin, "getwindowpid", id)
	if err != nil {
		x.logger.Debug("window has no pid", zap.Uint64("window", handle))
		return win, nil
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(pidOut)))
	if err != nil || pid <= 0 {
		return win, nil
	}
	win.PID = pid

	name, err := x.pm.Name(pid)
	if err != nil {
		x.logger.Debug("failed to resolve process name",
			zap.Int("pid", pid),
			zap.Error(err))
		return win, nil
	}
	win.ProcessName = name
	return win, nil
}

var _ domain.ForegroundWindowInspector = (*XdotoolInspector)(nil)
