// Package infra implements infrastructure concerns (process, event log, OS notifications).
package infra

import (
	"errors"
	"fmt"
	"os"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/eliteGoblin/focusd/act_mon/internal/domain"
)

// ProcessManagerImpl implements domain.ProcessManager using gopsutil.
type ProcessManagerImpl struct{}

// NewProcessManager creates a new process manager.
func NewProcessManager() domain.ProcessManager {
	return &ProcessManagerImpl{}
}

// Name returns the executable name of pid.
func (pm *ProcessManagerImpl) Name(pid int) (string, error) {
	p, err := pm.lookup(pid)
	if err != nil {
		return "", err
	}
	name, err := p.Name()
	if err != nil {
		return "", fmt.Errorf("failed to read name of pid %d: %w", pid, err)
	}
	return name, nil
}

// Terminate asks a process to exit with SIGTERM.
func (pm *ProcessManagerImpl) Terminate(pid int) error {
	if pid == os.Getpid() {
		return fmt.Errorf("refusing to terminate own process %d", pid)
	}
	p, err := pm.lookup(pid)
	if err != nil {
		return err
	}
	if err := p.Terminate(); err != nil {
		if !pm.IsRunning(pid) {
			return fmt.Errorf("pid %d: %w", pid, domain.ErrProcessGone)
		}
		return fmt.Errorf("failed to terminate pid %d: %w", pid, err)
	}
	return nil
}

// IsRunning checks if a PID exists and is running.
func (pm *ProcessManagerImpl) IsRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	exists, err := process.PidExists(int32(pid))
	return err == nil && exists
}

func (pm *ProcessManagerImpl) lookup(pid int) (*process.Process, error) {
	if pid <= 0 {
		return nil, fmt.Errorf("invalid pid %d", pid)
	}
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		if errors.Is(err, process.ErrorProcessNotRunning) {
			return nil, fmt.Errorf("pid %d: %w", pid, domain.ErrProcessGone)
		}
		return nil, err
	}
	return p, nil
}

// Ensure ProcessManagerImpl implements domain.ProcessManager.
var _ domain.ProcessManager = (*ProcessManagerImpl)(nil)
