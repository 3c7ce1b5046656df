package infra

import (
	"context"
	"os/exec"
	"time"
)

// commandTimeout bounds helper binaries (xdotool, notify-send) so a hung
// display server cannot stall the poller.
const commandTimeout = 2 * time.Second

// CommandRunner abstracts command execution for testing
type CommandRunner interface {
	Run(name string, args ...string) error
	Output(name string, args ...string) ([]byte, error)
}

// RealCommandRunner executes real system commands
type RealCommandRunner struct {
	Timeout time.Duration
}

// Run executes a command and waits for it to complete
func (r *RealCommandRunner) Run(name string, args ...string) error {
	ctx, cancel := r.context()
	defer cancel()
	return exec.CommandContext(ctx, name, args...).Run()
}

// Output executes a command and returns its stdout
func (r *RealCommandRunner) Output(name string, args ...string) ([]byte, error) {
	ctx, cancel := r.context()
	defer cancel()
	return exec.CommandContext(ctx, name, args...).Output()
}

func (r *RealCommandRunner) context() (context.Context, context.CancelFunc) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = commandTimeout
	}
	return context.WithTimeout(context.Background(), timeout)
}

// LookPath reports whether a binary is available on PATH.
func LookPath(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
