package infra

import (
	"errors"
	"os"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliteGoblin/focusd/act_mon/internal/domain"
)

func TestProcessManager_NameOfSelf(t *testing.T) {
	pm := NewProcessManager()

	name, err := pm.Name(os.Getpid())
	require.NoError(t, err)
	assert.NotEmpty(t, name)
	assert.True(t, pm.IsRunning(os.Getpid()))
}

func TestProcessManager_RefusesSelf(t *testing.T) {
	pm := NewProcessManager()
	assert.Error(t, pm.Terminate(os.Getpid()))
}

func TestProcessManager_InvalidPID(t *testing.T) {
	pm := NewProcessManager()

	_, err := pm.Name(-1)
	assert.Error(t, err)
	assert.False(t, pm.IsRunning(0))
}

func TestProcessManager_TerminateChild(t *testing.T) {
	cmd := exec.Command("sleep", "30")
	if err := cmd.Start(); err != nil {
		t.Skipf("sleep not available: %v", err)
	}
	pid := cmd.Process.Pid

	pm := NewProcessManager()
	require.NoError(t, pm.Terminate(pid))
	_ = cmd.Wait()

	err := pm.Terminate(pid)
	assert.True(t, errors.Is(err, domain.ErrProcessGone), "got %v", err)
}
