package infra

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDesktopNotifier_Notify(t *testing.T) {
	runner := newFakeCommandRunner()
	n := NewDesktopNotifierWithDeps("actmon", runner)

	require.NoError(t, n.Notify("Parental controls", "steam is blocked"))

	calls := runner.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{
		"notify-send", "--app-name", "actmon", "--urgency", "critical",
		"Parental controls", "steam is blocked",
	}, calls[0])
}

func TestDesktopNotifier_PropagatesFailure(t *testing.T) {
	runner := newFakeCommandRunner()
	runner.fail["notify-send --app-name actmon --urgency critical t b"] = true

	assert.Error(t, NewDesktopNotifierWithDeps("actmon", runner).Notify("t", "b"))
}

func TestLogNotifier_NeverFails(t *testing.T) {
	assert.NoError(t, NewLogNotifier(zap.NewNop()).Notify("t", "b"))
}
