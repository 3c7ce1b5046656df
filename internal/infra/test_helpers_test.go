package infra

import (
	"fmt"
	"strings"
	"sync"

	"github.com/eliteGoblin/focusd/act_mon/internal/domain"
)

// mockProcessManager is a test double for ProcessManager
type mockProcessManager struct {
	names      map[int]string
	terminated []int
}

func newMockProcessManager() *mockProcessManager {
	return &mockProcessManager{names: make(map[int]string)}
}

func (m *mockProcessManager) Name(pid int) (string, error) {
	name, ok := m.names[pid]
	if !ok {
		return "", domain.ErrProcessGone
	}
	return name, nil
}

func (m *mockProcessManager) Terminate(pid int) error {
	m.terminated = append(m.terminated, pid)
	delete(m.names, pid)
	return nil
}

func (m *mockProcessManager) IsRunning(pid int) bool {
	_, ok := m.names[pid]
	return ok
}

// fakeCommandRunner answers commands from a table keyed by the joined command line.
type fakeCommandRunner struct {
	mu      sync.Mutex
	outputs map[string]string
	fail    map[string]bool
	calls   [][]string
}

func newFakeCommandRunner() *fakeCommandRunner {
	return &fakeCommandRunner{
		outputs: make(map[string]string),
		fail:    make(map[string]bool),
	}
}

func (f *fakeCommandRunner) key(name string, args ...string) string {
	return strings.Join(append([]string{name}, args...), " ")
}

func (f *fakeCommandRunner) Run(name string, args ...string) error {
	_, err := f.Output(name, args...)
	return err
}

func (f *fakeCommandRunner) Output(name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]string{name}, args...))
	k := f.key(name, args...)
	if f.fail[k] {
		return nil, fmt.Errorf("%s: exit status 1", k)
	}
	return []byte(f.outputs[k]), nil
}

func (f *fakeCommandRunner) Calls() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.calls...)
}
