// Package fixtures provides test doubles shared by the integration suites.
package fixtures

import (
	"sync"

	"github.com/eliteGoblin/focusd/act_mon/internal/domain"
)

// ScriptedWindow is a foreground window inspector whose answer the test controls.
type ScriptedWindow struct {
	mu  sync.Mutex
	win domain.ForegroundWindow
	err error
}

// NewScriptedWindow starts with an empty desktop window.
func NewScriptedWindow() *ScriptedWindow {
	return &ScriptedWindow{win: domain.ForegroundWindow{Handle: 1, Title: "Desktop"}}
}

// Focus brings a new window to the foreground.
func (s *ScriptedWindow) Focus(handle uint64, title string, pid int, processName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.win = domain.ForegroundWindow{Handle: handle, Title: title, PID: pid, ProcessName: processName}
	s.err = nil
}

// Fail makes the next reads return err.
func (s *ScriptedWindow) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Current implements domain.ForegroundWindowInspector.
func (s *ScriptedWindow) Current() (domain.ForegroundWindow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.win, s.err
}

var _ domain.ForegroundWindowInspector = (*ScriptedWindow)(nil)
