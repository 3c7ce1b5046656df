package fixtures

import (
	"os/exec"
	"strconv"
)

// Sleeper is a real child process standing in for a blocked application.
type Sleeper struct {
	cmd  *exec.Cmd
	done chan struct{}
}

// StartSleeper runs `sleep seconds` and reaps it in the background.
func StartSleeper(seconds int) (*Sleeper, error) {
	cmd := exec.Command("sleep", strconv.Itoa(seconds))
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	s := &Sleeper{cmd: cmd, done: make(chan struct{})}
	go func() {
		_ = cmd.Wait()
		close(s.done)
	}()
	return s, nil
}

// PID returns the child's process id.
func (s *Sleeper) PID() int {
	return s.cmd.Process.Pid
}

// Exited reports whether the child has terminated.
func (s *Sleeper) Exited() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Kill cleans up a child that is still running.
func (s *Sleeper) Kill() {
	if !s.Exited() {
		_ = s.cmd.Process.Kill()
		<-s.done
	}
}
