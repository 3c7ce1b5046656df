//go:build linux

package infra

import (
	"fmt"
	"sync"

	"github.com/vishvananda/netlink"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/act_mon/internal/domain"
)

type procSubscription struct {
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

func (s *procSubscription) Close() error {
	s.stopOnce.Do(func() {
		close(s.done)
		s.wg.Wait()
	})
	return nil
}

// Subscribe starts listening for exec and exit events.
func (n *NetlinkProcessNotifier) Subscribe(onStart, onStop func(domain.ProcessInfo)) (domain.Subscription, error) {
	events := make(chan netlink.ProcEvent, 256)
	errs := make(chan error, 1)
	sub := &procSubscription{done: make(chan struct{})}

	if err := netlink.ProcEventMonitor(events, sub.done, errs); err != nil {
		return nil, fmt.Errorf("%w: proc connector: %v", domain.ErrUnavailable, err)
	}

	tracker := newProcessTracker(n.pm, onStart, onStop, n.logger)

	sub.wg.Add(1)
	go func() {
		defer sub.wg.Done()
		for {
			select {
			case <-sub.done:
				return
			case err := <-errs:
				n.logger.Warn("proc connector stopped", zap.Error(err))
				return
			case ev := <-events:
				n.dispatch(tracker, ev)
			}
		}
	}()

	return sub, nil
}

func (n *NetlinkProcessNotifier) dispatch(tracker *processTracker, ev netlink.ProcEvent) {
	if ev.Msg == nil {
		return
	}
	switch ev.What {
	case netlink.PROC_EVENT_EXEC:
		tracker.exec(int(ev.Msg.Tgid()))
	case netlink.PROC_EVENT_EXIT:
		// Thread exits carry the leader's tgid too; only the leader ends the process.
		if ev.Msg.Pid() == ev.Msg.Tgid() {
			tracker.exit(int(ev.Msg.Tgid()))
		}
	}
}
