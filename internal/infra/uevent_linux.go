//go:build linux

package infra

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/eliteGoblin/focusd/act_mon/internal/domain"
)

const ueventBufferSize = 16 * 1024

type ueventSubscription struct {
	fd       int
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

func (s *ueventSubscription) Close() error {
	var err error
	s.stopOnce.Do(func() {
		close(s.done)
		// The reader wakes up within one receive timeout.
		s.wg.Wait()
		err = unix.Close(s.fd)
	})
	return err
}

// Subscribe opens the uevent multicast group and reports USB changes.
func (n *UeventDeviceNotifier) Subscribe(onChange func(domain.DeviceChange)) (domain.Subscription, error) {
	fd, err := unix.Socket(unix.AF_NETLINK, unix.SOCK_RAW|unix.SOCK_CLOEXEC, unix.NETLINK_KOBJECT_UEVENT)
	if err != nil {
		return nil, fmt.Errorf("%w: uevent socket: %v", domain.ErrUnavailable, err)
	}
	if err := unix.Bind(fd, &unix.SockaddrNetlink{Family: unix.AF_NETLINK, Groups: 1}); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("%w: bind uevent socket: %v", domain.ErrUnavailable, err)
	}
	tv := unix.Timeval{Sec: 1}
	if err := unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("failed to set uevent receive timeout: %w", err)
	}

	sub := &ueventSubscription{fd: fd, done: make(chan struct{})}
	sub.wg.Add(1)
	go func() {
		defer sub.wg.Done()
		n.read(sub, onChange)
	}()
	return sub, nil
}

func (n *UeventDeviceNotifier) read(sub *ueventSubscription, onChange func(domain.DeviceChange)) {
	buf := make([]byte, ueventBufferSize)
	for {
		select {
		case <-sub.done:
			return
		default:
		}

		size, _, err := unix.Recvfrom(sub.fd, buf, 0)
		if err != nil {
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) || errors.Is(err, unix.ENOBUFS) {
				continue
			}
			n.logger.Warn("uevent listener stopped", zap.Error(err))
			return
		}

		if change, ok := parseUevent(buf[:size]); ok {
			onChange(change)
		}
	}
}
