//go:build !linux

package infra

import (
	"fmt"

	"github.com/eliteGoblin/focusd/act_mon/internal/domain"
)

// Subscribe is unavailable outside Linux.
func (n *UeventDeviceNotifier) Subscribe(onChange func(domain.DeviceChange)) (domain.Subscription, error) {
	return nil, fmt.Errorf("%w: uevents require linux", domain.ErrUnavailable)
}
