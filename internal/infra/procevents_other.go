//go:build !linux

package infra

import (
	"fmt"

	"github.com/eliteGoblin/focusd/act_mon/internal/domain"
)

// Subscribe is unavailable outside Linux.
func (n *NetlinkProcessNotifier) Subscribe(onStart, onStop func(domain.ProcessInfo)) (domain.Subscription, error) {
	return nil, fmt.Errorf("%w: proc connector requires linux", domain.ErrUnavailable)
}
