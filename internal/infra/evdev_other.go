//go:build !linux

package infra

import (
	"fmt"

	"github.com/eliteGoblin/focusd/act_mon/internal/domain"
)

// Start is unavailable outside Linux.
func (s *EvdevHookSource) Start(cfg *domain.Config, onEvent func(domain.ActivityEvent)) error {
	return fmt.Errorf("%w: evdev requires linux", domain.ErrUnavailable)
}

// Stop is a no-op outside Linux.
func (s *EvdevHookSource) Stop() error {
	return nil
}
