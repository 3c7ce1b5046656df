package config

import (
	"sync/atomic"

	"github.com/eliteGoblin/focusd/act_mon/internal/domain"
)

// Holder publishes the active configuration to concurrent readers.
// Swaps are atomic; readers never see a partially applied document.
type Holder struct {
	current atomic.Pointer[domain.Config]
}

// NewHolder creates a holder with an initial configuration.
func NewHolder(cfg *domain.Config) *Holder {
	h := &Holder{}
	h.current.Store(cfg)
	return h
}

// Current returns the active configuration.
func (h *Holder) Current() *domain.Config {
	return h.current.Load()
}

// Swap installs cfg and returns the configuration it replaced.
func (h *Holder) Swap(cfg *domain.Config) *domain.Config {
	return h.current.Swap(cfg)
}

// Ensure Holder implements domain.ConfigSource.
var _ domain.ConfigSource = (*Holder)(nil)
