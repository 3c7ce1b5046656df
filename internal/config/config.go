// Package config loads, validates and persists the agent configuration.
package config

import (
	"encoding/json"
	"fmt"

	"github.com/eliteGoblin/focusd/act_mon/internal/domain"
)

// CurrentVersion is the document version written by this build.
const CurrentVersion = 1

const (
	DefaultLogRetentionDays = 30
	DefaultLogMaxSizeMB     = 100
)

// Default returns the configuration used when no file exists or a file
// cannot be parsed.
func Default() *domain.Config {
	return &domain.Config{
		Version:                    CurrentVersion,
		EnableInputMonitoring:      false,
		EnableActiveWindowTracking: true,
		EnableProcessTracking:      true,
		EnableUsbMonitoring:        true,
		BlockedProcesses:           []string{},
		BlockCloseWarningSeconds:   60,
		LogRetentionDays:           DefaultLogRetentionDays,
		LogMaxSizeMB:               DefaultLogMaxSizeMB,
	}
}

// Parse decodes a configuration document. Missing fields keep their
// defaults and unknown fields are ignored.
func Parse(data []byte, dataDirFallback string) (*domain.Config, error) {
	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	Normalize(cfg, dataDirFallback)
	return cfg, nil
}

// Normalize clamps out-of-range values and derives a blank data directory.
func Normalize(cfg *domain.Config, dataDirFallback string) {
	if cfg.Version == 0 {
		cfg.Version = CurrentVersion
	}
	if cfg.BlockCloseWarningSeconds < 0 {
		cfg.BlockCloseWarningSeconds = 0
	}
	if cfg.LogRetentionDays < 1 {
		cfg.LogRetentionDays = DefaultLogRetentionDays
	}
	if cfg.LogMaxSizeMB < 0 {
		cfg.LogMaxSizeMB = 0
	}
	if cfg.BlockedProcesses == nil {
		cfg.BlockedProcesses = []string{}
	}
	if cfg.DataDirectory == "" {
		cfg.DataDirectory = dataDirFallback
	}
	cfg.DataDirectory = ExpandHome(cfg.DataDirectory)
}

// Marshal encodes a configuration as indented JSON.
func Marshal(cfg *domain.Config) ([]byte, error) {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
