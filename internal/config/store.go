package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/eliteGoblin/focusd/act_mon/internal/domain"
)

// ErrNoWritableLocation is returned when no candidate directory can hold a config file.
var ErrNoWritableLocation = errors.New("no writable config location")

// Store reads and writes the configuration file.
// Candidates are tried in priority order; the first existing file wins.
type Store struct {
	candidates []string
	dataDir    string // Fallback for a blank dataDirectory
}

// NewStore creates a store for the current execution mode.
func NewStore(mode *ExecModeConfig, explicitPath string) *Store {
	return &Store{
		candidates: mode.Candidates(explicitPath),
		dataDir:    mode.DataDir,
	}
}

// NewStoreWithCandidates creates a store with fixed candidates (for testing).
func NewStoreWithCandidates(dataDir string, candidates ...string) *Store {
	return &Store{candidates: candidates, dataDir: dataDir}
}

// Candidates returns the search order.
func (s *Store) Candidates() []string {
	return s.candidates
}

// DefaultDataDir is used when the document leaves dataDirectory blank.
func (s *Store) DefaultDataDir() string {
	return s.dataDir
}

// Locate returns the first existing candidate file.
func (s *Store) Locate() (string, bool) {
	for _, path := range s.candidates {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

// LoadFile reads and parses a single configuration file.
func (s *Store) LoadFile(path string) (*domain.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(data, s.dataDir)
}

// LoadOrInit loads the first existing candidate. If none exists, defaults are
// written to the first writable candidate directory. A malformed file yields
// defaults together with the parse error so the caller can log it.
func (s *Store) LoadOrInit() (*domain.Config, string, error) {
	if path, ok := s.Locate(); ok {
		cfg, err := s.LoadFile(path)
		if err != nil {
			cfg = Default()
			Normalize(cfg, s.dataDir)
			return cfg, path, err
		}
		return cfg, path, nil
	}

	cfg := Default()
	Normalize(cfg, s.dataDir)

	for _, path := range s.candidates {
		if err := s.Save(path, cfg); err == nil {
			return cfg, path, nil
		}
	}
	return cfg, "", ErrNoWritableLocation
}

// Save writes cfg to path atomically (write + rename).
func (s *Store) Save(path string, cfg *domain.Config) error {
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Write to temp file first (unique per process to avoid race)
	tmpPath := fmt.Sprintf("%s.%d.tmp", path, os.Getpid())
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
