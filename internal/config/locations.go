package config

import (
	"os"
	"os/user"
	"path/filepath"
	"strings"
)

// EnvConfigPath overrides the candidate search when set.
const EnvConfigPath = "ACTMON_CONFIG"

const fileName = "config.json"

// ExecMode represents the execution mode of the agent.
type ExecMode string

const (
	// ExecModeUser runs as the logged-in user (no sudo required)
	ExecModeUser ExecMode = "user"
	// ExecModeSystem runs as root and monitors the whole machine
	ExecModeSystem ExecMode = "system"
)

// ExecModeConfig holds paths derived from the execution mode.
type ExecModeConfig struct {
	Mode       ExecMode
	ConfigDirs []string // Candidate config directories, highest priority first
	DataDir    string   // Default data directory (event logs, audit store, key)
	IsRoot     bool
}

// DetectExecMode determines the execution mode based on effective UID.
func DetectExecMode() *ExecModeConfig {
	if os.Geteuid() == 0 {
		return &ExecModeConfig{
			Mode:       ExecModeSystem,
			ConfigDirs: []string{"/etc/actmon", "/var/lib/actmon"},
			DataDir:    "/var/lib/actmon",
			IsRoot:     true,
		}
	}

	home := GetRealUserHome()
	return &ExecModeConfig{
		Mode: ExecModeUser,
		ConfigDirs: []string{
			filepath.Join(home, ".config", "actmon"),
			filepath.Join(home, ".actmon"),
		},
		DataDir: filepath.Join(home, ".actmon"),
		IsRoot:  false,
	}
}

// String returns a human-readable description of the mode.
func (m ExecMode) String() string {
	switch m {
	case ExecModeSystem:
		return "system (root)"
	case ExecModeUser:
		return "user (non-root)"
	default:
		return "unknown"
	}
}

// Candidates returns config file locations in priority order: an explicit
// path, then $ACTMON_CONFIG, then the mode's config directories.
func (m *ExecModeConfig) Candidates(explicit string) []string {
	var paths []string
	if explicit != "" {
		paths = append(paths, ExpandHome(explicit))
	}
	if env := os.Getenv(EnvConfigPath); env != "" {
		paths = append(paths, ExpandHome(env))
	}
	for _, dir := range m.ConfigDirs {
		paths = append(paths, filepath.Join(dir, fileName))
	}
	return paths
}

// GetRealUserHome returns the real user's home directory, even when running under sudo.
func GetRealUserHome() string {
	if sudoUser := os.Getenv("SUDO_USER"); sudoUser != "" {
		if u, err := user.Lookup(sudoUser); err == nil {
			return u.HomeDir
		}
	}
	home, _ := os.UserHomeDir()
	return home
}

// ExpandHome expands a leading ~ to the user's home directory.
func ExpandHome(path string) string {
	if path == "~" {
		return GetRealUserHome()
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(GetRealUserHome(), path[2:])
	}
	return path
}
