package infra

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/eliteGoblin/focusd/act_mon/internal/domain"
)

// ServiceName is the systemd unit name.
const ServiceName = "actmon.service"

// User unit (runs in the graphical session so xdotool and notify-send work)
const userUnitTemplate = `[Unit]
Description=actmon activity monitor
After=graphical-session.target
PartOf=graphical-session.target

[Service]
Type=simple
ExecStart={{.ExecStart}}
Restart=on-failure
RestartSec=10

[Install]
WantedBy=graphical-session.target
`

// System unit (runs as root, needed for the proc connector and /dev/input)
const systemUnitTemplate = `[Unit]
Description=actmon activity monitor
After=multi-user.target

[Service]
Type=simple
ExecStart={{.ExecStart}}
Restart=always
RestartSec=10

[Install]
WantedBy=multi-user.target
`

type unitConfig struct {
	ExecStart string
}

// SystemdManager implements domain.ServiceManager for user and system units.
type SystemdManager struct {
	system    bool
	unitDir   string
	cmdRunner CommandRunner
}

// NewSystemdManager creates a manager for the given mode. System mode writes
// to /etc/systemd/system, user mode to ~/.config/systemd/user.
func NewSystemdManager(system bool, home string) *SystemdManager {
	unitDir := filepath.Join(home, ".config", "systemd", "user")
	if system {
		unitDir = "/etc/systemd/system"
	}
	return NewSystemdManagerWithDeps(system, unitDir, &RealCommandRunner{})
}

// NewSystemdManagerWithDeps creates a manager with injectable dependencies (for testing)
func NewSystemdManagerWithDeps(system bool, unitDir string, cmdRunner CommandRunner) *SystemdManager {
	return &SystemdManager{system: system, unitDir: unitDir, cmdRunner: cmdRunner}
}

// UnitPath returns the unit file path.
func (m *SystemdManager) UnitPath() string {
	return filepath.Join(m.unitDir, ServiceName)
}

func (m *SystemdManager) generateUnit(execPath, configPath string) ([]byte, error) {
	tmplStr := userUnitTemplate
	if m.system {
		tmplStr = systemUnitTemplate
	}

	execStart := execPath + " run"
	if configPath != "" {
		execStart += " --config " + configPath
	}

	tmpl, err := template.New("unit").Parse(tmplStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse unit template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, unitConfig{ExecStart: execStart}); err != nil {
		return nil, fmt.Errorf("failed to execute unit template: %w", err)
	}
	return buf.Bytes(), nil
}

// Install writes the unit and enables it immediately.
func (m *SystemdManager) Install(execPath, configPath string) error {
	if err := os.MkdirAll(m.unitDir, 0755); err != nil {
		return err
	}

	content, err := m.generateUnit(execPath, configPath)
	if err != nil {
		return err
	}
	if err := os.WriteFile(m.UnitPath(), content, 0644); err != nil {
		return err
	}

	if err := m.systemctl("daemon-reload"); err != nil {
		return fmt.Errorf("systemctl daemon-reload: %w", err)
	}
	if err := m.systemctl("enable", "--now", ServiceName); err != nil {
		return fmt.Errorf("systemctl enable: %w", err)
	}
	return nil
}

// Uninstall disables the unit and removes the file.
func (m *SystemdManager) Uninstall() error {
	// Ignore errors if the unit was never enabled
	_ = m.systemctl("disable", "--now", ServiceName)

	if err := os.Remove(m.UnitPath()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return m.systemctl("daemon-reload")
}

// IsInstalled checks if the unit file exists.
func (m *SystemdManager) IsInstalled() bool {
	_, err := os.Stat(m.UnitPath())
	return err == nil
}

// NeedsUpdate checks if the unit exists but has different content than expected.
func (m *SystemdManager) NeedsUpdate(execPath, configPath string) bool {
	if !m.IsInstalled() {
		return false // Needs install, not update
	}
	current, err := os.ReadFile(m.UnitPath())
	if err != nil {
		return true
	}
	expected, err := m.generateUnit(execPath, configPath)
	if err != nil {
		return true
	}
	return !bytes.Equal(current, expected)
}

func (m *SystemdManager) systemctl(args ...string) error {
	if !m.system {
		args = append([]string{"--user"}, args...)
	}
	return m.cmdRunner.Run("systemctl", args...)
}

var _ domain.ServiceManager = (*SystemdManager)(nil)
