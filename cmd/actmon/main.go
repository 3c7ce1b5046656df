// Package main is the CLI entry point for actmon.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eliteGoblin/focusd/act_mon/internal/config"
	"github.com/eliteGoblin/focusd/act_mon/internal/daemon"
	"github.com/eliteGoblin/focusd/act_mon/internal/domain"
	"github.com/eliteGoblin/focusd/act_mon/internal/infra"
	"github.com/eliteGoblin/focusd/act_mon/internal/metrics"
	"github.com/eliteGoblin/focusd/act_mon/internal/policy"
)

var (
	// Version info (set via ldflags)
	Version   = "0.1.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

const appName = "actmon"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "actmon",
	Short: "Activity monitor with parental-control enforcement",
	Long: `actmon records user activity (foreground windows, process starts and stops,
USB devices and, when enabled, keyboard/mouse activity) to daily JSON Lines logs.

It also closes blocked applications when they come to the foreground,
after an optional warning, and announces quiet hours.`,
	Version: Version,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the monitoring agent in the foreground",
	Long: `Loads the configuration, starts every enabled producer and blocks until
SIGINT or SIGTERM. Configuration changes are picked up without a restart.`,
	RunE: runAgent,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create the configuration file",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE:  runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file location and search order",
	RunE:  runConfigPath,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	RunE:  runConfigInit,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent enforcement actions",
	RunE:  runHistory,
}

var checkCmd = &cobra.Command{
	Use:   "check <process-name>",
	Short: "Check whether a process would be blocked right now",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheck,
}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install actmon as a systemd service",
	Long: `Writes a systemd unit running "actmon run" and enables it.
As root this installs a system unit; otherwise a user unit tied to the
graphical session.`,
	RunE: runInstall,
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the systemd service",
	RunE:  runUninstall,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Prints version, commit, and build time. Use --json for machine-readable output.`,
	Run:   runVersion,
}

var (
	configPath   string
	debugLogging bool
	historyLimit int
	forceInit    bool
	jsonOutput   bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the configuration file (overrides $"+config.EnvConfigPath+")")
	runCmd.Flags().BoolVar(&debugLogging, "debug", false, "Log at debug level to stderr")
	historyCmd.Flags().IntVar(&historyLimit, "limit", infra.DefaultHistoryLimit, "Number of records to show")
	configInitCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing configuration with defaults")
	versionCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configInitCmd)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(uninstallCmd)
	rootCmd.AddCommand(versionCmd)
}

func newStore() *config.Store {
	return config.NewStore(config.DetectExecMode(), configPath)
}

func runAgent(cmd *cobra.Command, args []string) error {
	store := newStore()
	cfg, path, loadErr := store.LoadOrInit()

	logger := createLogger(cfg.DataDirectory, debugLogging)
	defer func() { _ = logger.Sync() }()

	switch {
	case errors.Is(loadErr, config.ErrNoWritableLocation):
		logger.Warn("no writable config location, running on defaults",
			zap.Strings("candidates", store.Candidates()))
	case loadErr != nil:
		logger.Warn("config file is malformed, running on defaults",
			zap.String("path", path),
			zap.Error(loadErr))
	default:
		logger.Info("configuration loaded", zap.String("path", path))
	}

	sink, err := infra.NewJSONLSink(cfg.DataDirectory)
	if err != nil {
		logger.Error("failed to prepare event log directory", zap.Error(err))
		return err
	}

	var recorder domain.EnforcementRecorder
	if audit, err := infra.OpenAuditStore(cfg.DataDirectory); err != nil {
		logger.Warn("enforcement history unavailable", zap.Error(err))
	} else {
		recorder = audit
		defer audit.Close()
	}

	pm := infra.NewProcessManager()

	var inspector domain.ForegroundWindowInspector
	if infra.LookPath("xdotool") {
		inspector = infra.NewXdotoolInspector(pm, logger.Named("xdotool"))
	} else {
		logger.Warn("xdotool not found, active window tracking and enforcement disabled")
	}

	agent := daemon.NewAgent(daemon.DefaultAgentConfig(), daemon.AgentDeps{
		Store:           store,
		Holder:          config.NewHolder(cfg),
		ConfigPath:      path,
		Sink:            sink,
		Rotator:         sink,
		Inspector:       inspector,
		ProcessNotifier: infra.NewNetlinkProcessNotifier(pm, logger.Named("proc")),
		DeviceNotifier:  infra.NewUeventDeviceNotifier(logger.Named("uevent")),
		HookSource:      infra.NewEvdevHookSource(logger.Named("evdev")),
		ProcessManager:  pm,
		Notifier:        infra.NewNotifier(appName, logger),
		Recorder:        recorder,
		Metrics:         metrics.NewRegistry(prometheus.NewRegistry()),
		Logger:          logger,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("actmon starting",
		zap.String("version", Version),
		zap.String("session", agent.SessionID()),
		zap.Int("pid", os.Getpid()))

	return agent.Run(ctx)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	store := newStore()
	path, ok := store.Locate()
	if !ok {
		fmt.Println("# no configuration file found, showing defaults")
		cfg := config.Default()
		config.Normalize(cfg, store.DefaultDataDir())
		return printConfig(cfg)
	}

	cfg, err := store.LoadFile(path)
	if err != nil {
		return err
	}
	fmt.Printf("# %s\n", path)
	return printConfig(cfg)
}

func printConfig(cfg *domain.Config) error {
	data, err := config.Marshal(cfg)
	if err != nil {
		return err
	}
	fmt.Print(string(data))
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	store := newStore()
	if path, ok := store.Locate(); ok {
		fmt.Println(path)
	} else {
		fmt.Println("(none)")
	}

	fmt.Println("\nSearch order:")
	for i, candidate := range store.Candidates() {
		fmt.Printf("  %d. %s\n", i+1, candidate)
	}
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	store := newStore()

	if path, ok := store.Locate(); ok {
		if !forceInit {
			fmt.Printf("Configuration already exists at %s (use --force to reset)\n", path)
			return nil
		}
		cfg := config.Default()
		config.Normalize(cfg, store.DefaultDataDir())
		if err := store.Save(path, cfg); err != nil {
			return fmt.Errorf("failed to reset %s: %w", path, err)
		}
		fmt.Printf("Reset configuration at %s\n", path)
		return nil
	}

	_, path, err := store.LoadOrInit()
	if err != nil {
		return err
	}
	fmt.Printf("Wrote default configuration to %s\n", path)
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	store := newStore()
	cfg, _, err := store.LoadOrInit()
	if err != nil && !errors.Is(err, config.ErrNoWritableLocation) {
		return err
	}

	if _, err := os.Stat(infra.AuditDBPath(cfg.DataDirectory)); os.IsNotExist(err) {
		fmt.Println("No enforcement history yet.")
		return nil
	}

	audit, err := infra.OpenAuditStore(cfg.DataDirectory)
	if err != nil {
		return fmt.Errorf("failed to open enforcement history: %w", err)
	}
	defer audit.Close()

	records, err := audit.Recent(historyLimit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No enforcement history yet.")
		return nil
	}

	for _, rec := range records {
		fmt.Printf("%s  %-10s  %-24s  pid %-7d  %s\n",
			rec.At.Local().Format(time.DateTime),
			rec.Action, rec.ProcessName, rec.PID, rec.Reason)
	}
	return nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	store := newStore()
	cfg, _, err := store.LoadOrInit()
	if err != nil && !errors.Is(err, config.ErrNoWritableLocation) {
		return err
	}

	name := args[0]
	now := time.Now()
	quiet := policy.InQuietHours(cfg.QuietHoursStart, cfg.QuietHoursEnd, now)

	fmt.Printf("Process:     %s (normalized %q)\n", name, policy.NormalizeProcessName(name))
	if policy.IsBlocked(cfg.BlockedProcesses, name) {
		if cfg.BlockCloseWarningSeconds > 0 {
			fmt.Printf("Verdict:     blocked, closed %ds after warning\n", cfg.BlockCloseWarningSeconds)
		} else {
			fmt.Println("Verdict:     blocked, closed immediately")
		}
	} else {
		fmt.Println("Verdict:     allowed")
	}

	if cfg.QuietHoursStart == "" || cfg.QuietHoursEnd == "" {
		fmt.Println("Quiet hours: not configured")
	} else {
		fmt.Printf("Quiet hours: %s-%s (active now: %t)\n", cfg.QuietHoursStart, cfg.QuietHoursEnd, quiet)
	}
	return nil
}

func newServiceManager() domain.ServiceManager {
	mode := config.DetectExecMode()
	return infra.NewSystemdManager(mode.IsRoot, config.GetRealUserHome())
}

func runInstall(cmd *cobra.Command, args []string) error {
	executable, err := os.Executable()
	if err != nil {
		return err
	}
	if resolved, err := filepath.EvalSymlinks(executable); err == nil {
		executable = resolved
	}

	// Pin the config the agent will use so the service and the CLI agree.
	store := newStore()
	_, path, err := store.LoadOrInit()
	if err != nil && !errors.Is(err, config.ErrNoWritableLocation) {
		fmt.Printf("Warning: %v\n", err)
	}

	svc := newServiceManager()
	if svc.IsInstalled() && !svc.NeedsUpdate(executable, path) {
		fmt.Printf("Already installed: %s\n", svc.UnitPath())
		return nil
	}
	if err := svc.Install(executable, path); err != nil {
		return fmt.Errorf("failed to install service: %w", err)
	}
	fmt.Printf("Installed %s\n", svc.UnitPath())
	return nil
}

func runUninstall(cmd *cobra.Command, args []string) error {
	svc := newServiceManager()
	if !svc.IsInstalled() {
		fmt.Println("Service is not installed.")
		return nil
	}
	if err := svc.Uninstall(); err != nil {
		return fmt.Errorf("failed to uninstall service: %w", err)
	}
	fmt.Printf("Removed %s\n", svc.UnitPath())
	return nil
}

// createLogger writes JSON logs next to the event logs, falling back to
// stdout when the file cannot be opened.
func createLogger(dataDir string, debug bool) *zap.Logger {
	if debug {
		logger, err := zap.NewDevelopment()
		if err == nil {
			return logger
		}
	}

	config := zap.NewProductionConfig()
	if dataDir != "" && os.MkdirAll(dataDir, 0700) == nil {
		config.OutputPaths = []string{filepath.Join(dataDir, "actmon.log")}
		config.ErrorOutputPaths = []string{filepath.Join(dataDir, "actmon.error.log")}
	}
	config.EncoderConfig.TimeKey = "time"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		// Fallback to stdout if file logging fails
		logger, _ = zap.NewProduction()
	}
	return logger
}

func runVersion(cmd *cobra.Command, args []string) {
	if jsonOutput {
		fmt.Printf(`{"version":"%s","commit":"%s","build_time":"%s"}`+"\n",
			Version, Commit, BuildTime)
	} else {
		fmt.Printf("actmon %s (commit: %s, built: %s)\n",
			Version, Commit, BuildTime)
	}
}
