package infra

import (
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/act_mon/internal/domain"
)

const notifySendBin = "notify-send"

// DesktopNotifier shows messages through the freedesktop notification
// service using notify-send.
type DesktopNotifier struct {
	appName   string
	cmdRunner CommandRunner
}

// NewDesktopNotifier creates a notifier that runs notify-send.
func NewDesktopNotifier(appName string) *DesktopNotifier {
	return NewDesktopNotifierWithDeps(appName, &RealCommandRunner{})
}

// NewDesktopNotifierWithDeps creates a notifier with an injectable runner (for testing)
func NewDesktopNotifierWithDeps(appName string, cmdRunner CommandRunner) *DesktopNotifier {
	return &DesktopNotifier{appName: appName, cmdRunner: cmdRunner}
}

// Notify shows a critical-urgency notification.
func (n *DesktopNotifier) Notify(title, body string) error {
	return n.cmdRunner.Run(notifySendBin,
		"--app-name", n.appName,
		"--urgency", "critical",
		title, body)
}

// LogNotifier writes notifications to the log. Used on headless hosts.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a log-only notifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the message.
func (n *LogNotifier) Notify(title, body string) error {
	n.logger.Info("notification", zap.String("title", title), zap.String("body", body))
	return nil
}

// NewNotifier picks notify-send when it is installed and falls back to the log.
func NewNotifier(appName string, logger *zap.Logger) domain.Notifier {
	if LookPath(notifySendBin) {
		return NewDesktopNotifier(appName)
	}
	logger.Info("notify-send not found, notifications go to the log only")
	return NewLogNotifier(logger)
}

var (
	_ domain.Notifier = (*DesktopNotifier)(nil)
	_ domain.Notifier = (*LogNotifier)(nil)
)
