// Package policy implements the parental-control rules evaluated on every
// foreground window change: blocklist membership and quiet hours.
package policy

import (
	"path/filepath"
	"strings"
)

// executableSuffixes are stripped before comparing process names, so that
// "Steam.exe", "steam" and "STEAM.app" all name the same program.
var executableSuffixes = []string{".exe", ".app", ".bin", ".appimage"}

// NormalizeProcessName lowercases a process name and strips any directory
// and a trailing executable suffix.
func NormalizeProcessName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return ""
	}
	n = filepath.Base(n)
	for _, suffix := range executableSuffixes {
		if strings.HasSuffix(n, suffix) && len(n) > len(suffix) {
			return n[:len(n)-len(suffix)]
		}
	}
	return n
}

// Blocklist is a set of normalized process names.
type Blocklist map[string]struct{}

// NewBlocklist builds a blocklist from configured names. Blank entries are ignored.
func NewBlocklist(names []string) Blocklist {
	b := make(Blocklist, len(names))
	for _, name := range names {
		if n := NormalizeProcessName(name); n != "" {
			b[n] = struct{}{}
		}
	}
	return b
}

// Contains reports whether processName is blocked.
// An empty (unresolved) process name is never blocked.
func (b Blocklist) Contains(processName string) bool {
	n := NormalizeProcessName(processName)
	if n == "" {
		return false
	}
	_, ok := b[n]
	return ok
}

// IsBlocked is a convenience for one-off checks against a configured list.
func IsBlocked(blocked []string, processName string) bool {
	return NewBlocklist(blocked).Contains(processName)
}
