package policy

import (
	"fmt"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock time with second resolution, as seconds since midnight.
type TimeOfDay int

// ParseTimeOfDay parses "HH:MM" or "HH:MM:SS" (24-hour clock).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return TimeOfDay(t.Hour()*3600 + t.Minute()*60 + t.Second()), nil
		}
	}
	return 0, fmt.Errorf("invalid time of day %q", s)
}

// TimeOfDayOf extracts the time of day from a local time.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*3600 + t.Minute()*60 + t.Second())
}

// String formats as HH:MM:SS.
func (d TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", int(d)/3600, int(d)%3600/60, int(d)%60)
}

// InQuietHours reports whether t falls inside the quiet window [start, end].
// Both ends are inclusive. When start is after end the window wraps past
// midnight. An unset or unparsable boundary disables quiet hours.
func InQuietHours(start, end string, t time.Time) bool {
	if strings.TrimSpace(start) == "" || strings.TrimSpace(end) == "" {
		return false
	}
	from, err := ParseTimeOfDay(start)
	if err != nil {
		return false
	}
	to, err := ParseTimeOfDay(end)
	if err != nil {
		return false
	}

	now := TimeOfDayOf(t)
	if from <= to {
		return now >= from && now <= to
	}
	return now >= from || now <= to
}
