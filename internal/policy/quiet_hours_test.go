package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(hour, min, sec int) time.Time {
	return time.Date(2024, 3, 15, hour, min, sec, 0, time.Local)
}

func TestInQuietHours_SameDayWindow(t *testing.T) {
	tests := []struct {
		name string
		t    time.Time
		want bool
	}{
		{"before window", at(8, 59, 59), false},
		{"start boundary inclusive", at(9, 0, 0), true},
		{"inside window", at(12, 30, 0), true},
		{"end boundary inclusive", at(17, 0, 0), true},
		{"after window", at(17, 0, 1), false},
		{"midnight", at(0, 0, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InQuietHours("09:00", "17:00", tt.t))
		})
	}
}

func TestInQuietHours_OvernightWindow(t *testing.T) {
	tests := []struct {
		name string
		t    time.Time
		want bool
	}{
		{"evening before start", at(20, 59, 59), false},
		{"start boundary inclusive", at(21, 0, 0), true},
		{"late evening", at(23, 30, 0), true},
		{"midnight", at(0, 0, 0), true},
		{"early morning", at(3, 0, 0), true},
		{"end boundary inclusive", at(6, 0, 0), true},
		{"after end", at(6, 0, 1), false},
		{"midday", at(12, 0, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InQuietHours("21:00", "06:00", tt.t))
		})
	}
}

func TestInQuietHours_UnsetOrInvalidBoundary(t *testing.T) {
	tests := []struct {
		name       string
		start, end string
	}{
		{"both unset", "", ""},
		{"start unset", "", "06:00"},
		{"end unset", "21:00", ""},
		{"whitespace", "  ", "06:00"},
		{"unparsable start", "nine", "17:00"},
		{"unparsable end", "09:00", "25:99"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for hour := 0; hour < 24; hour++ {
				assert.False(t, InQuietHours(tt.start, tt.end, at(hour, 0, 0)))
			}
		})
	}
}

func TestInQuietHours_EqualBoundaries(t *testing.T) {
	assert.True(t, InQuietHours("12:00", "12:00", at(12, 0, 0)))
	assert.False(t, InQuietHours("12:00", "12:00", at(12, 0, 1)))
}

func TestParseTimeOfDay(t *testing.T) {
	d, err := ParseTimeOfDay("07:05")
	require.NoError(t, err)
	assert.Equal(t, "07:05:00", d.String())

	d, err = ParseTimeOfDay("23:59:58")
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay(23*3600+59*60+58), d)

	_, err = ParseTimeOfDay("7pm")
	assert.Error(t, err)
}
