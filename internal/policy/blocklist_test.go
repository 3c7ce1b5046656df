package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeProcessName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Steam.exe", "steam"},
		{"STEAM", "steam"},
		{"  steam  ", "steam"},
		{"Minecraft.app", "minecraft"},
		{"/usr/bin/firefox", "firefox"},
		{"game.EXE", "game"},
		{".exe", ".exe"},
		{"", ""},
		{"steam_osx", "steam_osx"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeProcessName(tt.in))
		})
	}
}

func TestBlocklist_Contains(t *testing.T) {
	b := NewBlocklist([]string{"steam.exe", "Roblox", "", "  "})

	tests := []struct {
		name    string
		process string
		want    bool
	}{
		{"exact match", "steam.exe", true},
		{"case insensitive", "STEAM.EXE", true},
		{"suffix insensitive", "steam", true},
		{"suffix added on process side", "roblox.exe", true},
		{"non-matching name", "notepad.exe", false},
		{"prefix is not a match", "steamwebhelper", false},
		{"empty name never blocked", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, b.Contains(tt.process))
		})
	}

	assert.Len(t, b, 2, "blank entries should be ignored")
}

func TestIsBlocked_EmptyList(t *testing.T) {
	assert.False(t, IsBlocked(nil, "steam"))
}
