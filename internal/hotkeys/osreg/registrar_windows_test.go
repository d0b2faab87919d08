//go:build windows && !nohotkeys

package osreg

import (
	"errors"
	"testing"

	"golang.design/x/hotkey"

	"quickprompt/internal/hotkeys"
	"quickprompt/internal/keys"
)

func TestToHotkey(t *testing.T) {
	mods, key, err := toHotkey([]keys.Name{keys.Control, keys.Shift, "K"})
	if err != nil {
		t.Fatalf("toHotkey() error = %v", err)
	}
	if len(mods) != 2 || mods[0] != hotkey.ModCtrl || mods[1] != hotkey.ModShift {
		t.Fatalf("modifiers = %v", mods)
	}
	if key != hotkey.KeyK {
		t.Fatalf("key = %v, want KeyK", key)
	}
}

func TestToHotkeyErrors(t *testing.T) {
	tests := []struct {
		name  string
		names []keys.Name
		want  error
	}{
		{name: "no modifier", names: []keys.Name{"K"}, want: hotkeys.ErrNotGloballyUsable},
		{name: "two keys", names: []keys.Name{keys.Control, "J", "K"}, want: hotkeys.ErrNotGloballyUsable},
		{name: "unmapped key", names: []keys.Name{keys.Control, "Backquote"}, want: hotkeys.ErrUnsupportedKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := toHotkey(tt.names); !errors.Is(err, tt.want) {
				t.Fatalf("toHotkey() error = %v, want %v", err, tt.want)
			}
		})
	}
}
