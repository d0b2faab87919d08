package hotkeys

import (
	"errors"
	"testing"

	"quickprompt/internal/keys"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		wire    string
		mode    Mode
		wantErr error
	}{
		{name: "empty is unbound", wire: "", mode: ModeSystem},
		{name: "system modifier and key", wire: "ctrl+k", mode: ModeSystem},
		{name: "system two modifiers two keys", wire: "ctrl+shift+a+b", mode: ModeSystem},
		{name: "system single key", wire: "k", mode: ModeSystem, wantErr: ErrTooFewKeys},
		{name: "system without modifier", wire: "a+b", mode: ModeSystem, wantErr: ErrMissingModifier},
		{name: "system without key", wire: "ctrl+shift", mode: ModeSystem, wantErr: ErrMissingKey},
		{name: "prompt single key", wire: "g", mode: ModePrompt},
		{name: "prompt modifier only", wire: "shift", mode: ModePrompt},
		{name: "too many modifiers", wire: "ctrl+alt+shift+k", mode: ModePrompt, wantErr: ErrTooManyModifiers},
		{name: "too many keys", wire: "ctrl+a+b+c", mode: ModeSystem, wantErr: ErrTooManyKeys},
		{name: "duplicate", wire: "ctrl+ctrl+k", mode: ModeSystem, wantErr: ErrDuplicateKey},
		{name: "reserved not checked", wire: "cmd+c", mode: ModeSystem},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.wire, tt.mode)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate(%q, %s) error = %v", tt.wire, tt.mode, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate(%q, %s) error = %v, want %v", tt.wire, tt.mode, err, tt.wantErr)
			}
		})
	}
}

func TestCheckKeysReserved(t *testing.T) {
	if err := CheckKeys([]keys.Name{keys.Command, "C"}, ModeSystem, true); !errors.Is(err, ErrReservedShortcut) {
		t.Fatalf("cmd+c error = %v, want ErrReservedShortcut", err)
	}
	if err := CheckKeys([]keys.Name{keys.Command, "C"}, ModeSystem, false); err != nil {
		t.Fatalf("cmd+c without reserved check error = %v", err)
	}
	if err := CheckKeys(nil, ModePrompt, true); !errors.Is(err, ErrNoKeys) {
		t.Fatalf("empty error = %v, want ErrNoKeys", err)
	}
}

func TestParseMode(t *testing.T) {
	for _, mode := range []Mode{ModeSystem, ModePrompt} {
		got, err := ParseMode(mode.String())
		if err != nil || got != mode {
			t.Fatalf("ParseMode(%q) = %v, %v", mode.String(), got, err)
		}
	}
	if _, err := ParseMode("global"); err == nil {
		t.Fatal("ParseMode(global) should fail")
	}
	if got := Mode(9).String(); got != "Mode(9)" {
		t.Fatalf("Mode(9).String() = %q", got)
	}
}

func TestModeFor(t *testing.T) {
	if ModeFor(Prompt{Prompt: "x"}) != ModePrompt {
		t.Fatal("Prompt command should use prompt mode")
	}
	if ModeFor(ToggleWindow{}) != ModeSystem {
		t.Fatal("ToggleWindow should use system mode")
	}
	if ModeFor(nil) != ModeSystem {
		t.Fatal("nil command should use system mode")
	}
}
