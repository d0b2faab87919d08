//go:build linux && cgo && !nohotkeys

package osreg

import (
	"golang.design/x/hotkey"

	"quickprompt/internal/keys"
)

// X11: Alt is Mod1, Super is Mod4.
var hotkeyModifiers = map[keys.Name]hotkey.Modifier{
	keys.Control: hotkey.ModCtrl,
	keys.Shift:   hotkey.ModShift,
	keys.Alt:     hotkey.Mod1,
	keys.Command: hotkey.Mod4,
}
