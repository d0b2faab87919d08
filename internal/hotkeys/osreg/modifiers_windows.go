//go:build windows && !nohotkeys

package osreg

import (
	"golang.design/x/hotkey"

	"quickprompt/internal/keys"
)

var hotkeyModifiers = map[keys.Name]hotkey.Modifier{
	keys.Control: hotkey.ModCtrl,
	keys.Shift:   hotkey.ModShift,
	keys.Alt:     hotkey.ModAlt,
	keys.Command: hotkey.ModWin,
}
