// Package hotkeys owns the shortcut wire format, the binding model, the
// reserved-shortcut table and the global registration manager. The OS
// registrar itself lives in hotkeys/osreg.
package hotkeys

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"quickprompt/internal/keys"
)

// Wire tokens for modifiers. The native side parses these spellings
// independently, so they must not change.
const (
	tokenCommand = "cmd"
	tokenControl = "ctrl"
	tokenAlt     = "alt"
	tokenShift   = "shift"
)

const separator = "+"

var modifierByToken = map[string]keys.Name{
	tokenCommand: keys.Command,
	tokenControl: keys.Control,
	tokenAlt:     keys.Alt,
	tokenShift:   keys.Shift,
}

var tokenByModifier = map[keys.Name]string{
	keys.Command: tokenCommand,
	keys.Control: tokenControl,
	keys.Alt:     tokenAlt,
	keys.Shift:   tokenShift,
}

// namedKeys restores casing that title-casing cannot infer.
// Keys are the lowercase wire form.
var namedKeys = func() map[string]keys.Name {
	names := []keys.Name{
		keys.Enter, keys.Escape, keys.Space, keys.Tab, keys.Backspace, keys.Delete,
		keys.ArrowUp, keys.ArrowDown, keys.ArrowLeft, keys.ArrowRight,
		"PageUp", "PageDown", "Home", "End", "Insert",
		"CapsLock", "NumLock", "ScrollLock", "PrintScreen", "Pause", "ContextMenu",
		"Backquote", "Minus", "Equal", "BracketLeft", "BracketRight", "Backslash",
		"Semicolon", "Quote", "Comma", "Period", "Slash",
		"IntlBackslash", "IntlRo", "IntlYen",
		"KanaMode", "NonConvert", "Lang1", "Lang2", "Lang3", "Lang4", "Lang5",
		"Fn", "FnLock", "WakeUp",
		// Keypad codes after the "Numpad" prefix is stripped.
		"ClearEntry", "ParenLeft", "ParenRight",
		"MemoryAdd", "MemoryClear", "MemoryRecall", "MemoryStore", "MemorySubtract",
		// Media and browser keys.
		"AudioVolumeUp", "AudioVolumeDown", "AudioVolumeMute",
		"MediaPlayPause", "MediaStop", "MediaTrackNext", "MediaTrackPrevious", "MediaSelect",
		"BrowserBack", "BrowserForward", "BrowserHome", "BrowserRefresh",
		"BrowserSearch", "BrowserStop", "BrowserFavorites",
		"LaunchApp1", "LaunchApp2", "LaunchMail",
	}
	m := make(map[string]keys.Name, len(names))
	for _, name := range names {
		m[strings.ToLower(string(name))] = name
	}
	return m
}()

// Encode converts a canonical key sequence into the wire string
// ("ctrl+shift+k"). An empty sequence encodes to "".
func Encode(names []keys.Name) string {
	tokens := make([]string, 0, len(names))
	for _, name := range names {
		if token, ok := tokenByModifier[name]; ok {
			tokens = append(tokens, token)
			continue
		}
		tokens = append(tokens, strings.ToLower(string(name)))
	}
	return strings.Join(tokens, separator)
}

// Decode converts a wire string back into key names. Tokens are matched
// case-insensitively; empty tokens are skipped. Decode never fails: an
// unrecognized token becomes a title-cased non-modifier name.
func Decode(wire string) []keys.Name {
	if wire == "" {
		return []keys.Name{}
	}
	parts := strings.Split(wire, separator)
	names := make([]keys.Name, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		names = append(names, decodeToken(part))
	}
	return names
}

func decodeToken(token string) keys.Name {
	lower := strings.ToLower(token)
	if name, ok := modifierByToken[lower]; ok {
		return name
	}
	if name, ok := namedKeys[lower]; ok {
		return name
	}
	return keys.Name(titleCase(lower))
}

// titleCase upper-cases the first rune and lower-cases the rest.
func titleCase(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError && size <= 1 {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

// Canonical rewrites a wire string into its canonical form: decoded, sorted
// and re-encoded. "Shift+Ctrl+K" becomes "ctrl+shift+k".
func Canonical(wire string) string {
	return Encode(keys.Sort(Decode(wire)))
}
