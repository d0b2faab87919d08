// Package keys turns raw DOM KeyboardEvent.code values into canonical key
// names and provides the ordering and classification rules shared by the
// capture and dispatch paths.
package keys

import (
	"slices"
	"strings"
)

// Name is a canonical, side-independent key name such as "Control", "K",
// "7" or "ArrowUp". Values are produced by Normalize; raw platform codes are
// never stored as Names directly.
type Name string

// Modifier names.
const (
	Control Name = "Control"
	Alt     Name = "Alt"
	Shift   Name = "Shift"
	Command Name = "Command"
)

// Named (multi-character) keys that pass through Normalize unchanged.
const (
	Enter      Name = "Enter"
	Space      Name = "Space"
	Escape     Name = "Escape"
	Tab        Name = "Tab"
	Backspace  Name = "Backspace"
	Delete     Name = "Delete"
	ArrowUp    Name = "ArrowUp"
	ArrowDown  Name = "ArrowDown"
	ArrowLeft  Name = "ArrowLeft"
	ArrowRight Name = "ArrowRight"
)

// sidedModifiers collapses left/right physical modifier codes.
// OS*/Super* are emitted by older WebKitGTK builds for the Windows/Super key.
var sidedModifiers = map[string]Name{
	"ControlLeft":  Control,
	"ControlRight": Control,
	"ShiftLeft":    Shift,
	"ShiftRight":   Shift,
	"AltLeft":      Alt,
	"AltRight":     Alt,
	"MetaLeft":     Command,
	"MetaRight":    Command,
	"OSLeft":       Command,
	"OSRight":      Command,
	"SuperLeft":    Command,
	"SuperRight":   Command,
}

// codePrefixes are stripped in order. "Numpad" also covers non-digit keypad
// keys (NumpadEnter -> Enter), matching how the frontend has always behaved.
var codePrefixes = []string{"Key", "Digit", "Numpad"}

// Normalize maps a raw KeyboardEvent.code to its canonical Name.
// Unknown codes pass through verbatim, so Normalize never fails.
func Normalize(code string) Name {
	if name, ok := sidedModifiers[code]; ok {
		return name
	}
	for _, prefix := range codePrefixes {
		if rest, ok := strings.CutPrefix(code, prefix); ok && rest != "" {
			return Name(rest)
		}
	}
	return Name(code)
}

// modifierRank is the fixed precedence used by Sort.
var modifierRank = map[Name]int{
	Control: 0,
	Alt:     1,
	Shift:   2,
	Command: 3,
}

// nonModifierRank sorts after every modifier.
const nonModifierRank = 4

// IsModifier reports whether name is one of Control, Alt, Shift or Command.
// The check is case-sensitive: wire tokens like "ctrl" must be decoded first.
func IsModifier(name Name) bool {
	_, ok := modifierRank[name]
	return ok
}

func rank(name Name) int {
	if r, ok := modifierRank[name]; ok {
		return r
	}
	return nonModifierRank
}

// Sort returns a new slice with modifiers first (Control, Alt, Shift,
// Command) followed by non-modifiers in their input order.
// Sort is idempotent and never mutates its argument.
func Sort(names []Name) []Name {
	out := slices.Clone(names)
	slices.SortStableFunc(out, func(a, b Name) int {
		return rank(a) - rank(b)
	})
	return out
}

// Partition splits names into modifiers and non-modifiers, preserving the
// relative order inside each group.
func Partition(names []Name) (modifiers []Name, others []Name) {
	for _, name := range names {
		if IsModifier(name) {
			modifiers = append(modifiers, name)
		} else {
			others = append(others, name)
		}
	}
	return modifiers, others
}

// Cap keeps at most maxModifiers modifiers followed by at most maxOthers
// non-modifiers, each group truncated in arrival order.
func Cap(names []Name, maxModifiers, maxOthers int) []Name {
	modifiers, others := Partition(names)
	if len(modifiers) > maxModifiers {
		modifiers = modifiers[:maxModifiers]
	}
	if len(others) > maxOthers {
		others = others[:maxOthers]
	}
	out := make([]Name, 0, len(modifiers)+len(others))
	out = append(out, modifiers...)
	return append(out, others...)
}
