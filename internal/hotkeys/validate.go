package hotkeys

import (
	"errors"
	"fmt"

	"quickprompt/internal/keys"
)

// Mode selects the validation rules for a shortcut.
type Mode int

const (
	// ModeSystem applies to bindings registered with the OS: at least one
	// modifier and one regular key are required.
	ModeSystem Mode = iota
	// ModePrompt applies to custom prompt bindings, which may be a single key.
	ModePrompt
)

// Capture limits shared by the capture session and validation.
const (
	MaxModifiers = 2
	MaxKeys      = 2
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	switch m {
	case ModeSystem:
		return "system"
	case ModePrompt:
		return "prompt"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses "system" or "prompt".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "system":
		return ModeSystem, nil
	case "prompt":
		return ModePrompt, nil
	default:
		return ModeSystem, fmt.Errorf("unknown shortcut mode %q", s)
	}
}

// ModeFor returns the validation mode implied by a binding's command.
func ModeFor(cmd Command) Mode {
	if _, ok := cmd.(Prompt); ok {
		return ModePrompt
	}
	return ModeSystem
}

// Validation errors.
var (
	ErrNoKeys              = errors.New("shortcut has no keys")
	ErrTooFewKeys          = errors.New("shortcut needs at least two keys")
	ErrMissingModifier     = errors.New("shortcut needs a modifier key")
	ErrMissingKey          = errors.New("shortcut needs a non-modifier key")
	ErrTooManyModifiers    = errors.New("shortcut has too many modifier keys")
	ErrTooManyKeys         = errors.New("shortcut has too many non-modifier keys")
	ErrDuplicateKey        = errors.New("shortcut repeats a key")
	ErrReservedShortcut    = errors.New("shortcut is reserved by the system")
	ErrNotGloballyUsable   = errors.New("shortcut cannot be registered globally")
	ErrUnsupportedPlatform = errors.New("global hotkey registration is not supported on this platform")
	ErrUnsupportedKey      = errors.New("key has no global hotkey mapping")
)

// CheckKeys applies the commit rules for mode to an ordered key sequence.
// The reserved table is consulted when checkReserved is true.
func CheckKeys(names []keys.Name, mode Mode, checkReserved bool) error {
	if len(names) == 0 {
		return ErrNoKeys
	}
	seen := make(map[keys.Name]struct{}, len(names))
	for _, name := range names {
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateKey, name)
		}
		seen[name] = struct{}{}
	}
	modifiers, others := keys.Partition(names)
	if len(modifiers) > MaxModifiers {
		return ErrTooManyModifiers
	}
	if len(others) > MaxKeys {
		return ErrTooManyKeys
	}
	if mode == ModeSystem {
		if len(names) < 2 {
			return ErrTooFewKeys
		}
		if len(modifiers) == 0 {
			return ErrMissingModifier
		}
		if len(others) == 0 {
			return ErrMissingKey
		}
	}
	if checkReserved && IsReserved(names) {
		return ErrReservedShortcut
	}
	return nil
}

// Validate checks a wire string against mode. The empty string is valid: it
// means the binding has no trigger. Reserved combinations are not rejected
// here; that guard belongs to interactive capture.
func Validate(wire string, mode Mode) error {
	if wire == "" {
		return nil
	}
	if err := CheckKeys(Decode(wire), mode, false); err != nil {
		return fmt.Errorf("shortcut %q: %w", wire, err)
	}
	return nil
}
