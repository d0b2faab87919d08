// Package dispatch matches live window key events against prompt bindings.
package dispatch

import (
	"log/slog"
	"sync"

	"quickprompt/internal/hotkeys"
	"quickprompt/internal/keys"
)

// KeyEvent is a key-down as reported by the window.
type KeyEvent struct {
	Code string `json:"code"`
	// Editable is set when focus is in a text input or textarea.
	Editable bool `json:"editable"`
	// Handled is set when an earlier listener already consumed the event.
	Handled bool `json:"handled"`
}

// Result reports the outcome of a key-down. Handled tells the window to
// suppress its default action.
type Result struct {
	Binding hotkeys.Binding `json:"binding"`
	Matched bool            `json:"matched"`
	Handled bool            `json:"handled"`
}

// Match finds the prompt binding for the currently pressed keys. The full
// chord is tried first; when exactly one key is held, the single-key
// encoding of key is tried next. The first binding in registry order wins.
func Match(pressed []keys.Name, key keys.Name, registry []hotkeys.Binding) (hotkeys.Binding, bool) {
	chord := keys.Sort(pressed)
	if b, ok := findPrompt(hotkeys.Encode(chord), registry); ok {
		return b, true
	}
	if len(chord) == 1 {
		return findPrompt(hotkeys.Encode([]keys.Name{key}), registry)
	}
	return hotkeys.Binding{}, false
}

func findPrompt(wire string, registry []hotkeys.Binding) (hotkeys.Binding, bool) {
	if wire == "" {
		return hotkeys.Binding{}, false
	}
	for _, b := range registry {
		if b.Shortcut != wire {
			continue
		}
		// System commands are handled by global registration. A prompt
		// without a provider has nowhere to run.
		if p, ok := b.AsPrompt(); ok && p.ProviderName != "" {
			return b, true
		}
	}
	return hotkeys.Binding{}, false
}

// Matcher tracks held keys for one window and reports prompt matches.
// Key events are ignored until Attach is called.
type Matcher struct {
	busy func() bool

	mu       sync.Mutex
	attached bool
	registry []hotkeys.Binding
	pressed  keys.Set
}

// NewMatcher returns a detached matcher. busy reports whether a prompt is
// already running; while it returns true nothing is dispatched.
func NewMatcher(busy func() bool) *Matcher {
	if busy == nil {
		busy = func() bool { return false }
	}
	return &Matcher{busy: busy}
}

// Attach installs a registry snapshot. Any previous attachment is dropped
// first, so held keys from the old listener never leak into the new one.
func (m *Matcher) Attach(registry []hotkeys.Binding) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pressed.Clear()
	m.registry = hotkeys.CloneBindings(registry)
	m.attached = true
	slog.Debug("[DEBUG-DISPATCH] attached", "bindings", len(registry))
}

// Detach stops matching and forgets held keys.
func (m *Matcher) Detach() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pressed.Clear()
	m.registry = nil
	m.attached = false
}

// Attached reports whether the matcher is receiving events.
func (m *Matcher) Attached() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attached
}

// KeyDown records the key and returns the prompt binding it completes, if any.
func (m *Matcher) KeyDown(ev KeyEvent) Result {
	if ev.Handled {
		return Result{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.attached {
		return Result{}
	}

	key := keys.Normalize(ev.Code)
	if !m.pressed.Add(key) {
		// Auto-repeat of a held key.
		return Result{}
	}
	if ev.Editable || m.busy() {
		return Result{}
	}

	b, ok := Match(m.pressed.Names(), key, m.registry)
	if !ok {
		return Result{}
	}
	slog.Debug("[DEBUG-DISPATCH] matched prompt shortcut", "name", b.Name, "shortcut", b.Shortcut)
	return Result{Binding: b, Matched: true, Handled: true}
}

// KeyUp forgets a released key. It is honored even while busy.
func (m *Matcher) KeyUp(code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.attached {
		return
	}
	m.pressed.Remove(keys.Normalize(code))
}

// Pressed returns the held keys in press order.
func (m *Matcher) Pressed() []keys.Name {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pressed.Names()
}
