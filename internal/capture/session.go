// Package capture records a new shortcut from live key events.
package capture

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"quickprompt/internal/hotkeys"
	"quickprompt/internal/keys"
)

// State is the lifecycle state of a Session.
type State int

const (
	Idle State = iota
	Capturing
)

func (s State) String() string {
	if s == Capturing {
		return "capturing"
	}
	return "idle"
}

// ErrNotCapturing is returned by Save when no capture is active.
var ErrNotCapturing = errors.New("no shortcut capture in progress")

// Session captures one shortcut. Mode decides the commit rules; onChange
// receives the canonical key sequence after a successful Save.
//
// All methods are safe for concurrent use. onChange runs outside the lock.
type Session struct {
	id       string
	mode     hotkeys.Mode
	onChange func([]keys.Name)

	mu        sync.Mutex
	state     State
	pressed   keys.Set
	candidate []keys.Name
}

// NewSession returns an idle session.
func NewSession(mode hotkeys.Mode, onChange func([]keys.Name)) *Session {
	return &Session{
		id:       uuid.NewString(),
		mode:     mode,
		onChange: onChange,
	}
}

// ID identifies the session in frontend events.
func (s *Session) ID() string { return s.id }

// Mode returns the validation mode the session commits with.
func (s *Session) Mode() hotkeys.Mode { return s.mode }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start enters Capturing with an empty key set and candidate.
func (s *Session) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	s.state = Capturing
	slog.Debug("[DEBUG-CAPTURE] started", "session", s.id, "mode", s.mode)
}

// KeyDown records a key press and recomputes the candidate. Ignored when idle.
func (s *Session) KeyDown(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Capturing {
		return
	}
	s.pressed.Add(keys.Normalize(code))
	s.candidate = keys.Cap(s.pressed.Names(), hotkeys.MaxModifiers, hotkeys.MaxKeys)
}

// KeyUp forgets a released key. The candidate keeps what was pressed so the
// user can release everything before saving.
func (s *Session) KeyUp(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pressed.Remove(keys.Normalize(code))
}

// Candidate returns the canonical form of what Save would commit.
func (s *Session) Candidate() []keys.Name {
	s.mu.Lock()
	defer s.mu.Unlock()
	return keys.Sort(s.candidate)
}

// Pressed returns the keys currently held, in press order.
func (s *Session) Pressed() []keys.Name {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pressed.Names()
}

// Save validates the candidate and commits it. On rejection the session
// stays in Capturing and the error names the failed rule.
func (s *Session) Save() error {
	s.mu.Lock()
	if s.state != Capturing {
		s.mu.Unlock()
		return ErrNotCapturing
	}
	candidate := s.candidate
	checkReserved := s.mode == hotkeys.ModeSystem || len(candidate) > 1
	if err := hotkeys.CheckKeys(candidate, s.mode, checkReserved); err != nil {
		s.mu.Unlock()
		if errors.Is(err, hotkeys.ErrReservedShortcut) {
			slog.Error("[DEBUG-CAPTURE] shortcut is reserved", "session", s.id, "keys", candidate)
		} else {
			slog.Warn("[DEBUG-CAPTURE] rejected shortcut", "session", s.id, "keys", candidate, "error", err)
		}
		return err
	}
	committed := keys.Sort(candidate)
	s.resetLocked()
	s.mu.Unlock()

	slog.Debug("[DEBUG-CAPTURE] committed", "session", s.id, "shortcut", hotkeys.Encode(committed))
	if s.onChange != nil {
		s.onChange(committed)
	}
	return nil
}

// Cancel abandons the capture without committing.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Capturing {
		slog.Debug("[DEBUG-CAPTURE] cancelled", "session", s.id)
	}
	s.resetLocked()
}

// Close tears the session down; an active capture is cancelled.
func (s *Session) Close() {
	s.Cancel()
}

func (s *Session) resetLocked() {
	s.state = Idle
	s.pressed.Clear()
	s.candidate = nil
}
