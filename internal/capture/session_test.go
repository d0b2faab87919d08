package capture

import (
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"testing"

	"quickprompt/internal/hotkeys"
	"quickprompt/internal/keys"
	"quickprompt/internal/testutil"
)

type recorder struct {
	calls [][]keys.Name
}

func (r *recorder) onChange(names []keys.Name) {
	r.calls = append(r.calls, names)
}

func press(s *Session, codes ...string) {
	for _, code := range codes {
		s.KeyDown(code)
	}
}

func TestSessionCommitsSortedCandidate(t *testing.T) {
	rec := &recorder{}
	s := NewSession(hotkeys.ModeSystem, rec.onChange)
	s.Start()
	press(s, "ShiftLeft", "AltLeft", "KeyP")

	if err := s.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	want := []keys.Name{keys.Alt, keys.Shift, "P"}
	if len(rec.calls) != 1 || !reflect.DeepEqual(rec.calls[0], want) {
		t.Fatalf("onChange calls = %v, want [%v]", rec.calls, want)
	}
	if got := hotkeys.Encode(rec.calls[0]); got != "alt+shift+p" {
		t.Fatalf("encoded = %q, want alt+shift+p", got)
	}
	if s.State() != Idle {
		t.Fatalf("State() = %s, want idle", s.State())
	}
	if len(s.Pressed()) != 0 {
		t.Fatalf("Pressed() = %v after commit", s.Pressed())
	}
}

func TestSessionRejections(t *testing.T) {
	tests := []struct {
		name    string
		mode    hotkeys.Mode
		codes   []string
		wantErr error
	}{
		{name: "system single key", mode: hotkeys.ModeSystem, codes: []string{"KeyK"}, wantErr: hotkeys.ErrTooFewKeys},
		{name: "system two plain keys", mode: hotkeys.ModeSystem, codes: []string{"KeyA", "KeyB"}, wantErr: hotkeys.ErrMissingModifier},
		{name: "system modifiers only", mode: hotkeys.ModeSystem, codes: []string{"ControlLeft", "ShiftLeft"}, wantErr: hotkeys.ErrMissingKey},
		{name: "system reserved", mode: hotkeys.ModeSystem, codes: []string{"MetaLeft", "KeyC"}, wantErr: hotkeys.ErrReservedShortcut},
		{name: "prompt reserved pair", mode: hotkeys.ModePrompt, codes: []string{"ControlRight", "KeyV"}, wantErr: hotkeys.ErrReservedShortcut},
		{name: "nothing pressed", mode: hotkeys.ModePrompt, codes: nil, wantErr: hotkeys.ErrNoKeys},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			s := NewSession(tt.mode, rec.onChange)
			s.Start()
			press(s, tt.codes...)

			err := s.Save()
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Save() error = %v, want %v", err, tt.wantErr)
			}
			if len(rec.calls) != 0 {
				t.Fatalf("onChange called on rejection: %v", rec.calls)
			}
			if s.State() != Capturing {
				t.Fatalf("State() = %s after rejection, want capturing", s.State())
			}
		})
	}
}

func TestSessionReservedLogsError(t *testing.T) {
	logBuf := testutil.CaptureLogBuffer(t, slog.LevelError)
	s := NewSession(hotkeys.ModeSystem, nil)
	s.Start()
	press(s, "ControlLeft", "KeyC")

	if err := s.Save(); !errors.Is(err, hotkeys.ErrReservedShortcut) {
		t.Fatalf("Save() error = %v", err)
	}
	if !strings.Contains(logBuf.String(), "[DEBUG-CAPTURE] shortcut is reserved") {
		t.Fatalf("log output = %q", logBuf.String())
	}
}

func TestSessionPromptModeAllowsSingleKey(t *testing.T) {
	rec := &recorder{}
	s := NewSession(hotkeys.ModePrompt, rec.onChange)
	s.Start()
	press(s, "KeyG")

	if err := s.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if len(rec.calls) != 1 || !reflect.DeepEqual(rec.calls[0], []keys.Name{"G"}) {
		t.Fatalf("onChange calls = %v", rec.calls)
	}

	// A lone "C" is not checked against the reserved table in prompt mode.
	s.Start()
	press(s, "KeyC")
	if err := s.Save(); err != nil {
		t.Fatalf("Save() single C error = %v", err)
	}
}

func TestSessionCandidateTruncatesInArrivalOrder(t *testing.T) {
	rec := &recorder{}
	s := NewSession(hotkeys.ModeSystem, rec.onChange)
	s.Start()
	press(s, "ShiftLeft", "ControlLeft", "AltLeft", "KeyA", "KeyB", "KeyC")

	want := []keys.Name{keys.Control, keys.Shift, "A", "B"}
	if got := s.Candidate(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Candidate() = %v, want %v", got, want)
	}
	if err := s.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if !reflect.DeepEqual(rec.calls[0], want) {
		t.Fatalf("committed %v, want %v", rec.calls[0], want)
	}
}

func TestSessionKeyUpKeepsCandidate(t *testing.T) {
	rec := &recorder{}
	s := NewSession(hotkeys.ModeSystem, rec.onChange)
	s.Start()
	press(s, "ControlLeft", "KeyJ")
	s.KeyUp("KeyJ")
	s.KeyUp("ControlLeft")

	if len(s.Pressed()) != 0 {
		t.Fatalf("Pressed() = %v after releasing all", s.Pressed())
	}
	if err := s.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if got := hotkeys.Encode(rec.calls[0]); got != "ctrl+j" {
		t.Fatalf("committed %q, want ctrl+j", got)
	}
}

func TestSessionReleasedKeyIsNotReAddedToCandidate(t *testing.T) {
	s := NewSession(hotkeys.ModeSystem, nil)
	s.Start()
	press(s, "ControlLeft", "KeyA")
	s.KeyUp("KeyA")
	press(s, "KeyB")

	want := []keys.Name{keys.Control, "B"}
	if got := s.Candidate(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Candidate() = %v, want %v", got, want)
	}
}

func TestSessionSidedModifiersCollapse(t *testing.T) {
	s := NewSession(hotkeys.ModeSystem, nil)
	s.Start()
	press(s, "ShiftLeft", "ShiftRight", "KeyK")

	if got := s.Pressed(); !reflect.DeepEqual(got, []keys.Name{keys.Shift, "K"}) {
		t.Fatalf("Pressed() = %v", got)
	}
}

func TestSessionIdleIgnoresEvents(t *testing.T) {
	rec := &recorder{}
	s := NewSession(hotkeys.ModeSystem, rec.onChange)
	press(s, "ControlLeft", "KeyK")

	if len(s.Pressed()) != 0 || len(s.Candidate()) != 0 {
		t.Fatalf("idle session recorded keys: %v", s.Pressed())
	}
	if err := s.Save(); !errors.Is(err, ErrNotCapturing) {
		t.Fatalf("Save() error = %v, want ErrNotCapturing", err)
	}
	if len(rec.calls) != 0 {
		t.Fatal("onChange called while idle")
	}
}

func TestSessionCancelAndClose(t *testing.T) {
	rec := &recorder{}
	s := NewSession(hotkeys.ModeSystem, rec.onChange)
	s.Start()
	press(s, "ControlLeft", "KeyK")
	s.Cancel()

	if s.State() != Idle || len(s.Candidate()) != 0 {
		t.Fatalf("after Cancel: state=%s candidate=%v", s.State(), s.Candidate())
	}

	s.Start()
	press(s, "AltLeft", "KeyK")
	s.Close()
	if s.State() != Idle {
		t.Fatalf("after Close: state=%s", s.State())
	}
	if len(rec.calls) != 0 {
		t.Fatalf("onChange called on cancel/close: %v", rec.calls)
	}
}

func TestSessionStartClearsPreviousCapture(t *testing.T) {
	rec := &recorder{}
	s := NewSession(hotkeys.ModeSystem, rec.onChange)
	s.Start()
	press(s, "ControlLeft", "KeyA")
	s.Start()
	press(s, "AltLeft", "KeyB")

	if err := s.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if got := hotkeys.Encode(rec.calls[0]); got != "alt+b" {
		t.Fatalf("committed %q, want alt+b", got)
	}
}

func TestSessionIDIsUnique(t *testing.T) {
	a := NewSession(hotkeys.ModeSystem, nil)
	b := NewSession(hotkeys.ModeSystem, nil)
	if a.ID() == "" || a.ID() == b.ID() {
		t.Fatalf("session IDs %q and %q", a.ID(), b.ID())
	}
}
