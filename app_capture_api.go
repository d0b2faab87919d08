package main

import (
	"fmt"
	"strings"

	"quickprompt/internal/capture"
	"quickprompt/internal/config"
	"quickprompt/internal/hotkeys"
	"quickprompt/internal/keys"
)

// captureState is the single active capture. Guarded by captureMu.
type captureState struct {
	name      string
	session   *capture.Session
	committed []keys.Name
}

// CaptureState describes the active capture for the settings dialog.
type CaptureState struct {
	SessionID string      `json:"session_id"`
	Name      string      `json:"name"`
	Mode      string      `json:"mode"`
	Candidate string      `json:"candidate"`
	Pressed   []keys.Name `json:"pressed"`
}

func (a *App) isCapturing() bool {
	a.captureMu.Lock()
	defer a.captureMu.Unlock()
	return a.capture != nil
}

// StartShortcutCapture begins recording a new shortcut for the binding
// called name. mode is "system" or "prompt"; empty derives it from the
// binding's command. A capture already running is cancelled.
func (a *App) StartShortcutCapture(name string, mode string) (CaptureState, error) {
	binding, ok := config.FindShortcut(a.getConfigSnapshot(), name)
	if !ok {
		return CaptureState{}, fmt.Errorf("%w: %q", config.ErrShortcutNotFound, name)
	}
	captureMode := hotkeys.ModeFor(binding.Command)
	if trimmed := strings.TrimSpace(mode); trimmed != "" {
		parsed, err := hotkeys.ParseMode(trimmed)
		if err != nil {
			return CaptureState{}, err
		}
		captureMode = parsed
	}

	a.captureMu.Lock()
	defer a.captureMu.Unlock()
	if a.capture != nil {
		a.capture.session.Close()
	}
	st := &captureState{name: binding.Name}
	st.session = capture.NewSession(captureMode, func(names []keys.Name) {
		// Runs synchronously inside Save, with captureMu held by the caller.
		st.committed = names
	})
	st.session.Start()
	a.capture = st
	return a.captureStateLocked(), nil
}

// CaptureKeyDown records a key press in the active capture.
func (a *App) CaptureKeyDown(code string) (CaptureState, error) {
	a.captureMu.Lock()
	defer a.captureMu.Unlock()
	if a.capture == nil {
		return CaptureState{}, capture.ErrNotCapturing
	}
	a.capture.session.KeyDown(code)
	return a.captureStateLocked(), nil
}

// CaptureKeyUp records a key release in the active capture.
func (a *App) CaptureKeyUp(code string) (CaptureState, error) {
	a.captureMu.Lock()
	defer a.captureMu.Unlock()
	if a.capture == nil {
		return CaptureState{}, capture.ErrNotCapturing
	}
	a.capture.session.KeyUp(code)
	return a.captureStateLocked(), nil
}

// SaveShortcutCapture commits the captured keys to the binding. A rejected
// candidate leaves the capture running so the user can try again.
func (a *App) SaveShortcutCapture() (hotkeys.Binding, error) {
	a.captureMu.Lock()
	defer a.captureMu.Unlock()
	if a.capture == nil {
		return hotkeys.Binding{}, capture.ErrNotCapturing
	}
	st := a.capture
	if err := st.session.Save(); err != nil {
		return hotkeys.Binding{}, err
	}
	updated, err := a.UpdateShortcut(st.name, hotkeys.Encode(st.committed))
	if err != nil {
		// The session already reset itself; restart so the dialog stays usable.
		st.session.Start()
		return hotkeys.Binding{}, err
	}
	a.capture = nil
	return updated, nil
}

// CancelShortcutCapture abandons the active capture, if any.
func (a *App) CancelShortcutCapture() {
	a.captureMu.Lock()
	defer a.captureMu.Unlock()
	if a.capture == nil {
		return
	}
	a.capture.session.Cancel()
	a.capture = nil
}

func (a *App) captureStateLocked() CaptureState {
	s := a.capture.session
	return CaptureState{
		SessionID: s.ID(),
		Name:      a.capture.name,
		Mode:      s.Mode().String(),
		Candidate: hotkeys.Encode(s.Candidate()),
		Pressed:   s.Pressed(),
	}
}
