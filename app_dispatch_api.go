package main

import (
	"errors"
	"log/slog"

	"quickprompt/internal/dispatch"
	"quickprompt/internal/hotkeys"
)

// HandleKeyDown feeds a window key-down to the matcher. A matched prompt
// binding is started immediately.
func (a *App) HandleKeyDown(ev dispatch.KeyEvent) dispatch.Result {
	if a.isCapturing() {
		// Keys typed into the capture dialog must not trigger prompts.
		return dispatch.Result{}
	}
	res := a.matcher.KeyDown(ev)
	if !res.Matched {
		return res
	}
	if _, err := a.ExecuteCustomPrompt(res.Binding.Name); err != nil {
		if errors.Is(err, ErrPromptInFlight) || errors.Is(err, ErrNoSelectedText) {
			slog.Debug("[DEBUG-DISPATCH] prompt not started", "name", res.Binding.Name, "reason", err)
		} else {
			slog.Warn("[DEBUG-DISPATCH] prompt not started", "name", res.Binding.Name, "error", err)
		}
	}
	return res
}

// HandleKeyUp forgets a released key.
func (a *App) HandleKeyUp(code string) {
	a.matcher.KeyUp(code)
}

// ShortcutCommandEvent is the payload of shortcut:command.
type ShortcutCommandEvent struct {
	Name string              `json:"name"`
	Kind hotkeys.CommandKind `json:"kind"`
	// Text carries the response to paste for PasteOutput.
	Text string `json:"text,omitempty"`
}

// onHotkeyTriggered runs on a hotkey listener goroutine. It must not call
// back into the hotkey manager synchronously.
func (a *App) onHotkeyTriggered(b hotkeys.Binding) {
	evt := ShortcutCommandEvent{Name: b.Name, Kind: b.Command.Kind()}
	switch b.Command.(type) {
	case hotkeys.ToggleWindow:
		a.toggleWindow()
	case hotkeys.PasteOutput:
		evt.Text = a.GetLastResponse()
	case hotkeys.PrintHello:
		slog.Info("[DEBUG-HOTKEY] hello from global shortcut", "name", b.Name)
	case hotkeys.GetCursorPosition, hotkeys.GetSelectedText:
	default:
		slog.Debug("[DEBUG-HOTKEY] trigger ignored", "name", b.Name, "kind", b.Command.Kind())
		return
	}
	slog.Debug("[DEBUG-HOTKEY] triggered", "name", b.Name, "kind", evt.Kind)
	a.emitEvent(eventShortcutCommand, evt)
}
