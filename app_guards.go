package main

import (
	"errors"

	"quickprompt/internal/history"
	"quickprompt/internal/hotkeys"
)

var (
	errHistoryUnavailable = errors.New("prompt history is unavailable")
	errHotkeysUnavailable = errors.New("hotkey manager is unavailable")
)

func (a *App) requireHistory() (*history.Store, error) {
	if a.history == nil {
		return nil, errHistoryUnavailable
	}
	return a.history, nil
}

func (a *App) requireHotkeys() (*hotkeys.Manager, error) {
	if a.hotkeys == nil {
		return nil, errHotkeysUnavailable
	}
	return a.hotkeys, nil
}
