package main

import (
	"context"
	"log/slog"

	"quickprompt/internal/config"
)

func (a *App) setWindowVisible(visible bool) {
	a.windowMu.Lock()
	a.windowVisible = visible
	a.windowMu.Unlock()
}

func (a *App) isWindowVisible() bool {
	a.windowMu.Lock()
	defer a.windowMu.Unlock()
	return a.windowVisible
}

func (a *App) raiseWindow(ctx context.Context) {
	runtimeWindowShowFn(ctx)
	runtimeWindowUnminimiseFn(ctx)
}

// activateWindow brings the window forward when a second launch asks for it.
func (a *App) activateWindow() {
	ctx := a.runtimeContext()
	if ctx == nil {
		return
	}
	slog.Info("[DEBUG-APP] activating window for second launch")
	a.raiseWindow(ctx)
	a.setWindowVisible(true)
}

// toggleWindow hides a visible window or shows a hidden one.
func (a *App) toggleWindow() {
	// A second trigger while the OS is still animating is dropped.
	if !a.windowToggling.CompareAndSwap(false, true) {
		slog.Debug("[DEBUG-HOTKEY] toggle already in progress, skipping")
		return
	}
	defer a.windowToggling.Store(false)

	ctx := a.runtimeContext()
	if ctx == nil {
		return
	}

	// No Wails runtime call while holding windowMu.
	isMinimised := runtimeWindowIsMinimisedFn(ctx)
	currentlyVisible := a.isWindowVisible() && !isMinimised

	if currentlyVisible {
		runtimeWindowHideFn(ctx)
	} else {
		a.raiseWindow(ctx)
	}
	a.setWindowVisible(!currentlyVisible)
}

// applyWindowGeometry restores the saved window size and position.
func (a *App) applyWindowGeometry(ui config.UIConfig) {
	ctx := a.runtimeContext()
	if ctx == nil {
		return
	}
	if ui.WindowSize != nil && ui.WindowSize.Width > 0 && ui.WindowSize.Height > 0 {
		runtimeWindowSetSizeFn(ctx, ui.WindowSize.Width, ui.WindowSize.Height)
	}
	if ui.WindowPosition != nil {
		runtimeWindowSetPosFn(ctx, ui.WindowPosition.X, ui.WindowPosition.Y)
	}
}
