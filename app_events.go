package main

import (
	"context"
	"log/slog"
	"time"

	"quickprompt/internal/sessionlog"
	"quickprompt/internal/workerutil"
)

// Frontend event names.
const (
	eventShortcutsUpdated = "shortcuts-updated"
	eventConfigUpdated    = "config:updated"
	eventConfigWarning    = "config:load-warning"
	eventShortcutCommand  = "shortcut:command"
	eventPromptExecute    = "prompt:execute"
	eventPromptCompleted  = "prompt:completed"
	eventLogUpdated       = "app:log-updated"
	eventWorkerPanic      = "app:worker-panic"
)

const (
	sessionLogMaxEntries      = 500
	sessionLogEmitMinInterval = 50 * time.Millisecond
)

// emitEvent sends name to the main window and mirrors it to WebSocket clients.
func (a *App) emitEvent(name string, payload any) {
	a.emitRuntimeEventWithContext(a.runtimeContext(), name, payload)
	if a.wsHub != nil {
		a.wsHub.Broadcast(name, payload)
	}
}

// emitRuntimeEventWithContext emits a runtime event only when ctx is non-nil.
func (a *App) emitRuntimeEventWithContext(ctx context.Context, name string, payload any) {
	if ctx == nil {
		slog.Debug("[DEBUG-EVENT] runtime event dropped because app context is nil", "event", name)
		return
	}
	runtimeEventsEmitFn(ctx, name, payload)
}

// WorkerPanicEvent reports a recovered panic in a background worker.
// GaveUp is set once the worker has exhausted its restarts.
type WorkerPanicEvent struct {
	Worker  string `json:"worker"`
	Attempt int    `json:"attempt"`
	GaveUp  bool   `json:"gave_up"`
}

func (a *App) workerSupervision() workerutil.Options {
	return workerutil.Options{
		OnPanic: func(worker string, attempt int) {
			a.emitEvent(eventWorkerPanic, WorkerPanicEvent{Worker: worker, Attempt: attempt})
		},
		OnGiveUp: func(worker string) {
			a.emitEvent(eventWorkerPanic, WorkerPanicEvent{Worker: worker, GaveUp: true})
		},
	}
}

// ConfigEvent is the payload of config:updated.
type ConfigEvent struct {
	Source string `json:"source"`
}

// recordLogEntry is the sessionlog sink. It must not log at Warn or above.
//
// The frontend gets a payload-free ping and fetches GetAppLog, so throttled
// pings never lose entries. The ping is not mirrored to the hub: a failing
// hub write logs a warning, which would loop back here.
func (a *App) recordLogEntry(entry sessionlog.Entry) {
	a.logRing.Push(entry)

	now := time.Now()
	a.logEmitMu.Lock()
	shouldEmit := now.Sub(a.logLastEmit) >= sessionLogEmitMinInterval
	if shouldEmit {
		a.logLastEmit = now
	}
	a.logEmitMu.Unlock()

	if ctx := a.runtimeContext(); shouldEmit && ctx != nil {
		runtimeEventsEmitFn(ctx, eventLogUpdated, nil)
	}
}

// GetAppLog returns the retained warning and error log entries, oldest first.
func (a *App) GetAppLog() []sessionlog.Entry {
	return a.logRing.Snapshot()
}
