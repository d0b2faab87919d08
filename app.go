package main

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"quickprompt/internal/config"
	"quickprompt/internal/dispatch"
	"quickprompt/internal/history"
	"quickprompt/internal/hotkeys"
	"quickprompt/internal/registry"
	"quickprompt/internal/sessionlog"
	"quickprompt/internal/wsserver"
)

// App is the Wails-bound application service.
type App struct {
	// Runtime context lifecycle. bgCtx is cancelled at shutdown and parents
	// every background worker.
	ctx      context.Context
	ctxMu    sync.RWMutex
	bgCtx    context.Context
	bgCancel context.CancelFunc

	// Lock ordering (outer -> inner):
	//   captureMu -> cfgSaveMu -> cfgMu
	//
	// Independent locks: promptMu, windowMu, startupWarnMu, logEmitMu, ctxMu.
	// The matcher calls isPromptInFlight under its own lock, so promptMu
	// holders must never call into the matcher.
	cfgMu           sync.RWMutex
	cfgSaveMu       sync.Mutex
	cfg             config.Config
	configPath      string
	startupWarnMu   sync.Mutex
	startupWarnings []string

	// Shortcut services. registry is the single source the matcher and the
	// global hotkey manager are refreshed from.
	registry *registry.Cache
	matcher  *dispatch.Matcher
	hotkeys  *hotkeys.Manager
	watcher  *config.Watcher

	// wsHub mirrors events to secondary windows; nil if it failed to start.
	// history is nil when disabled or unavailable.
	// Both are set once during startup before any reader goroutine runs.
	wsHub   *wsserver.Hub
	history *history.Store

	captureMu sync.Mutex
	capture   *captureState

	promptMu     sync.Mutex
	inFlight     *PromptRequest
	lastResponse string
	selectedText string

	logRing     *sessionlog.Ring
	logEmitMu   sync.Mutex
	logLastEmit time.Time

	windowMu       sync.Mutex
	windowVisible  bool
	windowToggling atomic.Bool

	bgWG         sync.WaitGroup
	shutdownOnce sync.Once
}

// NewApp creates the app service.
func NewApp() *App {
	a := &App{
		logRing: sessionlog.NewRing(sessionLogMaxEntries),
	}
	a.registry = registry.NewCache(registry.SourceFunc(a.shortcutSource))
	a.matcher = dispatch.NewMatcher(a.isPromptInFlight)
	a.registry.Subscribe(a.onRegistryRefreshed)
	return a
}

// GetWebSocketURL returns the event mirror endpoint for secondary windows,
// or "" when the server is not running.
func (a *App) GetWebSocketURL() string {
	if a.wsHub == nil {
		slog.Debug("[DEBUG-WS] wsHub is nil, WebSocket URL unavailable")
		return ""
	}
	return a.wsHub.URL()
}
