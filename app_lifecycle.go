package main

import (
	"context"
	"log/slog"
	"net"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"quickprompt/internal/config"
	"quickprompt/internal/history"
	"quickprompt/internal/hotkeys"
	"quickprompt/internal/hotkeys/osreg"
	"quickprompt/internal/wsserver"
)

// Test seams.
var (
	runtimeEventsEmitFn        = runtime.EventsEmit
	runtimeWindowIsMinimisedFn = runtime.WindowIsMinimised
	runtimeWindowHideFn        = runtime.WindowHide
	runtimeWindowShowFn        = runtime.WindowShow
	runtimeWindowUnminimiseFn  = runtime.WindowUnminimise
	runtimeWindowSetPosFn      = runtime.WindowSetPosition
	runtimeWindowSetSizeFn     = runtime.WindowSetSize
	defaultConfigPathFn        = config.DefaultPath
	newHotkeyManagerFn         = func() *hotkeys.Manager { return hotkeys.NewManager(osreg.New()) }
	openHistoryFn              = history.Open
)

const (
	shutdownWaitTimeout = 10 * time.Second
	historyFileName     = "history.db"
)

func (a *App) addStartupWarning(message string) {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return
	}
	a.startupWarnMu.Lock()
	a.startupWarnings = append(a.startupWarnings, trimmed)
	a.startupWarnMu.Unlock()
}

// ConsumeStartupWarnings returns and clears warnings collected during
// startup. The frontend calls it once after mount.
func (a *App) ConsumeStartupWarnings() []string {
	a.startupWarnMu.Lock()
	defer a.startupWarnMu.Unlock()
	out := a.startupWarnings
	a.startupWarnings = nil
	if out == nil {
		return []string{}
	}
	return out
}

func (a *App) startup(ctx context.Context) {
	a.setRuntimeContext(ctx)
	a.setWindowVisible(true)
	a.configPath = defaultConfigPathFn()
	for _, message := range config.ConsumeDefaultPathWarnings() {
		a.addStartupWarning(message)
	}
	a.bootstrap(ctx)
}

// bootstrap brings up every backend service. Failures are logged and
// degrade the feature involved; they never abort startup.
func (a *App) bootstrap(parent context.Context) {
	bgCtx, cancel := context.WithCancel(parent)
	a.ctxMu.Lock()
	a.bgCtx = bgCtx
	a.bgCancel = cancel
	a.ctxMu.Unlock()

	cfg, err := config.EnsureFile(a.configPath)
	if err != nil {
		cfg = config.DefaultConfig()
		slog.Warn("[WARN-CONFIG] failed to load config, running with defaults", "path", a.configPath, "error", err)
		a.addStartupWarning("Failed to load config file at startup. Running with defaults. Error: " + err.Error())
	}
	a.setConfigSnapshot(cfg)

	a.wsHub = wsserver.NewHub(wsserver.HubOptions{
		Addr:       websocketAddr(cfg.WebSocketPort),
		OnActivate: a.activateWindow,
	})
	if err := a.wsHub.Start(bgCtx); err != nil {
		slog.Warn("[DEBUG-WS] event mirror unavailable", "error", err)
		a.wsHub = nil
	}

	if cfg.HistoryEnabled {
		a.openHistory(bgCtx, cfg)
	}

	a.hotkeys = newHotkeyManagerFn()
	a.hotkeys.Supervision = a.workerSupervision()
	if err := a.registry.Refresh(bgCtx); err != nil {
		slog.Warn("[DEBUG-HOTKEY] initial shortcut refresh failed", "error", err)
	}

	watcher, err := config.NewWatcher(a.configPath, config.DefaultWatchDelay, a.onConfigFileChanged)
	if err != nil {
		slog.Warn("[WARN-CONFIG] config file watching disabled", "error", err)
	} else {
		a.watcher = watcher
		watcher.Supervision = a.workerSupervision()
		watcher.Start(bgCtx, &a.bgWG)
	}

	a.applyWindowGeometry(cfg.UI)
	for _, message := range a.peekStartupWarnings() {
		a.emitEvent(eventConfigWarning, message)
	}
}

func (a *App) peekStartupWarnings() []string {
	a.startupWarnMu.Lock()
	defer a.startupWarnMu.Unlock()
	return append([]string(nil), a.startupWarnings...)
}

func (a *App) openHistory(ctx context.Context, cfg config.Config) {
	path := strings.TrimSpace(cfg.HistoryPath)
	if path == "" {
		path = filepath.Join(filepath.Dir(a.configPath), historyFileName)
	}
	store, err := openHistoryFn(ctx, path)
	if err != nil {
		slog.Warn("[DEBUG-HISTORY] prompt history disabled", "path", path, "error", err)
		a.addStartupWarning("Prompt history is unavailable. Error: " + err.Error())
		return
	}
	a.history = store
}

func websocketAddr(port int) string {
	if port <= 0 {
		return "127.0.0.1:0"
	}
	return net.JoinHostPort("127.0.0.1", strconv.Itoa(port))
}

func (a *App) shutdown(_ context.Context) {
	a.shutdownOnce.Do(a.stopServices)
}

func (a *App) stopServices() {
	a.ctxMu.Lock()
	cancel := a.bgCancel
	a.bgCancel = nil
	a.ctxMu.Unlock()
	if cancel != nil {
		cancel()
	}

	a.CancelShortcutCapture()
	if a.watcher != nil {
		if err := a.watcher.Close(); err != nil {
			slog.Warn("[WARN-CONFIG] config watcher close failed", "error", err)
		}
	}
	if a.hotkeys != nil {
		if err := a.hotkeys.Stop(); err != nil {
			slog.Warn("[DEBUG-HOTKEY] hotkey stop failed", "error", err)
		}
	}
	a.matcher.Detach()
	if !waitWithTimeout(a.bgWG.Wait, shutdownWaitTimeout) {
		slog.Warn("[DEBUG-APP] timed out waiting for background workers during shutdown")
	}
	if a.wsHub != nil {
		if err := a.wsHub.Stop(); err != nil {
			slog.Warn("[DEBUG-WS] hub stop failed", "error", err)
		}
	}
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			slog.Warn("[DEBUG-HISTORY] close failed", "error", err)
		}
	}
	a.setRuntimeContext(nil)
}

// onConfigFileChanged adopts a config edited outside the app. Our own saves
// come back through the watcher too; those are recognized and skipped.
func (a *App) onConfigFileChanged(cfg config.Config) {
	a.cfgSaveMu.Lock()
	current := a.getConfigSnapshot()
	if reflect.DeepEqual(cfg, current) {
		a.cfgSaveMu.Unlock()
		slog.Debug("[DEBUG-CONFIG] config file unchanged, reload skipped")
		return
	}
	a.setConfigSnapshot(cfg)
	a.cfgSaveMu.Unlock()

	slog.Info("[DEBUG-CONFIG] config reloaded from disk", "path", a.configPath)
	// Re-attaching the matcher drops held keys, so only do it on a real change.
	if !reflect.DeepEqual(cfg.Shortcuts, current.Shortcuts) {
		a.refreshShortcuts()
	}
	a.emitEvent(eventConfigUpdated, ConfigEvent{Source: "file"})
}

func waitWithTimeout(waitFn func(), timeout time.Duration) bool {
	// Best effort: the waiting goroutine may outlive timeout if waitFn never
	// returns. Only used on shutdown paths.
	done := make(chan struct{})
	go func() {
		waitFn()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}
