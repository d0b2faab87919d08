package main

import (
	"context"
	"embed"
	"errors"
	"log/slog"
	"os"
	"strings"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"quickprompt/internal/config"
	"quickprompt/internal/sessionlog"
	"quickprompt/internal/singleinstance"
	"quickprompt/internal/wsserver"
)

//go:embed all:frontend/dist
var assets embed.FS

func main() {
	app := NewApp()
	slog.SetDefault(slog.New(sessionlog.NewTeeHandler(
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevelFromEnv()}),
		slog.LevelWarn,
		app.recordLogEntry,
	)))

	lock, err := singleinstance.TryLock(singleinstance.DefaultName())
	if errors.Is(err, singleinstance.ErrAlreadyRunning) {
		slog.Info("[DEBUG-SINGLE] another instance is already running, signaling activation")
		signalRunningInstance()
		return
	}
	if err != nil {
		slog.Warn("[DEBUG-SINGLE] instance lock failed, proceeding without single-instance guard", "error", err)
	}
	defer func() {
		if releaseErr := lock.Release(); releaseErr != nil {
			slog.Warn("[DEBUG-SINGLE] instance lock release failed", "error", releaseErr)
		}
	}()

	err = wails.Run(&options.App{
		Title:     "quickprompt",
		Width:     720,
		Height:    520,
		MinWidth:  480,
		MinHeight: 320,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		BackgroundColour: &options.RGBA{R: 250, G: 250, B: 250, A: 1},
		OnStartup:        app.startup,
		OnShutdown:       app.shutdown,
		Bind: []any{
			app,
		},
	})
	if err != nil {
		slog.Error("[DEBUG-APP] wails run failed", "error", err)
		os.Exit(1)
	}
}

// signalRunningInstance asks the running instance to show its window. It can
// only reach an instance whose WebSocket port is fixed in the config.
func signalRunningInstance() {
	cfg, err := config.Load(config.DefaultPath())
	if err != nil || cfg.WebSocketPort <= 0 {
		slog.Info("[DEBUG-SINGLE] no fixed websocket port, cannot signal running instance")
		return
	}
	if err := wsserver.SendActivate(context.Background(), wsserver.URLForPort(cfg.WebSocketPort)); err != nil {
		slog.Warn("[DEBUG-SINGLE] failed to signal running instance", "error", err)
	}
}

// logLevelFromEnv reads QUICKPROMPT_LOG_LEVEL (debug, info, warn, error).
func logLevelFromEnv() slog.Level {
	var level slog.Level
	raw := strings.TrimSpace(os.Getenv("QUICKPROMPT_LOG_LEVEL"))
	if raw == "" {
		return slog.LevelInfo
	}
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return slog.LevelInfo
	}
	return level
}
