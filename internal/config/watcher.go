package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"

	"quickprompt/internal/workerutil"
)

// DefaultWatchDelay coalesces the burst of events editors produce on save.
const DefaultWatchDelay = 250 * time.Millisecond

// Watcher reloads the config file when it changes on disk and hands the
// result to onChange. Parse failures are logged and skipped so a half-saved
// file never replaces a good configuration.
type Watcher struct {
	path     string
	onChange func(Config)

	// Supervision is passed to the event loop's supervisor. Set before Start.
	Supervision workerutil.Options

	fs       *fsnotify.Watcher
	debounce func(func())
	closed   atomic.Bool
	once     sync.Once
}

// NewWatcher watches the directory containing path. Editors commonly replace
// the file by rename, which a watch on the file itself would lose.
func NewWatcher(path string, delay time.Duration, onChange func(Config)) (*Watcher, error) {
	if delay <= 0 {
		delay = DefaultWatchDelay
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("watch config: resolve path: %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch config: %w", err)
	}
	if err := fsw.Add(filepath.Dir(absPath)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch config dir: %w", err)
	}
	return &Watcher{
		path:     absPath,
		onChange: onChange,
		fs:       fsw,
		debounce: debounce.New(delay),
	}, nil
}

// Start runs the event loop under panic supervision until ctx is done or
// Close is called.
func (w *Watcher) Start(ctx context.Context, wg *sync.WaitGroup) {
	workerutil.Supervise(ctx, "config-watcher", wg, w.run, w.Supervision)
}

func (w *Watcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !w.relevant(ev) {
				continue
			}
			slog.Debug("[DEBUG-CONFIG] config file event", "op", ev.Op.String(), "path", ev.Name)
			w.debounce(w.reload)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			slog.Warn("[WARN-CONFIG] config watcher error", "error", err)
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != w.path {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}

func (w *Watcher) reload() {
	if w.closed.Load() {
		return
	}
	cfg, err := Load(w.path)
	if err != nil {
		slog.Warn("[WARN-CONFIG] ignoring external config change", "path", w.path, "error", err)
		return
	}
	if w.onChange != nil {
		w.onChange(cfg)
	}
}

// Close stops watching. A reload already scheduled is dropped.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		w.closed.Store(true)
		err = w.fs.Close()
	})
	return err
}
