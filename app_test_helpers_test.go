package main

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"quickprompt/internal/hotkeys"
	"quickprompt/internal/keys"
)

// NOTE: tests in this package override package-level seams. Do not use
// t.Parallel().

type recordedEvent struct {
	name    string
	payload any
}

type eventRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *eventRecorder) emit(_ context.Context, name string, data ...any) {
	var payload any
	if len(data) > 0 {
		payload = data[0]
	}
	r.mu.Lock()
	r.events = append(r.events, recordedEvent{name: name, payload: payload})
	r.mu.Unlock()
}

func (r *eventRecorder) byName(name string) []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []any
	for _, e := range r.events {
		if e.name == name {
			out = append(out, e.payload)
		}
	}
	return out
}

func (r *eventRecorder) count(name string) int {
	return len(r.byName(name))
}

type fakeRegistration struct {
	mu     sync.Mutex
	ch     chan struct{}
	closed bool
}

func (r *fakeRegistration) Keydown() <-chan struct{} { return r.ch }

func (r *fakeRegistration) Unregister() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.closed {
		r.closed = true
		close(r.ch)
	}
	return nil
}

func (r *fakeRegistration) fire() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	select {
	case r.ch <- struct{}{}:
	default:
	}
	return true
}

type fakeRegistrar struct {
	mu   sync.Mutex
	regs map[string]*fakeRegistration
}

func (f *fakeRegistrar) Register(names []keys.Name) (hotkeys.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.regs == nil {
		f.regs = make(map[string]*fakeRegistration)
	}
	reg := &fakeRegistration{ch: make(chan struct{}, 1)}
	f.regs[hotkeys.Encode(names)] = reg
	return reg, nil
}

func (f *fakeRegistrar) fire(t *testing.T, wire string) {
	t.Helper()
	f.mu.Lock()
	reg := f.regs[wire]
	f.mu.Unlock()
	if reg == nil || !reg.fire() {
		t.Fatalf("no live registration for %q", wire)
	}
}

func (f *fakeRegistrar) live() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for wire, reg := range f.regs {
		reg.mu.Lock()
		if !reg.closed {
			out = append(out, wire)
		}
		reg.mu.Unlock()
	}
	return out
}

type testEnv struct {
	app       *App
	events    *eventRecorder
	registrar *fakeRegistrar
	dir       string
	hidden    int
	shown     int
	windowMu  sync.Mutex
}

func (e *testEnv) windowCalls() (hidden, shown int) {
	e.windowMu.Lock()
	defer e.windowMu.Unlock()
	return e.hidden, e.shown
}

// stubRuntime replaces the Wails runtime seams for the duration of t.
func stubRuntime(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{events: &eventRecorder{}, registrar: &fakeRegistrar{}}

	origEmit := runtimeEventsEmitFn
	origMinimised := runtimeWindowIsMinimisedFn
	origHide := runtimeWindowHideFn
	origShow := runtimeWindowShowFn
	origUnminimise := runtimeWindowUnminimiseFn
	origSetPos := runtimeWindowSetPosFn
	origSetSize := runtimeWindowSetSizeFn
	origManager := newHotkeyManagerFn
	t.Cleanup(func() {
		runtimeEventsEmitFn = origEmit
		runtimeWindowIsMinimisedFn = origMinimised
		runtimeWindowHideFn = origHide
		runtimeWindowShowFn = origShow
		runtimeWindowUnminimiseFn = origUnminimise
		runtimeWindowSetPosFn = origSetPos
		runtimeWindowSetSizeFn = origSetSize
		newHotkeyManagerFn = origManager
	})

	runtimeEventsEmitFn = env.events.emit
	runtimeWindowIsMinimisedFn = func(context.Context) bool { return false }
	runtimeWindowHideFn = func(context.Context) {
		env.windowMu.Lock()
		env.hidden++
		env.windowMu.Unlock()
	}
	runtimeWindowShowFn = func(context.Context) {
		env.windowMu.Lock()
		env.shown++
		env.windowMu.Unlock()
	}
	runtimeWindowUnminimiseFn = func(context.Context) {}
	runtimeWindowSetPosFn = func(context.Context, int, int) {}
	runtimeWindowSetSizeFn = func(context.Context, int, int) {}
	newHotkeyManagerFn = func() *hotkeys.Manager { return hotkeys.NewManager(env.registrar) }
	return env
}

// startTestApp boots a full App against a temporary config directory.
func startTestApp(t *testing.T) *testEnv {
	t.Helper()
	env := stubRuntime(t)
	env.dir = t.TempDir()
	t.Setenv("LOCALAPPDATA", env.dir)
	t.Setenv("APPDATA", "")

	env.app = NewApp()
	env.app.startup(context.Background())
	t.Cleanup(func() { env.app.shutdown(context.Background()) })
	return env
}

func (e *testEnv) configPath() string {
	return filepath.Join(e.dir, "quickprompt", "config.yaml")
}

// waitForCondition polls fn every 10ms until it returns true or the timeout
// expires.
func waitForCondition(t *testing.T, timeout time.Duration, fn func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return fn()
}
