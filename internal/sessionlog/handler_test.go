package sessionlog

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

type entryRecorder struct {
	mu      sync.Mutex
	entries []Entry
}

func (r *entryRecorder) sink(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
}

func (r *entryRecorder) all() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), r.entries...)
}

func newTestLogger(minLevel slog.Level) (*slog.Logger, *bytes.Buffer, *entryRecorder) {
	var buf bytes.Buffer
	base := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	rec := &entryRecorder{}
	return slog.New(NewTeeHandler(base, minLevel, rec.sink)), &buf, rec
}

func TestTeeHandlerGatesSinkByLevel(t *testing.T) {
	logger, buf, rec := newTestLogger(slog.LevelWarn)

	logger.Debug("debug line")
	logger.Info("info line")
	logger.Warn("warn line")
	logger.Error("error line")

	for _, msg := range []string{"debug line", "info line", "warn line", "error line"} {
		if !strings.Contains(buf.String(), msg) {
			t.Fatalf("base handler missing %q: %s", msg, buf.String())
		}
	}
	got := rec.all()
	if len(got) != 2 {
		t.Fatalf("sink entries = %d, want 2: %+v", len(got), got)
	}
	if got[0].Level != "warn" || got[0].Message != "warn line" {
		t.Fatalf("entry[0] = %+v", got[0])
	}
	if got[1].Level != "error" || got[1].Message != "error line" {
		t.Fatalf("entry[1] = %+v", got[1])
	}
	if got[1].Time.IsZero() {
		t.Fatal("entry time should be set")
	}
}

func TestTeeHandlerCollectsAttrs(t *testing.T) {
	logger, _, rec := newTestLogger(slog.LevelWarn)

	logger.With("component", "hotkeys").
		WithGroup("apply").
		Warn("registration failed", "shortcut", "shift+cmd+k", slog.Group("err", "code", 3))

	got := rec.all()
	if len(got) != 1 {
		t.Fatalf("sink entries = %d, want 1", len(got))
	}
	e := got[0]
	if e.Source != "apply" {
		t.Fatalf("Source = %q, want apply", e.Source)
	}
	want := map[string]string{
		"component": "hotkeys",
		"shortcut":  "shift+cmd+k",
		"err.code":  "3",
	}
	for k, v := range want {
		if e.Attrs[k] != v {
			t.Fatalf("Attrs[%q] = %q, want %q (all: %v)", k, e.Attrs[k], v, e.Attrs)
		}
	}
}

func TestTeeHandlerNestedGroups(t *testing.T) {
	logger, _, rec := newTestLogger(slog.LevelWarn)
	logger.WithGroup("app").WithGroup("config").Warn("reload skipped")
	got := rec.all()
	if len(got) != 1 || got[0].Source != "app.config" {
		t.Fatalf("entries = %+v, want Source app.config", got)
	}
}

func TestTeeHandlerEmptyGroupAndAttrsReturnReceiver(t *testing.T) {
	h := NewTeeHandler(slog.NewTextHandler(&bytes.Buffer{}, nil), slog.LevelWarn, nil)
	if h.WithGroup("") != slog.Handler(h) {
		t.Fatal("WithGroup(\"\") should return the receiver")
	}
	if h.WithAttrs(nil) != slog.Handler(h) {
		t.Fatal("WithAttrs(nil) should return the receiver")
	}
}

func TestTeeHandlerNilSinkPassesThrough(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewTeeHandler(slog.NewTextHandler(&buf, nil), slog.LevelWarn, nil))
	logger.Error("still written")
	if !strings.Contains(buf.String(), "still written") {
		t.Fatalf("base output = %q", buf.String())
	}
}

func TestTeeHandlerSinkPanicIsContained(t *testing.T) {
	var buf bytes.Buffer
	h := NewTeeHandler(slog.NewTextHandler(&buf, nil), slog.LevelWarn, func(Entry) { panic("boom") })
	logger := slog.New(h)
	logger.Error("survives")
	if !strings.Contains(buf.String(), "survives") {
		t.Fatalf("base output = %q", buf.String())
	}
}

type failingHandler struct{ err error }

func (f failingHandler) Enabled(context.Context, slog.Level) bool  { return true }
func (f failingHandler) Handle(context.Context, slog.Record) error { return f.err }
func (f failingHandler) WithAttrs([]slog.Attr) slog.Handler        { return f }
func (f failingHandler) WithGroup(string) slog.Handler             { return f }

func TestTeeHandlerReturnsBaseErrorAfterSink(t *testing.T) {
	baseErr := errors.New("disk full")
	rec := &entryRecorder{}
	h := NewTeeHandler(failingHandler{err: baseErr}, slog.LevelWarn, rec.sink)

	var r slog.Record
	r.Level = slog.LevelError
	r.Message = "write failed"
	if err := h.Handle(context.Background(), r); !errors.Is(err, baseErr) {
		t.Fatalf("Handle() error = %v, want %v", err, baseErr)
	}
	if len(rec.all()) != 1 {
		t.Fatal("sink should run even when the base handler fails")
	}
}

func TestTeeHandlerEnabledDefersToBase(t *testing.T) {
	base := slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelInfo})
	h := NewTeeHandler(base, slog.LevelError, nil)
	if h.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("Debug should be disabled by the base handler")
	}
	if !h.Enabled(context.Background(), slog.LevelWarn) {
		t.Fatal("Warn should be enabled even below the sink threshold")
	}
}
