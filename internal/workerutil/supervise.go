// Package workerutil runs long-lived background loops with panic recovery.
package workerutil

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

const (
	defaultInitialBackoff = 100 * time.Millisecond
	defaultMaxBackoff     = 5 * time.Second
	defaultMaxRestarts    = 10
)

// Options tunes Supervise. Zero values select the defaults
// (100ms initial backoff doubling up to 5s, 10 restarts).
type Options struct {
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxRestarts    int

	// OnPanic is called after each recovered panic with the 1-based attempt.
	OnPanic func(worker string, attempt int)
	// OnGiveUp is called once when MaxRestarts is exhausted.
	OnGiveUp func(worker string)
}

func (o Options) withDefaults() Options {
	if o.InitialBackoff <= 0 {
		o.InitialBackoff = defaultInitialBackoff
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = defaultMaxBackoff
	}
	if o.MaxBackoff < o.InitialBackoff {
		slog.Warn("[DEBUG-PANIC] max backoff below initial backoff, clamping",
			"initial", o.InitialBackoff, "max", o.MaxBackoff)
		o.MaxBackoff = o.InitialBackoff
	}
	if o.MaxRestarts <= 0 {
		o.MaxRestarts = defaultMaxRestarts
	}
	return o
}

// Supervise runs fn on a goroutine tracked by wg. A normal return ends the
// worker; a panic is logged and fn is restarted after an exponential
// backoff until ctx is cancelled or MaxRestarts panics have occurred.
func Supervise(ctx context.Context, name string, wg *sync.WaitGroup, fn func(ctx context.Context), opts Options) {
	opts = opts.withDefaults()
	wg.Go(func() {
		superviseLoop(ctx, name, fn, opts)
	})
}

func superviseLoop(ctx context.Context, name string, fn func(ctx context.Context), opts Options) {
	delay := opts.InitialBackoff
	for attempt := 1; attempt <= opts.MaxRestarts; attempt++ {
		if !runOnce(ctx, name, fn) || ctx.Err() != nil {
			return
		}
		if opts.OnPanic != nil {
			opts.OnPanic(name, attempt)
		}
		if attempt == opts.MaxRestarts {
			break
		}
		slog.Warn("[DEBUG-PANIC] restarting worker", "worker", name, "attempt", attempt, "delay", delay)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		delay = nextBackoff(delay, opts.MaxBackoff)
	}
	slog.Error("[DEBUG-PANIC] worker gave up after repeated panics", "worker", name, "restarts", opts.MaxRestarts)
	if opts.OnGiveUp != nil {
		opts.OnGiveUp(name)
	}
}

// runOnce reports whether fn panicked.
func runOnce(ctx context.Context, name string, fn func(ctx context.Context)) (panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("[DEBUG-PANIC] worker recovered from panic",
				"worker", name,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			panicked = true
		}
	}()
	fn(ctx)
	return false
}

func nextBackoff(current, limit time.Duration) time.Duration {
	next := current * 2
	if next > limit || next < current {
		return limit
	}
	return next
}
