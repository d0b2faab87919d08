// Package registry holds the read-only snapshot of shortcut bindings that
// the window-side matcher works from.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"quickprompt/internal/hotkeys"
)

// Source supplies the authoritative binding list.
type Source interface {
	Shortcuts(ctx context.Context) ([]hotkeys.Binding, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([]hotkeys.Binding, error)

// Shortcuts implements Source.
func (f SourceFunc) Shortcuts(ctx context.Context) ([]hotkeys.Binding, error) {
	return f(ctx)
}

// Cache keeps the latest binding snapshot. Refresh replaces it wholesale and
// notifies subscribers with the new snapshot.
type Cache struct {
	source Source

	mu       sync.RWMutex
	snapshot []hotkeys.Binding
	version  uint64

	subMu  sync.Mutex
	subs   map[uint64]func([]hotkeys.Binding)
	nextID uint64
}

// NewCache returns an empty cache backed by source.
func NewCache(source Source) *Cache {
	return &Cache{
		source: source,
		subs:   make(map[uint64]func([]hotkeys.Binding)),
	}
}

// Refresh reloads the snapshot from the source. On error the previous
// snapshot is kept.
func (c *Cache) Refresh(ctx context.Context) error {
	bindings, err := c.source.Shortcuts(ctx)
	if err != nil {
		return fmt.Errorf("refresh shortcut registry: %w", err)
	}
	snapshot := hotkeys.CloneBindings(bindings)

	c.mu.Lock()
	c.snapshot = snapshot
	c.version++
	version := c.version
	c.mu.Unlock()

	slog.Debug("[DEBUG-DISPATCH] registry refreshed", "bindings", len(snapshot), "version", version)
	c.notify(snapshot)
	return nil
}

// Snapshot returns a copy of the current bindings.
func (c *Cache) Snapshot() []hotkeys.Binding {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return hotkeys.CloneBindings(c.snapshot)
}

// Version increments on every successful Refresh.
func (c *Cache) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Subscribe registers fn to run after each Refresh. The returned function
// removes the subscription.
func (c *Cache) Subscribe(fn func([]hotkeys.Binding)) (unsubscribe func()) {
	c.subMu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	c.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.subMu.Lock()
			delete(c.subs, id)
			c.subMu.Unlock()
		})
	}
}

func (c *Cache) notify(snapshot []hotkeys.Binding) {
	c.subMu.Lock()
	fns := make([]func([]hotkeys.Binding), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subMu.Unlock()

	for _, fn := range fns {
		fn(hotkeys.CloneBindings(snapshot))
	}
}
