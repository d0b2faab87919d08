package sessionlog

import "sync"

// DefaultCapacity is the number of entries a Ring keeps by default.
const DefaultCapacity = 500

// Ring is a bounded, concurrency-safe buffer of the most recent entries.
type Ring struct {
	mu      sync.RWMutex
	entries []Entry
	start   int
	size    int
	seq     uint64
}

// NewRing returns a Ring holding at most capacity entries. A non-positive
// capacity selects DefaultCapacity.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ring{entries: make([]Entry, capacity)}
}

// Push stores e, evicting the oldest entry when full, and returns it with
// its sequence number assigned. Sequence numbers never repeat.
func (r *Ring) Push(e Entry) Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	e.Seq = r.seq
	if r.size < len(r.entries) {
		r.entries[(r.start+r.size)%len(r.entries)] = e
		r.size++
		return e
	}
	r.entries[r.start] = e
	r.start = (r.start + 1) % len(r.entries)
	return e
}

// Snapshot returns the retained entries oldest first.
func (r *Ring) Snapshot() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, r.size)
	for i := range r.size {
		out[i] = r.entries[(r.start+i)%len(r.entries)]
	}
	return out
}

// Len reports how many entries are retained.
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.size
}
