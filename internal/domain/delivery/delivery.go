// Package delivery tracks once-only side effects, keyed by caller-chosen
// strings. The card gate uses it to cap the cards:deliver push at one per
// (match, user) no matter how often the client retries.
package delivery

import (
	"context"
	"sync"
	"sync/atomic"
)

// Tracker records keys whose side effect has already fired.
type Tracker interface {
	// SeenAndRecord atomically checks whether key was seen and records it
	// if not. Returns true if the key was already seen.
	SeenAndRecord(ctx context.Context, key string) bool

	// Forget removes a key, re-arming its side effect. Used when a session
	// ends so match-scoped keys do not pin memory.
	Forget(ctx context.Context, key string)

	Size() int64
}

// inMemoryTracker implements Tracker with a bounded map. When the bound is
// reached, recording new keys evicts an arbitrary old entry; a spurious
// re-delivery is acceptable, a blocked delivery is not.
type inMemoryTracker struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	maxSize int
	size    atomic.Int64
}

// NewInMemoryTracker creates a tracker with configuration options.
func NewInMemoryTracker(opts ...Option) Tracker {
	t := &inMemoryTracker{
		maxSize: 100_000,
	}

	for _, opt := range opts {
		opt(t)
	}

	t.seen = make(map[string]struct{})
	return t
}

func (t *inMemoryTracker) SeenAndRecord(_ context.Context, key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.seen[key]; ok {
		return true
	}

	if t.maxSize > 0 && len(t.seen) >= t.maxSize {
		for k := range t.seen {
			delete(t.seen, k)
			t.size.Add(-1)
			break
		}
	}

	t.seen[key] = struct{}{}
	t.size.Add(1)
	return false
}

func (t *inMemoryTracker) Forget(_ context.Context, key string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.seen[key]; ok {
		delete(t.seen, key)
		t.size.Add(-1)
	}
}

func (t *inMemoryTracker) Size() int64 {
	return t.size.Load()
}
