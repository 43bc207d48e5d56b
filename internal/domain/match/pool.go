// Package match implements the matching queue, the pairing engine and the
// per-match session state machine.
package match

import (
	"sync"

	"github.com/emberlink/ember/internal/domain/model"
)

// pool holds the waiting queue entries keyed by user id. Exactly one live
// entry may exist per user; Add enforces it.
type pool struct {
	mu      sync.Mutex
	entries map[string]*model.QueueEntry
}

func newPool() *pool {
	return &pool{entries: make(map[string]*model.QueueEntry)}
}

// add inserts the entry unless the user already waits.
func (p *pool) add(e *model.QueueEntry) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.entries[e.UserID]; ok {
		return ErrAlreadyQueued
	}
	p.entries[e.UserID] = e
	return nil
}

// remove deletes the user's entry, reporting whether one existed.
func (p *pool) remove(userID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.entries[userID]; !ok {
		return false
	}
	delete(p.entries, userID)
	return true
}

// removePair atomically deletes both entries. Both must still be present;
// a partial commit must never be observable.
func (p *pool) removePair(a, b string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.entries[a]; !ok {
		return false
	}
	if _, ok := p.entries[b]; !ok {
		return false
	}
	delete(p.entries, a)
	delete(p.entries, b)
	return true
}

func (p *pool) contains(userID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, ok := p.entries[userID]
	return ok
}

// snapshot copies the current entry pointers for a scan.
func (p *pool) snapshot() []*model.QueueEntry {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]*model.QueueEntry, 0, len(p.entries))
	for _, e := range p.entries {
		out = append(out, e)
	}
	return out
}

func (p *pool) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}
