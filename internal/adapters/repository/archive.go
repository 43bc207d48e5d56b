package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/emberlink/ember/internal/domain/model"
)

type monthKey struct {
	year  int
	month int
}

// memArchive implements Archive in memory. One map per settled month keeps
// upserts O(1) and month reads a simple sorted copy.
type memArchive struct {
	mu      sync.RWMutex
	entries map[monthKey]map[string]model.LeaderboardEntry
	settled map[monthKey]time.Time
}

// NewMemArchive creates an empty in-memory archive.
func NewMemArchive() Archive {
	return &memArchive{
		entries: make(map[monthKey]map[string]model.LeaderboardEntry),
		settled: make(map[monthKey]time.Time),
	}
}

func (a *memArchive) Upsert(_ context.Context, e model.LeaderboardEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	k := monthKey{year: e.Year, month: e.Month}
	if a.entries[k] == nil {
		a.entries[k] = make(map[string]model.LeaderboardEntry)
	}
	a.entries[k][e.UserID] = e
	return nil
}

func (a *memArchive) Month(_ context.Context, year, month int) ([]model.LeaderboardEntry, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	byUser := a.entries[monthKey{year: year, month: month}]
	out := make([]model.LeaderboardEntry, 0, len(byUser))
	for _, e := range byUser {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	return out, nil
}

func (a *memArchive) Entry(_ context.Context, userID string, year, month int) (model.LeaderboardEntry, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	e, ok := a.entries[monthKey{year: year, month: month}][userID]
	if !ok {
		return model.LeaderboardEntry{}, ErrEntryNotFound
	}
	return e, nil
}

func (a *memArchive) MarkSettled(_ context.Context, year, month int, at time.Time) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.settled[monthKey{year: year, month: month}] = at
	return nil
}

func (a *memArchive) IsSettled(_ context.Context, year, month int) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()

	_, ok := a.settled[monthKey{year: year, month: month}]
	return ok
}

func (a *memArchive) LatestSettled(_ context.Context) (int, int, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	best := monthKey{}
	found := false
	for k := range a.settled {
		if !found || k.year > best.year || (k.year == best.year && k.month > best.month) {
			best = k
			found = true
		}
	}
	return best.year, best.month, found
}
