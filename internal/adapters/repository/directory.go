package repository

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/emberlink/ember/internal/domain/model"
)

const defaultShardCount = 16

const dayKeyLayout = "2006-01-02"

// shard holds a slice of the directory guarded by its own lock, so
// unrelated users never contend.
type shard struct {
	mu      sync.RWMutex
	users   map[string]*User
	blocks  map[string]map[string]struct{} // blocker -> targets
	matches map[string]map[string]int      // user -> dayKey -> count
}

// memDirectory implements Directory with hash-sharded in-memory state.
type memDirectory struct {
	shards []*shard
}

// NewMemDirectory creates an in-memory directory with configuration options.
func NewMemDirectory(opts ...Option) Directory {
	cfg := options{shardCount: defaultShardCount}
	for _, opt := range opts {
		opt(&cfg)
	}

	d := &memDirectory{shards: make([]*shard, cfg.shardCount)}
	for i := range d.shards {
		d.shards[i] = &shard{
			users:   make(map[string]*User),
			blocks:  make(map[string]map[string]struct{}),
			matches: make(map[string]map[string]int),
		}
	}
	return d
}

func (d *memDirectory) shardFor(id string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return d.shards[int(h.Sum32())%len(d.shards)]
}

func (d *memDirectory) Get(_ context.Context, id string) (User, error) {
	s := d.shardFor(id)
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return *u, nil
}

func (d *memDirectory) Upsert(_ context.Context, u User) error {
	s := d.shardFor(u.ID)
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := u
	s.users[u.ID] = &cp
	return nil
}

func (d *memDirectory) IsBlocked(_ context.Context, a, b string) (bool, error) {
	if d.blockedBy(a, b) || d.blockedBy(b, a) {
		return true, nil
	}
	return false, nil
}

func (d *memDirectory) blockedBy(blocker, target string) bool {
	s := d.shardFor(blocker)
	s.mu.RLock()
	defer s.mu.RUnlock()

	targets, ok := s.blocks[blocker]
	if !ok {
		return false
	}
	_, blocked := targets[target]
	return blocked
}

func (d *memDirectory) SetBlocked(_ context.Context, blocker, target string) error {
	s := d.shardFor(blocker)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.blocks[blocker] == nil {
		s.blocks[blocker] = make(map[string]struct{})
	}
	s.blocks[blocker][target] = struct{}{}
	return nil
}

func (d *memDirectory) AddSparks(_ context.Context, id string, n int64) (int64, error) {
	s := d.shardFor(id)
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return 0, ErrUserNotFound
	}
	u.Sparks += n
	return u.Sparks, nil
}

func (d *memDirectory) ResetSparks(_ context.Context, id string, at time.Time) error {
	s := d.shardFor(id)
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.Sparks = 0
	u.SparksResetAt = at
	return nil
}

func (d *memDirectory) GrantEventAccess(_ context.Context, id string, until time.Time) error {
	s := d.shardFor(id)
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.EventAccessUntil = until
	return nil
}

func (d *memDirectory) RevokeExpiredEventAccess(_ context.Context, now time.Time) (int, error) {
	revoked := 0
	for _, s := range d.shards {
		s.mu.Lock()
		for _, u := range s.users {
			if !u.EventAccessUntil.IsZero() && u.EventAccessUntil.Before(now) {
				u.EventAccessUntil = time.Time{}
				revoked++
			}
		}
		s.mu.Unlock()
	}
	return revoked, nil
}

func (d *memDirectory) MatchesOn(_ context.Context, id string, day time.Time) (int, error) {
	s := d.shardFor(id)
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.matches[id][day.Format(dayKeyLayout)], nil
}

func (d *memDirectory) RecordMatch(_ context.Context, id string, day time.Time) error {
	s := d.shardFor(id)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.matches[id] == nil {
		s.matches[id] = make(map[string]int)
	}
	s.matches[id][day.Format(dayKeyLayout)]++
	return nil
}

func (d *memDirectory) MutateBoost(_ context.Context, id string, fn func(b *model.BoostState)) (model.BoostState, error) {
	s := d.shardFor(id)
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return model.BoostState{}, ErrUserNotFound
	}
	fn(&u.Boost)
	return u.Boost, nil
}

func (d *memDirectory) SweepBoosts(_ context.Context, now time.Time) (int, error) {
	cleared := 0
	for _, s := range d.shards {
		s.mu.Lock()
		for _, u := range s.users {
			if u.Boost.Active && !now.Before(u.Boost.ExpiresAt) {
				u.Boost.Active = false
				cleared++
			}
		}
		s.mu.Unlock()
	}
	return cleared, nil
}

func (d *memDirectory) ActiveBoosts(_ context.Context, now time.Time) int {
	active := 0
	for _, s := range d.shards {
		s.mu.RLock()
		for _, u := range s.users {
			if u.Boost.Active && now.Before(u.Boost.ExpiresAt) {
				active++
			}
		}
		s.mu.RUnlock()
	}
	return active
}

func (d *memDirectory) Snapshot(_ context.Context) ([]User, error) {
	var out []User
	for _, s := range d.shards {
		s.mu.RLock()
		for _, u := range s.users {
			out = append(out, *u)
		}
		s.mu.RUnlock()
	}
	return out, nil
}

func (d *memDirectory) Count(_ context.Context) int {
	n := 0
	for _, s := range d.shards {
		s.mu.RLock()
		n += len(s.users)
		s.mu.RUnlock()
	}
	return n
}
