// Package repository defines the storage interfaces consumed by the
// matching engine, boost manager and settlement job, together with their
// in-memory implementations.
package repository

import (
	"context"
	"time"

	"github.com/emberlink/ember/internal/domain/model"
)

// User is one directory record. The directory is the single owner of
// per-user counters the pairing engine and settlement read.
type User struct {
	ID               string
	Profile          model.ProfileSnapshot
	Filters          model.FilterSnapshot
	Verified         bool
	CreatedAt        time.Time
	Sparks           int64 // sparks earned in the running month
	SparksResetAt    time.Time
	Boost            model.BoostState
	EventAccessUntil time.Time
}

// Directory provides read/write access to user records. Implementations
// must serialize mutations per user id.
type Directory interface {
	// Get returns a user's record. Returns ErrUserNotFound if unknown.
	Get(ctx context.Context, id string) (User, error)

	// Upsert inserts or replaces a user record.
	Upsert(ctx context.Context, u User) error

	// IsBlocked reports whether either user has blocked the other.
	IsBlocked(ctx context.Context, a, b string) (bool, error)

	// SetBlocked records that blocker has blocked target.
	SetBlocked(ctx context.Context, blocker, target string) error

	// AddSparks adds n to the user's running monthly spark counter and
	// returns the new total.
	AddSparks(ctx context.Context, id string, n int64) (int64, error)

	// ResetSparks zeroes the user's spark counter, recording the reset time.
	ResetSparks(ctx context.Context, id string, at time.Time) error

	// GrantEventAccess grants the event entitlement until the given time.
	GrantEventAccess(ctx context.Context, id string, until time.Time) error

	// RevokeExpiredEventAccess clears entitlements that have passed.
	// Returns the number of revocations.
	RevokeExpiredEventAccess(ctx context.Context, now time.Time) (int, error)

	// MatchesOn returns the user's committed match count for a calendar day.
	MatchesOn(ctx context.Context, id string, day time.Time) (int, error)

	// RecordMatch increments the user's match count for a calendar day.
	RecordMatch(ctx context.Context, id string, day time.Time) error

	// MutateBoost applies fn to the user's boost state under the user's
	// lock and returns the resulting state.
	MutateBoost(ctx context.Context, id string, fn func(b *model.BoostState)) (model.BoostState, error)

	// SweepBoosts clears the active flag of every boost whose expiry has
	// passed. Returns the number of cleared flags.
	SweepBoosts(ctx context.Context, now time.Time) (int, error)

	// ActiveBoosts counts users whose boost is live at the given time.
	ActiveBoosts(ctx context.Context, now time.Time) int

	// Snapshot returns a copy of every user record.
	Snapshot(ctx context.Context) ([]User, error)

	// Count returns the number of users tracked.
	Count(ctx context.Context) int
}

// Archive stores settled monthly leaderboard entries. Entries are keyed
// by (user, year, month); upserts make settlement re-runs idempotent.
type Archive interface {
	// Upsert inserts or replaces the entry for (user, year, month).
	Upsert(ctx context.Context, e model.LeaderboardEntry) error

	// Month returns a month's entries ordered by ascending rank.
	Month(ctx context.Context, year, month int) ([]model.LeaderboardEntry, error)

	// Entry returns one user's entry for a month.
	// Returns ErrEntryNotFound if absent.
	Entry(ctx context.Context, userID string, year, month int) (model.LeaderboardEntry, error)

	// MarkSettled records that a month's settlement run completed.
	MarkSettled(ctx context.Context, year, month int, at time.Time) error

	// IsSettled reports whether a month has a completed run.
	IsSettled(ctx context.Context, year, month int) bool

	// LatestSettled returns the most recent settled (year, month).
	// ok is false when no month has settled yet.
	LatestSettled(ctx context.Context) (year, month int, ok bool)
}

// ClaimStore persists reward claims. CreateOrGet is the idempotency
// anchor: a second claim for the same month returns the stored claim.
type ClaimStore interface {
	// CreateOrGet stores the claim unless one already exists for
	// (user, year, month). Returns the stored claim and whether this call
	// created it.
	CreateOrGet(ctx context.Context, c model.RewardClaim) (model.RewardClaim, bool, error)

	// Get returns the claim for (user, year, month).
	// Returns ErrClaimNotFound if absent.
	Get(ctx context.Context, userID string, year, month int) (model.RewardClaim, error)
}
