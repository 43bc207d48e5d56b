// Package settlement runs the monthly leaderboard close: ranking, event
// access grants, spark resets and the reward claim flow.
package settlement

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/emberlink/ember/internal/adapters/repository"
	"github.com/emberlink/ember/internal/domain/model"
	"github.com/emberlink/ember/pkg/logger"
	"github.com/emberlink/ember/pkg/metrics"
)

// Job settles months and answers leaderboard and reward queries. One Job
// runs per process; Settle is safe to re-run for the same month.
type Job struct {
	dir     repository.Directory
	archive repository.Archive
	claims  repository.ClaimStore
	log     logger.Logger
	clock   func() time.Time

	topN          int
	minSparks     int64
	accessFor     time.Duration
	rewards       []float64
	checkInterval time.Duration

	settleMu sync.Mutex

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a settlement Job with configuration options.
func New(dir repository.Directory, archive repository.Archive, claims repository.ClaimStore, opts ...Option) *Job {
	j := &Job{
		dir:           dir,
		archive:       archive,
		claims:        claims,
		log:           logger.Named("settlement"),
		clock:         time.Now,
		topN:          100,
		minSparks:     10_000,
		accessFor:     31 * 24 * time.Hour,
		rewards:       []float64{1000, 500, 250},
		checkInterval: time.Hour,
		done:          make(chan struct{}),
	}

	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Start launches the periodic month-boundary check.
func (j *Job) Start(ctx context.Context) {
	j.wg.Add(1)
	go func() {
		defer j.wg.Done()

		ticker := time.NewTicker(j.checkInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := j.RunDue(ctx); err != nil {
					j.log.Error(ctx, "settlement check failed", logger.Error(err))
				}
			case <-j.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop halts the boundary check and waits for it.
func (j *Job) Stop() {
	j.stopOnce.Do(func() { close(j.done) })
	j.wg.Wait()
}

// RunDue settles the previous calendar month if it has not settled yet.
func (j *Job) RunDue(ctx context.Context) error {
	prev := j.clock().UTC().AddDate(0, -1, 0)
	year, month := prev.Year(), int(prev.Month())
	if j.archive.IsSettled(ctx, year, month) {
		return nil
	}
	return j.Settle(ctx, year, month)
}

// Settle ranks the month and applies grants and resets. Every step upserts
// by (user, year, month), so an interrupted run can be repeated from
// scratch without double-counting.
func (j *Job) Settle(ctx context.Context, year, month int) error {
	j.settleMu.Lock()
	defer j.settleMu.Unlock()

	start := j.clock()
	j.log.Info(ctx, "settlement run started",
		logger.Int("year", year), logger.Int("month", month))

	users, err := j.dir.Snapshot(ctx)
	if err != nil {
		return err
	}

	ranked := rankUsers(users)
	union := ranked
	if len(union) > j.topN {
		union = union[:j.topN]
		for _, u := range ranked[j.topN:] {
			if u.Sparks >= j.minSparks {
				union = append(union, u)
			}
		}
	}

	now := j.clock()
	accessUntil := now.Add(j.accessFor)
	for i, u := range union {
		entry := model.LeaderboardEntry{
			UserID:         u.ID,
			Year:           year,
			Month:          month,
			Sparks:         u.Sparks,
			Rank:           i + 1,
			HasEventAccess: true,
			SettledAt:      now,
		}
		if err := j.archive.Upsert(ctx, entry); err != nil {
			return err
		}
		if err := j.dir.GrantEventAccess(ctx, u.ID, accessUntil); err != nil {
			return err
		}
	}

	for _, u := range users {
		if u.Sparks == 0 {
			continue
		}
		if err := j.dir.ResetSparks(ctx, u.ID, now); err != nil {
			return err
		}
	}

	revoked, err := j.dir.RevokeExpiredEventAccess(ctx, now)
	if err != nil {
		return err
	}

	if err := j.archive.MarkSettled(ctx, year, month, now); err != nil {
		return err
	}

	elapsed := j.clock().Sub(start)
	metrics.RecordSettlementRun(float64(elapsed.Milliseconds()), now.Unix())
	j.log.Info(ctx, "settlement run completed",
		logger.Int("year", year),
		logger.Int("month", month),
		logger.Int("entries", len(union)),
		logger.Int("revoked_access", revoked),
		logger.Duration("elapsed", elapsed),
	)
	return nil
}

// rankUsers orders spark holders by count descending, ties going to the
// earlier account. Users without sparks never enter the board.
func rankUsers(users []repository.User) []repository.User {
	ranked := make([]repository.User, 0, len(users))
	for _, u := range users {
		if u.Sparks > 0 {
			ranked = append(ranked, u)
		}
	}
	sort.SliceStable(ranked, func(i, k int) bool {
		if ranked[i].Sparks != ranked[k].Sparks {
			return ranked[i].Sparks > ranked[k].Sparks
		}
		return ranked[i].CreatedAt.Before(ranked[k].CreatedAt)
	})
	return ranked
}

// Month returns up to limit archived entries of a settled month.
func (j *Job) Month(ctx context.Context, year, month, limit int) ([]model.LeaderboardEntry, error) {
	entries, err := j.archive.Month(ctx, year, month)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 && !j.archive.IsSettled(ctx, year, month) {
		return nil, ErrMonthNotSettled
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Latest returns entries of the most recent settled month.
func (j *Job) Latest(ctx context.Context, limit int) (year, month int, entries []model.LeaderboardEntry, err error) {
	year, month, ok := j.archive.LatestSettled(ctx)
	if !ok {
		return 0, 0, nil, ErrMonthNotSettled
	}
	entries, err = j.Month(ctx, year, month, limit)
	return year, month, entries, err
}

// Rank returns the user's entry in the most recent settled month.
func (j *Job) Rank(ctx context.Context, userID string) (model.LeaderboardEntry, error) {
	year, month, ok := j.archive.LatestSettled(ctx)
	if !ok {
		return model.LeaderboardEntry{}, ErrMonthNotSettled
	}
	return j.archive.Entry(ctx, userID, year, month)
}

// Eligibility derives the user's claim status for the most recent settled
// month. Nothing persists until Claim runs.
func (j *Job) Eligibility(ctx context.Context, userID string) (model.RewardEligibility, error) {
	entry, err := j.Rank(ctx, userID)
	if errors.Is(err, repository.ErrEntryNotFound) {
		return model.RewardEligibility{}, nil
	}
	if err != nil {
		return model.RewardEligibility{}, err
	}

	if entry.Rank < 1 || entry.Rank > len(j.rewards) {
		return model.RewardEligibility{Rank: entry.Rank}, nil
	}

	elig := model.RewardEligibility{
		Eligible: true,
		Rank:     entry.Rank,
		Amount:   j.rewards[entry.Rank-1],
	}
	if _, err := j.claims.Get(ctx, userID, entry.Year, entry.Month); err == nil {
		elig.Claimed = true
		elig.Eligible = false
	} else if !errors.Is(err, repository.ErrClaimNotFound) {
		return model.RewardEligibility{}, err
	}
	return elig, nil
}

// Claim creates the user's reward claim for the most recent settled month.
// A repeated claim returns the stored one instead of erroring.
func (j *Job) Claim(ctx context.Context, userID, contactInfo string) (model.RewardClaim, error) {
	entry, err := j.Rank(ctx, userID)
	if errors.Is(err, repository.ErrEntryNotFound) {
		return model.RewardClaim{}, ErrNotEligible
	}
	if err != nil {
		return model.RewardClaim{}, err
	}
	if entry.Rank < 1 || entry.Rank > len(j.rewards) {
		return model.RewardClaim{}, ErrNotEligible
	}
	if contactInfo == "" {
		return model.RewardClaim{}, ErrContactRequired
	}

	claim, created, err := j.claims.CreateOrGet(ctx, model.RewardClaim{
		UserID:      userID,
		Year:        entry.Year,
		Month:       entry.Month,
		Rank:        entry.Rank,
		Amount:      j.rewards[entry.Rank-1],
		ContactInfo: contactInfo,
		CreatedAt:   j.clock(),
	})
	if err != nil {
		return model.RewardClaim{}, err
	}
	if created {
		metrics.RecordRewardClaim()
		j.log.Info(ctx, "reward claim created",
			logger.String("user_id", userID),
			logger.Int("rank", claim.Rank),
			logger.Float64("amount", claim.Amount),
		)
	}
	return claim, nil
}

// Live computes current-month standings straight from the directory. The
// slice reflects in-flight counters and is not persisted.
func (j *Job) Live(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	users, err := j.dir.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	now := j.clock().UTC()
	ranked := rankUsers(users)
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	entries := make([]model.LeaderboardEntry, 0, len(ranked))
	for i, u := range ranked {
		entries = append(entries, model.LeaderboardEntry{
			UserID: u.ID,
			Year:   now.Year(),
			Month:  int(now.Month()),
			Sparks: u.Sparks,
			Rank:   i + 1,
		})
	}
	return entries, nil
}
