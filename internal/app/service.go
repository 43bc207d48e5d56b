// Package service wires the matching engine, boost manager, settlement job
// and delivery pipeline together, and implements the dependencies required
// by the HTTP API.
package service

import (
	"context"
	"runtime"
	"sync"
	"time"

	noticequeue "github.com/emberlink/ember/internal/adapters/mq/queue"
	workerpool "github.com/emberlink/ember/internal/adapters/mq/worker"
	"github.com/emberlink/ember/internal/adapters/repository"
	"github.com/emberlink/ember/internal/adapters/ws"
	"github.com/emberlink/ember/internal/domain/boost"
	"github.com/emberlink/ember/internal/domain/deck"
	"github.com/emberlink/ember/internal/domain/match"
	"github.com/emberlink/ember/internal/domain/model"
	"github.com/emberlink/ember/internal/domain/settlement"
	"github.com/emberlink/ember/pkg/logger"
	"github.com/emberlink/ember/pkg/metrics"
)

// directoryView adapts the repository directory to the engine's narrower
// Directory interface.
type directoryView struct {
	dir repository.Directory
}

func (v *directoryView) Lookup(ctx context.Context, id string) (match.UserInfo, error) {
	u, err := v.dir.Get(ctx, id)
	if err != nil {
		return match.UserInfo{}, err
	}
	return match.UserInfo{
		Profile:  u.Profile,
		Filters:  u.Filters,
		Verified: u.Verified,
		Boost:    u.Boost,
	}, nil
}

func (v *directoryView) IsBlocked(ctx context.Context, a, b string) (bool, error) {
	return v.dir.IsBlocked(ctx, a, b)
}

func (v *directoryView) MatchesOn(ctx context.Context, id string, day time.Time) (int, error) {
	return v.dir.MatchesOn(ctx, id, day)
}

func (v *directoryView) RecordMatch(ctx context.Context, id string, day time.Time) error {
	return v.dir.RecordMatch(ctx, id, day)
}

func (v *directoryView) AddSparks(ctx context.Context, id string, n int64) (int64, error) {
	return v.dir.AddSparks(ctx, id, n)
}

// queueEmitter pushes engine events into the bounded notice queue.
type queueEmitter struct {
	queue noticequeue.Queue
}

func (e *queueEmitter) Emit(ctx context.Context, userID, event string, payload interface{}) bool {
	return e.queue.Enqueue(ctx, model.Notice{
		UserID:     userID,
		Event:      event,
		Payload:    payload,
		EnqueuedAt: time.Now(),
	})
}

// logNotifier stands in for the external push dispatcher. Offline users'
// notices are logged instead of silently dropped.
type logNotifier struct {
	log logger.Logger
}

func (n *logNotifier) Notify(ctx context.Context, userID, event string, _ interface{}) error {
	n.log.Debug(ctx, "offline notice",
		logger.String("user_id", userID),
		logger.String("event", event),
	)
	return nil
}

// tokenVerifier validates purchase tokens. The real payment collaborator
// sits behind the boost.Verifier interface; this one accepts any non-empty
// token for the configured product.
type tokenVerifier struct {
	product string
}

func (v *tokenVerifier) VerifyPurchase(_ context.Context, token string) (boost.Purchase, error) {
	return boost.Purchase{Valid: token != "", ProductID: v.product}, nil
}

// Service owns every component of the matchmaking process.
type Service struct {
	mu sync.RWMutex

	directory repository.Directory
	archive   repository.Archive
	claims    repository.ClaimStore

	engine     *match.Engine
	gateway    *ws.Gateway
	boosts     *boost.Manager
	settlement *settlement.Job
	queue      noticequeue.Queue
	pool       *workerpool.Pool

	verifier boost.Verifier
	notifier workerpool.Notifier

	workerCount   int
	queueSize     int
	gateTimeout   time.Duration
	gracePeriod   time.Duration
	sweepInterval time.Duration
	dailyLimit    int
	boostDuration time.Duration
	boostSweep    time.Duration
	boostProduct  string
	topN          int
	minSparks     int64
	accessFor     time.Duration
	rewards       []float64
	settleCheck   time.Duration
	maxLimit      int

	started bool
	logger  logger.Logger
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:   runtime.NumCPU() * 4,
		queueSize:     50_000,
		gateTimeout:   3 * time.Minute,
		gracePeriod:   30 * time.Second,
		sweepInterval: 5 * time.Second,
		dailyLimit:    0,
		boostDuration: time.Hour,
		boostSweep:    time.Hour,
		boostProduct:  "boost_1h",
		topN:          100,
		minSparks:     10_000,
		accessFor:     31 * 24 * time.Hour,
		rewards:       []float64{1000, 500, 250},
		settleCheck:   time.Hour,
		maxLimit:      100,
	}

	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the component graph and launches the background loops.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Named("service")
	}

	s.logger.Info(ctx, "starting matchmaking service")

	s.directory = repository.NewMemDirectory()
	s.archive = repository.NewMemArchive()
	s.claims = repository.NewMemClaimStore()

	cardDeck, err := deck.New()
	if err != nil {
		return err
	}

	s.queue = noticequeue.NewInMemoryQueue(
		noticequeue.WithCapacity(s.queueSize),
		noticequeue.WithBufferSize(s.queueSize),
	)

	s.engine = match.New(&directoryView{dir: s.directory}, &queueEmitter{queue: s.queue}, cardDeck,
		match.WithGateTimeout(s.gateTimeout),
		match.WithGracePeriod(s.gracePeriod),
		match.WithSweepInterval(s.sweepInterval),
		match.WithDailyLimit(s.dailyLimit),
	)
	s.gateway = ws.New(s.engine)

	if s.verifier == nil {
		s.verifier = &tokenVerifier{product: s.boostProduct}
	}
	s.boosts = boost.New(s.directory, s.verifier,
		boost.WithDuration(s.boostDuration),
		boost.WithSweepInterval(s.boostSweep),
		boost.WithProductID(s.boostProduct),
	)

	s.settlement = settlement.New(s.directory, s.archive, s.claims,
		settlement.WithTopN(s.topN),
		settlement.WithMinSparks(s.minSparks),
		settlement.WithAccessDuration(s.accessFor),
		settlement.WithRewards(s.rewards),
		settlement.WithCheckInterval(s.settleCheck),
	)

	if s.notifier == nil {
		s.notifier = &logNotifier{log: s.logger.Named("notifier")}
	}
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.gateway, s.notifier)

	s.pool.Start(ctx)
	s.engine.Start(ctx)
	s.boosts.Start(ctx)
	s.settlement.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "matchmaking service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queue_size", s.queueSize),
		logger.Duration("gate_timeout", s.gateTimeout),
	)
	return nil
}

// Stop gracefully shuts the service down.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.logger.Info(context.Background(), "stopping matchmaking service")

	s.settlement.Stop()
	s.boosts.Stop()
	s.engine.Stop()
	if s.pool != nil {
		_ = s.pool.Shutdown(context.Background())
	}

	s.started = false
	s.logger.Info(context.Background(), "matchmaking service stopped")
}

// Gateway returns the websocket handler for mounting.
func (s *Service) Gateway() *ws.Gateway {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gateway
}

// Engine returns the matching engine.
func (s *Service) Engine() *match.Engine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// UpsertUser is the ingestion point for the account system: profile,
// filters and verification state land here before a user may queue.
func (s *Service) UpsertUser(ctx context.Context, u repository.User) error {
	return s.directory.Upsert(ctx, u)
}

// BlockUser records that blocker has blocked target, excluding the pair
// from future pairings.
func (s *Service) BlockUser(ctx context.Context, blocker, target string) error {
	return s.directory.SetBlocked(ctx, blocker, target)
}

// GetStats aggregates live counters for the stats endpoint.
func (s *Service) GetStats(ctx context.Context) model.ServiceStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return model.ServiceStats{}
	}

	engineStats := s.engine.GetStats()
	now := time.Now()
	stats := model.ServiceStats{
		WaitingUsers:   engineStats.Waiting,
		ActiveSessions: engineStats.ActiveSessions,
		Connections:    s.gateway.Connections(),
		ActiveBoosts:   s.directory.ActiveBoosts(ctx, now),
		QueuedNotices:  s.queue.Len(ctx),
		Users:          s.directory.Count(ctx),
	}
	metrics.UpdateActiveBoosts(stats.ActiveBoosts)
	return stats
}

// Leaderboard returns archived standings for a settled month.
func (s *Service) Leaderboard(ctx context.Context, year, month, limit int) ([]model.LeaderboardEntry, error) {
	return s.settlement.Month(ctx, year, month, s.clampLimit(limit))
}

// LiveLeaderboard computes current-month standings from in-flight spark
// counters, without persisting anything.
func (s *Service) LiveLeaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	return s.settlement.Live(ctx, s.clampLimit(limit))
}

// LatestLeaderboard returns the most recent settled month's standings.
func (s *Service) LatestLeaderboard(ctx context.Context, limit int) (int, int, []model.LeaderboardEntry, error) {
	return s.settlement.Latest(ctx, s.clampLimit(limit))
}

// Rank returns a user's entry in the most recent settled month.
func (s *Service) Rank(ctx context.Context, userID string) (model.LeaderboardEntry, error) {
	return s.settlement.Rank(ctx, userID)
}

// ActivateBoost verifies the purchase and applies the priority boost.
func (s *Service) ActivateBoost(ctx context.Context, userID, token string) (model.BoostState, error) {
	return s.boosts.Activate(ctx, userID, token)
}

// RewardEligibility derives the user's claim status for the most recent
// settled month.
func (s *Service) RewardEligibility(ctx context.Context, userID string) (model.RewardEligibility, error) {
	return s.settlement.Eligibility(ctx, userID)
}

// ClaimReward creates or returns the user's monthly reward claim.
func (s *Service) ClaimReward(ctx context.Context, userID, contactInfo string) (model.RewardClaim, error) {
	return s.settlement.Claim(ctx, userID, contactInfo)
}

// SettleMonth runs the settlement for a specific month, mainly for
// operational re-runs.
func (s *Service) SettleMonth(ctx context.Context, year, month int) error {
	return s.settlement.Settle(ctx, year, month)
}

func (s *Service) clampLimit(limit int) int {
	if limit <= 0 || limit > s.maxLimit {
		return s.maxLimit
	}
	return limit
}
