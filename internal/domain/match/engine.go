package match

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/emberlink/ember/internal/domain/deck"
	"github.com/emberlink/ember/internal/domain/delivery"
	"github.com/emberlink/ember/internal/domain/model"
	"github.com/emberlink/ember/internal/domain/pairing"
	"github.com/emberlink/ember/pkg/logger"
	"github.com/emberlink/ember/pkg/metrics"
)

// UserInfo is the directory view the engine snapshots at enqueue time.
type UserInfo struct {
	Profile  model.ProfileSnapshot
	Filters  model.FilterSnapshot
	Verified bool
	Boost    model.BoostState
}

// Directory is the slice of the user directory the engine consumes.
type Directory interface {
	// Lookup returns the user's enqueue-time snapshot.
	Lookup(ctx context.Context, id string) (UserInfo, error)

	// IsBlocked reports whether either user has blocked the other.
	IsBlocked(ctx context.Context, a, b string) (bool, error)

	// MatchesOn returns the user's committed match count for a calendar day.
	MatchesOn(ctx context.Context, id string, day time.Time) (int, error)

	// RecordMatch increments the user's match count for a calendar day.
	RecordMatch(ctx context.Context, id string, day time.Time) error

	// AddSparks credits the user's monthly spark counter.
	AddSparks(ctx context.Context, id string, n int64) (int64, error)
}

// Emitter pushes one outbound event toward a user. It reports whether the
// event was accepted for delivery.
type Emitter interface {
	Emit(ctx context.Context, userID, event string, payload interface{}) bool
}

// PartnerInfo is the counterpart data revealed on match:found.
type PartnerInfo struct {
	UserID   string `json:"userId"`
	Nickname string `json:"nickname"`
	Avatar   string `json:"avatar"`
}

// FoundPayload is the match:found event body.
type FoundPayload struct {
	MatchID       string      `json:"matchId"`
	Partner       PartnerInfo `json:"partner"`
	CommonAnswers int         `json:"commonAnswers"`
	RequiredCards int         `json:"requiredCommonCards"`
}

// DeliverPayload is the cards:deliver event body. Recorded carries the
// requester's own answers so a reconnecting client can restore its state.
type DeliverPayload struct {
	MatchID  string             `json:"matchId"`
	Cards    []model.Card       `json:"cards"`
	Recorded []model.CardAnswer `json:"recordedAnswers,omitempty"`
}

// UnlockedPayload is the chat:unlocked event body.
type UnlockedPayload struct {
	MatchID       string `json:"matchId"`
	ChatSessionID string `json:"chatSessionId"`
	CommonCards   int    `json:"commonCards"`
}

// EndedPayload is the match:ended event body.
type EndedPayload struct {
	MatchID string          `json:"matchId"`
	Reason  model.EndReason `json:"reason"`
}

// Stats is the engine's live counters surfaced on the stats endpoint.
type Stats struct {
	Waiting        int `json:"waitingUsers"`
	ActiveSessions int `json:"activeSessions"`
}

// Engine owns the waiting pool and the live sessions. Pairing is evaluated
// on every enqueue and on a periodic sweep; both paths commit through the
// same atomic removePair.
type Engine struct {
	dir       Directory
	emitter   Emitter
	deck      deck.Deck
	delivered delivery.Tracker
	log       logger.Logger
	clock     func() time.Time

	gateTimeout   time.Duration
	gracePeriod   time.Duration
	sweepInterval time.Duration
	dailyLimit    int
	unlockSparks  int64

	pool *pool

	mu       sync.Mutex
	sessions map[string]*Session
	byUser   map[string]*Session

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates an Engine with configuration options.
func New(dir Directory, emitter Emitter, d deck.Deck, opts ...Option) *Engine {
	e := &Engine{
		dir:           dir,
		emitter:       emitter,
		deck:          d,
		delivered:     delivery.NewInMemoryTracker(),
		log:           logger.Named("match"),
		clock:         time.Now,
		gateTimeout:   3 * time.Minute,
		gracePeriod:   30 * time.Second,
		sweepInterval: 2 * time.Second,
		dailyLimit:    20,
		unlockSparks:  25,
		pool:          newPool(),
		sessions:      make(map[string]*Session),
		byUser:        make(map[string]*Session),
		done:          make(chan struct{}),
	}

	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start launches the periodic pairing sweep.
func (e *Engine) Start(ctx context.Context) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		ticker := time.NewTicker(e.sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				e.sweep(ctx)
			case <-e.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop halts the sweep goroutine and waits for it.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.done) })
	e.wg.Wait()
}

// Enqueue validates the submission, snapshots the user's directory state
// and places the entry in the waiting pool, then immediately tries to pair.
func (e *Engine) Enqueue(ctx context.Context, userID string, answers []model.Answer, minCommon int) error {
	if err := validateSubmission(answers, minCommon); err != nil {
		metrics.RecordQueueRejection("invalid_submission")
		return err
	}

	info, err := e.dir.Lookup(ctx, userID)
	if err != nil {
		metrics.RecordQueueRejection("unknown_user")
		return err
	}
	if !info.Verified {
		metrics.RecordQueueRejection("unverified")
		return ErrUnverified
	}

	now := e.clock()
	if e.dailyLimit > 0 {
		n, err := e.dir.MatchesOn(ctx, userID, now)
		if err != nil {
			return err
		}
		if n >= e.dailyLimit {
			metrics.RecordQueueRejection("daily_limit")
			return ErrDailyLimit
		}
	}

	if _, ok := e.sessionOf(userID); ok {
		metrics.RecordQueueRejection("already_queued")
		return ErrAlreadyQueued
	}

	entry := &model.QueueEntry{
		UserID:         userID,
		Answers:        answers,
		MinCommon:      minCommon,
		Filters:        info.Filters,
		Profile:        info.Profile,
		BoostActive:    info.Boost.Active,
		BoostExpiresAt: info.Boost.ExpiresAt,
		EnqueuedAt:     now,
	}
	if err := e.pool.add(entry); err != nil {
		metrics.RecordQueueRejection("already_queued")
		return err
	}

	metrics.RecordQueueEnqueue()
	metrics.UpdateQueueWaiting(e.pool.len())
	e.emitter.Emit(ctx, userID, model.EventMatchSearching, map[string]any{"queuedAt": now})

	e.tryMatch(ctx, entry)
	return nil
}

// Dequeue removes the user from the waiting pool. It reports whether an
// entry was removed.
func (e *Engine) Dequeue(_ context.Context, userID string) bool {
	removed := e.pool.remove(userID)
	if removed {
		metrics.UpdateQueueWaiting(e.pool.len())
	}
	return removed
}

// RequestCards returns the match's card sequence with the caller's own
// recorded answers. Each (match, user) gets at most one accepted
// cards:deliver push; retries after a successful push return the payload
// only, while a rejected push leaves the slot open for the next retry.
func (e *Engine) RequestCards(ctx context.Context, userID, matchID string) (*DeliverPayload, error) {
	s, err := e.sessionFor(userID, matchID)
	if err != nil {
		return nil, err
	}

	payload := &DeliverPayload{
		MatchID:  matchID,
		Cards:    s.Cards(),
		Recorded: s.answersOf(userID),
	}

	key := deliveryKey(matchID, userID)
	if !e.delivered.SeenAndRecord(ctx, key) {
		if e.emitter.Emit(ctx, userID, model.EventCardsDeliver, payload) {
			metrics.RecordCardDelivery()
		} else {
			// The push never left the building; the next request must
			// be allowed to deliver.
			e.delivered.Forget(ctx, key)
		}
	}
	return payload, nil
}

// SubmitAnswer records one card answer. Resubmission for the same card
// overwrites. When both users complete the sequence the gate resolves.
func (e *Engine) SubmitAnswer(ctx context.Context, ans model.CardAnswer) error {
	s, err := e.sessionFor(ans.UserID, ans.MatchID)
	if err != nil {
		return err
	}

	if ans.AnsweredAt.IsZero() {
		ans.AnsweredAt = e.clock()
	}
	complete, err := s.recordAnswer(ans)
	if err != nil {
		return err
	}
	metrics.RecordCardAnswer()

	if complete {
		e.resolveGate(ctx, s)
	}
	return nil
}

// Leave ends the session on behalf of userID. An empty matchID resolves
// to whatever session the user is in. The leaver asked for the end and
// gets no broadcast; the partner is told the peer left.
func (e *Engine) Leave(ctx context.Context, userID, matchID string) error {
	var s *Session
	if matchID == "" {
		live, ok := e.sessionOf(userID)
		if !ok {
			return ErrSessionNotFound
		}
		s = live
	} else {
		found, err := e.sessionFor(userID, matchID)
		if err != nil {
			return err
		}
		s = found
	}
	e.endSession(ctx, s, model.EndPeerLeft, userID)
	return nil
}

// Disconnect handles a dropped connection. A waiting user is removed from
// the pool. A user in a live session gets a grace timer; if they do not
// reconnect in time the session ends with peer_disconnected.
func (e *Engine) Disconnect(ctx context.Context, userID string) {
	if e.pool.remove(userID) {
		metrics.UpdateQueueWaiting(e.pool.len())
	}

	s, ok := e.sessionOf(userID)
	if !ok {
		return
	}

	// Re-arm the card push so a reconnecting client gets its state back.
	e.delivered.Forget(ctx, deliveryKey(s.ID(), userID))

	id := s.ID()
	s.setGraceTimer(userID, time.AfterFunc(e.gracePeriod, func() {
		e.expireGrace(context.Background(), id, userID)
	}))
}

// Reconnect cancels the user's grace timer and, during the card gate,
// replays the cards:deliver push. It reports whether a live session exists.
func (e *Engine) Reconnect(ctx context.Context, userID string) bool {
	s, ok := e.sessionOf(userID)
	if !ok {
		return false
	}

	s.clearGraceTimer(userID)
	if s.State() == model.StateCardGate {
		if _, err := e.RequestCards(ctx, userID, s.ID()); err != nil {
			e.log.Warn(ctx, "card replay failed",
				logger.String("match_id", s.ID()),
				logger.String("user_id", userID),
				logger.Error(err),
			)
		}
	}
	return true
}

// Session returns the user's live session, if any.
func (e *Engine) Session(userID string) (*Session, bool) {
	return e.sessionOf(userID)
}

// GetStats returns the engine's live counters.
func (e *Engine) GetStats() Stats {
	e.mu.Lock()
	active := len(e.sessions)
	e.mu.Unlock()
	return Stats{Waiting: e.pool.len(), ActiveSessions: active}
}

// tryMatch scans the pool for the seeker's best counterpart and commits
// the pair if one passes the predicate. Boosted candidates outrank plain
// ones; within a tier the highest common-answer count wins, ties going to
// the earlier arrival.
func (e *Engine) tryMatch(ctx context.Context, seeker *model.QueueEntry) {
	start := e.clock()

	var (
		bestBoosted, bestPlain     *model.QueueEntry
		boostedCommon, plainCommon int
	)
	for _, cand := range pairing.ScanOrder(e.pool.snapshot(), start) {
		if cand.UserID == seeker.UserID {
			continue
		}
		common, ok := pairing.Compatible(seeker, cand)
		if !ok {
			continue
		}
		if blocked, err := e.dir.IsBlocked(ctx, seeker.UserID, cand.UserID); err != nil || blocked {
			continue
		}
		if cand.Boosted(start) {
			if bestBoosted == nil || pairing.Better(common, cand, boostedCommon, bestBoosted) {
				bestBoosted, boostedCommon = cand, common
			}
		} else if bestPlain == nil || pairing.Better(common, cand, plainCommon, bestPlain) {
			bestPlain, plainCommon = cand, common
		}
	}

	best, bestCommon := bestBoosted, boostedCommon
	if best == nil {
		best, bestCommon = bestPlain, plainCommon
	}

	metrics.RecordPairingScanLatency(float64(e.clock().Sub(start).Milliseconds()))
	if best == nil {
		return
	}
	e.commit(ctx, seeker, best, bestCommon)
}

// sweep re-evaluates the whole pool, boosted entries first. Entries paired
// earlier in the pass are gone from the pool and skipped naturally.
func (e *Engine) sweep(ctx context.Context) {
	now := e.clock()
	for _, entry := range pairing.ScanOrder(e.pool.snapshot(), now) {
		if !e.pool.contains(entry.UserID) {
			continue
		}
		e.tryMatch(ctx, entry)
	}
}

// commit atomically takes both entries out of the pool, creates the
// session and notifies both users. A lost race on removePair means another
// commit already claimed one side; this pairing is simply abandoned.
func (e *Engine) commit(ctx context.Context, a, b *model.QueueEntry, common int) {
	if !e.pool.removePair(a.UserID, b.UserID) {
		return
	}

	now := e.clock()
	matchID := uuid.NewString()
	required := a.MinCommon
	if b.MinCommon > required {
		required = b.MinCommon
	}

	s := newSession(matchID, a, b, required, e.deck.Sequence(matchID), now)

	e.mu.Lock()
	e.sessions[matchID] = s
	e.byUser[a.UserID] = s
	e.byUser[b.UserID] = s
	active := len(e.sessions)
	e.mu.Unlock()

	for _, id := range []string{a.UserID, b.UserID} {
		if err := e.dir.RecordMatch(ctx, id, now); err != nil {
			e.log.Warn(ctx, "daily match count not recorded",
				logger.String("user_id", id), logger.Error(err))
		}
	}

	s.setGateTimer(time.AfterFunc(e.gateTimeout, func() {
		e.expireGate(context.Background(), matchID)
	}))

	metrics.RecordPairing()
	metrics.UpdateActiveSessions(active)
	metrics.UpdateQueueWaiting(e.pool.len())

	e.log.Info(ctx, "pair committed",
		logger.String("match_id", matchID),
		logger.String("user_a", a.UserID),
		logger.String("user_b", b.UserID),
		logger.Int("common_answers", common),
	)

	e.emitter.Emit(ctx, a.UserID, model.EventMatchFound, &FoundPayload{
		MatchID:       matchID,
		Partner:       PartnerInfo{UserID: b.UserID, Nickname: b.Profile.Nickname, Avatar: b.Profile.Avatar},
		CommonAnswers: common,
		RequiredCards: required,
	})
	e.emitter.Emit(ctx, b.UserID, model.EventMatchFound, &FoundPayload{
		MatchID:       matchID,
		Partner:       PartnerInfo{UserID: a.UserID, Nickname: a.Profile.Nickname, Avatar: a.Profile.Avatar},
		CommonAnswers: common,
		RequiredCards: required,
	})
}

// resolveGate decides the gate once both sequences are complete: enough
// common cards unlocks the chat, otherwise the session ends.
func (e *Engine) resolveGate(ctx context.Context, s *Session) {
	common := s.overlap()
	if common < s.required {
		e.endSession(ctx, s, model.EndInsufficientOverlap)
		return
	}

	chatID, err := gonanoid.New()
	if err != nil {
		chatID = uuid.NewString()
	}
	if !s.unlock(chatID) {
		return
	}

	userA, userB := s.Users()
	for _, id := range []string{userA, userB} {
		if _, err := e.dir.AddSparks(ctx, id, e.unlockSparks); err != nil {
			e.log.Warn(ctx, "unlock sparks not credited",
				logger.String("user_id", id), logger.Error(err))
		}
	}

	metrics.RecordUnlock()
	e.log.Info(ctx, "chat unlocked",
		logger.String("match_id", s.ID()),
		logger.Int("common_cards", common),
	)

	payload := &UnlockedPayload{MatchID: s.ID(), ChatSessionID: chatID, CommonCards: common}
	e.emitter.Emit(ctx, userA, model.EventChatUnlocked, payload)
	e.emitter.Emit(ctx, userB, model.EventChatUnlocked, payload)
}

// endSession performs the one-shot transition to ENDED and broadcasts
// match:ended to every participant not listed in exclude.
func (e *Engine) endSession(ctx context.Context, s *Session, reason model.EndReason, exclude ...string) {
	now := e.clock()
	if !s.end(reason, now) {
		return
	}

	userA, userB := s.Users()

	e.mu.Lock()
	delete(e.sessions, s.ID())
	if e.byUser[userA] == s {
		delete(e.byUser, userA)
	}
	if e.byUser[userB] == s {
		delete(e.byUser, userB)
	}
	active := len(e.sessions)
	e.mu.Unlock()

	e.delivered.Forget(ctx, deliveryKey(s.ID(), userA))
	e.delivered.Forget(ctx, deliveryKey(s.ID(), userB))

	metrics.RecordSessionEnd(string(reason))
	metrics.UpdateActiveSessions(active)

	e.log.Info(ctx, "session ended",
		logger.String("match_id", s.ID()),
		logger.String("reason", string(reason)),
	)

	payload := &EndedPayload{MatchID: s.ID(), Reason: reason}
	for _, id := range []string{userA, userB} {
		if excluded(id, exclude) {
			continue
		}
		e.emitter.Emit(ctx, id, model.EventMatchEnded, payload)
	}
}

func (e *Engine) expireGate(ctx context.Context, matchID string) {
	e.mu.Lock()
	s, ok := e.sessions[matchID]
	e.mu.Unlock()
	if !ok {
		return
	}
	if s.State() != model.StateCardGate {
		return
	}
	e.endSession(ctx, s, model.EndTimeout)
}

func (e *Engine) expireGrace(ctx context.Context, matchID, userID string) {
	e.mu.Lock()
	s, ok := e.sessions[matchID]
	e.mu.Unlock()
	if !ok {
		return
	}
	// The departed user is offline; only the partner hears about it.
	e.endSession(ctx, s, model.EndPeerDisconnected, userID)
}

func (e *Engine) sessionOf(userID string) (*Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.byUser[userID]
	return s, ok
}

func (e *Engine) sessionFor(userID, matchID string) (*Session, error) {
	e.mu.Lock()
	s, ok := e.sessions[matchID]
	e.mu.Unlock()
	if !ok || !s.isParticipant(userID) {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func validateSubmission(answers []model.Answer, minCommon int) error {
	if len(answers) != model.AnswerCount {
		return ErrInvalidSubmission
	}
	if minCommon < 1 || minCommon > model.AnswerCount {
		return ErrInvalidSubmission
	}
	seen := make(map[string]struct{}, len(answers))
	for _, a := range answers {
		if a.QuestionID == "" || a.OptionID == "" {
			return ErrInvalidSubmission
		}
		if _, ok := seen[a.QuestionID]; ok {
			return ErrInvalidSubmission
		}
		seen[a.QuestionID] = struct{}{}
	}
	return nil
}

func deliveryKey(matchID, userID string) string {
	return matchID + "/" + userID
}

func excluded(id string, exclude []string) bool {
	for _, x := range exclude {
		if x == id {
			return true
		}
	}
	return false
}
