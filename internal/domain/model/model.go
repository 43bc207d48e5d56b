// Package model contains domain models passed between layers.
package model

import "time"

// AnswerCount is the fixed size of the icebreaker submission and of the
// card sequence dealt to a match.
const AnswerCount = 5

// Answer is one submitted icebreaker answer.
type Answer struct {
	QuestionID string `json:"questionId"`
	OptionID   string `json:"optionId"`
}

// FilterSnapshot captures a user's matching filters at enqueue time.
type FilterSnapshot struct {
	MinAge        int    `json:"minAge"`
	MaxAge        int    `json:"maxAge"`
	MaxDistanceKM int    `json:"maxDistanceKm"`
	Gender        string `json:"gender"` // accepted counterpart gender; "any" accepts all
}

// ProfileSnapshot captures the attributes of the user themselves that the
// counterpart's filters are evaluated against.
type ProfileSnapshot struct {
	Age      int     `json:"age"`
	Gender   string  `json:"gender"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Nickname string  `json:"nickname"`
	Avatar   string  `json:"avatar"`
}

// QueueEntry is one user waiting in the matching pool.
// Exactly one live entry may exist per user.
type QueueEntry struct {
	UserID         string
	Answers        []Answer
	MinCommon      int // required identical answers, 1..AnswerCount
	Filters        FilterSnapshot
	Profile        ProfileSnapshot
	BoostActive    bool
	BoostExpiresAt time.Time
	EnqueuedAt     time.Time
}

// Boosted reports whether the entry still holds priority at the given time.
// The hourly sweep is corrective only; ordering decisions check expiry directly.
func (e *QueueEntry) Boosted(now time.Time) bool {
	return e.BoostActive && now.Before(e.BoostExpiresAt)
}

// SessionState is the lifecycle state of a match session.
type SessionState string

const (
	StateCardGate     SessionState = "CARD_GATE"
	StateChatUnlocked SessionState = "CHAT_UNLOCKED"
	StateEnded        SessionState = "ENDED"
)

// EndReason explains a transition to StateEnded.
type EndReason string

const (
	EndPeerDisconnected    EndReason = "peer_disconnected"
	EndPeerLeft            EndReason = "peer_left"
	EndTimeout             EndReason = "timeout"
	EndInsufficientOverlap EndReason = "insufficient_overlap"
)

// Card is one icebreaker card dealt during the card gate.
type Card struct {
	ID       string   `json:"id"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// CardAnswer is one user's selection for one card of a match.
// At most one answer exists per (match, user, card); resubmission overwrites.
type CardAnswer struct {
	MatchID     string    `json:"matchId"`
	UserID      string    `json:"userId"`
	CardID      string    `json:"cardId"`
	OptionIndex int       `json:"selectedOptionIndex"`
	AnsweredAt  time.Time `json:"answeredAt"`
}

// BoostState is the per-user priority flag.
type BoostState struct {
	Active      bool      `json:"isActive"`
	ActivatedAt time.Time `json:"activatedAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
	TotalUsed   int       `json:"totalBoostsUsed"`
}

// RemainingSeconds derives the seconds of priority left at the given time.
func (b *BoostState) RemainingSeconds(now time.Time) int64 {
	if !b.Active || !now.Before(b.ExpiresAt) {
		return 0
	}
	return int64(b.ExpiresAt.Sub(now).Seconds())
}

// LeaderboardEntry is one user's archived standing for a settled month.
type LeaderboardEntry struct {
	UserID         string    `json:"userId"`
	Year           int       `json:"year"`
	Month          int       `json:"month"`
	Sparks         int64     `json:"sparkCount"`
	Rank           int       `json:"rank"`
	HasEventAccess bool      `json:"hasEventAccess"`
	SettledAt      time.Time `json:"settledAt"`
}

// RewardClaim records a top-ranked user claiming their monthly reward.
type RewardClaim struct {
	UserID      string    `json:"userId"`
	Year        int       `json:"year"`
	Month       int       `json:"month"`
	Rank        int       `json:"rank"`
	Amount      float64   `json:"rewardAmount"`
	ContactInfo string    `json:"contactInfo"`
	CreatedAt   time.Time `json:"createdAt"`
}

// RewardEligibility is the derived claim status for the most recent
// settled month. It is not persisted until a claim is created.
type RewardEligibility struct {
	Eligible bool    `json:"eligible"`
	Rank     int     `json:"rank"`
	Amount   float64 `json:"rewardAmount"`
	Claimed  bool    `json:"alreadyClaimed"`
}

// ServiceStats aggregates live counters surfaced on the stats endpoint.
type ServiceStats struct {
	WaitingUsers   int `json:"waitingUsers"`
	ActiveSessions int `json:"activeSessions"`
	Connections    int `json:"connections"`
	ActiveBoosts   int `json:"activeBoosts"`
	QueuedNotices  int `json:"queuedNotices"`
	Users          int `json:"users"`
}

// Notice is one outbound event addressed to a user. Notices flow through
// the bounded delivery queue before reaching a connection or the notifier.
type Notice struct {
	UserID     string
	Event      string
	Payload    interface{}
	EnqueuedAt time.Time
}
