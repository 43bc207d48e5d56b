package match

import (
	"sync"
	"time"

	"github.com/emberlink/ember/internal/domain/model"
)

// Session is one committed pairing. All state mutations go through the
// session's own lock; the engine never holds its pool lock while taking a
// session lock.
type Session struct {
	mu sync.Mutex

	id       string
	userA    string
	userB    string
	required int // common answers needed to unlock, negotiated at pairing

	cards   []model.Card
	cardIDs map[string]struct{}
	answers map[string]map[string]model.CardAnswer // user -> card -> answer

	state     model.SessionState
	createdAt time.Time
	endedAt   time.Time
	endReason model.EndReason
	chatID    string

	gateTimer   *time.Timer
	graceTimers map[string]*time.Timer
}

func newSession(id string, a, b *model.QueueEntry, required int, cards []model.Card, now time.Time) *Session {
	ids := make(map[string]struct{}, len(cards))
	for _, c := range cards {
		ids[c.ID] = struct{}{}
	}
	return &Session{
		id:          id,
		userA:       a.UserID,
		userB:       b.UserID,
		required:    required,
		cards:       cards,
		cardIDs:     ids,
		answers:     make(map[string]map[string]model.CardAnswer),
		state:       model.StateCardGate,
		createdAt:   now,
		graceTimers: make(map[string]*time.Timer),
	}
}

// ID returns the match id.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() model.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// EndReason returns the terminal reason, empty while the session lives.
func (s *Session) EndReason() model.EndReason {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endReason
}

// ChatID returns the chat session id issued on unlock.
func (s *Session) ChatID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chatID
}

// Users returns both participant ids.
func (s *Session) Users() (string, string) { return s.userA, s.userB }

// Cards returns the dealt card sequence.
func (s *Session) Cards() []model.Card { return s.cards }

func (s *Session) partnerOf(userID string) (string, bool) {
	switch userID {
	case s.userA:
		return s.userB, true
	case s.userB:
		return s.userA, true
	default:
		return "", false
	}
}

func (s *Session) isParticipant(userID string) bool {
	_, ok := s.partnerOf(userID)
	return ok
}

// recordAnswer stores (or overwrites) a user's answer. It reports whether
// both participants have completed the full sequence afterwards.
func (s *Session) recordAnswer(ans model.CardAnswer) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != model.StateCardGate {
		return false, ErrSessionNotFound
	}
	if _, ok := s.cardIDs[ans.CardID]; !ok {
		return false, ErrInvalidCard
	}

	if s.answers[ans.UserID] == nil {
		s.answers[ans.UserID] = make(map[string]model.CardAnswer)
	}
	s.answers[ans.UserID][ans.CardID] = ans

	complete := len(s.answers[s.userA]) == len(s.cards) &&
		len(s.answers[s.userB]) == len(s.cards)
	return complete, nil
}

// answersOf copies a user's recorded answers in card order.
func (s *Session) answersOf(userID string) []model.CardAnswer {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.CardAnswer, 0, len(s.answers[userID]))
	for _, c := range s.cards {
		if a, ok := s.answers[userID][c.ID]; ok {
			out = append(out, a)
		}
	}
	return out
}

// overlap counts cards where both users picked the same option.
func (s *Session) overlap() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	common := 0
	for _, c := range s.cards {
		a, okA := s.answers[s.userA][c.ID]
		b, okB := s.answers[s.userB][c.ID]
		if okA && okB && a.OptionIndex == b.OptionIndex {
			common++
		}
	}
	return common
}

// unlock transitions CARD_GATE -> CHAT_UNLOCKED. Returns false if the
// session is not in the card gate.
func (s *Session) unlock(chatID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != model.StateCardGate {
		return false
	}
	s.state = model.StateChatUnlocked
	s.chatID = chatID
	s.stopGateTimerLocked()
	return true
}

// end transitions to ENDED. Returns false if the session already ended,
// so termination side effects fire exactly once.
func (s *Session) end(reason model.EndReason, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == model.StateEnded {
		return false
	}
	s.state = model.StateEnded
	s.endReason = reason
	s.endedAt = now
	s.stopGateTimerLocked()
	for user, t := range s.graceTimers {
		t.Stop()
		delete(s.graceTimers, user)
	}
	return true
}

func (s *Session) setGateTimer(t *time.Timer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gateTimer = t
}

func (s *Session) stopGateTimerLocked() {
	if s.gateTimer != nil {
		s.gateTimer.Stop()
		s.gateTimer = nil
	}
}

// setGraceTimer arms the disconnect grace timer for one user, replacing
// any previous one.
func (s *Session) setGraceTimer(userID string, t *time.Timer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.graceTimers[userID]; ok {
		old.Stop()
	}
	s.graceTimers[userID] = t
}

// clearGraceTimer cancels the user's grace timer on reconnect. It reports
// whether a timer was pending.
func (s *Session) clearGraceTimer(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.graceTimers[userID]
	if !ok {
		return false
	}
	t.Stop()
	delete(s.graceTimers, userID)
	return true
}
