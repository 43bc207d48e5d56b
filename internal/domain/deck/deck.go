// Package deck holds the static icebreaker card pool and deals the
// per-match card sequence.
//
// The sequence is a pure function of the match id: however many times a
// client retries cards:request, the same match always yields the same
// five cards in the same order.
package deck

import (
	"hash/fnv"
	"math/rand"

	"github.com/emberlink/ember/internal/domain/model"
)

// Deck deals deterministic card sequences out of a fixed pool.
type Deck interface {
	// Sequence returns the five-card sequence for a match.
	Sequence(matchID string) []model.Card

	// Size returns the number of cards in the pool.
	Size() int
}

// staticDeck implements Deck over an in-memory card pool.
type staticDeck struct {
	pool []model.Card
}

// New creates a Deck with configuration options. Without options the
// built-in pool is used.
func New(opts ...Option) (Deck, error) {
	d := &staticDeck{pool: defaultPool()}

	for _, opt := range opts {
		opt(d)
	}

	if len(d.pool) < model.AnswerCount {
		return nil, ErrPoolTooSmall
	}
	return d, nil
}

// Sequence deals the match's cards by shuffling pool indexes with a seed
// derived from the match id.
func (d *staticDeck) Sequence(matchID string) []model.Card {
	rng := rand.New(rand.NewSource(seed(matchID)))
	idx := rng.Perm(len(d.pool))

	cards := make([]model.Card, model.AnswerCount)
	for i := 0; i < model.AnswerCount; i++ {
		cards[i] = d.pool[idx[i]]
	}
	return cards
}

func (d *staticDeck) Size() int {
	return len(d.pool)
}

func seed(matchID string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(matchID))
	return int64(h.Sum64())
}
