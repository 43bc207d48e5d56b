package deck

import "github.com/emberlink/ember/internal/domain/model"

// Option applies a configuration option to the deck.
type Option func(*staticDeck)

// WithCards replaces the built-in card pool.
func WithCards(cards []model.Card) Option {
	return func(d *staticDeck) {
		if len(cards) > 0 {
			d.pool = cards
		}
	}
}
