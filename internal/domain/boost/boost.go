// Package boost manages the time-limited pairing priority flag: purchase
// verification, stacking activation, and the corrective expiry sweep.
package boost

import (
	"context"
	"fmt"
	"time"

	"github.com/emberlink/ember/internal/domain/model"
	"github.com/emberlink/ember/pkg/logger"
	"github.com/emberlink/ember/pkg/metrics"
)

// Default lifecycle constants.
const (
	defaultDuration      = time.Hour
	defaultSweepInterval = time.Hour
	defaultProductID     = "boost_1h"
)

// Purchase is the verifier's verdict for a purchase token.
type Purchase struct {
	Valid     bool
	ProductID string
}

// Verifier validates purchase tokens against the payment collaborator.
type Verifier interface {
	VerifyPurchase(ctx context.Context, token string) (Purchase, error)
}

// Store is the slice of the user directory the manager needs.
type Store interface {
	MutateBoost(ctx context.Context, id string, fn func(b *model.BoostState)) (model.BoostState, error)
	SweepBoosts(ctx context.Context, now time.Time) (int, error)
	ActiveBoosts(ctx context.Context, now time.Time) int
}

// Manager owns boost activation and expiry.
type Manager struct {
	store    Store
	verifier Verifier

	duration      time.Duration
	sweepInterval time.Duration
	productID     string
	now           func() time.Time

	stopCh chan struct{}

	logger logger.Logger
}

// New creates a Manager with configuration options.
func New(store Store, verifier Verifier, opts ...Option) *Manager {
	m := &Manager{
		store:         store,
		verifier:      verifier,
		duration:      defaultDuration,
		sweepInterval: defaultSweepInterval,
		productID:     defaultProductID,
		now:           time.Now,
		stopCh:        make(chan struct{}),
		logger:        logger.Get().Named("boost"),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Activate verifies the purchase token and turns the user's boost on.
// A fresh activation runs for the configured duration from now; activating
// while a boost is live extends the current expiry instead (stacking).
func (m *Manager) Activate(ctx context.Context, userID, token string) (model.BoostState, error) {
	p, err := m.verifier.VerifyPurchase(ctx, token)
	if err != nil {
		return model.BoostState{}, fmt.Errorf("verify purchase: %w", err)
	}
	if !p.Valid || p.ProductID != m.productID {
		return model.BoostState{}, ErrPurchaseInvalid
	}

	now := m.now()
	state, err := m.store.MutateBoost(ctx, userID, func(b *model.BoostState) {
		if b.Active && now.Before(b.ExpiresAt) {
			b.ExpiresAt = b.ExpiresAt.Add(m.duration)
		} else {
			b.Active = true
			b.ActivatedAt = now
			b.ExpiresAt = now.Add(m.duration)
		}
		b.TotalUsed++
	})
	if err != nil {
		return model.BoostState{}, err
	}

	metrics.RecordBoostActivation()
	metrics.UpdateActiveBoosts(m.store.ActiveBoosts(ctx, now))
	m.logger.Info(ctx, "boost activated",
		logger.String("userId", userID),
		logger.Time("expiresAt", state.ExpiresAt),
		logger.Int("totalUsed", state.TotalUsed),
	)
	return state, nil
}

// State returns the user's boost state with derived remaining seconds.
func (m *Manager) State(ctx context.Context, userID string) (model.BoostState, int64, error) {
	state, err := m.store.MutateBoost(ctx, userID, func(*model.BoostState) {})
	if err != nil {
		return model.BoostState{}, 0, err
	}
	return state, state.RemainingSeconds(m.now()), nil
}

// Sweep clears expired boost flags. The pairing engine checks expiry
// directly; the sweep only keeps stored state tidy.
func (m *Manager) Sweep(ctx context.Context) (int, error) {
	now := m.now()
	cleared, err := m.store.SweepBoosts(ctx, now)
	if err != nil {
		return 0, err
	}
	for i := 0; i < cleared; i++ {
		metrics.RecordBoostExpiry()
	}
	metrics.UpdateActiveBoosts(m.store.ActiveBoosts(ctx, now))
	if cleared > 0 {
		m.logger.Info(ctx, "boost sweep cleared expired flags", logger.Int("cleared", cleared))
	}
	return cleared, nil
}

// Start runs the periodic sweep until ctx is canceled or Stop is called.
func (m *Manager) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(m.sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-m.stopCh:
				return
			case <-ticker.C:
				if _, err := m.Sweep(ctx); err != nil {
					m.logger.Error(ctx, "boost sweep failed", logger.Error(err))
				}
			}
		}
	}()
}

// Stop halts the periodic sweep.
func (m *Manager) Stop() {
	select {
	case <-m.stopCh:
	default:
		close(m.stopCh)
	}
}
