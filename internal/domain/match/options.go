package match

import (
	"time"

	"github.com/emberlink/ember/internal/domain/delivery"
	"github.com/emberlink/ember/pkg/logger"
)

// Option configures the Engine.
type Option func(*Engine)

// WithGateTimeout sets how long a card gate may stay open.
func WithGateTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.gateTimeout = d
		}
	}
}

// WithGracePeriod sets the reconnect window after a disconnect.
func WithGracePeriod(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.gracePeriod = d
		}
	}
}

// WithSweepInterval sets the cadence of the periodic pairing sweep.
func WithSweepInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.sweepInterval = d
		}
	}
}

// WithDailyLimit caps committed matches per user per calendar day.
// Zero disables the cap.
func WithDailyLimit(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.dailyLimit = n
		}
	}
}

// WithUnlockSparks sets the sparks credited to each user on chat unlock.
func WithUnlockSparks(n int64) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.unlockSparks = n
		}
	}
}

// WithDeliveryTracker replaces the once-only card push tracker.
func WithDeliveryTracker(t delivery.Tracker) Option {
	return func(e *Engine) {
		if t != nil {
			e.delivered = t
		}
	}
}

// WithClock replaces the time source.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithLogger replaces the engine's logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}
