package boost

import (
	"time"

	"github.com/emberlink/ember/pkg/logger"
)

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithDuration sets the duration added per activation.
func WithDuration(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.duration = d
		}
	}
}

// WithSweepInterval sets the corrective sweep cadence.
func WithSweepInterval(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.sweepInterval = d
		}
	}
}

// WithProductID sets the accepted purchase product.
func WithProductID(id string) Option {
	return func(m *Manager) {
		if id != "" {
			m.productID = id
		}
	}
}

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithLogger sets a custom logger for the manager.
func WithLogger(l logger.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}
