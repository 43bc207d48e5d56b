package settlement

import (
	"time"

	"github.com/emberlink/ember/pkg/logger"
)

// Option configures the settlement Job.
type Option func(*Job)

// WithTopN sets the ranked slice size.
func WithTopN(n int) Option {
	return func(j *Job) {
		if n > 0 {
			j.topN = n
		}
	}
}

// WithMinSparks sets the event-access threshold for users outside the
// top slice.
func WithMinSparks(n int64) Option {
	return func(j *Job) {
		if n > 0 {
			j.minSparks = n
		}
	}
}

// WithAccessDuration sets how long granted event access lasts.
func WithAccessDuration(d time.Duration) Option {
	return func(j *Job) {
		if d > 0 {
			j.accessFor = d
		}
	}
}

// WithRewards replaces the rank-keyed reward table. Index i holds the
// amount for rank i+1.
func WithRewards(amounts []float64) Option {
	return func(j *Job) {
		if len(amounts) > 0 {
			j.rewards = amounts
		}
	}
}

// WithCheckInterval sets the cadence of the month-boundary check.
func WithCheckInterval(d time.Duration) Option {
	return func(j *Job) {
		if d > 0 {
			j.checkInterval = d
		}
	}
}

// WithClock replaces the time source.
func WithClock(clock func() time.Time) Option {
	return func(j *Job) {
		if clock != nil {
			j.clock = clock
		}
	}
}

// WithLogger replaces the job's logger.
func WithLogger(l logger.Logger) Option {
	return func(j *Job) {
		if l != nil {
			j.log = l
		}
	}
}
