package service

import (
	"time"

	workerpool "github.com/emberlink/ember/internal/adapters/mq/worker"
	"github.com/emberlink/ember/internal/config"
	"github.com/emberlink/ember/internal/domain/boost"
	"github.com/emberlink/ember/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithConfig maps loaded configuration onto the service.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg == nil {
			return
		}
		s.workerCount = cfg.DeliveryWorkers
		s.queueSize = cfg.NoticeQueueSize
		s.gateTimeout = time.Duration(cfg.CardGateTimeoutSec) * time.Second
		s.gracePeriod = time.Duration(cfg.GracePeriodSec) * time.Second
		s.sweepInterval = time.Duration(cfg.PairSweepIntervalSec) * time.Second
		s.dailyLimit = cfg.DailyMatchLimit
		s.boostDuration = time.Duration(cfg.BoostDurationMin) * time.Minute
		s.boostSweep = time.Duration(cfg.BoostSweepIntervalMin) * time.Minute
		s.topN = cfg.LeaderboardTopN
		s.minSparks = cfg.EventAccessMinSparks
		if cfg.EventAccessDurationDays > 0 {
			s.accessFor = time.Duration(cfg.EventAccessDurationDays) * 24 * time.Hour
		}
		s.settleCheck = time.Duration(cfg.SettlementCheckIntervalMin) * time.Minute
		s.maxLimit = cfg.MaxLeaderboardLimit
		if len(cfg.RewardAmounts) > 0 {
			s.rewards = cfg.RewardAmounts
		}
	}
}

// WithWorkerCount sets the number of delivery workers.
func WithWorkerCount(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workerCount = n
		}
	}
}

// WithQueueSize bounds the notice queue.
func WithQueueSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.queueSize = n
		}
	}
}

// WithGateTimeout caps how long a card gate may stay open.
func WithGateTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.gateTimeout = d
		}
	}
}

// WithGracePeriod sets the reconnect window after a disconnect.
func WithGracePeriod(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.gracePeriod = d
		}
	}
}

// WithSweepInterval sets the pairing sweep cadence.
func WithSweepInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.sweepInterval = d
		}
	}
}

// WithDailyLimit caps matches per user per day; zero disables the cap.
func WithDailyLimit(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.dailyLimit = n
		}
	}
}

// WithVerifier replaces the purchase verifier with the real payment
// collaborator.
func WithVerifier(v boost.Verifier) Option {
	return func(s *Service) {
		if v != nil {
			s.verifier = v
		}
	}
}

// WithNotifier replaces the offline push dispatcher.
func WithNotifier(n workerpool.Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
