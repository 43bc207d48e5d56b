// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Defaults live in New; Load layers an optional YAML file and env vars on top.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"runtime"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// NoticeQueueSize bounds the outbound notice queue.
	NoticeQueueSize int `koanf:"notice_queue_size"`

	// DeliveryWorkers sets the number of notice delivery workers.
	DeliveryWorkers int `koanf:"delivery_workers"`

	// CardGateTimeoutSec caps how long a session may stay in the card gate.
	CardGateTimeoutSec int `koanf:"card_gate_timeout_sec"`

	// GracePeriodSec is the reconnect window after a peer drops.
	GracePeriodSec int `koanf:"grace_period_sec"`

	// PairSweepIntervalSec schedules periodic pool re-evaluation.
	PairSweepIntervalSec int `koanf:"pair_sweep_interval_sec"`

	// BoostDurationMin is the duration added per boost activation.
	BoostDurationMin int `koanf:"boost_duration_min"`

	// BoostSweepIntervalMin schedules the corrective boost expiry sweep.
	BoostSweepIntervalMin int `koanf:"boost_sweep_interval_min"`

	// DailyMatchLimit caps matches per user per day; 0 disables the limit.
	DailyMatchLimit int `koanf:"daily_match_limit"`

	// LeaderboardTopN is the ranked slice size of the monthly settlement.
	LeaderboardTopN int `koanf:"leaderboard_top_n"`

	// EventAccessMinSparks qualifies non-top-N users for event access.
	EventAccessMinSparks int64 `koanf:"event_access_min_sparks"`

	// EventAccessDurationDays is how long granted event access lasts.
	EventAccessDurationDays int `koanf:"event_access_duration_days"`

	// SettlementCheckIntervalMin schedules the month-boundary check.
	SettlementCheckIntervalMin int `koanf:"settlement_check_interval_min"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// RewardAmounts maps rank (index+1) to the cash reward for that rank.
	RewardAmounts []float64 `koanf:"reward_amounts"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:                   "info",
		Addr:                       ":9080",
		NoticeQueueSize:            50_000,
		DeliveryWorkers:            runtime.NumCPU() * 4,
		CardGateTimeoutSec:         180,
		GracePeriodSec:             30,
		PairSweepIntervalSec:       5,
		BoostDurationMin:           60,
		BoostSweepIntervalMin:      60,
		DailyMatchLimit:            0,
		LeaderboardTopN:            100,
		EventAccessMinSparks:       10_000,
		EventAccessDurationDays:    31,
		SettlementCheckIntervalMin: 60,
		MaxLeaderboardLimit:        100,
		RewardAmounts:              []float64{1000, 500, 250},
	}
}
