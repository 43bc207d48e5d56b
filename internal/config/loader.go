package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if EMBER_CONFIG is set
//  3. env (prefix EMBER_)
func Load(ctx context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("EMBER_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: EMBER_ADDR, EMBER_NOTICE_QUEUE_SIZE, ...
	// Map env keys like EMBER_NOTICE_QUEUE_SIZE -> notice_queue_size.
	// Underscores are preserved to match the koanf tags on the struct.
	envProvider := env.Provider("EMBER_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "ember_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.NoticeQueueSize < 1:
		return fmt.Errorf("%w: notice_queue_size must be positive", ErrInvalidConfig)
	case c.DeliveryWorkers < 1:
		return fmt.Errorf("%w: delivery_workers must be positive", ErrInvalidConfig)
	case c.CardGateTimeoutSec < 1:
		return fmt.Errorf("%w: card_gate_timeout_sec must be positive", ErrInvalidConfig)
	case c.GracePeriodSec < 1:
		return fmt.Errorf("%w: grace_period_sec must be positive", ErrInvalidConfig)
	case c.LeaderboardTopN < 1:
		return fmt.Errorf("%w: leaderboard_top_n must be positive", ErrInvalidConfig)
	case c.DailyMatchLimit < 0:
		return fmt.Errorf("%w: daily_match_limit must not be negative", ErrInvalidConfig)
	}
	return nil
}
