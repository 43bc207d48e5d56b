package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/emberlink/ember/internal/config"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDefaults(t *testing.T) {
	Convey("Given a default config", t, func() {
		cfg := config.New()

		Convey("Then it should carry sensible defaults", func() {
			So(cfg.Addr, ShouldEqual, ":9080")
			So(cfg.LogLevel, ShouldEqual, "info")
			So(cfg.CardGateTimeoutSec, ShouldEqual, 180)
			So(cfg.GracePeriodSec, ShouldEqual, 30)
			So(cfg.BoostDurationMin, ShouldEqual, 60)
			So(cfg.LeaderboardTopN, ShouldEqual, 100)
			So(cfg.EventAccessMinSparks, ShouldEqual, 10_000)
			So(len(cfg.RewardAmounts), ShouldEqual, 3)
			So(cfg.RewardAmounts[0], ShouldBeGreaterThan, cfg.RewardAmounts[1])
		})
	})
}

func TestLoad(t *testing.T) {
	Convey("Given a clean environment", t, func() {
		os.Unsetenv("EMBER_CONFIG")
		os.Unsetenv("EMBER_ADDR")
		os.Unsetenv("EMBER_DAILY_MATCH_LIMIT")

		Convey("When loading with no overrides", func() {
			cfg, err := config.Load(context.Background())

			Convey("Then defaults should win", func() {
				So(err, ShouldBeNil)
				So(cfg.Addr, ShouldEqual, ":9080")
			})
		})

		Convey("When env vars override defaults", func() {
			os.Setenv("EMBER_ADDR", ":7070")
			os.Setenv("EMBER_DAILY_MATCH_LIMIT", "5")
			defer os.Unsetenv("EMBER_ADDR")
			defer os.Unsetenv("EMBER_DAILY_MATCH_LIMIT")

			cfg, err := config.Load(context.Background())

			Convey("Then the env values should apply", func() {
				So(err, ShouldBeNil)
				So(cfg.Addr, ShouldEqual, ":7070")
				So(cfg.DailyMatchLimit, ShouldEqual, 5)
			})
		})

		Convey("When an env var makes the config invalid", func() {
			os.Setenv("EMBER_ADDR", "")
			defer os.Unsetenv("EMBER_ADDR")

			_, err := config.Load(context.Background())

			Convey("Then loading should fail with ErrInvalidConfig", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
			})
		})
	})
}
