package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/emberlink/ember/internal/adapters/repository"
	service "github.com/emberlink/ember/internal/app"
	"github.com/emberlink/ember/internal/domain/model"
	"github.com/emberlink/ember/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func verifiedUser(id string) repository.User {
	return repository.User{
		ID:        id,
		Verified:  true,
		CreatedAt: time.Now().Add(-30 * 24 * time.Hour),
		Profile:   model.ProfileSnapshot{Age: 25, Gender: "f", Nickname: id},
		Filters:   model.FilterSnapshot{Gender: "any"},
	}
}

func answers() []model.Answer {
	return []model.Answer{
		{QuestionID: "q1", OptionID: "a"},
		{QuestionID: "q2", OptionID: "a"},
		{QuestionID: "q3", OptionID: "a"},
		{QuestionID: "q4", OptionID: "a"},
		{QuestionID: "q5", OptionID: "a"},
	}
}

func TestServiceLifecycle(t *testing.T) {
	Convey("Given a started service with two verified users", t, func() {
		ctx := context.Background()
		svc := service.New(
			service.WithWorkerCount(2),
			service.WithSweepInterval(50*time.Millisecond),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		So(svc.UpsertUser(ctx, verifiedUser("ana")), ShouldBeNil)
		So(svc.UpsertUser(ctx, verifiedUser("ben")), ShouldBeNil)

		Convey("When both submit matching answers", func() {
			engine := svc.Engine()
			So(engine.Enqueue(ctx, "ana", answers(), 2), ShouldBeNil)
			So(engine.Enqueue(ctx, "ben", answers(), 2), ShouldBeNil)

			s, ok := engine.Session("ana")
			So(ok, ShouldBeTrue)

			Convey("Then the pair is live and stats reflect it", func() {
				stats := svc.GetStats(ctx)
				So(stats.ActiveSessions, ShouldEqual, 1)
				So(stats.WaitingUsers, ShouldEqual, 0)
				So(stats.Users, ShouldEqual, 2)
			})

			Convey("And completing the gate unlocks chat and credits sparks", func() {
				cards, err := engine.RequestCards(ctx, "ana", s.ID())
				So(err, ShouldBeNil)

				for _, c := range cards.Cards {
					So(engine.SubmitAnswer(ctx, model.CardAnswer{
						MatchID: s.ID(), UserID: "ana", CardID: c.ID, OptionIndex: 0,
					}), ShouldBeNil)
					So(engine.SubmitAnswer(ctx, model.CardAnswer{
						MatchID: s.ID(), UserID: "ben", CardID: c.ID, OptionIndex: 0,
					}), ShouldBeNil)
				}

				So(s.State(), ShouldEqual, model.StateChatUnlocked)
				So(s.ChatID(), ShouldNotBeEmpty)
			})
		})

		Convey("When users are blocked from each other", func() {
			So(svc.BlockUser(ctx, "ana", "ben"), ShouldBeNil)
			engine := svc.Engine()
			So(engine.Enqueue(ctx, "ana", answers(), 2), ShouldBeNil)
			So(engine.Enqueue(ctx, "ben", answers(), 2), ShouldBeNil)

			Convey("Then no session forms", func() {
				_, ok := engine.Session("ana")
				So(ok, ShouldBeFalse)
				So(svc.GetStats(ctx).WaitingUsers, ShouldEqual, 2)
			})
		})

		Convey("When a boost purchase is activated", func() {
			state, err := svc.ActivateBoost(ctx, "ana", "valid-token")

			Convey("Then the boost is live for about an hour", func() {
				So(err, ShouldBeNil)
				So(state.Active, ShouldBeTrue)
				So(state.RemainingSeconds(time.Now()), ShouldBeBetween, 3500, 3601)
			})
		})

		Convey("When a month settles after spark accrual", func() {
			_, err := svc.ActivateBoost(ctx, "ana", "t") // unrelated state, must not interfere
			So(err, ShouldBeNil)

			dirUsers := []struct {
				id     string
				sparks int64
			}{{"ana", 900}, {"ben", 400}}
			for _, u := range dirUsers {
				user := verifiedUser(u.id)
				user.Sparks = u.sparks
				So(svc.UpsertUser(ctx, user), ShouldBeNil)
			}

			live, err := svc.LiveLeaderboard(ctx, 10)
			So(err, ShouldBeNil)
			So(len(live), ShouldEqual, 2)
			So(live[0].UserID, ShouldEqual, "ana")

			So(svc.SettleMonth(ctx, 2026, 7), ShouldBeNil)

			Convey("Then the leaderboard, rank and rewards surfaces agree", func() {
				year, month, entries, err := svc.LatestLeaderboard(ctx, 10)
				So(err, ShouldBeNil)
				So(year, ShouldEqual, 2026)
				So(month, ShouldEqual, 7)
				So(len(entries), ShouldEqual, 2)
				So(entries[0].UserID, ShouldEqual, "ana")

				entry, err := svc.Rank(ctx, "ben")
				So(err, ShouldBeNil)
				So(entry.Rank, ShouldEqual, 2)

				elig, err := svc.RewardEligibility(ctx, "ana")
				So(err, ShouldBeNil)
				So(elig.Eligible, ShouldBeTrue)
				So(elig.Rank, ShouldEqual, 1)

				claim, err := svc.ClaimReward(ctx, "ana", "DE00 9999")
				So(err, ShouldBeNil)
				So(claim.Amount, ShouldEqual, 1000)

				again, err := svc.ClaimReward(ctx, "ana", "other contact")
				So(err, ShouldBeNil)
				So(again.ContactInfo, ShouldEqual, "DE00 9999")
			})
		})
	})
}

func TestServiceStartStop(t *testing.T) {
	Convey("Start and Stop are idempotent", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithWorkerCount(1))

		So(svc.Start(ctx), ShouldBeNil)
		So(svc.Start(ctx), ShouldBeNil)

		svc.Stop()
		svc.Stop()

		Convey("Stats after stop are zero-valued", func() {
			So(svc.GetStats(ctx), ShouldResemble, model.ServiceStats{})
		})
	})
}
