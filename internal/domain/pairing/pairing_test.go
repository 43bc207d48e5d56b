package pairing_test

import (
	"testing"
	"time"

	"github.com/emberlink/ember/internal/domain/model"
	"github.com/emberlink/ember/internal/domain/pairing"
	. "github.com/smartystreets/goconvey/convey"
)

func answers(opts ...string) []model.Answer {
	out := make([]model.Answer, len(opts))
	for i, o := range opts {
		out[i] = model.Answer{QuestionID: "q" + string(rune('1'+i)), OptionID: o}
	}
	return out
}

func entry(id string, minCommon int, opts ...string) *model.QueueEntry {
	return &model.QueueEntry{
		UserID:    id,
		Answers:   answers(opts...),
		MinCommon: minCommon,
		Filters:   model.FilterSnapshot{Gender: "any"},
		Profile:   model.ProfileSnapshot{Age: 25, Gender: "f"},
	}
}

func TestCommonAnswers(t *testing.T) {
	Convey("Given two submissions", t, func() {
		a := answers("a", "b", "c", "d", "e")

		Convey("Then identical submissions share all answers", func() {
			So(pairing.CommonAnswers(a, answers("a", "b", "c", "d", "e")), ShouldEqual, 5)
		})

		Convey("Then partially matching submissions count overlaps only", func() {
			So(pairing.CommonAnswers(a, answers("a", "x", "c", "x", "e")), ShouldEqual, 3)
		})

		Convey("Then disjoint submissions share nothing", func() {
			So(pairing.CommonAnswers(a, answers("x", "x", "x", "x", "x")), ShouldEqual, 0)
		})
	})
}

func TestCompatible(t *testing.T) {
	Convey("Given two entries sharing three answers", t, func() {
		a := entry("a", 1, "a", "b", "c", "d", "e")
		b := entry("b", 2, "a", "b", "c", "x", "x")

		Convey("When the stricter minimum is satisfied", func() {
			common, ok := pairing.Compatible(a, b)

			Convey("Then the pair is compatible", func() {
				So(ok, ShouldBeTrue)
				So(common, ShouldEqual, 3)
			})
		})

		Convey("When one side requires more overlap than exists", func() {
			b.MinCommon = 4
			_, ok := pairing.Compatible(a, b)

			Convey("Then the pair is rejected", func() {
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When the entries belong to the same user", func() {
			_, ok := pairing.Compatible(a, entry("a", 1, "a", "b", "c", "d", "e"))
			So(ok, ShouldBeFalse)
		})
	})
}

func TestMutualFilters(t *testing.T) {
	Convey("Given entries with age and gender filters", t, func() {
		a := entry("a", 1, "a", "b", "c", "d", "e")
		b := entry("b", 1, "a", "b", "c", "d", "e")

		Convey("When both accept each other", func() {
			So(pairing.MutualFilters(a, b), ShouldBeTrue)
		})

		Convey("When one side's age filter rejects the counterpart", func() {
			a.Filters.MinAge = 30
			So(pairing.MutualFilters(a, b), ShouldBeFalse)
		})

		Convey("When one side's gender filter rejects the counterpart", func() {
			a.Filters.Gender = "m"
			So(pairing.MutualFilters(a, b), ShouldBeFalse)
		})

		Convey("When the distance filter rejects a far counterpart", func() {
			a.Filters.MaxDistanceKM = 10
			a.Profile.Lat, a.Profile.Lon = 41.0, 29.0 // Istanbul
			b.Profile.Lat, b.Profile.Lon = 39.9, 32.8 // Ankara
			So(pairing.MutualFilters(a, b), ShouldBeFalse)

			a.Filters.MaxDistanceKM = 500
			So(pairing.MutualFilters(a, b), ShouldBeTrue)
		})
	})
}

func TestScanOrder(t *testing.T) {
	Convey("Given a pool with boosted and plain entries", t, func() {
		now := time.Now()
		older := entry("older", 1, "a", "b", "c", "d", "e")
		older.EnqueuedAt = now.Add(-3 * time.Minute)
		newer := entry("newer", 1, "a", "b", "c", "d", "e")
		newer.EnqueuedAt = now.Add(-1 * time.Minute)
		boosted := entry("boosted", 1, "a", "b", "c", "d", "e")
		boosted.EnqueuedAt = now.Add(-10 * time.Second)
		boosted.BoostActive = true
		boosted.BoostExpiresAt = now.Add(30 * time.Minute)

		Convey("When ordering the scan", func() {
			ordered := pairing.ScanOrder([]*model.QueueEntry{newer, boosted, older}, now)

			Convey("Then the boosted entry is evaluated first, FIFO after", func() {
				So(ordered[0].UserID, ShouldEqual, "boosted")
				So(ordered[1].UserID, ShouldEqual, "older")
				So(ordered[2].UserID, ShouldEqual, "newer")
			})
		})

		Convey("When the boost has expired", func() {
			boosted.BoostExpiresAt = now.Add(-time.Second)
			ordered := pairing.ScanOrder([]*model.QueueEntry{newer, boosted, older}, now)

			Convey("Then ordering falls back to pure FIFO", func() {
				So(ordered[0].UserID, ShouldEqual, "older")
				So(ordered[1].UserID, ShouldEqual, "newer")
				So(ordered[2].UserID, ShouldEqual, "boosted")
			})
		})
	})
}

func TestBetter(t *testing.T) {
	Convey("Given two candidates for the same seeker", t, func() {
		now := time.Now()
		x := entry("x", 1, "a", "b", "c", "d", "e")
		x.EnqueuedAt = now.Add(-time.Minute)
		y := entry("y", 1, "a", "b", "c", "d", "e")
		y.EnqueuedAt = now.Add(-2 * time.Minute)

		Convey("Then higher overlap wins regardless of age", func() {
			So(pairing.Better(4, x, 3, y), ShouldBeTrue)
			So(pairing.Better(2, x, 3, y), ShouldBeFalse)
		})

		Convey("Then equal overlap goes to the earlier entry", func() {
			So(pairing.Better(3, x, 3, y), ShouldBeFalse)
			So(pairing.Better(3, y, 3, x), ShouldBeTrue)
		})
	})
}
