package deck_test

import (
	"testing"

	"github.com/emberlink/ember/internal/domain/deck"
	"github.com/emberlink/ember/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSequenceDeterminism(t *testing.T) {
	Convey("Given a deck with the built-in pool", t, func() {
		d, err := deck.New()
		So(err, ShouldBeNil)

		Convey("When dealing the same match id repeatedly", func() {
			first := d.Sequence("match-1")
			second := d.Sequence("match-1")
			third := d.Sequence("match-1")

			Convey("Then every deal should be identical", func() {
				So(len(first), ShouldEqual, model.AnswerCount)
				So(second, ShouldResemble, first)
				So(third, ShouldResemble, first)
			})
		})

		Convey("When dealing different match ids", func() {
			a := d.Sequence("match-a")
			b := d.Sequence("match-b")

			Convey("Then both should be full sequences", func() {
				So(len(a), ShouldEqual, model.AnswerCount)
				So(len(b), ShouldEqual, model.AnswerCount)
			})

			Convey("And no sequence should repeat a card", func() {
				seen := map[string]bool{}
				for _, c := range a {
					So(seen[c.ID], ShouldBeFalse)
					seen[c.ID] = true
				}
			})
		})

	})
}

func TestCustomPool(t *testing.T) {
	Convey("Given a custom card pool", t, func() {
		cards := []model.Card{
			{ID: "x1", Question: "q1", Options: []string{"a", "b"}},
			{ID: "x2", Question: "q2", Options: []string{"a", "b"}},
			{ID: "x3", Question: "q3", Options: []string{"a", "b"}},
			{ID: "x4", Question: "q4", Options: []string{"a", "b"}},
			{ID: "x5", Question: "q5", Options: []string{"a", "b"}},
		}

		Convey("When the pool is exactly one sequence", func() {
			d, err := deck.New(deck.WithCards(cards))

			Convey("Then dealing uses every card", func() {
				So(err, ShouldBeNil)
				So(d.Size(), ShouldEqual, 5)
				seq := d.Sequence("m")
				So(len(seq), ShouldEqual, 5)
			})
		})

		Convey("When the pool is too small", func() {
			_, err := deck.New(deck.WithCards(cards[:3]))

			Convey("Then construction fails", func() {
				So(err, ShouldEqual, deck.ErrPoolTooSmall)
			})
		})
	})
}
