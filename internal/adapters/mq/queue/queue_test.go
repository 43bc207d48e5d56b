package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/emberlink/ember/internal/adapters/mq/queue"
	"github.com/emberlink/ember/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func notice(user string) model.Notice {
	return model.Notice{UserID: user, Event: model.EventMatchSearching, EnqueuedAt: time.Now()}
}

func TestInMemoryQueue(t *testing.T) {
	Convey("Given an in-memory notice queue", t, func() {
		ctx := context.Background()

		Convey("When enqueueing within capacity", func() {
			q := queue.NewInMemoryQueue(queue.WithCapacity(10), queue.WithBufferSize(10))

			ok := q.Enqueue(ctx, notice("u1"))

			Convey("Then the notice is accepted", func() {
				So(ok, ShouldBeTrue)
				So(q.Len(ctx), ShouldEqual, 1)
			})
		})

		Convey("When the queue is full", func() {
			q := queue.NewInMemoryQueue(queue.WithCapacity(2), queue.WithBufferSize(2))
			So(q.Enqueue(ctx, notice("u1")), ShouldBeTrue)
			So(q.Enqueue(ctx, notice("u2")), ShouldBeTrue)

			Convey("Then further enqueues are rejected", func() {
				So(q.Enqueue(ctx, notice("u3")), ShouldBeFalse)
				So(q.Len(ctx), ShouldEqual, 2)
			})
		})

		Convey("When dequeuing", func() {
			q := queue.NewInMemoryQueue(queue.WithCapacity(10), queue.WithBufferSize(10))
			So(q.Enqueue(ctx, notice("u1")), ShouldBeTrue)

			ch := q.Dequeue(ctx)

			Convey("Then the notice flows out in order", func() {
				n := <-ch
				So(n.UserID, ShouldEqual, "u1")
			})
		})

		Convey("When the queue is closed", func() {
			q := queue.NewInMemoryQueue(queue.WithCapacity(10), queue.WithBufferSize(10))
			So(q.Enqueue(ctx, notice("u1")), ShouldBeTrue)
			So(q.Close(), ShouldBeNil)

			Convey("Then enqueues are rejected and the channel drains", func() {
				So(q.IsClosed(), ShouldBeTrue)
				So(q.Enqueue(ctx, notice("u2")), ShouldBeFalse)

				ch := q.Dequeue(ctx)
				n, open := <-ch
				So(open, ShouldBeTrue)
				So(n.UserID, ShouldEqual, "u1")

				_, open = <-ch
				So(open, ShouldBeFalse)
			})

			Convey("And closing again is a no-op", func() {
				So(q.Close(), ShouldBeNil)
			})
		})
	})
}
