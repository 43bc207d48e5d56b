// Package queue defines the contract for enqueuing and consuming outbound
// notices.
//
// Event processing must never block on slow clients, so the gateway and
// engine push notices here and delivery workers drain the channel.
package queue

import (
	"context"
	"sync"

	"github.com/emberlink/ember/internal/domain/model"
	"github.com/emberlink/ember/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultCapacity   = 50000
	defaultBufferSize = 50000
)

// Notice is the payload type flowing through the queue.
type Notice = model.Notice

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a notice to the queue.
	// Returns false if the queue is full or closed.
	Enqueue(ctx context.Context, n Notice) bool

	// Dequeue returns a channel that receives notices as they become
	// available. The channel is closed when the queue is closed.
	Dequeue(ctx context.Context) <-chan Notice

	// Len returns the current number of queued notices.
	Len(ctx context.Context) int

	// Close shuts the queue down. After closing, no new notices can be
	// enqueued and the dequeue channel drains then closes.
	Close() error

	// IsClosed reports whether the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	notices    chan Notice
	capacity   int
	bufferSize int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity:   defaultCapacity,
		bufferSize: defaultBufferSize,
	}

	for _, opt := range opts {
		opt(q)
	}

	q.notices = make(chan Notice, q.bufferSize)

	metrics.UpdateNoticeQueueCapacity(q.capacity)
	metrics.UpdateNoticeQueueSize(0)

	return q
}

// Enqueue adds a notice to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, n Notice) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordNoticeDropped()
		metrics.RecordErrorByComponent("queue", "closed")
		return false
	}

	if len(q.notices) >= q.capacity {
		metrics.RecordNoticeDropped()
		metrics.RecordErrorByComponent("queue", "capacity_exceeded")
		return false
	}

	select {
	case q.notices <- n:
		metrics.UpdateNoticeQueueSize(len(q.notices))
		return true
	case <-ctx.Done():
		metrics.RecordNoticeDropped()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return false
	default:
		metrics.RecordNoticeDropped()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return false
	}
}

// Dequeue returns a channel that receives notices as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Notice {
	out := make(chan Notice)
	go func() {
		defer close(out)
		for n := range q.notices {
			select {
			case out <- n:
				metrics.UpdateNoticeQueueSize(len(q.notices))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued notices.
func (q *InMemoryQueue) Len(_ context.Context) int {
	size := len(q.notices)
	metrics.UpdateNoticeQueueSize(size)
	return size
}

// Close shuts the queue down.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	close(q.notices)
	q.closed = true
	return nil
}

// IsClosed reports whether the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
