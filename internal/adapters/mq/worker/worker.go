// Package worker defines the delivery workers that drain the notice queue
// into live connections, falling back to the external notifier for
// offline users.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/emberlink/ember/internal/domain/model"
	"github.com/emberlink/ember/pkg/logger"
	"github.com/emberlink/ember/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 4 // multiplier for runtime.NumCPU()
	workerShutdownTimeout   = 5 * time.Second
	poolShutdownTimeout     = 30 * time.Second
)

// Notice is what workers read off the queue.
type Notice = model.Notice

// Queue defines how workers receive notices.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Notice
}

// Sender attempts realtime delivery to a connected user.
// Returns false when the user holds no live connection.
type Sender interface {
	Send(ctx context.Context, n Notice) bool
}

// Notifier is the external push dispatcher used when no connection is live.
type Notifier interface {
	Notify(ctx context.Context, userID, event string, payload interface{}) error
}

// Worker processes notices until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

// DeliveryWorker implements Worker.
type DeliveryWorker struct {
	queue    Queue
	sender   Sender
	notifier Notifier
	name     string

	shutdown chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	logger logger.Logger
}

// NewDeliveryWorker creates a new worker with configuration options.
func NewDeliveryWorker(queue Queue, sender Sender, notifier Notifier, opts ...Option) *DeliveryWorker {
	w := &DeliveryWorker{
		queue:    queue,
		sender:   sender,
		notifier: notifier,
		name:     "delivery",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("delivery"),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.name != "delivery" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *DeliveryWorker) Run(ctx context.Context) {
	defer close(w.done)

	notices := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case n, ok := <-notices:
			if !ok {
				return
			}
			if err := w.deliver(ctx, n); err != nil {
				w.logger.Error(ctx, "notice delivery failed",
					logger.String("userId", n.UserID),
					logger.String("event", n.Event),
					logger.Error(err),
				)
			}
		}
	}
}

// signalStop closes the shutdown channel exactly once, so overlapping
// Shutdown and Pool.Stop calls cannot double close it.
func (w *DeliveryWorker) signalStop() {
	w.stopOnce.Do(func() { close(w.shutdown) })
}

// Shutdown gracefully stops the worker.
func (w *DeliveryWorker) Shutdown(ctx context.Context) error {
	w.signalStop()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// deliver pushes one notice to a live connection or the notifier.
func (w *DeliveryWorker) deliver(ctx context.Context, n Notice) error {
	start := time.Now()
	defer func() {
		metrics.RecordDeliveryLatency(float64(time.Since(start).Milliseconds()))
	}()

	if w.sender != nil && w.sender.Send(ctx, n) {
		metrics.RecordNoticeDelivered()
		return nil
	}

	if w.notifier == nil {
		metrics.RecordErrorByComponent("worker", "no_notifier")
		return ErrUndeliverable
	}

	if err := w.notifier.Notify(ctx, n.UserID, n.Event, n.Payload); err != nil {
		metrics.RecordErrorByComponent("worker", "notify_error")
		return fmt.Errorf("notify %s: %w", n.UserID, err)
	}
	metrics.RecordNoticeDelivered()
	return nil
}

// Pool manages multiple delivery workers.
type Pool struct {
	workers []*DeliveryWorker

	shutdown chan struct{}
	stopOnce sync.Once

	logger logger.Logger
}

// NewPool creates a new worker pool.
func NewPool(workerCount int, queue Queue, sender Sender, notifier Notifier) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	pool := &Pool{
		workers:  make([]*DeliveryWorker, workerCount),
		shutdown: make(chan struct{}),
		logger:   logger.Get().Named("delivery-pool"),
	}

	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewDeliveryWorker(
			queue,
			sender,
			notifier,
			WithName("delivery-"+strconv.Itoa(i)),
		)
	}

	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Stop gracefully stops all workers without touching the queue. It is
// safe to call more than once.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() { close(p.shutdown) })

	for _, w := range p.workers {
		w.signalStop()
	}
	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-time.After(workerShutdownTimeout):
		}
	}
}

// Shutdown closes the queue and waits for the workers to finish.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.workers[0].queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}

	return nil
}
