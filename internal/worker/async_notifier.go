// Package worker runs customer notifications off the request path.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-router/internal/domain"
	"github.com/spec-kit/helpdesk-router/internal/notifier"
	"github.com/spec-kit/helpdesk-router/internal/observability"
)

var (
	// ErrQueueFull is returned when the delivery queue has no free slot.
	ErrQueueFull = errors.New("worker: notification queue full")
	// ErrStopped is returned after Stop has been called.
	ErrStopped = errors.New("worker: notification pool stopped")
)

// Options configures an AsyncNotifier.
type Options struct {
	Workers     int
	QueueSize   int
	SendTimeout time.Duration
	Logger      *zap.Logger
	Metrics     *observability.Metrics
}

type job struct {
	delivery domain.Delivery
	origin   notifier.Origin
	hasOrig  bool
}

// AsyncNotifier wraps a Notifier with a bounded queue and a pool of
// goroutines. Send returns a queued delivery immediately; the final outcome
// is logged and counted by the worker that performs it.
type AsyncNotifier struct {
	inner   notifier.Notifier
	opts    Options
	queue   chan job
	wg      sync.WaitGroup
	mu      sync.RWMutex
	stopped bool
}

// NewAsyncNotifier builds the pool. Call Start before sending.
func NewAsyncNotifier(inner notifier.Notifier, opts Options) *AsyncNotifier {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &AsyncNotifier{
		inner: inner,
		opts:  opts,
		queue: make(chan job, opts.QueueSize),
	}
}

// Name implements notifier.Notifier.
func (a *AsyncNotifier) Name() string { return a.inner.Name() }

// Start launches the workers.
func (a *AsyncNotifier) Start() {
	for i := 0; i < a.opts.Workers; i++ {
		a.wg.Add(1)
		go a.run(i)
	}
}

// Stop closes the queue and waits for pending deliveries to finish.
func (a *AsyncNotifier) Stop() {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return
	}
	a.stopped = true
	close(a.queue)
	a.mu.Unlock()
	a.wg.Wait()
}

// CountsDeliveries reports that the final outcome is recorded by the worker,
// so callers must not count the queued placeholder.
func (a *AsyncNotifier) CountsDeliveries() bool { return true }

// Send implements notifier.Notifier without waiting for the backend.
func (a *AsyncNotifier) Send(ctx context.Context, destination, body string) (domain.Delivery, error) {
	delivery := domain.Delivery{
		ID:          uuid.NewString(),
		Backend:     a.inner.Name(),
		Destination: destination,
		Body:        body,
		Status:      domain.DeliveryQueued,
		CreatedAt:   time.Now().UTC(),
	}
	if destination == "" {
		delivery.Status = domain.DeliveryFailed
		delivery.Error = notifier.ErrNoDestination.Error()
		a.opts.Metrics.RecordDelivery(a.inner.Name(), string(delivery.Status))
		return delivery, notifier.ErrNoDestination
	}

	j := job{delivery: delivery}
	j.origin, j.hasOrig = notifier.OriginFrom(ctx)

	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.stopped {
		delivery.Status = domain.DeliveryFailed
		delivery.Error = ErrStopped.Error()
		a.opts.Metrics.RecordDelivery(a.inner.Name(), string(delivery.Status))
		return delivery, ErrStopped
	}
	select {
	case a.queue <- j:
		return delivery, nil
	default:
		delivery.Status = domain.DeliveryFailed
		delivery.Error = ErrQueueFull.Error()
		a.opts.Metrics.RecordDelivery(a.inner.Name(), "dropped")
		return delivery, ErrQueueFull
	}
}

func (a *AsyncNotifier) run(worker int) {
	defer a.wg.Done()
	for j := range a.queue {
		a.deliver(worker, j)
	}
}

func (a *AsyncNotifier) deliver(worker int, j job) {
	ctx, cancel := context.WithTimeout(context.Background(), a.opts.SendTimeout)
	defer cancel()
	if j.hasOrig {
		ctx = notifier.WithOrigin(ctx, j.origin)
	}

	result, err := a.inner.Send(ctx, j.delivery.Destination, j.delivery.Body)
	a.opts.Metrics.RecordDelivery(a.inner.Name(), string(result.Status))

	fields := []zap.Field{
		zap.Int("worker", worker),
		zap.String("delivery_id", j.delivery.ID),
		zap.String("backend", a.inner.Name()),
		zap.String("ticket_id", j.origin.TicketID),
	}
	if err != nil {
		a.opts.Logger.Warn("async notification failed", append(fields, zap.Error(err))...)
		return
	}
	a.opts.Logger.Debug("async notification delivered", append(fields, zap.String("status", string(result.Status)))...)
}
