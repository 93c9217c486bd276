// Package events fans store change events out to in-process subscribers and,
// through Redis, to other instances of the service.
package events

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-router/internal/domain"
)

// Handler handles a change event.
type Handler func(context.Context, domain.ChangeEvent) error

type relayedKey struct{}

// Relayed reports whether the event being handled arrived from another
// instance rather than from a local write.
func Relayed(ctx context.Context) bool {
	v, _ := ctx.Value(relayedKey{}).(bool)
	return v
}

// Feed is a synchronous in-memory dispatcher keyed by collection.
type Feed struct {
	mu        sync.RWMutex
	listeners map[domain.Collection][]Handler
	wildcard  []Handler
	logger    *zap.Logger
}

// NewFeed creates a feed.
func NewFeed(logger *zap.Logger) *Feed {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Feed{
		listeners: make(map[domain.Collection][]Handler),
		logger:    logger,
	}
}

// Subscribe registers handler for events on collection.
func (f *Feed) Subscribe(collection domain.Collection, handler Handler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners[collection] = append(f.listeners[collection], handler)
}

// SubscribeAll registers handler for every collection.
func (f *Feed) SubscribeAll(handler Handler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.wildcard = append(f.wildcard, handler)
}

// PublishChange implements repository.ChangePublisher. Events without an id
// are given one.
func (f *Feed) PublishChange(ctx context.Context, event domain.ChangeEvent) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	f.dispatch(ctx, event)
}

// Relay dispatches an event received from another instance.
func (f *Feed) Relay(ctx context.Context, event domain.ChangeEvent) {
	f.dispatch(context.WithValue(ctx, relayedKey{}, true), event)
}

func (f *Feed) dispatch(ctx context.Context, event domain.ChangeEvent) {
	f.mu.RLock()
	handlers := append([]Handler{}, f.listeners[event.Collection]...)
	handlers = append(handlers, f.wildcard...)
	f.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			f.logger.Warn("change handler failed",
				zap.String("event_id", event.ID),
				zap.String("collection", string(event.Collection)),
				zap.String("record_id", event.RecordID),
				zap.Error(err))
		}
	}
}
