// Package notifier delivers customer-facing messages over the backends a
// ticket channel can reach: the WhatsApp chat table and the SMS gateway outbox.
package notifier

import (
	"context"
	"errors"

	"github.com/spec-kit/helpdesk-router/internal/domain"
)

var (
	// ErrNoDestination is returned when a message has no customer address.
	ErrNoDestination = errors.New("notifier: destination is empty")
	// ErrNoBackend is returned when no backend is configured for a channel.
	ErrNoBackend = errors.New("notifier: no backend for channel")
	// ErrDisabled is returned by a backend whose dependency is not configured.
	ErrDisabled = errors.New("notifier: backend disabled")
)

// Notifier attempts to deliver body to destination. A non-nil error means the
// attempt failed; the returned Delivery still describes what was tried.
type Notifier interface {
	Name() string
	Send(ctx context.Context, destination, body string) (domain.Delivery, error)
}

// DeliveryCounter is implemented by notifiers that record their own delivery
// metrics. Manager does not count sends made through them.
type DeliveryCounter interface {
	CountsDeliveries() bool
}

// Origin describes the ticket a message belongs to. Backends that record
// the association read it from the context.
type Origin struct {
	TicketID       string
	ChannelAddress string
}

type originKey struct{}

// WithOrigin attaches origin to ctx.
func WithOrigin(ctx context.Context, origin Origin) context.Context {
	return context.WithValue(ctx, originKey{}, origin)
}

// OriginFrom returns the origin stored in ctx, if any.
func OriginFrom(ctx context.Context) (Origin, bool) {
	origin, ok := ctx.Value(originKey{}).(Origin)
	return origin, ok
}

// OriginOf builds the origin for a ticket.
func OriginOf(ticket *domain.Ticket) Origin {
	origin := Origin{TicketID: ticket.ID}
	if ticket.WhatsAppNumber != nil {
		origin.ChannelAddress = *ticket.WhatsAppNumber
	}
	return origin
}
