package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/spec-kit/helpdesk-router/internal/domain"
	"github.com/spec-kit/helpdesk-router/internal/repository"
)

const (
	directionOutbound = "outbound"
	messagePending    = "pending"
)

// ChatNotifier writes outbound rows to the WhatsApp message table. The
// sender process watching that table performs the actual delivery, so a
// successful insert is reported as queued.
type ChatNotifier struct {
	messages      repository.MessageRepository
	defaultSender string
}

// NewChatNotifier builds a chat backend. defaultSender is used as the from
// number when the ticket did not arrive on a specific channel address.
func NewChatNotifier(messages repository.MessageRepository, defaultSender string) *ChatNotifier {
	return &ChatNotifier{messages: messages, defaultSender: defaultSender}
}

// Name implements Notifier.
func (c *ChatNotifier) Name() string { return "whatsapp" }

// Send implements Notifier.
func (c *ChatNotifier) Send(ctx context.Context, destination, body string) (domain.Delivery, error) {
	delivery := domain.Delivery{
		Backend:     c.Name(),
		Destination: destination,
		Body:        body,
		CreatedAt:   time.Now().UTC(),
	}
	if destination == "" {
		return failed(delivery, ErrNoDestination)
	}

	msg := &domain.OutboundMessage{
		FromNumber: c.defaultSender,
		ToNumber:   destination,
		Body:       body,
		Direction:  directionOutbound,
		Status:     messagePending,
	}
	if origin, ok := OriginFrom(ctx); ok {
		if origin.TicketID != "" {
			ticketID := origin.TicketID
			msg.TicketID = &ticketID
		}
		if origin.ChannelAddress != "" {
			msg.FromNumber = origin.ChannelAddress
		}
	}

	if err := c.messages.Create(ctx, msg); err != nil {
		return failed(delivery, fmt.Errorf("insert chat message: %w", err))
	}
	delivery.ID = msg.ID
	delivery.Status = domain.DeliveryQueued
	if !msg.CreatedAt.IsZero() {
		delivery.CreatedAt = msg.CreatedAt
	}
	return delivery, nil
}

func failed(delivery domain.Delivery, err error) (domain.Delivery, error) {
	delivery.Status = domain.DeliveryFailed
	delivery.Error = err.Error()
	return delivery, err
}
