package notifier

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk-router/internal/domain"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SMSGatewayNotifier inserts rows into the outbox table polled by the
// external SMS gateway.
type SMSGatewayNotifier struct {
	db       *sql.DB
	senderID string
	insert   string
}

// NewSMSGatewayNotifier builds an SMS backend writing to table. A nil db
// yields a backend that always fails with ErrDisabled.
func NewSMSGatewayNotifier(db *sql.DB, table, senderID string) (*SMSGatewayNotifier, error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid sms outbox table %q", table)
	}
	return &SMSGatewayNotifier{
		db:       db,
		senderID: senderID,
		insert: fmt.Sprintf(
			"INSERT INTO %s (reference, sender_id, destination, body, ticket_id, created_at) VALUES (?, ?, ?, ?, ?, ?)",
			table,
		),
	}, nil
}

// Name implements Notifier.
func (s *SMSGatewayNotifier) Name() string { return "sms" }

// Send implements Notifier.
func (s *SMSGatewayNotifier) Send(ctx context.Context, destination, body string) (domain.Delivery, error) {
	delivery := domain.Delivery{
		ID:          uuid.NewString(),
		Backend:     s.Name(),
		Destination: destination,
		Body:        body,
		CreatedAt:   time.Now().UTC(),
	}
	if s.db == nil {
		return failed(delivery, ErrDisabled)
	}
	if destination == "" {
		return failed(delivery, ErrNoDestination)
	}

	var ticketID sql.NullString
	if origin, ok := OriginFrom(ctx); ok && origin.TicketID != "" {
		ticketID = sql.NullString{String: origin.TicketID, Valid: true}
	}

	if _, err := s.db.ExecContext(ctx, s.insert,
		delivery.ID,
		s.senderID,
		destination,
		body,
		ticketID,
		delivery.CreatedAt,
	); err != nil {
		return failed(delivery, fmt.Errorf("insert sms outbox row: %w", err))
	}
	delivery.Status = domain.DeliveryQueued
	return delivery, nil
}
