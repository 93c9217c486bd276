package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-router/internal/domain"
)

// MessageRepository writes outbound WhatsApp chat rows. The WhatsApp sender
// process subscribes to this table and performs the actual delivery.
type MessageRepository interface {
	Create(ctx context.Context, msg *domain.OutboundMessage) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.OutboundMessage, error)
}

type messageRepository struct {
	pool *pgxpool.Pool
}

// NewMessageRepository builds repository.
func NewMessageRepository(pool *pgxpool.Pool) MessageRepository {
	return &messageRepository{pool: pool}
}

func (r *messageRepository) Create(ctx context.Context, msg *domain.OutboundMessage) error {
	const query = `
        INSERT INTO whatsapp_messages (ticket_id, from_number, to_number, body, direction, status)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, query,
		msg.TicketID,
		msg.FromNumber,
		msg.ToNumber,
		msg.Body,
		msg.Direction,
		msg.Status,
	).Scan(&msg.ID, &msg.CreatedAt)
	return normalize(err)
}

func (r *messageRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.OutboundMessage, error) {
	const query = `
        SELECT id, ticket_id, from_number, to_number, body, direction, status, created_at
        FROM whatsapp_messages WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.OutboundMessage
	for rows.Next() {
		var msg domain.OutboundMessage
		if err := rows.Scan(
			&msg.ID,
			&msg.TicketID,
			&msg.FromNumber,
			&msg.ToNumber,
			&msg.Body,
			&msg.Direction,
			&msg.Status,
			&msg.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, msg)
	}
	return result, rows.Err()
}
