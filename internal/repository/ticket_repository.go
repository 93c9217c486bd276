package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-router/internal/domain"
)

// TicketFilter captures listing parameters.
type TicketFilter struct {
	AssignedTo  *string
	Unassigned  bool
	Statuses    []domain.TicketStatus
	Channels    []domain.TicketChannel
	Category    *string
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	// Create inserts a ticket with a caller-chosen ID. ErrDuplicate signals an ID collision.
	Create(ctx context.Context, ticket *domain.Ticket) error
	// UpdateStatus writes only the status column and returns the stored row.
	UpdateStatus(ctx context.Context, id string, status domain.TicketStatus) (*domain.Ticket, error)
	// Assign writes only the assignee. It returns the stored row and the
	// assignee it replaced, nil when the ticket was unassigned.
	Assign(ctx context.Context, id, agentID string) (*domain.Ticket, *string, error)
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	Exists(ctx context.Context, id string) (bool, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	// MaxSequence returns the highest numeric suffix among TKT-<digits> ids, or 0.
	MaxSequence(ctx context.Context) (int, error)
}

const ticketColumns = `id, customer_name, customer_phone, customer_email, subject, message, status,
               priority, category, assigned_to, channel, whatsapp_number, tags, created_at, updated_at`

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (id, customer_name, customer_phone, customer_email, subject, message, status,
                             priority, category, assigned_to, channel, whatsapp_number, tags)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
        RETURNING created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		ticket.ID,
		ticket.CustomerName,
		ticket.CustomerPhone,
		ticket.CustomerEmail,
		ticket.Subject,
		ticket.Message,
		ticket.Status,
		ticket.Priority,
		ticket.Category,
		ticket.AssignedTo,
		ticket.Channel,
		ticket.WhatsAppNumber,
		nonNil(ticket.Tags),
	).Scan(&ticket.CreatedAt, &ticket.UpdatedAt)
	return normalize(err)
}

func (r *ticketRepository) UpdateStatus(ctx context.Context, id string, status domain.TicketStatus) (*domain.Ticket, error) {
	query := `UPDATE tickets SET status=$1, updated_at=NOW() WHERE id=$2 RETURNING ` + ticketColumns
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, status, id))
	if err != nil {
		return nil, normalize(err)
	}
	return ticket, nil
}

func (r *ticketRepository) Assign(ctx context.Context, id, agentID string) (*domain.Ticket, *string, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var previous *string
	if err := tx.QueryRow(ctx, `SELECT assigned_to::text FROM tickets WHERE id=$1 FOR UPDATE`, id).Scan(&previous); err != nil {
		return nil, nil, normalize(err)
	}
	query := `UPDATE tickets SET assigned_to=$1, updated_at=NOW() WHERE id=$2 RETURNING ` + ticketColumns
	ticket, err := scanTicket(tx.QueryRow(ctx, query, agentID, id))
	if err != nil {
		return nil, nil, normalize(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}
	return ticket, previous, nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, normalize(err)
	}
	return ticket, nil
}

func (r *ticketRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tickets WHERE id=$1)`, id).Scan(&exists)
	return exists, err
}

func (r *ticketRepository) MaxSequence(ctx context.Context) (int, error) {
	const query = `
        SELECT COALESCE(MAX(CAST(SUBSTRING(id FROM 5) AS BIGINT)), 0)
        FROM tickets WHERE id ~ '^TKT-[0-9]+$'`
	var seq int64
	if err := r.pool.QueryRow(ctx, query).Scan(&seq); err != nil {
		return 0, err
	}
	return int(seq), nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := `SELECT ` + ticketColumns + ` FROM tickets`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		clauses = append(clauses, fmt.Sprintf("assigned_to=$%d", len(args)))
	}
	if filter.Unassigned {
		clauses = append(clauses, "assigned_to IS NULL")
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Channels) > 0 {
		placeholders := make([]string, len(filter.Channels))
		for i, ch := range filter.Channels {
			args = append(args, ch)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("channel IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.Category != nil {
		args = append(args, *filter.Category)
		clauses = append(clauses, fmt.Sprintf("category=$%d", len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(
			"(LOWER(subject) LIKE %[1]s OR LOWER(message) LIKE %[1]s OR LOWER(customer_name) LIKE %[1]s OR LOWER(id) LIKE %[1]s)",
			placeholder))
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY created_at DESC`, base, strings.Join(clauses, " AND "))
	if filter.Limit > 0 {
		offset := filter.Offset
		if offset < 0 {
			offset = 0
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.Limit, offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.CustomerName,
		&ticket.CustomerPhone,
		&ticket.CustomerEmail,
		&ticket.Subject,
		&ticket.Message,
		&ticket.Status,
		&ticket.Priority,
		&ticket.Category,
		&ticket.AssignedTo,
		&ticket.Channel,
		&ticket.WhatsAppNumber,
		&ticket.Tags,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}
