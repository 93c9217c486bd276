package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-router/internal/domain"
)

// AgentRepository handles persistence for agents.
type AgentRepository interface {
	Create(ctx context.Context, agent *domain.Agent) error
	Update(ctx context.Context, agent *domain.Agent) error
	GetByID(ctx context.Context, id string) (*domain.Agent, error)
	GetByEmail(ctx context.Context, email string) (*domain.Agent, error)
	List(ctx context.Context, filter AgentFilter) ([]domain.Agent, error)
	// AdjustLoad atomically adds delta to current_load, flooring at zero.
	AdjustLoad(ctx context.Context, id string, delta int) (*domain.Agent, error)
}

// AgentFilter defines query params for agent listing.
type AgentFilter struct {
	Role      *domain.AgentRole
	Active    *bool
	Expertise *string
	Number    *string
	Limit     int
	Offset    int
}

const agentColumns = `id, name, email, password_hash, role, expertise, whatsapp_numbers,
               is_active, current_load, max_tickets, created_at, updated_at`

type agentRepository struct {
	pool *pgxpool.Pool
}

// NewAgentRepository instantiates the repository.
func NewAgentRepository(pool *pgxpool.Pool) AgentRepository {
	return &agentRepository{pool: pool}
}

func (r *agentRepository) Create(ctx context.Context, agent *domain.Agent) error {
	const query = `
        INSERT INTO agents (name, email, password_hash, role, expertise, whatsapp_numbers, is_active, current_load, max_tickets)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		agent.Name,
		agent.Email,
		agent.PasswordHash,
		agent.Role,
		nonNil(agent.Expertise),
		nonNil(agent.WhatsAppNumbers),
		agent.IsActive,
		agent.CurrentLoad,
		agent.MaxTickets,
	).Scan(&agent.ID, &agent.CreatedAt, &agent.UpdatedAt)
	return normalize(err)
}

// Update writes profile fields. current_load is owned by AdjustLoad and is not touched here.
func (r *agentRepository) Update(ctx context.Context, agent *domain.Agent) error {
	const query = `
        UPDATE agents
        SET name=$1, email=$2, password_hash=$3, role=$4, expertise=$5, whatsapp_numbers=$6,
            is_active=$7, max_tickets=$8, updated_at=NOW()
        WHERE id=$9
        RETURNING current_load, updated_at`

	err := r.pool.QueryRow(ctx, query,
		agent.Name,
		agent.Email,
		agent.PasswordHash,
		agent.Role,
		nonNil(agent.Expertise),
		nonNil(agent.WhatsAppNumbers),
		agent.IsActive,
		agent.MaxTickets,
		agent.ID,
	).Scan(&agent.CurrentLoad, &agent.UpdatedAt)
	return normalize(err)
}

func (r *agentRepository) GetByID(ctx context.Context, id string) (*domain.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *agentRepository) GetByEmail(ctx context.Context, email string) (*domain.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE LOWER(email)=LOWER($1)`
	return r.fetchSingle(ctx, query, email)
}

func (r *agentRepository) AdjustLoad(ctx context.Context, id string, delta int) (*domain.Agent, error) {
	query := `
        UPDATE agents SET current_load = GREATEST(current_load + $1, 0), updated_at=NOW()
        WHERE id=$2
        RETURNING ` + agentColumns
	return r.fetchSingle(ctx, query, delta, id)
}

func (r *agentRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.Agent, error) {
	agent, err := scanAgent(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, normalize(err)
	}
	return agent, nil
}

// List returns agents in creation order so selection tie-breaks are stable.
func (r *agentRepository) List(ctx context.Context, filter AgentFilter) ([]domain.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents`
	args := []any{}
	clauses := []string{}

	if filter.Role != nil {
		args = append(args, *filter.Role)
		clauses = append(clauses, fmt.Sprintf("role=$%d", len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		clauses = append(clauses, fmt.Sprintf("is_active=$%d", len(args)))
	}
	if filter.Expertise != nil {
		args = append(args, *filter.Expertise)
		clauses = append(clauses, fmt.Sprintf("$%d = ANY(expertise)", len(args)))
	}
	if filter.Number != nil {
		args = append(args, *filter.Number)
		clauses = append(clauses, fmt.Sprintf("$%d = ANY(whatsapp_numbers)", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	query += " ORDER BY created_at ASC, id ASC"
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

	var result []domain.Agent
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *agent)
	}
	return result, rows.Err()
}

func scanAgent(row pgx.Row) (*domain.Agent, error) {
	var agent domain.Agent
	if err := row.Scan(
		&agent.ID,
		&agent.Name,
		&agent.Email,
		&agent.PasswordHash,
		&agent.Role,
		&agent.Expertise,
		&agent.WhatsAppNumbers,
		&agent.IsActive,
		&agent.CurrentLoad,
		&agent.MaxTickets,
		&agent.CreatedAt,
		&agent.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &agent, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
