package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-router/internal/domain"
)

// ChannelRepository manages configured WhatsApp numbers.
type ChannelRepository interface {
	Create(ctx context.Context, channel *domain.Channel) error
	Update(ctx context.Context, channel *domain.Channel) error
	GetByID(ctx context.Context, id string) (*domain.Channel, error)
	GetByNumber(ctx context.Context, number string) (*domain.Channel, error)
	List(ctx context.Context, activeOnly bool) ([]domain.Channel, error)
}

const channelColumns = `id, number, name, categories, is_active, created_at, updated_at`

type channelRepository struct {
	pool *pgxpool.Pool
}

// NewChannelRepository constructs repository.
func NewChannelRepository(pool *pgxpool.Pool) ChannelRepository {
	return &channelRepository{pool: pool}
}

func (r *channelRepository) Create(ctx context.Context, channel *domain.Channel) error {
	const query = `
        INSERT INTO whatsapp_numbers (number, name, categories, is_active)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		channel.Number,
		channel.Name,
		nonNil(channel.Categories),
		channel.IsActive,
	).Scan(&channel.ID, &channel.CreatedAt, &channel.UpdatedAt)
	return normalize(err)
}

func (r *channelRepository) Update(ctx context.Context, channel *domain.Channel) error {
	const query = `
        UPDATE whatsapp_numbers SET number=$1, name=$2, categories=$3, is_active=$4, updated_at=NOW()
        WHERE id=$5
        RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query,
		channel.Number,
		channel.Name,
		nonNil(channel.Categories),
		channel.IsActive,
		channel.ID,
	).Scan(&channel.UpdatedAt)
	return normalize(err)
}

func (r *channelRepository) GetByID(ctx context.Context, id string) (*domain.Channel, error) {
	query := `SELECT ` + channelColumns + ` FROM whatsapp_numbers WHERE id=$1`
	channel, err := scanChannel(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, normalize(err)
	}
	return channel, nil
}

func (r *channelRepository) GetByNumber(ctx context.Context, number string) (*domain.Channel, error) {
	query := `SELECT ` + channelColumns + ` FROM whatsapp_numbers WHERE number=$1`
	channel, err := scanChannel(r.pool.QueryRow(ctx, query, number))
	if err != nil {
		return nil, normalize(err)
	}
	return channel, nil
}

func (r *channelRepository) List(ctx context.Context, activeOnly bool) ([]domain.Channel, error) {
	query := `SELECT ` + channelColumns + ` FROM whatsapp_numbers`
	if activeOnly {
		query += ` WHERE is_active=TRUE`
	}
	query += ` ORDER BY number ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Channel
	for rows.Next() {
		channel, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *channel)
	}
	return result, rows.Err()
}

func scanChannel(row pgx.Row) (*domain.Channel, error) {
	var channel domain.Channel
	if err := row.Scan(
		&channel.ID,
		&channel.Number,
		&channel.Name,
		&channel.Categories,
		&channel.IsActive,
		&channel.CreatedAt,
		&channel.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &channel, nil
}
