package repository

import "github.com/jackc/pgx/v5/pgxpool"

// Store bundles the directory repositories consumed by the routing engine.
type Store struct {
	Agents   AgentRepository
	Channels ChannelRepository
	Tickets  TicketRepository
	History  HistoryRepository
	Messages MessageRepository
}

// NewPostgresStore builds a Store backed by pgx repositories.
func NewPostgresStore(pool *pgxpool.Pool) *Store {
	return &Store{
		Agents:   NewAgentRepository(pool),
		Channels: NewChannelRepository(pool),
		Tickets:  NewTicketRepository(pool),
		History:  NewHistoryRepository(pool),
		Messages: NewMessageRepository(pool),
	}
}
