package repository

import (
	"context"
	"time"

	"github.com/spec-kit/helpdesk-router/internal/domain"
)

// ChangePublisher receives a change event after every successful write.
type ChangePublisher interface {
	PublishChange(ctx context.Context, event domain.ChangeEvent)
}

func publish(ctx context.Context, pub ChangePublisher, collection domain.Collection, kind domain.ChangeType, id string, version time.Time, record any) {
	pub.PublishChange(ctx, domain.ChangeEvent{
		Collection: collection,
		Type:       kind,
		RecordID:   id,
		Version:    version,
		Record:     record,
	})
}

// WithChangeFeed returns a Store whose writes are reported to pub.
// Reads pass straight through.
func (s *Store) WithChangeFeed(pub ChangePublisher) *Store {
	if pub == nil {
		return s
	}
	return &Store{
		Agents:   &feedAgents{AgentRepository: s.Agents, pub: pub},
		Channels: &feedChannels{ChannelRepository: s.Channels, pub: pub},
		Tickets:  &feedTickets{TicketRepository: s.Tickets, pub: pub},
		History:  &feedHistory{HistoryRepository: s.History, pub: pub},
		Messages: &feedMessages{MessageRepository: s.Messages, pub: pub},
	}
}

type feedAgents struct {
	AgentRepository
	pub ChangePublisher
}

func (f *feedAgents) Create(ctx context.Context, agent *domain.Agent) error {
	if err := f.AgentRepository.Create(ctx, agent); err != nil {
		return err
	}
	publish(ctx, f.pub, domain.CollectionAgents, domain.ChangeInsert, agent.ID, agent.UpdatedAt, *agent)
	return nil
}

func (f *feedAgents) Update(ctx context.Context, agent *domain.Agent) error {
	if err := f.AgentRepository.Update(ctx, agent); err != nil {
		return err
	}
	publish(ctx, f.pub, domain.CollectionAgents, domain.ChangeUpdate, agent.ID, agent.UpdatedAt, *agent)
	return nil
}

func (f *feedAgents) AdjustLoad(ctx context.Context, id string, delta int) (*domain.Agent, error) {
	agent, err := f.AgentRepository.AdjustLoad(ctx, id, delta)
	if err != nil {
		return nil, err
	}
	publish(ctx, f.pub, domain.CollectionAgents, domain.ChangeUpdate, agent.ID, agent.UpdatedAt, *agent)
	return agent, nil
}

type feedChannels struct {
	ChannelRepository
	pub ChangePublisher
}

func (f *feedChannels) Create(ctx context.Context, channel *domain.Channel) error {
	if err := f.ChannelRepository.Create(ctx, channel); err != nil {
		return err
	}
	publish(ctx, f.pub, domain.CollectionChannels, domain.ChangeInsert, channel.ID, channel.UpdatedAt, *channel)
	return nil
}

func (f *feedChannels) Update(ctx context.Context, channel *domain.Channel) error {
	if err := f.ChannelRepository.Update(ctx, channel); err != nil {
		return err
	}
	publish(ctx, f.pub, domain.CollectionChannels, domain.ChangeUpdate, channel.ID, channel.UpdatedAt, *channel)
	return nil
}

type feedTickets struct {
	TicketRepository
	pub ChangePublisher
}

func (f *feedTickets) Create(ctx context.Context, ticket *domain.Ticket) error {
	if err := f.TicketRepository.Create(ctx, ticket); err != nil {
		return err
	}
	publish(ctx, f.pub, domain.CollectionTickets, domain.ChangeInsert, ticket.ID, ticket.UpdatedAt, *ticket)
	return nil
}

func (f *feedTickets) UpdateStatus(ctx context.Context, id string, status domain.TicketStatus) (*domain.Ticket, error) {
	ticket, err := f.TicketRepository.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	publish(ctx, f.pub, domain.CollectionTickets, domain.ChangeUpdate, ticket.ID, ticket.UpdatedAt, *ticket)
	return ticket, nil
}

func (f *feedTickets) Assign(ctx context.Context, id, agentID string) (*domain.Ticket, *string, error) {
	ticket, previous, err := f.TicketRepository.Assign(ctx, id, agentID)
	if err != nil {
		return nil, nil, err
	}
	publish(ctx, f.pub, domain.CollectionTickets, domain.ChangeUpdate, ticket.ID, ticket.UpdatedAt, *ticket)
	return ticket, previous, nil
}

type feedHistory struct {
	HistoryRepository
	pub ChangePublisher
}

func (f *feedHistory) Append(ctx context.Context, entry *domain.HistoryEntry) error {
	if err := f.HistoryRepository.Append(ctx, entry); err != nil {
		return err
	}
	publish(ctx, f.pub, domain.CollectionHistory, domain.ChangeInsert, entry.ID, entry.CreatedAt, *entry)
	return nil
}

type feedMessages struct {
	MessageRepository
	pub ChangePublisher
}

func (f *feedMessages) Create(ctx context.Context, msg *domain.OutboundMessage) error {
	if err := f.MessageRepository.Create(ctx, msg); err != nil {
		return err
	}
	publish(ctx, f.pub, domain.CollectionMessages, domain.ChangeInsert, msg.ID, msg.CreatedAt, *msg)
	return nil
}
