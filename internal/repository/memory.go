package repository

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk-router/internal/domain"
)

// NewMemoryStore returns a Store held in process memory. It backs the
// service when no Postgres DSN is configured and is used throughout tests.
func NewMemoryStore() *Store {
	db := &memoryDB{
		agents:   map[string]*domain.Agent{},
		channels: map[string]*domain.Channel{},
		tickets:  map[string]*domain.Ticket{},
		history:  map[string][]domain.HistoryEntry{},
		messages: map[string][]domain.OutboundMessage{},
	}
	return &Store{
		Agents:   &memoryAgents{db: db},
		Channels: &memoryChannels{db: db},
		Tickets:  &memoryTickets{db: db},
		History:  &memoryHistory{db: db},
		Messages: &memoryMessages{db: db},
	}
}

type memoryDB struct {
	mu          sync.RWMutex
	agents      map[string]*domain.Agent
	agentOrder  []string
	channels    map[string]*domain.Channel
	tickets     map[string]*domain.Ticket
	ticketOrder []string
	history     map[string][]domain.HistoryEntry
	messages    map[string][]domain.OutboundMessage
}

func now() time.Time {
	return time.Now().UTC()
}

func cloneAgent(a *domain.Agent) *domain.Agent {
	c := *a
	c.Expertise = slices.Clone(a.Expertise)
	c.WhatsAppNumbers = slices.Clone(a.WhatsAppNumbers)
	return &c
}

func cloneTicket(t *domain.Ticket) *domain.Ticket {
	c := *t
	c.Tags = slices.Clone(t.Tags)
	if t.AssignedTo != nil {
		v := *t.AssignedTo
		c.AssignedTo = &v
	}
	if t.CustomerEmail != nil {
		v := *t.CustomerEmail
		c.CustomerEmail = &v
	}
	if t.WhatsAppNumber != nil {
		v := *t.WhatsAppNumber
		c.WhatsAppNumber = &v
	}
	return &c
}

func cloneChannel(ch *domain.Channel) *domain.Channel {
	c := *ch
	c.Categories = slices.Clone(ch.Categories)
	return &c
}

type memoryAgents struct{ db *memoryDB }

func (r *memoryAgents) Create(_ context.Context, agent *domain.Agent) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.agents {
		if strings.EqualFold(existing.Email, agent.Email) {
			return ErrDuplicate
		}
	}
	if agent.ID == "" {
		agent.ID = uuid.NewString()
	}
	if _, ok := r.db.agents[agent.ID]; ok {
		return ErrDuplicate
	}
	agent.CreatedAt = now()
	agent.UpdatedAt = agent.CreatedAt
	r.db.agents[agent.ID] = cloneAgent(agent)
	r.db.agentOrder = append(r.db.agentOrder, agent.ID)
	return nil
}

func (r *memoryAgents) Update(_ context.Context, agent *domain.Agent) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	stored, ok := r.db.agents[agent.ID]
	if !ok {
		return ErrNotFound
	}
	for id, existing := range r.db.agents {
		if id != agent.ID && strings.EqualFold(existing.Email, agent.Email) {
			return ErrDuplicate
		}
	}
	next := cloneAgent(agent)
	next.CurrentLoad = stored.CurrentLoad
	next.CreatedAt = stored.CreatedAt
	next.UpdatedAt = now()
	r.db.agents[agent.ID] = next
	agent.CurrentLoad = next.CurrentLoad
	agent.UpdatedAt = next.UpdatedAt
	return nil
}

func (r *memoryAgents) GetByID(_ context.Context, id string) (*domain.Agent, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	agent, ok := r.db.agents[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneAgent(agent), nil
}

func (r *memoryAgents) GetByEmail(_ context.Context, email string) (*domain.Agent, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	for _, agent := range r.db.agents {
		if strings.EqualFold(agent.Email, email) {
			return cloneAgent(agent), nil
		}
	}
	return nil, ErrNotFound
}

func (r *memoryAgents) List(_ context.Context, filter AgentFilter) ([]domain.Agent, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	var result []domain.Agent
	for _, id := range r.db.agentOrder {
		agent := r.db.agents[id]
		if filter.Role != nil && agent.Role != *filter.Role {
			continue
		}
		if filter.Active != nil && agent.IsActive != *filter.Active {
			continue
		}
		if filter.Expertise != nil && !agent.HasExpertise(*filter.Expertise) {
			continue
		}
		if filter.Number != nil && !agent.Services(*filter.Number) {
			continue
		}
		result = append(result, *cloneAgent(agent))
	}
	return paginate(result, filter.Limit, filter.Offset), nil
}

func (r *memoryAgents) AdjustLoad(_ context.Context, id string, delta int) (*domain.Agent, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	agent, ok := r.db.agents[id]
	if !ok {
		return nil, ErrNotFound
	}
	agent.CurrentLoad = max(agent.CurrentLoad+delta, 0)
	agent.UpdatedAt = now()
	return cloneAgent(agent), nil
}

type memoryChannels struct{ db *memoryDB }

func (r *memoryChannels) Create(_ context.Context, channel *domain.Channel) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.channels {
		if existing.Number == channel.Number {
			return ErrDuplicate
		}
	}
	if channel.ID == "" {
		channel.ID = uuid.NewString()
	}
	channel.CreatedAt = now()
	channel.UpdatedAt = channel.CreatedAt
	r.db.channels[channel.ID] = cloneChannel(channel)
	return nil
}

func (r *memoryChannels) Update(_ context.Context, channel *domain.Channel) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	stored, ok := r.db.channels[channel.ID]
	if !ok {
		return ErrNotFound
	}
	for id, existing := range r.db.channels {
		if id != channel.ID && existing.Number == channel.Number {
			return ErrDuplicate
		}
	}
	next := cloneChannel(channel)
	next.CreatedAt = stored.CreatedAt
	next.UpdatedAt = now()
	r.db.channels[channel.ID] = next
	channel.UpdatedAt = next.UpdatedAt
	return nil
}

func (r *memoryChannels) GetByID(_ context.Context, id string) (*domain.Channel, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	channel, ok := r.db.channels[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneChannel(channel), nil
}

func (r *memoryChannels) GetByNumber(_ context.Context, number string) (*domain.Channel, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	for _, channel := range r.db.channels {
		if channel.Number == number {
			return cloneChannel(channel), nil
		}
	}
	return nil, ErrNotFound
}

func (r *memoryChannels) List(_ context.Context, activeOnly bool) ([]domain.Channel, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	var result []domain.Channel
	for _, channel := range r.db.channels {
		if activeOnly && !channel.IsActive {
			continue
		}
		result = append(result, *cloneChannel(channel))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Number < result[j].Number })
	return result, nil
}

type memoryTickets struct{ db *memoryDB }

var ticketIDPattern = regexp.MustCompile(`^TKT-(\d+)$`)

func (r *memoryTickets) Create(_ context.Context, ticket *domain.Ticket) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if ticket.ID == "" {
		return fmt.Errorf("ticket id required")
	}
	if _, ok := r.db.tickets[ticket.ID]; ok {
		return ErrDuplicate
	}
	ticket.CreatedAt = now()
	ticket.UpdatedAt = ticket.CreatedAt
	r.db.tickets[ticket.ID] = cloneTicket(ticket)
	r.db.ticketOrder = append(r.db.ticketOrder, ticket.ID)
	return nil
}

func (r *memoryTickets) UpdateStatus(_ context.Context, id string, status domain.TicketStatus) (*domain.Ticket, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	stored, ok := r.db.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	stored.Status = status
	stored.UpdatedAt = now()
	return cloneTicket(stored), nil
}

func (r *memoryTickets) Assign(_ context.Context, id, agentID string) (*domain.Ticket, *string, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	stored, ok := r.db.tickets[id]
	if !ok {
		return nil, nil, ErrNotFound
	}
	previous := stored.AssignedTo
	assignee := agentID
	stored.AssignedTo = &assignee
	stored.UpdatedAt = now()
	return cloneTicket(stored), previous, nil
}

func (r *memoryTickets) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	ticket, ok := r.db.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneTicket(ticket), nil
}

func (r *memoryTickets) Exists(_ context.Context, id string) (bool, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	_, ok := r.db.tickets[id]
	return ok, nil
}

func (r *memoryTickets) MaxSequence(_ context.Context) (int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	highest := 0
	for id := range r.db.tickets {
		m := ticketIDPattern.FindStringSubmatch(id)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		highest = max(highest, n)
	}
	return highest, nil
}

func (r *memoryTickets) List(_ context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	search := ""
	if filter.SearchTerm != nil {
		search = strings.ToLower(strings.TrimSpace(*filter.SearchTerm))
	}
	var result []domain.Ticket
	for i := len(r.db.ticketOrder) - 1; i >= 0; i-- {
		ticket := r.db.tickets[r.db.ticketOrder[i]]
		if filter.AssignedTo != nil && (ticket.AssignedTo == nil || *ticket.AssignedTo != *filter.AssignedTo) {
			continue
		}
		if filter.Unassigned && ticket.Assigned() {
			continue
		}
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, ticket.Status) {
			continue
		}
		if len(filter.Channels) > 0 && !slices.Contains(filter.Channels, ticket.Channel) {
			continue
		}
		if filter.Category != nil && ticket.Category != *filter.Category {
			continue
		}
		if filter.CreatedFrom != nil && ticket.CreatedAt.Before(*filter.CreatedFrom) {
			continue
		}
		if filter.CreatedTo != nil && ticket.CreatedAt.After(*filter.CreatedTo) {
			continue
		}
		if search != "" && !matchesSearch(ticket, search) {
			continue
		}
		result = append(result, *cloneTicket(ticket))
	}
	return paginate(result, filter.Limit, filter.Offset), nil
}

func matchesSearch(t *domain.Ticket, term string) bool {
	for _, field := range []string{t.ID, t.Subject, t.Message, t.CustomerName} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

type memoryHistory struct{ db *memoryDB }

func (r *memoryHistory) Append(_ context.Context, entry *domain.HistoryEntry) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.tickets[entry.TicketID]; !ok {
		return ErrNotFound
	}
	entry.ID = uuid.NewString()
	entry.CreatedAt = now()
	r.db.history[entry.TicketID] = append(r.db.history[entry.TicketID], *entry)
	return nil
}

func (r *memoryHistory) ListByTicket(_ context.Context, ticketID string) ([]domain.HistoryEntry, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return slices.Clone(r.db.history[ticketID]), nil
}

type memoryMessages struct{ db *memoryDB }

func (r *memoryMessages) Create(_ context.Context, msg *domain.OutboundMessage) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	msg.ID = uuid.NewString()
	msg.CreatedAt = now()
	key := ""
	if msg.TicketID != nil {
		key = *msg.TicketID
	}
	r.db.messages[key] = append(r.db.messages[key], *msg)
	return nil
}

func (r *memoryMessages) ListByTicket(_ context.Context, ticketID string) ([]domain.OutboundMessage, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return slices.Clone(r.db.messages[ticketID]), nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		if offset == 0 {
			return items
		}
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
