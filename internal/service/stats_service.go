package service

import (
	"context"

	"github.com/spec-kit/helpdesk-router/internal/domain"
	"github.com/spec-kit/helpdesk-router/internal/repository"
)

// AgentLoad summarises an agent's capacity.
type AgentLoad struct {
	AgentID     string `json:"agent_id"`
	Name        string `json:"name"`
	CurrentLoad int    `json:"current_load"`
	MaxTickets  int    `json:"max_tickets"`
	Available   bool   `json:"available"`
	Assigned    int    `json:"assigned_tickets"`
}

// Stats is the dashboard summary.
type Stats struct {
	TotalTickets int                          `json:"total_tickets"`
	Unassigned   int                          `json:"unassigned"`
	ByStatus     map[domain.TicketStatus]int  `json:"by_status"`
	ByChannel    map[domain.TicketChannel]int `json:"by_channel"`
	ByCategory   map[string]int               `json:"by_category"`
	Agents       []AgentLoad                  `json:"agents"`
}

// StatsService computes dashboard counters from the store.
type StatsService struct {
	store *repository.Store
}

// NewStatsService constructs the service.
func NewStatsService(store *repository.Store) *StatsService {
	return &StatsService{store: store}
}

// Compute builds a Stats snapshot. Assigned counts every ticket referencing
// the agent, which matches current_load as long as loads are only changed
// by the ticket workflows.
func (s *StatsService) Compute(ctx context.Context) (*Stats, error) {
	tickets, err := s.store.Tickets.List(ctx, repository.TicketFilter{})
	if err != nil {
		return nil, storeError("list tickets", err)
	}
	agents, err := s.store.Agents.List(ctx, repository.AgentFilter{})
	if err != nil {
		return nil, storeError("list agents", err)
	}
	return summarize(tickets, agents), nil
}

func summarize(tickets []domain.Ticket, agents []domain.Agent) *Stats {
	stats := &Stats{
		TotalTickets: len(tickets),
		ByStatus:     make(map[domain.TicketStatus]int),
		ByChannel:    make(map[domain.TicketChannel]int),
		ByCategory:   make(map[string]int),
		Agents:       make([]AgentLoad, 0, len(agents)),
	}
	assigned := make(map[string]int)
	for i := range tickets {
		t := &tickets[i]
		stats.ByStatus[t.Status]++
		stats.ByChannel[t.Channel]++
		stats.ByCategory[t.Category]++
		if t.Assigned() {
			assigned[*t.AssignedTo]++
		} else {
			stats.Unassigned++
		}
	}
	for i := range agents {
		a := &agents[i]
		stats.Agents = append(stats.Agents, AgentLoad{
			AgentID:     a.ID,
			Name:        a.Name,
			CurrentLoad: a.CurrentLoad,
			MaxTickets:  a.MaxTickets,
			Available:   a.Available(),
			Assigned:    assigned[a.ID],
		})
	}
	return stats
}
