package repository

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-router/internal/domain"
)

func TestMemoryAgentsAdjustLoadFloorsAtZero(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	agent := &domain.Agent{Name: "Agent1", Email: "a1@example.com", IsActive: true, MaxTickets: 5}
	require.NoError(t, store.Agents.Create(ctx, agent))

	updated, err := store.Agents.AdjustLoad(ctx, agent.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.CurrentLoad)

	updated, err = store.Agents.AdjustLoad(ctx, agent.ID, -5)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.CurrentLoad)

	_, err = store.Agents.AdjustLoad(ctx, "missing", 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryAgentsAdjustLoadConcurrent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	agent := &domain.Agent{Name: "Agent1", Email: "a1@example.com", IsActive: true, MaxTickets: 500}
	require.NoError(t, store.Agents.Create(ctx, agent))

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = store.Agents.AdjustLoad(ctx, agent.ID, 1)
		}()
	}
	wg.Wait()

	got, err := store.Agents.GetByID(ctx, agent.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, got.CurrentLoad)
}

func TestMemoryAgentsUpdateKeepsLoad(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	agent := &domain.Agent{Name: "Agent1", Email: "a1@example.com", IsActive: true, MaxTickets: 5}
	require.NoError(t, store.Agents.Create(ctx, agent))
	_, err := store.Agents.AdjustLoad(ctx, agent.ID, 3)
	require.NoError(t, err)

	agent.Name = "Renamed"
	agent.CurrentLoad = 99
	require.NoError(t, store.Agents.Update(ctx, agent))
	assert.Equal(t, 3, agent.CurrentLoad)

	got, err := store.Agents.GetByID(ctx, agent.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, 3, got.CurrentLoad)
}

func TestMemoryAgentsRejectDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Agents.Create(ctx, &domain.Agent{Name: "A", Email: "dup@example.com"}))
	err := store.Agents.Create(ctx, &domain.Agent{Name: "B", Email: "DUP@example.com"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestMemoryAgentsListKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	for _, name := range []string{"first", "second", "third"} {
		require.NoError(t, store.Agents.Create(ctx, &domain.Agent{
			Name: name, Email: name + "@example.com", IsActive: name != "second",
			Expertise: []string{"billing"},
		}))
	}

	all, err := store.Agents.List(ctx, AgentFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "first", all[0].Name)
	assert.Equal(t, "third", all[2].Name)

	active := true
	onlyActive, err := store.Agents.List(ctx, AgentFilter{Active: &active})
	require.NoError(t, err)
	assert.Len(t, onlyActive, 2)
}

func TestMemoryTicketsDuplicateAndSequence(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	seq, err := store.Tickets.MaxSequence(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, seq)

	for _, id := range []string{"TKT-001", "TKT-010", "TKT-1002", "LEGACY-9999"} {
		require.NoError(t, store.Tickets.Create(ctx, &domain.Ticket{ID: id, Status: domain.TicketStatusOpen}))
	}
	err = store.Tickets.Create(ctx, &domain.Ticket{ID: "TKT-010"})
	assert.ErrorIs(t, err, ErrDuplicate)

	seq, err = store.Tickets.MaxSequence(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1002, seq)

	exists, err := store.Tickets.Exists(ctx, "TKT-001")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestMemoryTicketsFilter(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	agentID := "agent-1"
	require.NoError(t, store.Tickets.Create(ctx, &domain.Ticket{
		ID: "TKT-001", Subject: "Refund", Status: domain.TicketStatusOpen,
		Channel: domain.ChannelWhatsApp, AssignedTo: &agentID, Category: "billing",
	}))
	require.NoError(t, store.Tickets.Create(ctx, &domain.Ticket{
		ID: "TKT-002", Subject: "Login issue", Status: domain.TicketStatusClosed,
		Channel: domain.ChannelWeb, Category: "technical",
	}))

	byAgent, err := store.Tickets.List(ctx, TicketFilter{AssignedTo: &agentID})
	require.NoError(t, err)
	require.Len(t, byAgent, 1)
	assert.Equal(t, "TKT-001", byAgent[0].ID)

	unassigned, err := store.Tickets.List(ctx, TicketFilter{Unassigned: true})
	require.NoError(t, err)
	require.Len(t, unassigned, 1)
	assert.Equal(t, "TKT-002", unassigned[0].ID)

	term := "login"
	searched, err := store.Tickets.List(ctx, TicketFilter{SearchTerm: &term})
	require.NoError(t, err)
	require.Len(t, searched, 1)

	newestFirst, err := store.Tickets.List(ctx, TicketFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, newestFirst, 1)
	assert.Equal(t, "TKT-002", newestFirst[0].ID)
}

func TestMemoryTicketReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Tickets.Create(ctx, &domain.Ticket{ID: "TKT-001", Tags: []string{"manual-entry"}}))

	got, err := store.Tickets.GetByID(ctx, "TKT-001")
	require.NoError(t, err)
	got.Tags[0] = "mutated"

	again, err := store.Tickets.GetByID(ctx, "TKT-001")
	require.NoError(t, err)
	assert.Equal(t, "manual-entry", again.Tags[0])
}

func TestMemoryTicketsNarrowWrites(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Tickets.Create(ctx, &domain.Ticket{ID: "TKT-001", Status: domain.TicketStatusOpen}))

	ticket, previous, err := store.Tickets.Assign(ctx, "TKT-001", "agent-a")
	require.NoError(t, err)
	assert.Nil(t, previous)
	assert.Equal(t, "agent-a", *ticket.AssignedTo)

	ticket, err = store.Tickets.UpdateStatus(ctx, "TKT-001", domain.TicketStatusResolved)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, ticket.Status)
	assert.Equal(t, "agent-a", *ticket.AssignedTo)

	ticket, previous, err = store.Tickets.Assign(ctx, "TKT-001", "agent-b")
	require.NoError(t, err)
	require.NotNil(t, previous)
	assert.Equal(t, "agent-a", *previous)
	assert.Equal(t, domain.TicketStatusResolved, ticket.Status)

	_, err = store.Tickets.UpdateStatus(ctx, "TKT-404", domain.TicketStatusClosed)
	assert.ErrorIs(t, err, ErrNotFound)
	_, _, err = store.Tickets.Assign(ctx, "TKT-404", "agent-b")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryHistoryRequiresTicket(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	err := store.History.Append(ctx, &domain.HistoryEntry{TicketID: "TKT-404"})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Tickets.Create(ctx, &domain.Ticket{ID: "TKT-001"}))
	require.NoError(t, store.History.Append(ctx, &domain.HistoryEntry{TicketID: "TKT-001", Status: domain.TicketStatusOpen}))
	entries, err := store.History.ListByTicket(ctx, "TKT-001")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotEmpty(t, entries[0].ID)
}

type recordingPublisher struct {
	events []domain.ChangeEvent
}

func (p *recordingPublisher) PublishChange(_ context.Context, event domain.ChangeEvent) {
	p.events = append(p.events, event)
}

func TestWithChangeFeedPublishesWrites(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	store := NewMemoryStore().WithChangeFeed(pub)

	agent := &domain.Agent{Name: "A", Email: "a@example.com", IsActive: true, MaxTickets: 2}
	require.NoError(t, store.Agents.Create(ctx, agent))
	_, err := store.Agents.AdjustLoad(ctx, agent.ID, 1)
	require.NoError(t, err)
	require.NoError(t, store.Tickets.Create(ctx, &domain.Ticket{ID: "TKT-001"}))
	require.NoError(t, store.History.Append(ctx, &domain.HistoryEntry{TicketID: "TKT-001"}))

	_, err = store.Tickets.GetByID(ctx, "TKT-001")
	require.NoError(t, err)

	require.Len(t, pub.events, 4)
	assert.Equal(t, domain.CollectionAgents, pub.events[0].Collection)
	assert.Equal(t, domain.ChangeInsert, pub.events[0].Type)
	assert.Equal(t, domain.ChangeUpdate, pub.events[1].Type)
	assert.Equal(t, domain.CollectionTickets, pub.events[2].Collection)
	assert.Equal(t, domain.CollectionHistory, pub.events[3].Collection)
	assert.Equal(t, "TKT-001", pub.events[2].RecordID)

	failed := store.Tickets.Create(ctx, &domain.Ticket{ID: "TKT-001"})
	assert.ErrorIs(t, failed, ErrDuplicate)
	assert.Len(t, pub.events, 4)
}
