package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-router/internal/domain"
)

func agent(id string, load, max int, active bool, expertise []string, numbers ...string) domain.Agent {
	return domain.Agent{
		ID:              id,
		Name:            id,
		IsActive:        active,
		CurrentLoad:     load,
		MaxTickets:      max,
		Expertise:       expertise,
		WhatsAppNumbers: numbers,
	}
}

func TestSelectAgentPrefersExpertAtEqualLoad(t *testing.T) {
	agents := []domain.Agent{
		agent("A", 2, 5, true, nil),
		agent("B", 2, 5, true, []string{"billing"}),
	}

	got := SelectAgent("billing", "", agents)
	require.NotNil(t, got)
	assert.Equal(t, "B", got.ID)
}

func TestSelectAgentExpertiseBeatsLowerLoad(t *testing.T) {
	agents := []domain.Agent{
		agent("A", 1, 5, true, nil),
		agent("B", 3, 5, true, []string{"billing"}),
	}

	got := SelectAgent("billing", "", agents)
	require.NotNil(t, got)
	assert.Equal(t, "B", got.ID)
}

func TestSelectAgentPicksLowestLoadWithoutExpert(t *testing.T) {
	agents := []domain.Agent{
		agent("A", 4, 5, true, []string{"technical"}),
		agent("B", 1, 5, true, nil),
		agent("C", 1, 5, true, nil),
	}

	got := SelectAgent("billing", "", agents)
	require.NotNil(t, got)
	assert.Equal(t, "B", got.ID, "ties keep original order")
}

func TestSelectAgentPrefersLowestLoadedExpert(t *testing.T) {
	agents := []domain.Agent{
		agent("A", 3, 5, true, []string{"billing"}),
		agent("B", 0, 5, true, nil),
		agent("C", 1, 5, true, []string{"billing"}),
	}

	got := SelectAgent("billing", "", agents)
	require.NotNil(t, got)
	assert.Equal(t, "C", got.ID)
}

func TestSelectAgentSkipsInactiveAndFull(t *testing.T) {
	agents := []domain.Agent{
		agent("inactive", 0, 5, false, []string{"billing"}),
		agent("full", 5, 5, true, []string{"billing"}),
		agent("ok", 4, 5, true, nil),
	}

	got := SelectAgent("billing", "", agents)
	require.NotNil(t, got)
	assert.Equal(t, "ok", got.ID)
}

func TestSelectAgentReturnsNilWhenNobodyAvailable(t *testing.T) {
	agents := []domain.Agent{
		agent("inactive", 0, 5, false, nil),
		agent("full", 3, 3, true, nil),
	}

	assert.Nil(t, SelectAgent("billing", "", agents))
	assert.Nil(t, SelectAgent("billing", "", nil))
}

func TestSelectAgentChannelAffinityIsSoft(t *testing.T) {
	agents := []domain.Agent{
		agent("A", 0, 5, true, []string{"billing"}),
		agent("B", 3, 5, true, nil, "+111"),
	}

	got := SelectAgent("billing", "+111", agents)
	require.NotNil(t, got)
	assert.Equal(t, "B", got.ID, "channel match narrows the pool")

	got = SelectAgent("billing", "+999", agents)
	require.NotNil(t, got)
	assert.Equal(t, "A", got.ID, "unknown channel falls back to all eligible agents")
}

func TestSelectAgentChannelIgnoresUnavailableMatches(t *testing.T) {
	agents := []domain.Agent{
		agent("A", 0, 5, true, nil),
		agent("B", 5, 5, true, nil, "+111"),
	}

	got := SelectAgent("billing", "+111", agents)
	require.NotNil(t, got)
	assert.Equal(t, "A", got.ID)
}

func TestSelectAgentNeverReturnsIneligible(t *testing.T) {
	agents := []domain.Agent{
		agent("A", 0, 0, true, []string{"billing"}),
		agent("B", 2, 1, true, []string{"billing"}),
		agent("C", 0, 9, false, []string{"billing"}),
		agent("D", 8, 9, true, nil, "+1"),
	}
	for _, category := range []string{"billing", "technical", ""} {
		for _, number := range []string{"", "+1", "+2"} {
			got := SelectAgent(category, number, agents)
			require.NotNil(t, got)
			assert.True(t, got.Available(), "category=%q number=%q", category, number)
		}
	}
}

func TestSelectAgentDoesNotMutateInput(t *testing.T) {
	agents := []domain.Agent{
		agent("A", 3, 5, true, nil),
		agent("B", 1, 5, true, nil),
	}
	_ = SelectAgent("billing", "", agents)
	assert.Equal(t, "A", agents[0].ID)
	assert.Equal(t, "B", agents[1].ID)
}
