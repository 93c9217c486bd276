package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/helpdesk-router/internal/config"
	"github.com/spec-kit/helpdesk-router/internal/domain"
	"github.com/spec-kit/helpdesk-router/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-router/pkg/util/errorutil"
)

func newAgentService(t *testing.T) (*AgentService, *repository.Store) {
	t.Helper()
	store := repository.NewMemoryStore()
	cfg := config.Config{
		Auth:    config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 5, BcryptCost: bcrypt.MinCost},
		Routing: config.RoutingConfig{DefaultMaxTickets: 7},
	}
	return NewAgentService(cfg, AgentDependencies{AgentRepo: store.Agents}), store
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newAgentService(t)
	ctx := context.Background()

	agent, token, exp, err := svc.Register(ctx, RegisterAgentInput{
		Name:      "Agent1",
		Email:     " Agent1@Example.com ",
		Password:  "correct-horse",
		Expertise: []string{"billing", "billing", " "},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.False(t, exp.IsZero())
	assert.Equal(t, "agent1@example.com", agent.Email)
	assert.Equal(t, domain.AgentRoleAgent, agent.Role)
	assert.Equal(t, 7, agent.MaxTickets)
	assert.Equal(t, 0, agent.CurrentLoad)
	assert.True(t, agent.IsActive)
	assert.Equal(t, []string{"billing"}, agent.Expertise)

	claims, err := svc.TokenManager().ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, agent.ID, claims.AgentID)

	logged, _, _, err := svc.Login(ctx, "agent1@example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, agent.ID, logged.ID)

	_, _, _, err = svc.Login(ctx, "agent1@example.com", "wrong-password")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))
	_, _, _, err = svc.Login(ctx, "nobody@example.com", "correct-horse")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newAgentService(t)
	ctx := context.Background()

	_, _, _, err := svc.Register(ctx, RegisterAgentInput{Email: "a@example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name")
	assert.Contains(t, err.Error(), "password")

	_, _, _, err = svc.Register(ctx, RegisterAgentInput{Name: "A", Email: "not-an-email", Password: "long-enough"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	_, _, _, err = svc.Register(ctx, RegisterAgentInput{Name: "A", Email: "a@example.com", Password: "short"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	_, err = svc.Create(ctx, RegisterAgentInput{Name: "A", Email: "a@example.com", Password: "long-enough", Role: "owner"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	_, _, _, err = svc.Register(ctx, RegisterAgentInput{Name: "A", Email: "a@example.com", Password: "long-enough"})
	require.NoError(t, err)
	_, _, _, err = svc.Register(ctx, RegisterAgentInput{Name: "B", Email: "A@example.com", Password: "long-enough"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
}

func TestRegisterIgnoresRequestedRole(t *testing.T) {
	svc, _ := newAgentService(t)
	ctx := context.Background()

	agent, token, _, err := svc.Register(ctx, RegisterAgentInput{
		Name:     "Mallory",
		Email:    "mallory@example.com",
		Password: "long-enough",
		Role:     domain.AgentRoleAdmin,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.AgentRoleAgent, agent.Role)

	claims, err := svc.TokenManager().ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, domain.AgentRoleAgent, claims.Role)
}

func TestRegisterBootstrapAdmin(t *testing.T) {
	store := repository.NewMemoryStore()
	cfg := config.Config{
		Auth: config.AuthConfig{
			JWTSecret:             "test-secret",
			AccessTokenTTLMinutes: 5,
			BcryptCost:            bcrypt.MinCost,
			BootstrapAdminEmail:   "Root@Example.com",
		},
	}
	svc := NewAgentService(cfg, AgentDependencies{AgentRepo: store.Agents})
	ctx := context.Background()

	admin, _, _, err := svc.Register(ctx, RegisterAgentInput{Name: "Root", Email: "root@example.com", Password: "long-enough"})
	require.NoError(t, err)
	assert.Equal(t, domain.AgentRoleAdmin, admin.Role)

	other, _, _, err := svc.Register(ctx, RegisterAgentInput{Name: "Other", Email: "other@example.com", Password: "long-enough", Role: domain.AgentRoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, domain.AgentRoleAgent, other.Role)
}

func TestCreateHonorsRole(t *testing.T) {
	svc, _ := newAgentService(t)
	ctx := context.Background()

	lead, err := svc.Create(ctx, RegisterAgentInput{
		Name:     "Lead",
		Email:    "lead@example.com",
		Password: "long-enough",
		Role:     domain.AgentRoleSupervisor,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.AgentRoleSupervisor, lead.Role)

	plain, err := svc.Create(ctx, RegisterAgentInput{Name: "Plain", Email: "plain@example.com", Password: "long-enough"})
	require.NoError(t, err)
	assert.Equal(t, domain.AgentRoleAgent, plain.Role)

	_, err = svc.Create(ctx, RegisterAgentInput{Name: "Dup", Email: "LEAD@example.com", Password: "long-enough"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
}

func TestLoginRejectsInactiveAgent(t *testing.T) {
	svc, _ := newAgentService(t)
	ctx := context.Background()
	agent, _, _, err := svc.Register(ctx, RegisterAgentInput{Name: "A", Email: "a@example.com", Password: "long-enough"})
	require.NoError(t, err)

	inactive := false
	_, err = svc.Update(ctx, agent.ID, UpdateAgentInput{IsActive: &inactive})
	require.NoError(t, err)

	_, _, _, err = svc.Login(ctx, "a@example.com", "long-enough")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
}

func TestUpdateAgentKeepsLoad(t *testing.T) {
	svc, store := newAgentService(t)
	ctx := context.Background()
	agent, _, _, err := svc.Register(ctx, RegisterAgentInput{Name: "A", Email: "a@example.com", Password: "long-enough"})
	require.NoError(t, err)
	_, err = store.Agents.AdjustLoad(ctx, agent.ID, 3)
	require.NoError(t, err)

	name := "Renamed"
	role := domain.AgentRoleSupervisor
	maxTickets := 9
	numbers := []string{"+15559999"}
	updated, err := svc.Update(ctx, agent.ID, UpdateAgentInput{
		Name:            &name,
		Role:            &role,
		MaxTickets:      &maxTickets,
		WhatsAppNumbers: &numbers,
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, domain.AgentRoleSupervisor, updated.Role)
	assert.Equal(t, 9, updated.MaxTickets)
	assert.Equal(t, 3, updated.CurrentLoad)
	assert.Equal(t, []string{"+15559999"}, updated.WhatsAppNumbers)

	negative := -1
	_, err = svc.Update(ctx, agent.ID, UpdateAgentInput{MaxTickets: &negative})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	_, err = svc.Update(ctx, "missing", UpdateAgentInput{Name: &name})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestChannelService(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := NewChannelService(store.Channels)
	ctx := context.Background()

	number := "+15559999"
	categories := []string{"billing", "support"}
	channel, err := svc.Create(ctx, ChannelInput{Number: &number, Categories: &categories})
	require.NoError(t, err)
	assert.True(t, channel.IsActive)

	_, err = svc.Create(ctx, ChannelInput{Number: &number})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))

	_, err = svc.Create(ctx, ChannelInput{})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	inactive := false
	updated, err := svc.Update(ctx, channel.ID, ChannelInput{IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)

	active, err := svc.List(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, active)

	all, err := svc.List(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = svc.Update(ctx, "missing", ChannelInput{IsActive: &inactive})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}
