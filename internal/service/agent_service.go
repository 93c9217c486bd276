package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-router/internal/auth"
	"github.com/spec-kit/helpdesk-router/internal/config"
	"github.com/spec-kit/helpdesk-router/internal/domain"
	"github.com/spec-kit/helpdesk-router/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-router/pkg/util/errorutil"
)

// AgentService handles agent registration, login and profile edits.
// It never touches current_load; only the ticket workflows do.
type AgentService struct {
	agents     repository.AgentRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
	defaultMax int
	// bootstrapAdmin is the lower-cased email allowed to self-register as admin.
	bootstrapAdmin string
	logger         *zap.Logger
}

// AgentDependencies encapsulates collaborators for the agent service.
type AgentDependencies struct {
	AgentRepo repository.AgentRepository
	Logger    *zap.Logger
}

// NewAgentService builds the service.
func NewAgentService(cfg config.Config, deps AgentDependencies) *AgentService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	defaultMax := cfg.Routing.DefaultMaxTickets
	if defaultMax <= 0 {
		defaultMax = 5
	}
	return &AgentService{
		agents:         deps.AgentRepo,
		tokenMgr:       auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost:     cfg.Auth.BcryptCost,
		defaultMax:     defaultMax,
		bootstrapAdmin: strings.ToLower(strings.TrimSpace(cfg.Auth.BootstrapAdminEmail)),
		logger:         logger,
	}
}

// RegisterAgentInput describes a new agent.
type RegisterAgentInput struct {
	Name            string
	Email           string
	Password        string
	Role            domain.AgentRole
	Expertise       []string
	WhatsAppNumbers []string
	MaxTickets      *int
}

// Register is the public sign-up path. The requested role is ignored: every
// self-registered agent gets the agent role, except the configured bootstrap
// admin email which becomes admin.
func (s *AgentService) Register(ctx context.Context, input RegisterAgentInput) (*domain.Agent, string, time.Time, error) {
	role := domain.AgentRoleAgent
	if s.bootstrapAdmin != "" && strings.EqualFold(strings.TrimSpace(input.Email), s.bootstrapAdmin) {
		role = domain.AgentRoleAdmin
	}
	agent, err := s.create(ctx, input, role)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	token, exp, err := s.tokenMgr.GenerateToken(agent.ID, agent.Role)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}
	s.logger.Info("agent registered", zap.String("agent_id", agent.ID), zap.String("role", string(agent.Role)))
	return agent, token, exp, nil
}

// Create adds an agent on behalf of a supervisor and honors the requested role.
// Callers decide who may grant which role.
func (s *AgentService) Create(ctx context.Context, input RegisterAgentInput) (*domain.Agent, error) {
	role := input.Role
	if role == "" {
		role = domain.AgentRoleAgent
	}
	if !role.Valid() {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": role})
	}
	agent, err := s.create(ctx, input, role)
	if err != nil {
		return nil, err
	}
	s.logger.Info("agent created", zap.String("agent_id", agent.ID), zap.String("role", string(agent.Role)))
	return agent, nil
}

func (s *AgentService) create(ctx context.Context, input RegisterAgentInput, role domain.AgentRole) (*domain.Agent, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.ToLower(strings.TrimSpace(input.Email))

	var missing []string
	if name == "" {
		missing = append(missing, "name")
	}
	if email == "" {
		missing = append(missing, "email")
	}
	if input.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return nil, apperrors.NewMissingFields(missing...)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperrors.NewValidationError("invalid email", map[string]any{"email": email})
	}

	maxTickets := s.defaultMax
	if input.MaxTickets != nil {
		maxTickets = *input.MaxTickets
	}
	if maxTickets < 0 {
		return nil, apperrors.NewValidationError("max_tickets must not be negative", nil)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		if errors.Is(err, auth.ErrWeakPassword) {
			return nil, apperrors.NewValidationError("password too short", map[string]any{"min_length": auth.MinPasswordLength})
		}
		return nil, apperrors.NewInternalError(err)
	}

	agent := &domain.Agent{
		Name:            name,
		Email:           email,
		PasswordHash:    hash,
		Role:            role,
		Expertise:       normalizeSet(input.Expertise),
		WhatsAppNumbers: normalizeSet(input.WhatsAppNumbers),
		IsActive:        true,
		MaxTickets:      maxTickets,
	}
	if err := s.agents.Create(ctx, agent); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("email already registered", map[string]any{"email": email})
		}
		return nil, storeError("create agent", err)
	}
	return agent, nil
}

// Login authenticates an agent by email and password.
func (s *AgentService) Login(ctx context.Context, email, password string) (*domain.Agent, string, time.Time, error) {
	agent, err := s.agents.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, "", time.Time{}, storeError("get agent", err)
	}
	if err := auth.ComparePassword(agent.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	if !agent.IsActive {
		return nil, "", time.Time{}, apperrors.NewForbidden("agent inactive")
	}
	token, exp, err := s.tokenMgr.GenerateToken(agent.ID, agent.Role)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}
	return agent, token, exp, nil
}

// List returns agents in registration order.
func (s *AgentService) List(ctx context.Context, filter repository.AgentFilter) ([]domain.Agent, error) {
	agents, err := s.agents.List(ctx, filter)
	if err != nil {
		return nil, storeError("list agents", err)
	}
	return agents, nil
}

// Get returns a single agent.
func (s *AgentService) Get(ctx context.Context, id string) (*domain.Agent, error) {
	agent, err := s.agents.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError("agent", "agent_id", id, err)
	}
	return agent, nil
}

// UpdateAgentInput lists editable profile fields. Nil fields are left as is.
type UpdateAgentInput struct {
	Name            *string
	Role            *domain.AgentRole
	Expertise       *[]string
	WhatsAppNumbers *[]string
	IsActive        *bool
	MaxTickets      *int
}

// Update edits an agent profile.
func (s *AgentService) Update(ctx context.Context, id string, input UpdateAgentInput) (*domain.Agent, error) {
	agent, err := s.agents.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError("agent", "agent_id", id, err)
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.NewMissingFields("name")
		}
		agent.Name = name
	}
	if input.Role != nil {
		if !input.Role.Valid() {
			return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": *input.Role})
		}
		agent.Role = *input.Role
	}
	if input.Expertise != nil {
		agent.Expertise = normalizeSet(*input.Expertise)
	}
	if input.WhatsAppNumbers != nil {
		agent.WhatsAppNumbers = normalizeSet(*input.WhatsAppNumbers)
	}
	if input.IsActive != nil {
		agent.IsActive = *input.IsActive
	}
	if input.MaxTickets != nil {
		if *input.MaxTickets < 0 {
			return nil, apperrors.NewValidationError("max_tickets must not be negative", nil)
		}
		agent.MaxTickets = *input.MaxTickets
	}
	if err := s.agents.Update(ctx, agent); err != nil {
		return nil, lookupError("agent", "agent_id", id, err)
	}
	return agent, nil
}

// TokenManager exposes the token manager for middleware usage.
func (s *AgentService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func normalizeSet(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
