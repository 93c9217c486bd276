package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-router/internal/domain"
)

// RegisterAgentRequest payload for new agents.
type RegisterAgentRequest struct {
	Name            string           `json:"name"`
	Email           string           `json:"email"`
	Password        string           `json:"password"`
	Role            domain.AgentRole `json:"role"`
	Expertise       []string         `json:"expertise"`
	WhatsAppNumbers []string         `json:"whatsapp_numbers"`
	MaxTickets      *int             `json:"max_tickets"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UpdateAgentRequest edits an agent profile. Load is not editable.
type UpdateAgentRequest struct {
	Name            *string           `json:"name"`
	Role            *domain.AgentRole `json:"role"`
	Expertise       *[]string         `json:"expertise"`
	WhatsAppNumbers *[]string         `json:"whatsapp_numbers"`
	IsActive        *bool             `json:"is_active"`
	MaxTickets      *int              `json:"max_tickets"`
}

// AgentResponse is the public view of an agent.
type AgentResponse struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Email           string           `json:"email"`
	Role            domain.AgentRole `json:"role"`
	Expertise       []string         `json:"expertise"`
	WhatsAppNumbers []string         `json:"whatsapp_numbers"`
	IsActive        bool             `json:"is_active"`
	Available       bool             `json:"available"`
	CurrentLoad     int              `json:"current_load"`
	MaxTickets      int              `json:"max_tickets"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// NewAgentResponse maps a domain agent.
func NewAgentResponse(agent *domain.Agent) AgentResponse {
	return AgentResponse{
		ID:              agent.ID,
		Name:            agent.Name,
		Email:           agent.Email,
		Role:            agent.Role,
		Expertise:       nonNil(agent.Expertise),
		WhatsAppNumbers: nonNil(agent.WhatsAppNumbers),
		IsActive:        agent.IsActive,
		Available:       agent.Available(),
		CurrentLoad:     agent.CurrentLoad,
		MaxTickets:      agent.MaxTickets,
		CreatedAt:       agent.CreatedAt,
		UpdatedAt:       agent.UpdatedAt,
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
