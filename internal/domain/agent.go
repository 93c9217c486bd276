package domain

import (
	"slices"
	"time"
)

// AgentRole enumerates support staff roles. Informational only.
type AgentRole string

const (
	AgentRoleAgent      AgentRole = "agent"
	AgentRoleSupervisor AgentRole = "supervisor"
	AgentRoleAdmin      AgentRole = "admin"
)

// Valid reports whether the role is a known value.
func (r AgentRole) Valid() bool {
	switch r {
	case AgentRoleAgent, AgentRoleSupervisor, AgentRoleAdmin:
		return true
	}
	return false
}

// Agent models a support staffer that tickets can be routed to.
type Agent struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	PasswordHash    string    `json:"-"`
	Role            AgentRole `json:"role"`
	Expertise       []string  `json:"expertise"`
	WhatsAppNumbers []string  `json:"whatsapp_numbers"`
	IsActive        bool      `json:"is_active"`
	CurrentLoad     int       `json:"current_load"`
	MaxTickets      int       `json:"max_tickets"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Available reports whether the agent is active and under capacity.
func (a *Agent) Available() bool {
	return a.IsActive && a.CurrentLoad < a.MaxTickets
}

// HasExpertise reports whether category is one of the agent's tags.
func (a *Agent) HasExpertise(category string) bool {
	return slices.Contains(a.Expertise, category)
}

// Services reports whether the agent may handle the given channel address.
func (a *Agent) Services(number string) bool {
	return slices.Contains(a.WhatsAppNumbers, number)
}
