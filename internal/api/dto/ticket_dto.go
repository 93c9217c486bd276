package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-router/internal/domain"
)

// CreateTicketRequest payload for manual entry.
type CreateTicketRequest struct {
	CustomerName   string                `json:"customer_name"`
	CustomerPhone  string                `json:"customer_phone"`
	CustomerEmail  *string               `json:"customer_email"`
	Subject        string                `json:"subject"`
	Message        string                `json:"message"`
	Priority       domain.TicketPriority `json:"priority"`
	Category       string                `json:"category"`
	Channel        domain.TicketChannel  `json:"channel"`
	WhatsAppNumber *string               `json:"whatsapp_number"`
	AssignedTo     *string               `json:"assigned_to"`
	Tags           []string              `json:"tags"`
}

// WhatsAppWebhookRequest is an inbound customer message relayed by the chat gateway.
type WhatsAppWebhookRequest struct {
	From     string  `json:"from"`
	To       string  `json:"to"`
	Name     string  `json:"name"`
	Email    *string `json:"email"`
	Message  string  `json:"message"`
	Subject  string  `json:"subject"`
	Category string  `json:"category"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status domain.TicketStatus `json:"status"`
	Note   string              `json:"note"`
}

// ReassignRequest payload.
type ReassignRequest struct {
	AgentID string `json:"agent_id"`
}

// SendSMSRequest payload for direct gateway messages.
type SendSMSRequest struct {
	To       string  `json:"to"`
	Message  string  `json:"message"`
	TicketID *string `json:"ticket_id"`
}

// TicketResponse view.
type TicketResponse struct {
	ID             string                `json:"id"`
	CustomerName   string                `json:"customer_name"`
	CustomerPhone  string                `json:"customer_phone"`
	CustomerEmail  *string               `json:"customer_email,omitempty"`
	Subject        string                `json:"subject"`
	Message        string                `json:"message"`
	Status         domain.TicketStatus   `json:"status"`
	Priority       domain.TicketPriority `json:"priority"`
	Category       string                `json:"category"`
	AssignedTo     *string               `json:"assigned_to"`
	Channel        domain.TicketChannel  `json:"channel"`
	WhatsAppNumber *string               `json:"whatsapp_number,omitempty"`
	Tags           []string              `json:"tags"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

// HistoryResponse is one audit entry.
type HistoryResponse struct {
	ID        string              `json:"id"`
	Status    domain.TicketStatus `json:"status"`
	UpdatedBy string              `json:"updated_by"`
	Note      string              `json:"note"`
	CreatedAt time.Time           `json:"created_at"`
}

// MessageResponse is an outbound chat row.
type MessageResponse struct {
	ID         string    `json:"id"`
	FromNumber string    `json:"from_number"`
	ToNumber   string    `json:"to_number"`
	Body       string    `json:"body"`
	Direction  string    `json:"direction"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// TicketDetailResponse provides a ticket with its trail.
type TicketDetailResponse struct {
	TicketResponse
	History  []HistoryResponse `json:"history"`
	Messages []MessageResponse `json:"messages"`
}

// TicketResultResponse is returned by create, status and reassign.
type TicketResultResponse struct {
	Ticket   TicketResponse   `json:"ticket"`
	Agent    *AgentResponse   `json:"agent,omitempty"`
	History  *HistoryResponse `json:"history,omitempty"`
	Warnings []string         `json:"warnings,omitempty"`
}

// DeliveryResponse describes a notification attempt.
type DeliveryResponse struct {
	ID          string                `json:"id"`
	Backend     string                `json:"backend"`
	Destination string                `json:"destination"`
	Status      domain.DeliveryStatus `json:"status"`
	Error       string                `json:"error,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
}

// NewTicketResponse maps a domain ticket.
func NewTicketResponse(ticket *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:             ticket.ID,
		CustomerName:   ticket.CustomerName,
		CustomerPhone:  ticket.CustomerPhone,
		CustomerEmail:  ticket.CustomerEmail,
		Subject:        ticket.Subject,
		Message:        ticket.Message,
		Status:         ticket.Status,
		Priority:       ticket.Priority,
		Category:       ticket.Category,
		AssignedTo:     ticket.AssignedTo,
		Channel:        ticket.Channel,
		WhatsAppNumber: ticket.WhatsAppNumber,
		Tags:           nonNil(ticket.Tags),
		CreatedAt:      ticket.CreatedAt,
		UpdatedAt:      ticket.UpdatedAt,
	}
}

// NewHistoryResponse maps a history entry.
func NewHistoryResponse(entry *domain.HistoryEntry) HistoryResponse {
	return HistoryResponse{
		ID:        entry.ID,
		Status:    entry.Status,
		UpdatedBy: entry.UpdatedBy,
		Note:      entry.Note,
		CreatedAt: entry.CreatedAt,
	}
}

// NewTicketDetailResponse maps a ticket with history and messages.
func NewTicketDetailResponse(ticket *domain.Ticket, history []domain.HistoryEntry, messages []domain.OutboundMessage) TicketDetailResponse {
	resp := TicketDetailResponse{
		TicketResponse: NewTicketResponse(ticket),
		History:        make([]HistoryResponse, 0, len(history)),
		Messages:       make([]MessageResponse, 0, len(messages)),
	}
	for i := range history {
		resp.History = append(resp.History, NewHistoryResponse(&history[i]))
	}
	for _, msg := range messages {
		resp.Messages = append(resp.Messages, MessageResponse{
			ID:         msg.ID,
			FromNumber: msg.FromNumber,
			ToNumber:   msg.ToNumber,
			Body:       msg.Body,
			Direction:  msg.Direction,
			Status:     msg.Status,
			CreatedAt:  msg.CreatedAt,
		})
	}
	return resp
}

// NewTicketResultResponse maps a workflow result.
func NewTicketResultResponse(ticket *domain.Ticket, agent *domain.Agent, history *domain.HistoryEntry, warnings []string) TicketResultResponse {
	resp := TicketResultResponse{
		Ticket:   NewTicketResponse(ticket),
		Warnings: warnings,
	}
	if agent != nil {
		a := NewAgentResponse(agent)
		resp.Agent = &a
	}
	if history != nil {
		h := NewHistoryResponse(history)
		resp.History = &h
	}
	return resp
}

// NewDeliveryResponse maps a delivery.
func NewDeliveryResponse(d domain.Delivery) DeliveryResponse {
	return DeliveryResponse{
		ID:          d.ID,
		Backend:     d.Backend,
		Destination: d.Destination,
		Status:      d.Status,
		Error:       d.Error,
		CreatedAt:   d.CreatedAt,
	}
}
