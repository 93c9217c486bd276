package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in-progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// Valid reports whether s is one of the wire values.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// TicketPriority is informational and fixed at creation.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

// TicketChannel is the medium a ticket originated from.
type TicketChannel string

const (
	ChannelEmail    TicketChannel = "email"
	ChannelPhone    TicketChannel = "phone"
	ChannelWeb      TicketChannel = "web"
	ChannelWhatsApp TicketChannel = "whatsapp"
)

// Valid reports whether c is a known channel.
func (c TicketChannel) Valid() bool {
	switch c {
	case ChannelEmail, ChannelPhone, ChannelWeb, ChannelWhatsApp:
		return true
	}
	return false
}

// Notifiable reports whether status changes on this channel are pushed to the customer.
func (c TicketChannel) Notifiable() bool {
	return c == ChannelWhatsApp || c == ChannelPhone
}

// Ticket is the aggregate for customer support requests. ID is the
// human readable TKT-NNN code.
type Ticket struct {
	ID             string         `json:"id"`
	CustomerName   string         `json:"customer_name"`
	CustomerPhone  string         `json:"customer_phone"`
	CustomerEmail  *string        `json:"customer_email,omitempty"`
	Subject        string         `json:"subject"`
	Message        string         `json:"message"`
	Status         TicketStatus   `json:"status"`
	Priority       TicketPriority `json:"priority"`
	Category       string         `json:"category"`
	AssignedTo     *string        `json:"assigned_to"`
	Channel        TicketChannel  `json:"channel"`
	WhatsAppNumber *string        `json:"whatsapp_number,omitempty"`
	Tags           []string       `json:"tags"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Assigned reports whether the ticket references an agent.
func (t *Ticket) Assigned() bool {
	return t.AssignedTo != nil && *t.AssignedTo != ""
}

// Destination returns the customer address used for outbound messages.
func (t *Ticket) Destination() string {
	return t.CustomerPhone
}
