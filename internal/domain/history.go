package domain

import "time"

// Actor labels recorded in history for non-agent changes.
const (
	ActorSystem      = "System"
	ActorManualEntry = "Manual Entry"
	ActorWhatsAppBot = "WhatsApp Bot"
)

// HistoryEntry is an append-only audit record for a ticket.
type HistoryEntry struct {
	ID        string       `json:"id"`
	TicketID  string       `json:"ticket_id"`
	Status    TicketStatus `json:"status"`
	UpdatedBy string       `json:"updated_by"`
	Note      string       `json:"note"`
	CreatedAt time.Time    `json:"created_at"`
}
