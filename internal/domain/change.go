package domain

import "time"

// Collection names a store collection that emits change events.
type Collection string

const (
	CollectionAgents   Collection = "agents"
	CollectionTickets  Collection = "tickets"
	CollectionHistory  Collection = "ticket_history"
	CollectionMessages Collection = "whatsapp_messages"
	CollectionChannels Collection = "whatsapp_numbers"
)

// ChangeType is the kind of mutation that produced an event.
type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
)

// ChangeEvent is pushed to subscribers after a successful write.
type ChangeEvent struct {
	ID         string     `json:"id"`
	Collection Collection `json:"collection"`
	Type       ChangeType `json:"event_type"`
	RecordID   string     `json:"record_id"`
	Version    time.Time  `json:"version"`
	Record     any        `json:"record"`
}
