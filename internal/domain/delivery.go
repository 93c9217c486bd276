package domain

import "time"

// DeliveryStatus describes the outcome of a notification attempt.
type DeliveryStatus string

const (
	DeliveryQueued    DeliveryStatus = "queued"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryFailed    DeliveryStatus = "failed"
)

// Delivery records a single outbound customer message.
type Delivery struct {
	ID          string
	Backend     string
	Destination string
	Body        string
	Status      DeliveryStatus
	Error       string
	CreatedAt   time.Time
}

// Delivered reports whether the backend accepted the message.
func (d Delivery) Delivered() bool {
	return d.Status == DeliveryDelivered || d.Status == DeliveryQueued
}

// OutboundMessage is a chat row written for the WhatsApp sender to pick up.
type OutboundMessage struct {
	ID         string
	TicketID   *string
	FromNumber string
	ToNumber   string
	Body       string
	Direction  string
	Status     string
	CreatedAt  time.Time
}
