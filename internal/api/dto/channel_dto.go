package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-router/internal/domain"
)

// ChannelRequest creates or edits a WhatsApp number.
type ChannelRequest struct {
	Number     *string   `json:"number"`
	Name       *string   `json:"name"`
	Categories *[]string `json:"categories"`
	IsActive   *bool     `json:"is_active"`
}

// ChannelResponse view.
type ChannelResponse struct {
	ID         string    `json:"id"`
	Number     string    `json:"number"`
	Name       string    `json:"name"`
	Categories []string  `json:"categories"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewChannelResponse maps a domain channel.
func NewChannelResponse(channel *domain.Channel) ChannelResponse {
	return ChannelResponse{
		ID:         channel.ID,
		Number:     channel.Number,
		Name:       channel.Name,
		Categories: nonNil(channel.Categories),
		IsActive:   channel.IsActive,
		CreatedAt:  channel.CreatedAt,
		UpdatedAt:  channel.UpdatedAt,
	}
}
