package service

import (
	"context"
	"errors"
	"strings"

	"github.com/spec-kit/helpdesk-router/internal/domain"
	"github.com/spec-kit/helpdesk-router/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-router/pkg/util/errorutil"
)

// ChannelService manages configured WhatsApp numbers.
type ChannelService struct {
	channels repository.ChannelRepository
}

// NewChannelService constructs the service.
func NewChannelService(channels repository.ChannelRepository) *ChannelService {
	return &ChannelService{channels: channels}
}

// ChannelInput describes a WhatsApp number. Nil fields are left unchanged on update.
type ChannelInput struct {
	Number     *string
	Name       *string
	Categories *[]string
	IsActive   *bool
}

// Create registers a new channel. Channels are active unless stated otherwise.
func (s *ChannelService) Create(ctx context.Context, input ChannelInput) (*domain.Channel, error) {
	if input.Number == nil || strings.TrimSpace(*input.Number) == "" {
		return nil, apperrors.NewMissingFields("number")
	}
	channel := &domain.Channel{
		Number:   strings.TrimSpace(*input.Number),
		IsActive: true,
	}
	applyChannelInput(channel, input)
	if err := s.channels.Create(ctx, channel); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("number already configured", map[string]any{"number": channel.Number})
		}
		return nil, storeError("create channel", err)
	}
	return channel, nil
}

// Update edits an existing channel.
func (s *ChannelService) Update(ctx context.Context, id string, input ChannelInput) (*domain.Channel, error) {
	channel, err := s.channels.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError("channel", "channel_id", id, err)
	}
	if input.Number != nil {
		number := strings.TrimSpace(*input.Number)
		if number == "" {
			return nil, apperrors.NewMissingFields("number")
		}
		channel.Number = number
	}
	applyChannelInput(channel, input)
	if err := s.channels.Update(ctx, channel); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("number already configured", map[string]any{"number": channel.Number})
		}
		return nil, lookupError("channel", "channel_id", id, err)
	}
	return channel, nil
}

// List returns channels ordered by number.
func (s *ChannelService) List(ctx context.Context, activeOnly bool) ([]domain.Channel, error) {
	channels, err := s.channels.List(ctx, activeOnly)
	if err != nil {
		return nil, storeError("list channels", err)
	}
	return channels, nil
}

func applyChannelInput(channel *domain.Channel, input ChannelInput) {
	if input.Name != nil {
		channel.Name = strings.TrimSpace(*input.Name)
	}
	if input.Categories != nil {
		channel.Categories = normalizeSet(*input.Categories)
	}
	if input.IsActive != nil {
		channel.IsActive = *input.IsActive
	}
}
