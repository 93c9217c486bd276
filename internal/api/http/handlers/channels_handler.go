package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-router/internal/api/dto"
	"github.com/spec-kit/helpdesk-router/internal/service"
	apperrors "github.com/spec-kit/helpdesk-router/pkg/util/errorutil"
)

// ChannelsHandler manages configured WhatsApp numbers.
type ChannelsHandler struct {
	channels *service.ChannelService
}

// NewChannelsHandler constructs handler.
func NewChannelsHandler(channelService *service.ChannelService) *ChannelsHandler {
	return &ChannelsHandler{channels: channelService}
}

// List handles GET /channels.
func (h *ChannelsHandler) List(c *fiber.Ctx) error {
	channels, err := h.channels.List(c.UserContext(), c.QueryBool("active", false))
	if err != nil {
		return err
	}
	items := make([]dto.ChannelResponse, 0, len(channels))
	for i := range channels {
		items = append(items, dto.NewChannelResponse(&channels[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Create handles POST /channels.
func (h *ChannelsHandler) Create(c *fiber.Ctx) error {
	var req dto.ChannelRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	channel, err := h.channels.Create(c.UserContext(), channelInput(req))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewChannelResponse(channel)})
}

// Update handles PATCH /channels/:id.
func (h *ChannelsHandler) Update(c *fiber.Ctx) error {
	var req dto.ChannelRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	channel, err := h.channels.Update(c.UserContext(), c.Params("id"), channelInput(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewChannelResponse(channel)})
}

func channelInput(req dto.ChannelRequest) service.ChannelInput {
	return service.ChannelInput{
		Number:     req.Number,
		Name:       req.Name,
		Categories: req.Categories,
		IsActive:   req.IsActive,
	}
}
