package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-router/internal/api/dto"
	"github.com/spec-kit/helpdesk-router/internal/notifier"
	apperrors "github.com/spec-kit/helpdesk-router/pkg/util/errorutil"
)

// NotificationsHandler sends ad hoc customer messages through a backend.
type NotificationsHandler struct {
	sms    notifier.Notifier
	logger *zap.Logger
}

// NewNotificationsHandler constructs handler. A nil backend disables the route.
func NewNotificationsHandler(sms notifier.Notifier, logger *zap.Logger) *NotificationsHandler {
	return &NotificationsHandler{sms: sms, logger: logger}
}

// SendSMS handles POST /notifications/sms.
func (h *NotificationsHandler) SendSMS(c *fiber.Ctx) error {
	if h.sms == nil {
		return apperrors.NewNotifierDisabled("sms")
	}
	var req dto.SendSMSRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	to := strings.TrimSpace(req.To)
	var missing []string
	if to == "" {
		missing = append(missing, "to")
	}
	if strings.TrimSpace(req.Message) == "" {
		missing = append(missing, "message")
	}
	if len(missing) > 0 {
		return apperrors.NewMissingFields(missing...)
	}

	ctx := c.UserContext()
	if req.TicketID != nil && *req.TicketID != "" {
		ctx = notifier.WithOrigin(ctx, notifier.Origin{TicketID: *req.TicketID})
	}
	delivery, err := h.sms.Send(ctx, to, req.Message)
	if err != nil {
		h.logger.Warn("sms send failed", zap.String("backend", h.sms.Name()), zap.Error(err))
		if errors.Is(err, notifier.ErrDisabled) {
			return apperrors.NewNotifierDisabled(h.sms.Name())
		}
		return apperrors.NewNotificationError(err, map[string]any{
			"delivery": dto.NewDeliveryResponse(delivery),
		})
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{"data": dto.NewDeliveryResponse(delivery)})
}
