package handlers

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-router/internal/api/dto"
	"github.com/spec-kit/helpdesk-router/internal/domain"
	"github.com/spec-kit/helpdesk-router/internal/service"
	apperrors "github.com/spec-kit/helpdesk-router/pkg/util/errorutil"
)

const maxDerivedSubject = 80

// WebhookHandler turns inbound WhatsApp messages into tickets.
type WebhookHandler struct {
	tickets *service.TicketService
}

// NewWebhookHandler constructs handler.
func NewWebhookHandler(ticketService *service.TicketService) *WebhookHandler {
	return &WebhookHandler{tickets: ticketService}
}

// WhatsApp handles POST /webhooks/whatsapp.
func (h *WebhookHandler) WhatsApp(c *fiber.Ctx) error {
	var req dto.WhatsAppWebhookRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	from := strings.TrimSpace(req.From)
	to := strings.TrimSpace(req.To)

	var missing []string
	if from == "" {
		missing = append(missing, "from")
	}
	if to == "" {
		missing = append(missing, "to")
	}
	if strings.TrimSpace(req.Message) == "" {
		missing = append(missing, "message")
	}
	if len(missing) > 0 {
		return apperrors.NewMissingFields(missing...)
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = from
	}
	result, err := h.tickets.CreateTicket(c.UserContext(), service.CreateTicketInput{
		CustomerName:   name,
		CustomerPhone:  from,
		CustomerEmail:  req.Email,
		Subject:        webhookSubject(req.Subject, req.Message),
		Message:        req.Message,
		Category:       req.Category,
		Channel:        domain.ChannelWhatsApp,
		WhatsAppNumber: &to,
		Source:         service.SourceWhatsApp,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketResult(result)})
}

// webhookSubject falls back to the first line of the message, shortened.
func webhookSubject(subject, message string) string {
	if s := strings.TrimSpace(subject); s != "" {
		return s
	}
	line, _, _ := strings.Cut(strings.TrimSpace(message), "\n")
	line = strings.TrimSpace(line)
	if utf8.RuneCountInString(line) <= maxDerivedSubject {
		return line
	}
	runes := []rune(line)
	return strings.TrimSpace(string(runes[:maxDerivedSubject])) + "..."
}
