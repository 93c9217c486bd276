package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-router/internal/api/dto"
	"github.com/spec-kit/helpdesk-router/internal/auth"
	"github.com/spec-kit/helpdesk-router/internal/domain"
	"github.com/spec-kit/helpdesk-router/internal/repository"
	"github.com/spec-kit/helpdesk-router/internal/service"
	apperrors "github.com/spec-kit/helpdesk-router/pkg/util/errorutil"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// TicketsHandler exposes the routing engine to agents.
type TicketsHandler struct {
	tickets *service.TicketService
	export  *service.ExportService
	now     func() time.Time
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService, exportService *service.ExportService) *TicketsHandler {
	return &TicketsHandler{tickets: ticketService, export: exportService, now: time.Now}
}

// CreateTicket POST /tickets. Tickets entered by hand are tagged manual-entry.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	if _, err := currentAgent(c); err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	result, err := h.tickets.CreateTicket(c.UserContext(), service.CreateTicketInput{
		CustomerName:   req.CustomerName,
		CustomerPhone:  req.CustomerPhone,
		CustomerEmail:  req.CustomerEmail,
		Subject:        req.Subject,
		Message:        req.Message,
		Priority:       req.Priority,
		Category:       req.Category,
		Channel:        req.Channel,
		WhatsAppNumber: req.WhatsAppNumber,
		AgentID:        req.AssignedTo,
		Tags:           req.Tags,
		Source:         service.SourceManual,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketResult(result)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	filter, err := parseTicketQuery(c)
	if err != nil {
		return err
	}
	filter.Limit, filter.Offset = parsePage(c)

	tickets, err := h.tickets.ListTickets(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.NewTicketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	detail, err := h.tickets.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketDetailResponse(detail.Ticket, detail.History, detail.Messages)})
}

// UpdateStatus PATCH /tickets/:id/status. The acting agent is recorded in history.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	principal, err := currentAgent(c)
	if err != nil {
		return err
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Status == "" {
		return apperrors.NewMissingFields("status")
	}

	result, err := h.tickets.UpdateStatus(c.UserContext(), c.Params("id"), req.Status, principal.Agent.Name, req.Note)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResult(result)})
}

// Reassign POST /tickets/:id/reassign.
func (h *TicketsHandler) Reassign(c *fiber.Ctx) error {
	var req dto.ReassignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.AgentID) == "" {
		return apperrors.NewMissingFields("agent_id")
	}

	result, err := h.tickets.Reassign(c.UserContext(), c.Params("id"), strings.TrimSpace(req.AgentID))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResult(result)})
}

// Export GET /tickets/export. Accepts the list filters without paging.
func (h *TicketsHandler) Export(c *fiber.Ctx) error {
	filter, err := parseTicketQuery(c)
	if err != nil {
		return err
	}
	data, err := h.export.ExportTickets(c.UserContext(), filter)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="tickets-%s.xlsx"`, h.now().UTC().Format("20060102-150405")))
	return c.Send(data)
}

func ticketResult(result *service.TicketResult) dto.TicketResultResponse {
	return dto.NewTicketResultResponse(result.Ticket, result.Agent, result.History, result.Warnings)
}

func parseTicketQuery(c *fiber.Ctx) (repository.TicketFilter, error) {
	filter := repository.TicketFilter{
		Category:   queryString(c, "category"),
		SearchTerm: queryString(c, "search"),
	}
	for _, part := range splitList(c.Query("status")) {
		filter.Statuses = append(filter.Statuses, domain.TicketStatus(part))
	}
	for _, part := range splitList(c.Query("channel")) {
		ch := domain.TicketChannel(part)
		if !ch.Valid() {
			return filter, apperrors.NewValidationError("invalid channel filter", map[string]any{"channel": part})
		}
		filter.Channels = append(filter.Channels, ch)
	}
	switch assigned := strings.TrimSpace(c.Query("assigned_to")); assigned {
	case "":
	case "none", "unassigned":
		filter.Unassigned = true
	default:
		filter.AssignedTo = &assigned
	}
	var err error
	if filter.CreatedFrom, err = parseTime("created_from", c.Query("created_from")); err != nil {
		return filter, err
	}
	if filter.CreatedTo, err = parseTime("created_to", c.Query("created_to")); err != nil {
		return filter, err
	}
	return filter, nil
}

func currentAgent(c *fiber.Ctx) (*auth.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Agent == nil {
		return nil, apperrors.NewUnauthorized("agent required")
	}
	return principal, nil
}

func queryString(c *fiber.Ctx, key string) *string {
	val := strings.TrimSpace(c.Query(key))
	if val == "" {
		return nil
	}
	return &val
}

func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseTime(field, val string) (*time.Time, error) {
	if val == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid timestamp", map[string]any{field: val})
	}
	return &t, nil
}

func parsePage(c *fiber.Ctx) (limit, offset int) {
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	return pageSize, (page - 1) * pageSize
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
