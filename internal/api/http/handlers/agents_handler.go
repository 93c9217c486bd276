package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-router/internal/api/dto"
	"github.com/spec-kit/helpdesk-router/internal/domain"
	"github.com/spec-kit/helpdesk-router/internal/repository"
	"github.com/spec-kit/helpdesk-router/internal/service"
	apperrors "github.com/spec-kit/helpdesk-router/pkg/util/errorutil"
)

// AgentsHandler exposes agent registration, login and profile management.
type AgentsHandler struct {
	agents *service.AgentService
}

// NewAgentsHandler constructs handler.
func NewAgentsHandler(agentService *service.AgentService) *AgentsHandler {
	return &AgentsHandler{agents: agentService}
}

// Register handles POST /auth/register.
func (h *AgentsHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterAgentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	agent, token, exp, err := h.agents.Register(c.UserContext(), service.RegisterAgentInput{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		Expertise:       req.Expertise,
		WhatsAppNumbers: req.WhatsAppNumbers,
		MaxTickets:      req.MaxTickets,
	})
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": fiber.Map{
			"agent": dto.NewAgentResponse(agent),
			"auth":  dto.AuthResponse{Token: token, ExpiresAt: exp},
		},
	})
}

// Create handles POST /agents. Supervisors add staff; only admins may grant admin.
func (h *AgentsHandler) Create(c *fiber.Ctx) error {
	var req dto.RegisterAgentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := checkRoleGrant(c, req.Role); err != nil {
		return err
	}

	agent, err := h.agents.Create(c.UserContext(), service.RegisterAgentInput{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		Role:            req.Role,
		Expertise:       req.Expertise,
		WhatsAppNumbers: req.WhatsAppNumbers,
		MaxTickets:      req.MaxTickets,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewAgentResponse(agent)})
}

// Login handles POST /auth/login.
func (h *AgentsHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	agent, token, exp, err := h.agents.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"agent": dto.NewAgentResponse(agent),
			"auth":  dto.AuthResponse{Token: token, ExpiresAt: exp},
		},
	})
}

// List handles GET /agents.
func (h *AgentsHandler) List(c *fiber.Ctx) error {
	filter := repository.AgentFilter{
		Expertise: queryString(c, "expertise"),
		Number:    queryString(c, "number"),
	}
	if role := c.Query("role"); role != "" {
		r := domain.AgentRole(role)
		filter.Role = &r
	}
	if active := c.Query("active"); active != "" {
		val := active == "true"
		filter.Active = &val
	}
	filter.Limit, filter.Offset = parsePage(c)

	agents, err := h.agents.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.AgentResponse, 0, len(agents))
	for i := range agents {
		items = append(items, dto.NewAgentResponse(&agents[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get handles GET /agents/:id.
func (h *AgentsHandler) Get(c *fiber.Ctx) error {
	agent, err := h.agents.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAgentResponse(agent)})
}

// Me handles GET /agents/me.
func (h *AgentsHandler) Me(c *fiber.Ctx) error {
	principal, err := currentAgent(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAgentResponse(principal.Agent)})
}

// Update handles PATCH /agents/:id.
func (h *AgentsHandler) Update(c *fiber.Ctx) error {
	var req dto.UpdateAgentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Role != nil {
		if err := checkRoleGrant(c, *req.Role); err != nil {
			return err
		}
	}
	agent, err := h.agents.Update(c.UserContext(), c.Params("id"), service.UpdateAgentInput{
		Name:            req.Name,
		Role:            req.Role,
		Expertise:       req.Expertise,
		WhatsAppNumbers: req.WhatsAppNumbers,
		IsActive:        req.IsActive,
		MaxTickets:      req.MaxTickets,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAgentResponse(agent)})
}

func checkRoleGrant(c *fiber.Ctx, role domain.AgentRole) error {
	if role != domain.AgentRoleAdmin {
		return nil
	}
	principal, err := currentAgent(c)
	if err != nil {
		return err
	}
	if principal.Role != domain.AgentRoleAdmin {
		return apperrors.NewForbidden("only admins may grant the admin role")
	}
	return nil
}
