package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-router/internal/service"
)

// ReportsHandler serves dashboard statistics.
type ReportsHandler struct {
	stats *service.StatsService
}

// NewReportsHandler constructs handler.
func NewReportsHandler(statsService *service.StatsService) *ReportsHandler {
	return &ReportsHandler{stats: statsService}
}

// Stats handles GET /stats.
func (h *ReportsHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.stats.Compute(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": stats})
}
