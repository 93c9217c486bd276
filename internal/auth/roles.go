package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-router/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-router/pkg/util/errorutil"
)

// RequireRole ensures the agent holds one of the allowed roles. With no
// roles it only requires authentication.
func RequireRole(allowed ...domain.AgentRole) fiber.Handler {
	allowedSet := make(map[domain.AgentRole]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[principal.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// RequireSupervisor allows supervisors and admins.
func RequireSupervisor() fiber.Handler {
	return RequireRole(domain.AgentRoleSupervisor, domain.AgentRoleAdmin)
}
