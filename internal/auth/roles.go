package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// RequireUser ensures an end-user is authenticated.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.SubjectType != domain.SubjectTypeUser {
			return fiber.NewError(http.StatusForbidden, "end-user required")
		}
		return c.Next()
	}
}

// RequireAuthority ensures the principal is an authority of one of the
// allowed types. An empty list admits any authority.
func RequireAuthority(allowed ...domain.AuthorityType) fiber.Handler {
	allowedSet := make(map[domain.AuthorityType]struct{}, len(allowed))
	for _, t := range allowed {
		allowedSet[t] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.SubjectType != domain.SubjectTypeAuthority || principal.Authority == nil {
			return fiber.NewError(http.StatusForbidden, "authority required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[principal.Authority.Type]; !exists {
			return fiber.NewError(http.StatusForbidden, "insufficient authority type")
		}
		return c.Next()
	}
}

// RequireAnyRole ensures caller is authenticated (user or authority).
func RequireAnyRole() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		return c.Next()
	}
}
