package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// bearerToken extracts the token from an Authorization: Bearer header.
func bearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// AuthMiddleware guards admin routes: it validates the bearer token against
// the session store and stores the session in locals for handlers.
func AuthMiddleware(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return errUnauthorized(c, "missing or malformed Authorization header")
		}

		session, err := deps.Auth.Validate(c.Context(), token)
		if err != nil {
			return errUnauthorized(c, "invalid or expired session")
		}

		c.Locals("session", session)
		return c.Next()
	}
}
