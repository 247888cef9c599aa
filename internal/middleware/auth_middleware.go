package middleware

import (
	"errors"
	"log"
	"strings"

	"accountapi/internal/services"

	"github.com/gofiber/fiber/v2"
)

// UserKey is the context-local key under which the authenticated user is stored.
const UserKey = "user"

// AuthRequired resolves the bearer token in the Authorization header to a
// user and stores it in the request context. Any failure — missing header,
// malformed token, unknown or revoked token — yields the same 401 body.
func AuthRequired(tokenService *services.TokenService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer") {
			return unauthenticated(c)
		}

		user, err := tokenService.ResolveUser(parts[1])
		if err != nil {
			if !errors.Is(err, services.ErrUnauthenticated) {
				log.Printf("Token resolution failed: %v", err)
			}
			return unauthenticated(c)
		}

		c.Locals(UserKey, user)
		return c.Next()
	}
}

func unauthenticated(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"message": "Unauthenticated",
	})
}
