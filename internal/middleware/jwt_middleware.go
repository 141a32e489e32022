package middleware

import (
	"log"
	"strings"

	"bazaar/internal/models"
	"bazaar/internal/services"

	"github.com/gofiber/fiber/v2"
)

const principalKey = "principal"

// AuthRequired is a Fiber middleware to check for a valid JWT token.
// The caller's principal is stored in the request locals.
func AuthRequired(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return unauthorized(c, "Authorization header is required")
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer") {
			return unauthorized(c, "Authorization header format must be 'Bearer <token>'")
		}

		claims, err := authService.ValidateToken(parts[1])
		if err != nil {
			log.Printf("JWT validation failed: %v", err)
			return unauthorized(c, "Invalid or expired token")
		}

		principal := services.PrincipalFromClaims(claims)
		if principal.UserID == "" {
			return unauthorized(c, "Invalid or expired token")
		}
		c.Locals(principalKey, principal)

		return c.Next()
	}
}

// RequireRole only lets callers with one of roles through. It must run after AuthRequired.
func RequireRole(roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal := CurrentPrincipal(c)
		for _, role := range roles {
			if principal.Role == role {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"message": "You are not allowed to perform this action",
		})
	}
}

// CurrentPrincipal returns the caller resolved by AuthRequired, or the zero Principal.
func CurrentPrincipal(c *fiber.Ctx) services.Principal {
	principal, _ := c.Locals(principalKey).(services.Principal)
	return principal
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}
