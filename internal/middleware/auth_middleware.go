package middleware

import (
	"strings"

	"go-pos-store/internal/audit"
	"go-pos-store/internal/service"

	"github.com/gofiber/fiber/v2"
)

// RequireAuth is middleware that validates the bearer token and sets user info in context
func RequireAuth(auth service.AuthService) fiber.Handler {
	return requireAuth(auth, false)
}

// RequireSocketAuth is RequireAuth that also takes the token from the "token"
// query parameter. Browser websocket clients cannot set headers.
func RequireSocketAuth(auth service.AuthService) fiber.Handler {
	return requireAuth(auth, true)
}

func requireAuth(auth service.AuthService, fromQuery bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Get Authorization header
		authHeader := c.Get("Authorization")
		token := ""
		switch {
		case authHeader != "":
			// Extract token from "Bearer <token>"
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				return c.Status(401).JSON(fiber.Map{"error": "Invalid authorization format. Use: Bearer <token>"})
			}
			token = parts[1]
		case fromQuery:
			token = c.Query("token")
		}
		if token == "" {
			return c.Status(401).JSON(fiber.Map{"error": "Missing authorization token"})
		}

		user, err := auth.Authenticate(c.UserContext(), token)
		if err != nil {
			return c.Status(401).JSON(fiber.Map{"error": "Invalid or expired token"})
		}

		// Set user info in context for downstream handlers
		c.Locals("user_id", user.ID.String())
		c.Locals("user_email", user.Email)
		c.Locals("user_name", user.Name)
		c.Locals("user_role", user.Role)
		c.SetUserContext(audit.WithActor(c.UserContext(), user.Email))

		return c.Next()
	}
}

// RequireRole checks that the authenticated user has one of the given roles
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, ok := c.Locals("user_role").(string)
		if !ok {
			return c.Status(403).JSON(fiber.Map{"error": "No role found"})
		}

		for _, r := range roles {
			if role == r {
				return c.Next()
			}
		}

		return c.Status(403).JSON(fiber.Map{
			"error": "Forbidden: requires one of " + strings.Join(roles, ", ") + " roles",
		})
	}
}
