package handler

import (
	"go-pos-store/internal/service"

	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	authService service.AuthService
}

func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ChangePasswordRequest represents the change password request body
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// Login handles user authentication
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}

	if req.Email == "" || req.Password == "" {
		return badRequest(c, "Email and password are required")
	}

	response, err := h.authService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(response)
}

// ChangePassword updates the password of the signed-in user
// POST /api/v1/auth/change-password
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	userID, ok := currentUser(c)
	if !ok {
		return c.Status(401).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var req ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		return badRequest(c, "old_password and new_password are required")
	}

	if err := h.authService.ChangePassword(c.UserContext(), userID, req.OldPassword, req.NewPassword); err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{"message": "Password updated successfully"})
}

// Me returns the claims of the current token
// GET /api/v1/auth/me
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"id":    c.Locals("user_id"),
		"email": c.Locals("user_email"),
		"name":  c.Locals("user_name"),
		"role":  c.Locals("user_role"),
	})
}
