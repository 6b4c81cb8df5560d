package handler

import (
	"go-pos-store/internal/service"

	"github.com/gofiber/fiber/v2"
)

type UserHandler struct {
	userService service.UserService
}

func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// CreateUser handles user creation
// POST /api/v1/users
func (h *UserHandler) CreateUser(c *fiber.Ctx) error {
	var req service.CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}

	user, err := h.userService.CreateUser(c.UserContext(), &req)
	if err != nil {
		return fail(c, err)
	}

	return c.Status(201).JSON(fiber.Map{
		"message": "User created successfully",
		"data":    user,
	})
}

// GetUsers returns all users
// GET /api/v1/users
func (h *UserHandler) GetUsers(c *fiber.Ctx) error {
	users, err := h.userService.GetAllUsers(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(users)
}

// GetUser returns one user
// GET /api/v1/users/:id
func (h *UserHandler) GetUser(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return badRequest(c, "Invalid user ID")
	}
	user, err := h.userService.GetUserByID(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(user)
}

// UpdateUser handles user updates
// PUT /api/v1/users/:id
func (h *UserHandler) UpdateUser(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return badRequest(c, "Invalid user ID")
	}

	var req service.UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}

	user, err := h.userService.UpdateUser(c.UserContext(), id, &req)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "User updated successfully",
		"data":    user,
	})
}

// DeactivateUser disables login for a user while keeping their history
// POST /api/v1/users/:id/deactivate
func (h *UserHandler) DeactivateUser(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return badRequest(c, "Invalid user ID")
	}
	if self, ok := currentUser(c); ok && self == id {
		return badRequest(c, "Cannot deactivate yourself")
	}
	if err := h.userService.Deactivate(c.UserContext(), id); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "User deactivated successfully"})
}

// DeleteUser handles user deletion
// DELETE /api/v1/users/:id
func (h *UserHandler) DeleteUser(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return badRequest(c, "Invalid user ID")
	}

	// Prevent self-deletion
	if self, ok := currentUser(c); ok && self == id {
		return badRequest(c, "Cannot delete yourself")
	}

	if err := h.userService.DeleteUser(c.UserContext(), id); err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{"message": "User deleted successfully"})
}
