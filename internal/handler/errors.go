package handler

import (
	"errors"

	"go-pos-store/internal/dberr"
	"go-pos-store/internal/printer"
	"go-pos-store/internal/service"
	"go-pos-store/pkg/jwt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// statusOf maps service and store errors to HTTP status codes.
func statusOf(err error) int {
	var invalid *dberr.ValidationError
	switch {
	case errors.Is(err, service.ErrValidation), errors.As(err, &invalid):
		return fiber.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, jwt.ErrInvalidToken),
		errors.Is(err, jwt.ErrMissingToken):
		return fiber.StatusUnauthorized
	case errors.Is(err, service.ErrUserInactive), errors.Is(err, service.ErrWrongPassword):
		return fiber.StatusForbidden
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrCategoryNotFound),
		errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, dberr.ErrNotFound),
		dberr.IsCode(err, dberr.CodeRecordNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrEmailExists),
		errors.Is(err, service.ErrUserHasOrders),
		errors.Is(err, service.ErrCategoryInUse),
		errors.Is(err, service.ErrProductInUse),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrOrderConflict),
		dberr.IsCode(err, dberr.CodeUniqueConstraint):
		return fiber.StatusConflict
	case errors.Is(err, service.ErrProductUnavailable), errors.Is(err, service.ErrCategoryInactive):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, printer.ErrPrinterUnavailable),
		errors.Is(err, dberr.ErrNotConnected),
		errors.Is(err, dberr.ErrTransactionMaxWait):
		return fiber.StatusServiceUnavailable
	}
	return fiber.StatusInternalServerError
}

func fail(c *fiber.Ctx, err error) error {
	status := statusOf(err)
	msg := err.Error()
	if status == fiber.StatusInternalServerError {
		msg = "Internal server error"
	}
	return c.Status(status).JSON(fiber.Map{"error": msg})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

func paramID(c *fiber.Ctx) (uuid.UUID, error) {
	return uuid.Parse(c.Params("id"))
}

// currentUser returns the id set by RequireAuth.
func currentUser(c *fiber.Ctx) (uuid.UUID, bool) {
	raw, ok := c.Locals("user_id").(string)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	return id, err == nil
}
