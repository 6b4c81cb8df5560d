package handler

import (
	"errors"
	"fmt"
	"testing"

	"go-pos-store/internal/dberr"
	"go-pos-store/internal/printer"
	"go-pos-store/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: name is required", service.ErrValidation), fiber.StatusBadRequest},
		{dberr.Invalid("Product", "price", "bad"), fiber.StatusBadRequest},
		{service.ErrInvalidCredentials, fiber.StatusUnauthorized},
		{service.ErrUserInactive, fiber.StatusForbidden},
		{service.ErrOrderNotFound, fiber.StatusNotFound},
		{fmt.Errorf("%w: pending -> completed", service.ErrInvalidTransition), fiber.StatusConflict},
		{service.ErrProductUnavailable, fiber.StatusUnprocessableEntity},
		{fmt.Errorf("dial: %w", printer.ErrPrinterUnavailable), fiber.StatusServiceUnavailable},
		{dberr.ErrNotConnected, fiber.StatusServiceUnavailable},
		{errors.New("boom"), fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusOf(tt.err), tt.err.Error())
	}
}
