package handler

import (
	"strconv"
	"time"

	"go-pos-store/internal/service"

	"github.com/gofiber/fiber/v2"
)

type SettingsHandler struct {
	settings service.SettingsService
}

func NewSettingsHandler(settings service.SettingsService) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// GET /api/v1/settings/store
func (h *SettingsHandler) GetStore(c *fiber.Ctx) error {
	s, err := h.settings.Store(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(s)
}

// PUT /api/v1/settings/store
func (h *SettingsHandler) UpdateStore(c *fiber.Ctx) error {
	var req service.StoreSettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	s, err := h.settings.UpdateStore(c.UserContext(), &req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(s)
}

// GET /api/v1/settings/printer
func (h *SettingsHandler) GetPrinter(c *fiber.Ctx) error {
	s, err := h.settings.Printer(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(s)
}

// PUT /api/v1/settings/printer
func (h *SettingsHandler) UpdatePrinter(c *fiber.Ctx) error {
	var req service.PrinterSettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	s, err := h.settings.UpdatePrinter(c.UserContext(), &req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(s)
}

// GET /api/v1/settings/general
func (h *SettingsHandler) GetGeneral(c *fiber.Ctx) error {
	s, err := h.settings.General(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(s)
}

// PUT /api/v1/settings/general
func (h *SettingsHandler) UpdateGeneral(c *fiber.Ctx) error {
	var req service.GeneralSettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	s, err := h.settings.UpdateGeneral(c.UserContext(), &req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(s)
}

// GetHours returns the weekly schedule and whether the store is open now
// GET /api/v1/settings/hours
func (h *SettingsHandler) GetHours(c *fiber.Ctx) error {
	ctx := c.UserContext()
	week, err := h.settings.Hours(ctx)
	if err != nil {
		return fail(c, err)
	}
	open, err := h.settings.IsOpen(ctx, time.Now())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"open_now": open, "days": week})
}

// PUT /api/v1/settings/hours/:day
func (h *SettingsHandler) UpdateHours(c *fiber.Ctx) error {
	day, err := strconv.Atoi(c.Params("day"))
	if err != nil {
		return badRequest(c, "Invalid day")
	}
	var req service.BusinessHoursRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	hours, err := h.settings.UpdateHours(c.UserContext(), day, &req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(hours)
}
