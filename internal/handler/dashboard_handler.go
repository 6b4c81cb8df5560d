package handler

import (
	"time"

	"go-pos-store/internal/service"

	"github.com/gofiber/fiber/v2"
)

type DashboardHandler struct {
	service service.DashboardService
}

func NewDashboardHandler(s service.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: s}
}

// period reads ?from=&to= as RFC 3339 timestamps. It defaults to the last 24 hours.
func period(c *fiber.Ctx) (time.Time, time.Time, error) {
	to := time.Now()
	from := to.Add(-24 * time.Hour)
	if raw := c.Query("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return from, to, err
		}
		from = t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return from, to, err
		}
		to = t
	}
	return from, to, nil
}

// GetDashboardStats returns overview statistics
// GET /api/v1/dashboard/stats
func (h *DashboardHandler) GetDashboardStats(c *fiber.Ctx) error {
	from, to, err := period(c)
	if err != nil {
		return badRequest(c, "from and to must be RFC 3339 timestamps")
	}
	stats, err := h.service.Stats(c.UserContext(), from, to)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(stats)
}

// GetTopProducts returns the best sellers of the period
// GET /api/v1/dashboard/top-products?limit=5
func (h *DashboardHandler) GetTopProducts(c *fiber.Ctx) error {
	from, to, err := period(c)
	if err != nil {
		return badRequest(c, "from and to must be RFC 3339 timestamps")
	}
	top, err := h.service.TopProducts(c.UserContext(), from, to, c.QueryInt("limit", 5))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(top)
}

// GetDailySales returns sales per day for charts
// Query params: days (default 7)
func (h *DashboardHandler) GetDailySales(c *fiber.Ctx) error {
	days := c.QueryInt("days", 7)
	if days <= 0 {
		days = 7
	}

	data, err := h.service.DailySales(c.UserContext(), days)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"period": days,
		"data":   data,
	})
}
