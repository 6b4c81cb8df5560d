package handler

import (
	"go-pos-store/internal/audit"

	"github.com/gofiber/fiber/v2"
)

type AuditHandler struct {
	history audit.Reader
}

func NewAuditHandler(history audit.Reader) *AuditHandler {
	return &AuditHandler{history: history}
}

// GetHistory lists the recorded changes of one row, newest first
// GET /api/v1/audit/:id?limit=50
func (h *AuditHandler) GetHistory(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return badRequest(c, "Invalid ID")
	}
	limit := c.QueryInt("limit", 50)
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	entries, err := h.history.History(c.UserContext(), id.String(), int64(limit))
	if err != nil {
		return fail(c, err)
	}
	if entries == nil {
		entries = []*audit.Entry{}
	}
	return c.JSON(entries)
}
