package handler

import (
	"strconv"

	"go-pos-store/internal/model"
	"go-pos-store/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type OrderHandler struct {
	orders service.OrderService
}

func NewOrderHandler(orders service.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// PlaceOrder creates an order for the signed-in user
// POST /api/v1/orders
func (h *OrderHandler) PlaceOrder(c *fiber.Ctx) error {
	userID, ok := currentUser(c)
	if !ok {
		return c.Status(401).JSON(fiber.Map{"error": "Unauthorized"})
	}
	var req service.PlaceOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	order, err := h.orders.PlaceOrder(c.UserContext(), userID, &req)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(201).JSON(order)
}

// GetOrders lists orders newest first
// GET /api/v1/orders?status=&cursor=&limit=
func (h *OrderHandler) GetOrders(c *fiber.Ctx) error {
	q := service.OrderQuery{
		Status: model.OrderStatus(c.Query("status")),
		Limit:  c.QueryInt("limit"),
	}
	if raw := c.Query("cursor"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return badRequest(c, "Invalid cursor")
		}
		q.Cursor = &id
	}
	page, err := h.orders.List(c.UserContext(), q)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(page)
}

// GET /api/v1/orders/:id
func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return badRequest(c, "Invalid order ID")
	}
	order, err := h.orders.Get(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(order)
}

// GET /api/v1/orders/number/:number
func (h *OrderHandler) GetOrderByNumber(c *fiber.Ctx) error {
	number, err := strconv.Atoi(c.Params("number"))
	if err != nil || number <= 0 {
		return badRequest(c, "Invalid order number")
	}
	order, err := h.orders.GetByNumber(c.UserContext(), number)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(order)
}

type statusRequest struct {
	Status model.OrderStatus `json:"status"`
}

// PUT /api/v1/orders/:id/status
func (h *OrderHandler) ChangeStatus(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return badRequest(c, "Invalid order ID")
	}
	var req statusRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	order, err := h.orders.ChangeStatus(c.UserContext(), id, req.Status)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(order)
}

type commentRequest struct {
	Content string `json:"content"`
}

// POST /api/v1/orders/:id/comments
func (h *OrderHandler) AddComment(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return badRequest(c, "Invalid order ID")
	}
	var req commentRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	author, _ := c.Locals("user_name").(string)
	comment, err := h.orders.AddComment(c.UserContext(), id, author, req.Content)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(201).JSON(comment)
}

// GET /api/v1/orders/:id/comments
func (h *OrderHandler) GetComments(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return badRequest(c, "Invalid order ID")
	}
	comments, err := h.orders.ListComments(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(comments)
}

// GetReceipt returns the receipt data of an order
// GET /api/v1/orders/:id/receipt
func (h *OrderHandler) GetReceipt(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return badRequest(c, "Invalid order ID")
	}
	r, err := h.orders.Receipt(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(r)
}

// POST /api/v1/orders/:id/print
func (h *OrderHandler) Print(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return badRequest(c, "Invalid order ID")
	}
	if err := h.orders.Print(c.UserContext(), id); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Receipt sent to printer"})
}
