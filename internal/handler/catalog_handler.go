package handler

import (
	"go-pos-store/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type CatalogHandler struct {
	catalog service.CatalogService
}

func NewCatalogHandler(catalog service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// GetCategories lists categories; ?active=true hides inactive ones
// GET /api/v1/categories
func (h *CatalogHandler) GetCategories(c *fiber.Ctx) error {
	cats, err := h.catalog.ListCategories(c.UserContext(), c.QueryBool("active"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(cats)
}

// POST /api/v1/categories
func (h *CatalogHandler) CreateCategory(c *fiber.Ctx) error {
	var req service.CategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	cat, err := h.catalog.CreateCategory(c.UserContext(), &req)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(201).JSON(cat)
}

// PUT /api/v1/categories/:id
func (h *CatalogHandler) UpdateCategory(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return badRequest(c, "Invalid category ID")
	}
	var req service.CategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	cat, err := h.catalog.UpdateCategory(c.UserContext(), id, &req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(cat)
}

// DELETE /api/v1/categories/:id
func (h *CatalogHandler) DeleteCategory(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return badRequest(c, "Invalid category ID")
	}
	if err := h.catalog.DeleteCategory(c.UserContext(), id); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Category deleted successfully"})
}

// GetProducts searches products
// GET /api/v1/products?search=&category_id=&available=true&cursor=&limit=
func (h *CatalogHandler) GetProducts(c *fiber.Ctx) error {
	q := service.ProductQuery{
		Search:        c.Query("search"),
		AvailableOnly: c.QueryBool("available"),
		Limit:         c.QueryInt("limit"),
	}
	if raw := c.Query("category_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return badRequest(c, "Invalid category_id")
		}
		q.CategoryID = &id
	}
	if raw := c.Query("cursor"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return badRequest(c, "Invalid cursor")
		}
		q.Cursor = &id
	}

	page, err := h.catalog.SearchProducts(c.UserContext(), q)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(page)
}

// GET /api/v1/products/:id
func (h *CatalogHandler) GetProduct(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return badRequest(c, "Invalid product ID")
	}
	p, err := h.catalog.GetProduct(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(p)
}

// POST /api/v1/products
func (h *CatalogHandler) CreateProduct(c *fiber.Ctx) error {
	var req service.ProductRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	p, err := h.catalog.CreateProduct(c.UserContext(), &req)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(201).JSON(p)
}

// PUT /api/v1/products/:id
func (h *CatalogHandler) UpdateProduct(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return badRequest(c, "Invalid product ID")
	}
	var req service.ProductRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	p, err := h.catalog.UpdateProduct(c.UserContext(), id, &req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(p)
}

// DELETE /api/v1/products/:id
func (h *CatalogHandler) DeleteProduct(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return badRequest(c, "Invalid product ID")
	}
	if err := h.catalog.DeleteProduct(c.UserContext(), id); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Product deleted successfully"})
}
