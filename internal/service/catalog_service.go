package service

import (
	"context"

	"go-pos-store/internal/client"
	"go-pos-store/internal/model"
	"go-pos-store/internal/query"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CatalogService interface {
	ListCategories(ctx context.Context, activeOnly bool) ([]model.Category, error)
	CreateCategory(ctx context.Context, req *CategoryRequest) (*model.Category, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, req *CategoryRequest) (*model.Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error

	GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error)
	SearchProducts(ctx context.Context, q ProductQuery) (*ProductPage, error)
	CreateProduct(ctx context.Context, req *ProductRequest) (*model.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, req *ProductRequest) (*model.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
}

type CategoryRequest struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Description *string `json:"description"`
	Color       *string `json:"color" validate:"omitempty,max=20"`
	Active      *bool   `json:"active"`
}

type ProductRequest struct {
	Name        string          `json:"name" validate:"required,max=255"`
	Description *string         `json:"description"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    *string         `json:"image_url" validate:"omitempty,url"`
	CategoryID  uuid.UUID       `json:"category_id" validate:"uuid_required"`
	Available   *bool           `json:"available"`
}

// ProductQuery filters and pages the product list. Cursor is the id of the
// last product of the previous page.
type ProductQuery struct {
	Search        string
	CategoryID    *uuid.UUID
	AvailableOnly bool
	Cursor        *uuid.UUID
	Limit         int
}

type ProductPage struct {
	Products   []model.Product `json:"products"`
	NextCursor *uuid.UUID      `json:"next_cursor,omitempty"`
}

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

type catalogService struct {
	db *client.Client
}

func NewCatalogService(db *client.Client) CatalogService {
	return &catalogService{db: db}
}

func (s *catalogService) ListCategories(ctx context.Context, activeOnly bool) ([]model.Category, error) {
	if activeOnly {
		return s.db.Categories.FindActive(ctx)
	}
	return s.db.Categories.FindMany(ctx, query.FindArgs{OrderBy: []query.OrderBy{query.Asc("name")}})
}

func (s *catalogService) CreateCategory(ctx context.Context, req *CategoryRequest) (*model.Category, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	cat := &model.Category{
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
		Active:      req.Active == nil || *req.Active,
	}
	if err := s.db.Categories.Create(ctx, cat); err != nil {
		return nil, err
	}
	return cat, nil
}

func (s *catalogService) UpdateCategory(ctx context.Context, id uuid.UUID, req *CategoryRequest) (*model.Category, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	data := query.Data{
		"name":        req.Name,
		"description": req.Description,
		"color":       req.Color,
	}
	if req.Active != nil {
		data["active"] = *req.Active
	}
	cat, err := s.db.Categories.Update(ctx, query.ByID(id), data)
	return cat, translate(err, ErrCategoryNotFound, nil)
}

func (s *catalogService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.Categories.Delete(ctx, query.ByID(id))
	return translate(err, ErrCategoryNotFound, ErrCategoryInUse)
}

func (s *catalogService) GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	p, err := s.db.Products.FindUniqueOrThrow(ctx, query.ByID(id), "category")
	return p, translate(err, ErrProductNotFound, nil)
}

func (s *catalogService) SearchProducts(ctx context.Context, q ProductQuery) (*ProductPage, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	where := query.Where{Fields: map[string]query.Filter{}}
	if q.Search != "" {
		where.Fields["name"] = query.Contains(q.Search).Fold()
	}
	if q.CategoryID != nil {
		where.Fields["category_id"] = query.Eq(*q.CategoryID)
	}
	if q.AvailableOnly {
		where.Fields["available"] = query.Eq(true)
	}
	args := query.FindArgs{
		Where:   where,
		OrderBy: []query.OrderBy{query.Asc("name")},
		Take:    limit,
		Include: []string{"category"},
	}
	if q.Cursor != nil {
		args.Cursor = query.ByID(*q.Cursor)
		args.Skip = 1
	}

	products, err := s.db.Products.FindMany(ctx, args)
	if err != nil {
		return nil, err
	}
	page := &ProductPage{Products: products}
	if len(products) == limit {
		last := products[len(products)-1].ID
		page.NextCursor = &last
	}
	return page, nil
}

// activeCategory checks that products may be filed under id.
func (s *catalogService) activeCategory(ctx context.Context, id uuid.UUID) error {
	cat, err := s.db.Categories.FindUnique(ctx, query.ByID(id))
	if err != nil {
		return err
	}
	if cat == nil {
		return ErrCategoryNotFound
	}
	if !cat.Active {
		return ErrCategoryInactive
	}
	return nil
}

func (s *catalogService) checkProduct(ctx context.Context, req *ProductRequest) error {
	if err := validate(req); err != nil {
		return err
	}
	if req.Price.IsNegative() {
		return invalid("price must not be negative")
	}
	return s.activeCategory(ctx, req.CategoryID)
}

func (s *catalogService) CreateProduct(ctx context.Context, req *ProductRequest) (*model.Product, error) {
	if err := s.checkProduct(ctx, req); err != nil {
		return nil, err
	}
	p := &model.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		ImageURL:    req.ImageURL,
		CategoryID:  req.CategoryID,
		Available:   req.Available == nil || *req.Available,
	}
	if err := s.db.Products.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, id uuid.UUID, req *ProductRequest) (*model.Product, error) {
	if err := s.checkProduct(ctx, req); err != nil {
		return nil, err
	}
	data := query.Data{
		"name":        req.Name,
		"description": req.Description,
		"price":       req.Price,
		"image_url":   req.ImageURL,
		"category_id": req.CategoryID,
	}
	if req.Available != nil {
		data["available"] = *req.Available
	}
	p, err := s.db.Products.Update(ctx, query.ByID(id), data)
	return p, translate(err, ErrProductNotFound, nil)
}

func (s *catalogService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.Products.Delete(ctx, query.ByID(id))
	return translate(err, ErrProductNotFound, ErrProductInUse)
}
