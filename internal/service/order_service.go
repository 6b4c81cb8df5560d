package service

import (
	"context"
	"errors"
	"fmt"

	"go-pos-store/internal/client"
	"go-pos-store/internal/dberr"
	"go-pos-store/internal/model"
	"go-pos-store/internal/printer"
	"go-pos-store/internal/query"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Websocket message types.
const (
	EventOrderCreated       = "order_created"
	EventOrderStatusChanged = "order_status_changed"
	EventOrderComment       = "order_comment_added"
)

// orderNumberAttempts bounds retries when two orders race for the same number.
const orderNumberAttempts = 3

// Publisher pushes live updates to connected clients.
type Publisher interface {
	Publish(kind string, data interface{})
}

// ReceiptPrinter sends a receipt to the configured printer.
type ReceiptPrinter interface {
	Print(ctx context.Context, cfg model.PrinterSettings, r printer.Receipt) error
}

type OrderService interface {
	PlaceOrder(ctx context.Context, userID uuid.UUID, req *PlaceOrderRequest) (*model.Order, error)
	ChangeStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) (*model.Order, error)
	AddComment(ctx context.Context, orderID uuid.UUID, author, content string) (*model.Comment, error)
	ListComments(ctx context.Context, orderID uuid.UUID) ([]model.Comment, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Order, error)
	GetByNumber(ctx context.Context, number int) (*model.Order, error)
	List(ctx context.Context, q OrderQuery) (*OrderPage, error)
	Receipt(ctx context.Context, id uuid.UUID) (*printer.Receipt, error)
	Print(ctx context.Context, id uuid.UUID) error
}

type OrderItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"uuid_required"`
	Quantity  int       `json:"quantity" validate:"gt=0,lte=1000"`
	Note      *string   `json:"note" validate:"omitempty,max=500"`
}

type PlaceOrderRequest struct {
	Items         []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
	CustomerName  *string            `json:"customer_name" validate:"omitempty,max=255"`
	PaymentMethod string             `json:"payment_method" validate:"omitempty,oneof=cash card transfer"`
}

// OrderQuery pages orders newest first. Cursor is the id of the last order of
// the previous page.
type OrderQuery struct {
	Status model.OrderStatus
	Cursor *uuid.UUID
	Limit  int
}

type OrderPage struct {
	Orders     []model.Order `json:"orders"`
	NextCursor *uuid.UUID    `json:"next_cursor,omitempty"`
}

type orderService struct {
	db       *client.Client
	settings SettingsService
	hub      Publisher
	printer  ReceiptPrinter
	log      *zap.Logger
}

func NewOrderService(db *client.Client, settings SettingsService, hub Publisher, p ReceiptPrinter, log *zap.Logger) OrderService {
	if log == nil {
		log = zap.NewNop()
	}
	return &orderService{db: db, settings: settings, hub: hub, printer: p, log: log.Named("orders")}
}

func (s *orderService) publish(kind string, data interface{}) {
	if s.hub != nil {
		s.hub.Publish(kind, data)
	}
}

func (s *orderService) PlaceOrder(ctx context.Context, userID uuid.UUID, req *PlaceOrderRequest) (*model.Order, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	general, err := s.settings.General(ctx)
	if err != nil {
		return nil, err
	}
	status := model.OrderPending
	if general.AutoAcceptOrders {
		status = model.OrderInProgress
	}
	payment := req.PaymentMethod
	if payment == "" {
		payment = model.PaymentCash
	}

	var order *model.Order
	for attempt := 1; ; attempt++ {
		order, err = s.placeOnce(ctx, userID, req, status, payment)
		if err == nil || attempt == orderNumberAttempts || !dberr.IsCode(err, dberr.CodeUniqueConstraint) {
			break
		}
		s.log.Debug("order number taken, retrying", zap.Int("attempt", attempt))
	}
	if err != nil {
		return nil, err
	}

	full, err := s.db.Orders.FindByID(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	s.publish(EventOrderCreated, full)
	s.autoPrint(ctx, full)
	return full, nil
}

// placeOnce writes the order and its items in one transaction. Prices are
// copied from the products so later price changes leave the order untouched.
func (s *orderService) placeOnce(ctx context.Context, userID uuid.UUID, req *PlaceOrderRequest, status model.OrderStatus, payment string) (*model.Order, error) {
	var order *model.Order
	err := s.db.Transaction(ctx, func(tx *client.Client) error {
		ids := make([]uuid.UUID, 0, len(req.Items))
		seen := map[uuid.UUID]bool{}
		for _, it := range req.Items {
			if !seen[it.ProductID] {
				seen[it.ProductID] = true
				ids = append(ids, it.ProductID)
			}
		}
		products, err := tx.Products.FindAvailable(ctx, ids)
		if err != nil {
			return err
		}
		byID := make(map[uuid.UUID]model.Product, len(products))
		for _, p := range products {
			byID[p.ID] = p
		}

		items := make([]model.OrderItem, 0, len(req.Items))
		total := decimal.Zero
		for _, it := range req.Items {
			p, ok := byID[it.ProductID]
			if !ok {
				return fmt.Errorf("%w: %s", ErrProductUnavailable, it.ProductID)
			}
			item := model.OrderItem{
				ProductID: p.ID,
				Quantity:  it.Quantity,
				Price:     p.Price,
				Subtotal:  p.Price.Mul(decimal.NewFromInt(int64(it.Quantity))),
				Note:      it.Note,
			}
			total = total.Add(item.Subtotal)
			items = append(items, item)
		}

		number, err := tx.Orders.NextOrderNumber(ctx)
		if err != nil {
			return err
		}
		order = &model.Order{
			OrderNumber:   number,
			Status:        status,
			Total:         total,
			UserID:        userID,
			CustomerName:  req.CustomerName,
			PaymentMethod: payment,
			Items:         items,
		}
		return tx.Orders.Create(ctx, order)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *orderService) autoPrint(ctx context.Context, order *model.Order) {
	if s.printer == nil {
		return
	}
	cfg, err := s.settings.Printer(ctx)
	if err != nil || !cfg.Enabled || !cfg.AutoPrint {
		return
	}
	if err := s.print(ctx, cfg, order); err != nil {
		s.log.Warn("auto print failed", zap.Int("order_number", order.OrderNumber), zap.Error(err))
	}
}

func (s *orderService) ChangeStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) (*model.Order, error) {
	if !status.Valid() {
		return nil, invalid("unknown status %q", status)
	}
	order, err := s.db.Orders.FindUnique(ctx, query.ByID(id))
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if !order.Status.CanBecome(status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, status)
	}

	// only move from the status we checked
	n, err := s.db.Orders.UpdateMany(ctx,
		query.ByID(id).With("status", query.Eq(order.Status)),
		query.Data{"status": status},
	)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrOrderConflict
	}

	full, err := s.db.Orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publish(EventOrderStatusChanged, map[string]interface{}{
		"id":           full.ID,
		"order_number": full.OrderNumber,
		"from":         order.Status,
		"status":       full.Status,
	})
	return full, nil
}

func (s *orderService) AddComment(ctx context.Context, orderID uuid.UUID, author, content string) (*model.Comment, error) {
	c := &model.Comment{OrderID: orderID, Content: content, CreatedBy: author}
	if err := validate(c); err != nil {
		return nil, err
	}
	if err := s.db.Comments.Create(ctx, c); err != nil {
		if dberr.IsCode(err, dberr.CodeForeignKeyConstraint) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	s.publish(EventOrderComment, c)
	return c, nil
}

func (s *orderService) ListComments(ctx context.Context, orderID uuid.UUID) ([]model.Comment, error) {
	n, err := s.db.Orders.Count(ctx, query.ByID(orderID))
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrOrderNotFound
	}
	return s.db.Comments.FindByOrder(ctx, orderID)
}

func (s *orderService) Get(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	order, err := s.db.Orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *orderService) GetByNumber(ctx context.Context, number int) (*model.Order, error) {
	order, err := s.db.Orders.FindByOrderNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *orderService) List(ctx context.Context, q OrderQuery) (*OrderPage, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	args := query.FindArgs{
		OrderBy: []query.OrderBy{query.Desc("created_at"), query.Desc("order_number")},
		Take:    limit,
		Include: []string{"user"},
	}
	if q.Status != "" {
		if !q.Status.Valid() {
			return nil, invalid("unknown status %q", q.Status)
		}
		args.Where = query.Is("status", q.Status)
	}
	if q.Cursor != nil {
		args.Cursor = query.ByID(*q.Cursor)
		args.Skip = 1
	}
	orders, err := s.db.Orders.FindMany(ctx, args)
	if err != nil {
		return nil, err
	}
	page := &OrderPage{Orders: orders}
	if len(orders) == limit {
		last := orders[len(orders)-1].ID
		page.NextCursor = &last
	}
	return page, nil
}

// TaxIncluded splits the tax out of a tax-inclusive total.
func TaxIncluded(total, rate decimal.Decimal) decimal.Decimal {
	if !rate.IsPositive() {
		return decimal.Zero
	}
	hundred := decimal.NewFromInt(100)
	return total.Mul(rate).Div(hundred.Add(rate)).Round(2)
}

func (s *orderService) Receipt(ctx context.Context, id uuid.UUID) (*printer.Receipt, error) {
	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.receipt(ctx, order)
}

func (s *orderService) receipt(ctx context.Context, order *model.Order) (*printer.Receipt, error) {
	store, err := s.settings.Store(ctx)
	if err != nil {
		return nil, err
	}
	general, err := s.settings.General(ctx)
	if err != nil {
		return nil, err
	}
	loc, err := s.settings.Location(ctx)
	if err != nil {
		return nil, err
	}

	tax := TaxIncluded(order.Total, general.TaxPercentage)
	r := &printer.Receipt{
		StoreName:     store.Name,
		Address:       store.Address,
		Phone:         store.Phone,
		OrderNumber:   order.OrderNumber,
		Status:        string(order.Status),
		Date:          order.CreatedAt.In(loc),
		PaymentMethod: order.PaymentMethod,
		Currency:      general.Currency,
		TaxRate:       general.TaxPercentage,
		Tax:           tax,
		Net:           order.Total.Sub(tax),
		Total:         order.Total,
	}
	if store.TaxID != nil {
		r.TaxID = *store.TaxID
	}
	if order.User != nil {
		r.Cashier = order.User.Name
	}
	if order.CustomerName != nil {
		r.Customer = *order.CustomerName
	}
	if general.ReceiptFooter != nil {
		r.Footer = *general.ReceiptFooter
	}
	for _, it := range order.Items {
		line := printer.Line{Quantity: it.Quantity, Price: it.Price, Subtotal: it.Subtotal}
		if it.Product != nil {
			line.Name = it.Product.Name
		}
		if it.Note != nil {
			line.Note = *it.Note
		}
		r.Lines = append(r.Lines, line)
	}
	return r, nil
}

func (s *orderService) Print(ctx context.Context, id uuid.UUID) error {
	if s.printer == nil {
		return printer.ErrPrinterUnavailable
	}
	order, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	cfg, err := s.settings.Printer(ctx)
	if err != nil {
		return err
	}
	return s.print(ctx, cfg, order)
}

func (s *orderService) print(ctx context.Context, cfg *model.PrinterSettings, order *model.Order) error {
	r, err := s.receipt(ctx, order)
	if err != nil {
		return err
	}
	if err := s.printer.Print(ctx, *cfg, *r); err != nil {
		if errors.Is(err, printer.ErrPrinterUnavailable) {
			return err
		}
		return fmt.Errorf("print order %d: %w", order.OrderNumber, err)
	}
	return nil
}
