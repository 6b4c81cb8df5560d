package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderInProgress OrderStatus = "in_progress"
	OrderCompleted  OrderStatus = "completed"
	OrderCancelled  OrderStatus = "cancelled"
)

// Terminal reports whether no further status change is allowed.
func (s OrderStatus) Terminal() bool {
	return s == OrderCompleted || s == OrderCancelled
}

var transitions = map[OrderStatus][]OrderStatus{
	OrderPending:    {OrderInProgress, OrderCancelled},
	OrderInProgress: {OrderCompleted, OrderCancelled},
}

// CanBecome reports whether an order in status s may move to next.
func (s OrderStatus) CanBecome(next OrderStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderInProgress, OrderCompleted, OrderCancelled:
		return true
	}
	return false
}

const (
	PaymentCash     = "cash"
	PaymentCard     = "card"
	PaymentTransfer = "transfer"
)

type Order struct {
	BaseModel
	OrderNumber   int             `gorm:"uniqueIndex;not null" json:"order_number"`
	Status        OrderStatus     `gorm:"type:varchar(20);not null;default:pending;index" json:"status"`
	Total         decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total"`
	UserID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	User          *User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CustomerName  *string         `gorm:"type:varchar(255)" json:"customer_name,omitempty"`
	PaymentMethod string          `gorm:"type:varchar(20);not null;default:cash" json:"payment_method"`

	Items    []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	Comments []Comment   `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"comments,omitempty"`
}

// OrderItem keeps a snapshot of the product price at the time the order was placed.
type OrderItem struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	Order     *Order          `gorm:"foreignKey:OrderID" json:"order,omitempty"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	Product   *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Quantity  int             `gorm:"not null" json:"quantity" validate:"gt=0"`
	Price     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	Subtotal  decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"subtotal"`
	Note      *string         `gorm:"type:text" json:"note,omitempty"`
}

func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	i.Subtotal = i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
	return nil
}

type Comment struct {
	BaseModel
	OrderID   uuid.UUID `gorm:"type:uuid;not null;index" json:"order_id"`
	Order     *Order    `gorm:"foreignKey:OrderID" json:"order,omitempty"`
	Content   string    `gorm:"type:text;not null" json:"content" validate:"required"`
	CreatedBy string    `gorm:"type:varchar(255);not null" json:"created_by"`
}
