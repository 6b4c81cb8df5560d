package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Product struct {
	BaseModel
	Name        string          `gorm:"type:varchar(255);not null" json:"name" validate:"required"`
	Description *string         `gorm:"type:text" json:"description,omitempty"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	ImageURL    *string         `gorm:"type:varchar(500)" json:"image_url,omitempty"`
	CategoryID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"category_id" validate:"uuid_required"`
	Category    *Category       `gorm:"foreignKey:CategoryID" json:"category,omitempty" validate:"-"`
	Available   bool            `gorm:"not null" json:"available"`

	// Relasi
	OrderItems []OrderItem `gorm:"foreignKey:ProductID;constraint:OnDelete:RESTRICT" json:"order_items,omitempty"`
}
