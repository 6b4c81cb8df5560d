package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseModel handles ID (UUID) and timestamps
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Hook Before Create untuk generate UUID otomatis
func (base *BaseModel) BeforeCreate(tx *gorm.DB) (err error) {
	if base.ID == uuid.Nil {
		base.ID = uuid.New()
	}
	return
}

// All returns every persisted model, in migration order.
func All() []interface{} {
	return []interface{}{
		&User{}, &Category{}, &Product{}, &Order{}, &OrderItem{}, &Comment{},
		&StoreSettings{}, &BusinessHours{}, &PrinterSettings{}, &GeneralSettings{},
	}
}
