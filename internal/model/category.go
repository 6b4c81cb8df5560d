package model

type Category struct {
	BaseModel
	Name        string    `gorm:"type:varchar(100);not null" json:"name" validate:"required,max=100"`
	Description *string   `gorm:"type:text" json:"description,omitempty"`
	Color       *string   `gorm:"type:varchar(20)" json:"color,omitempty"`
	Active      bool      `gorm:"not null" json:"active"`
	Products    []Product `gorm:"foreignKey:CategoryID;constraint:OnDelete:RESTRICT" json:"products,omitempty"`
}
