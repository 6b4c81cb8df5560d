package model

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Role codes as constants
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleStaff   = "staff"
)

// User represents an authenticated user in the system
type User struct {
	BaseModel
	Email    string  `gorm:"type:varchar(255);uniqueIndex;not null" json:"email" validate:"required,email"`
	Password string  `gorm:"type:varchar(255);not null" json:"-"` // Hidden from JSON
	Name     string  `gorm:"type:varchar(255);not null" json:"name" validate:"required"`
	Role     string  `gorm:"type:varchar(20);not null;default:staff" json:"role" validate:"required,oneof=admin manager staff"`
	Active   bool    `gorm:"not null" json:"active"`
	Orders   []Order `gorm:"foreignKey:UserID;constraint:OnDelete:RESTRICT" json:"orders,omitempty"`
}

// SetPassword hashes and sets the user's password
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

// CheckPassword verifies if the provided password matches the stored hash
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}

// UserResponse is used for API responses (without sensitive data)
type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToResponse converts User to UserResponse
func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		Active:    u.Active,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
