package service

import (
	"errors"
	"fmt"

	"go-pos-store/internal/dberr"
	"go-pos-store/pkg/validator"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserInactive       = errors.New("user account is inactive")
	ErrWrongPassword      = errors.New("current password is incorrect")
	ErrEmailExists        = errors.New("email already exists")
	ErrUserHasOrders      = errors.New("user has orders and cannot be deleted")
	ErrCategoryNotFound   = errors.New("category not found")
	ErrCategoryInactive   = errors.New("category is inactive")
	ErrCategoryInUse      = errors.New("category still has products")
	ErrProductNotFound    = errors.New("product not found")
	ErrProductUnavailable = errors.New("product is not available")
	ErrProductInUse       = errors.New("product is referenced by orders")
	ErrOrderNotFound      = errors.New("order not found")
	ErrInvalidTransition  = errors.New("order status change not allowed")
	ErrOrderConflict      = errors.New("order was changed concurrently")
)

// validate runs struct validation and wraps the first failure in ErrValidation.
func validate(req interface{}) error {
	if err := validator.Check(req); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// translate swaps store errors the caller can act on for service sentinels.
func translate(err error, notFound, inUse error) error {
	switch {
	case err == nil:
		return nil
	case notFound != nil && (errors.Is(err, dberr.ErrNotFound) || dberr.IsCode(err, dberr.CodeRecordNotFound)):
		return notFound
	case inUse != nil && dberr.IsCode(err, dberr.CodeForeignKeyConstraint):
		return inUse
	}
	return err
}
