// Package dberr defines the error kinds surfaced by the data-access layer.
//
// Every failure returned by a repository or the client is one of
// KnownRequestError, UnknownRequestError, InitializationError,
// ValidationError or NotFoundError. Nothing here retries.
package dberr

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Known request error codes.
const (
	CodeUniqueConstraint     = "P2002"
	CodeForeignKeyConstraint = "P2003"
	CodeCheckConstraint      = "P2004"
	CodeRecordNotFound       = "P2025"
	CodeTransaction          = "P2028"
)

var (
	ErrNotFound           = errors.New("record not found")
	ErrNotConnected       = errors.New("client is not connected")
	ErrTransactionTimeout = errors.New("transaction timed out")
	ErrTransactionMaxWait = errors.New("timed out waiting to start a transaction")
)

// KnownRequestError carries a store error code the caller can branch on.
type KnownRequestError struct {
	Code    string
	Message string
	Meta    map[string]any
	Err     error
}

func (e *KnownRequestError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *KnownRequestError) Unwrap() error { return e.Err }

// UnknownRequestError wraps backend failures that could not be classified.
type UnknownRequestError struct {
	Message string
	Err     error
}

func (e *UnknownRequestError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *UnknownRequestError) Unwrap() error { return e.Err }

// InitializationError is returned for configuration and connection failures.
type InitializationError struct {
	Message string
	Err     error
}

func (e *InitializationError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *InitializationError) Unwrap() error { return e.Err }

// ValidationError reports malformed call arguments, detected before any query runs.
type ValidationError struct {
	Model   string
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("invalid arguments")
	if e.Model != "" {
		b.WriteString(" for ")
		b.WriteString(e.Model)
	}
	if e.Field != "" {
		b.WriteString(" field '")
		b.WriteString(e.Field)
		b.WriteString("'")
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	return b.String()
}

// Invalid builds a ValidationError.
func Invalid(model, field, format string, args ...any) *ValidationError {
	return &ValidationError{Model: model, Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError is raised by the OrThrow read variants.
type NotFoundError struct {
	Model  string
	Action string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no %s found (%s)", e.Model, e.Action)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// RecordNotFound is the P2025 error used by update and delete on a missing row.
func RecordNotFound(model, action string) *KnownRequestError {
	return &KnownRequestError{
		Code:    CodeRecordNotFound,
		Message: fmt.Sprintf("record to %s not found", action),
		Meta:    map[string]any{"model": model},
		Err:     ErrNotFound,
	}
}

// Translate classifies an error coming back from gorm. Errors already of one of
// the kinds above are returned untouched.
func Translate(model string, err error) error {
	if err == nil {
		return nil
	}
	var (
		known   *KnownRequestError
		unknown *UnknownRequestError
		initErr *InitializationError
		valErr  *ValidationError
		nfErr   *NotFoundError
	)
	switch {
	case errors.As(err, &known), errors.As(err, &unknown), errors.As(err, &initErr),
		errors.As(err, &valErr), errors.As(err, &nfErr):
		return err
	case errors.Is(err, gorm.ErrDuplicatedKey), violates(err, "unique constraint", "duplicate key", "duplicate entry"):
		return &KnownRequestError{Code: CodeUniqueConstraint, Message: "unique constraint failed", Meta: map[string]any{"model": model}, Err: err}
	case errors.Is(err, gorm.ErrForeignKeyViolated), violates(err, "foreign key constraint"):
		return &KnownRequestError{Code: CodeForeignKeyConstraint, Message: "foreign key constraint failed", Meta: map[string]any{"model": model}, Err: err}
	case errors.Is(err, gorm.ErrCheckConstraintViolated), violates(err, "check constraint"):
		return &KnownRequestError{Code: CodeCheckConstraint, Message: "check constraint failed", Meta: map[string]any{"model": model}, Err: err}
	case errors.Is(err, gorm.ErrRecordNotFound):
		return &NotFoundError{Model: model, Action: "query"}
	case errors.Is(err, ErrTransactionTimeout), errors.Is(err, ErrTransactionMaxWait):
		return &KnownRequestError{Code: CodeTransaction, Message: err.Error(), Err: err}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return &UnknownRequestError{Message: "query interrupted", Err: err}
	}
	return &UnknownRequestError{Message: "query failed on " + model, Err: err}
}

// violates matches driver messages for dialects without an error translator.
func violates(err error, fragments ...string) bool {
	msg := strings.ToLower(err.Error())
	for _, f := range fragments {
		if strings.Contains(msg, f) {
			return true
		}
	}
	return false
}

// IsCode reports whether err is a KnownRequestError with the given code.
func IsCode(err error, code string) bool {
	var known *KnownRequestError
	return errors.As(err, &known) && known.Code == code
}
