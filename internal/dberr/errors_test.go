package dberr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestTranslate(t *testing.T) {
	testCases := []struct {
		name  string
		err   error
		check func(t *testing.T, got error)
	}{
		{
			name: "duplicated key",
			err:  fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey),
			check: func(t *testing.T, got error) {
				assert.True(t, IsCode(got, CodeUniqueConstraint))
			},
		},
		{
			name: "driver message for unique violation",
			err:  errors.New("constraint failed: UNIQUE constraint failed: users.email (2067)"),
			check: func(t *testing.T, got error) {
				assert.True(t, IsCode(got, CodeUniqueConstraint))
			},
		},
		{
			name: "foreign key",
			err:  gorm.ErrForeignKeyViolated,
			check: func(t *testing.T, got error) {
				assert.True(t, IsCode(got, CodeForeignKeyConstraint))
			},
		},
		{
			name: "record not found",
			err:  gorm.ErrRecordNotFound,
			check: func(t *testing.T, got error) {
				assert.ErrorIs(t, got, ErrNotFound)
				var nf *NotFoundError
				assert.ErrorAs(t, got, &nf)
			},
		},
		{
			name: "transaction timeout",
			err:  ErrTransactionTimeout,
			check: func(t *testing.T, got error) {
				assert.True(t, IsCode(got, CodeTransaction))
				assert.ErrorIs(t, got, ErrTransactionTimeout)
			},
		},
		{
			name: "canceled context",
			err:  context.Canceled,
			check: func(t *testing.T, got error) {
				var unknown *UnknownRequestError
				assert.ErrorAs(t, got, &unknown)
				assert.ErrorIs(t, got, context.Canceled)
			},
		},
		{
			name: "validation error passes through",
			err:  Invalid("User", "email", "bad"),
			check: func(t *testing.T, got error) {
				var ve *ValidationError
				assert.ErrorAs(t, got, &ve)
				assert.Equal(t, "invalid arguments for User field 'email': bad", got.Error())
			},
		},
		{
			name: "anything else",
			err:  errors.New("connection reset"),
			check: func(t *testing.T, got error) {
				var unknown *UnknownRequestError
				assert.ErrorAs(t, got, &unknown)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tc.check(t, Translate("User", tc.err))
		})
	}

	assert.NoError(t, Translate("User", nil))
}

func TestRecordNotFound(t *testing.T) {
	err := RecordNotFound("Order", "delete")
	assert.True(t, IsCode(err, CodeRecordNotFound))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "P2025: record to delete not found", err.Error())
}
