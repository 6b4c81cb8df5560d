package validator

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type sample struct {
	ID    uuid.UUID `validate:"uuid_required"`
	Opens string    `validate:"hhmm"`
	Email string    `validate:"required,email"`
}

func TestValidateStruct(t *testing.T) {
	testCases := []struct {
		name string
		in   sample
		tags []string
	}{
		{name: "valid", in: sample{ID: uuid.New(), Opens: "09:30", Email: "a@example.com"}},
		{name: "nil uuid", in: sample{Opens: "09:30", Email: "a@example.com"}, tags: []string{"uuid_required"}},
		{name: "bad hour", in: sample{ID: uuid.New(), Opens: "24:00", Email: "a@example.com"}, tags: []string{"hhmm"}},
		{name: "bad format", in: sample{ID: uuid.New(), Opens: "9:30", Email: "nope"}, tags: []string{"hhmm", "email"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var tags []string
			for _, e := range ValidateStruct(&tc.in) {
				tags = append(tags, e.Tag)
			}
			assert.Equal(t, tc.tags, tags)
		})
	}
}

func TestCheck(t *testing.T) {
	assert.NoError(t, Check(&sample{ID: uuid.New(), Opens: "00:00", Email: "a@example.com"}))
	assert.EqualError(t, Check(&sample{ID: uuid.New(), Opens: "00:00"}), "field 'sample.Email' failed on tag 'required'")
}
