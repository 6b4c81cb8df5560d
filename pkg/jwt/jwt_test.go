package jwt

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	m := NewManager("secret", time.Hour)
	id := uuid.New()

	token, err := m.GenerateToken(id, "a@example.com", "A", "admin")
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, id, claims.UserID)
	assert.Equal(t, "admin", claims.Role)
}

func TestValidateRejects(t *testing.T) {
	m := NewManager("secret", time.Hour)
	token, err := m.GenerateToken(uuid.New(), "a@example.com", "A", "staff")
	require.NoError(t, err)

	expired := NewManager("secret", time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	old, err := expired.GenerateToken(uuid.New(), "a@example.com", "A", "staff")
	require.NoError(t, err)

	testCases := []struct {
		name  string
		m     *Manager
		token string
		want  error
	}{
		{name: "empty", m: m, token: "", want: ErrMissingToken},
		{name: "garbage", m: m, token: "not.a.token", want: ErrInvalidToken},
		{name: "other secret", m: NewManager("other", time.Hour), token: token, want: ErrInvalidToken},
		{name: "expired", m: m, token: old, want: ErrInvalidToken},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.m.ValidateToken(tc.token)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}
