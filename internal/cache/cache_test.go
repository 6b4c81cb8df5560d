package cache

import (
	"context"
	"testing"
	"time"

	"go-pos-store/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestNop(t *testing.T) {
	var c Cache = Nop{}
	ctx := context.Background()

	assert.NoError(t, c.SetJSON(ctx, "k", map[string]int{"a": 1}))
	var out map[string]int
	assert.ErrorIs(t, c.GetJSON(ctx, "k", &out), ErrMiss)
	assert.NoError(t, c.Del(ctx, "k"))
}

func TestRedisUnreachable(t *testing.T) {
	r := NewRedis(&config.RedisConfig{Addr: "127.0.0.1:1", TTL: time.Minute})
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var out map[string]int
	err := r.GetJSON(ctx, "k", &out)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrMiss)
}
