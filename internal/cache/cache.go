// Package cache is a small JSON cache used for read-mostly rows such as
// settings.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go-pos-store/internal/config"

	"github.com/go-redis/redis/v8"
)

// ErrMiss is returned by GetJSON when the key is absent.
var ErrMiss = errors.New("cache miss")

type Cache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}) error
	Del(ctx context.Context, keys ...string) error
}

type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(cfg *config.RedisConfig) *Redis {
	return &Redis{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
			PoolSize: cfg.PoolSize,
		}),
		ttl: cfg.TTL,
	}
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) SetJSON(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, r.ttl).Err()
}

func (r *Redis) GetJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

func (r *Redis) Del(ctx context.Context, keys ...string) error {
	return r.client.Del(ctx, keys...).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}

// Nop never stores anything; every read is a miss.
type Nop struct{}

func (Nop) GetJSON(context.Context, string, interface{}) error { return ErrMiss }
func (Nop) SetJSON(context.Context, string, interface{}) error { return nil }
func (Nop) Del(context.Context, ...string) error { return nil }
