package service_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	_ "time/tzdata"

	"go-pos-store/internal/cache"
	"go-pos-store/internal/model"
	"go-pos-store/internal/printer"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

type published struct {
	Kind string
	Data interface{}
}

type fakeHub struct {
	mu     sync.Mutex
	events []published
}

func (h *fakeHub) Publish(kind string, data interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, published{kind, data})
}

func (h *fakeHub) kinds() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.events))
	for i, e := range h.events {
		out[i] = e.Kind
	}
	return out
}

type fakePrinter struct {
	mu       sync.Mutex
	receipts []printer.Receipt
	err      error
}

func (p *fakePrinter) Print(_ context.Context, _ model.PrinterSettings, r printer.Receipt) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.receipts = append(p.receipts, r)
	return nil
}

// memCache is an in-process cache.Cache that counts hits.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	hits int
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (c *memCache) GetJSON(_ context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.data[key]
	if !ok {
		return cache.ErrMiss
	}
	c.hits++
	return json.Unmarshal(b, dest)
}

func (c *memCache) SetJSON(_ context.Context, key string, value interface{}) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = b
	return nil
}

func (c *memCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func (c *memCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok
}
