package repository

import (
	"context"
	"sync"

	"gorm.io/gorm"
)

// Operation describes one repository call as seen by middleware.
type Operation struct {
	Model  string
	Action string
	Args   any
}

// Handler executes an operation and returns its result.
type Handler func(ctx context.Context, op Operation) (any, error)

// Middleware wraps every repository operation.
type Middleware func(next Handler) Handler

// Chain is the ordered middleware list shared by every repository of a client.
type Chain struct {
	mu  sync.RWMutex
	mws []Middleware

	// set on chains scoped to a transaction
	base  *Chain
	hooks *CommitHooks
}

func NewChain() *Chain {
	return &Chain{}
}

// InTransaction returns a chain sharing c's middleware whose operations see
// hooks through AfterCommit.
func (c *Chain) InTransaction(hooks *CommitHooks) *Chain {
	return &Chain{base: c.root(), hooks: hooks}
}

func (c *Chain) root() *Chain {
	if c.base != nil {
		return c.base
	}
	return c
}

// Use appends middleware. The first registered runs outermost.
func (c *Chain) Use(mws ...Middleware) {
	r := c.root()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mws = append(r.mws, mws...)
}

// Then wraps final with the registered middleware.
func (c *Chain) Then(final Handler) Handler {
	r := c.root()
	r.mu.RLock()
	mws := make([]Middleware, len(r.mws))
	copy(mws, r.mws)
	r.mu.RUnlock()

	h := final
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	if c.hooks == nil {
		return h
	}
	hooks := c.hooks
	return func(ctx context.Context, op Operation) (any, error) {
		return h(context.WithValue(ctx, commitHooksKey{}, hooks), op)
	}
}

// CommitHooks collects callbacks to run once a transaction commits.
type CommitHooks struct {
	mu  sync.Mutex
	fns []func()
}

func (h *CommitHooks) add(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fns = append(h.fns, fn)
}

// Adopt moves the callbacks of a released savepoint into h.
func (h *CommitHooks) Adopt(inner *CommitHooks) {
	inner.mu.Lock()
	fns := inner.fns
	inner.fns = nil
	inner.mu.Unlock()

	h.mu.Lock()
	defer h.mu.Unlock()
	h.fns = append(h.fns, fns...)
}

// Run calls the collected callbacks in registration order.
func (h *CommitHooks) Run() {
	h.mu.Lock()
	fns := h.fns
	h.fns = nil
	h.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

type commitHooksKey struct{}

// AfterCommit defers fn until the transaction an operation runs in commits.
// It returns false when ctx carries no transaction; fn is not called then.
func AfterCommit(ctx context.Context, fn func()) bool {
	hooks, ok := ctx.Value(commitHooksKey{}).(*CommitHooks)
	if !ok {
		return false
	}
	hooks.add(fn)
	return true
}

// Source hands out the database handle an operation runs on, bound to ctx.
type Source func(ctx context.Context) (*gorm.DB, error)

// Static returns a Source that always uses db.
func Static(db *gorm.DB) Source {
	return func(ctx context.Context) (*gorm.DB, error) {
		return db.WithContext(ctx), nil
	}
}
