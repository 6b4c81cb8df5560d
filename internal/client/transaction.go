package client

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go-pos-store/internal/dberr"
	"go-pos-store/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type IsolationLevel string

const (
	ReadUncommitted IsolationLevel = "ReadUncommitted"
	ReadCommitted   IsolationLevel = "ReadCommitted"
	RepeatableRead  IsolationLevel = "RepeatableRead"
	Serializable    IsolationLevel = "Serializable"
)

func (l IsolationLevel) sqlLevel() (sql.IsolationLevel, error) {
	switch l {
	case "":
		return sql.LevelDefault, nil
	case ReadUncommitted:
		return sql.LevelReadUncommitted, nil
	case ReadCommitted:
		return sql.LevelReadCommitted, nil
	case RepeatableRead:
		return sql.LevelRepeatableRead, nil
	case Serializable:
		return sql.LevelSerializable, nil
	}
	return sql.LevelDefault, dberr.Invalid("", "isolationLevel", "unknown isolation level %q", string(l))
}

// TxOptions bound an interactive transaction.
type TxOptions struct {
	// MaxWait is how long to wait for a connection to start the transaction.
	MaxWait time.Duration
	// Timeout is how long the transaction may run before it is rolled back.
	Timeout        time.Duration
	IsolationLevel IsolationLevel
}

type TxOption func(*TxOptions)

func WithMaxWait(d time.Duration) TxOption {
	return func(o *TxOptions) { o.MaxWait = d }
}

func WithTimeout(d time.Duration) TxOption {
	return func(o *TxOptions) { o.Timeout = d }
}

func WithIsolationLevel(l IsolationLevel) TxOption {
	return func(o *TxOptions) { o.IsolationLevel = l }
}

// txScope is the state of the transaction a scoped client runs in.
type txScope struct {
	db    *gorm.DB
	ctx   context.Context
	hooks *repository.CommitHooks
}

// scoped returns a client whose repositories run inside tx.
func (c *Client) scoped(scope *txScope) *Client {
	sc := &Client{
		cfg:    c.cfg,
		log:    c.log,
		chain:  c.chain.InTransaction(scope.hooks),
		events: c.events,
		root:   c.root,
		tx:     scope,
	}
	sc.wire(sc.db)
	return sc
}

// db returns the handle statements run on: the transaction when scoped, the
// pool otherwise. Inside a transaction statements follow the transaction's
// lifetime rather than the caller's context.
func (c *Client) db(ctx context.Context) (*gorm.DB, error) {
	if c.tx == nil {
		return c.source(ctx)
	}
	if err := ctx.Err(); err != nil {
		return nil, dberr.Translate("", err)
	}
	return c.tx.db.WithContext(c.tx.ctx), nil
}

// InTransaction reports whether c is scoped to a transaction.
func (c *Client) InTransaction() bool { return c.tx != nil }

// Transaction runs fn with a client scoped to a new transaction. The
// transaction commits when fn returns nil and rolls back otherwise. Running
// past Timeout rolls back and returns a P2028 error wrapping
// dberr.ErrTransactionTimeout. Called on a scoped client, fn runs in a
// savepoint of the enclosing transaction. Callbacks registered with
// repository.AfterCommit run after the outermost commit and are dropped on
// rollback.
func (c *Client) Transaction(ctx context.Context, fn func(tx *Client) error, opts ...TxOption) error {
	if c.tx != nil {
		hooks := &repository.CommitHooks{}
		err := c.tx.db.Transaction(func(inner *gorm.DB) error {
			return fn(c.scoped(&txScope{db: inner, ctx: c.tx.ctx, hooks: hooks}))
		})
		if err == nil {
			c.tx.hooks.Adopt(hooks)
		}
		return err
	}

	o := TxOptions{MaxWait: c.cfg.MaxWait, Timeout: c.cfg.Timeout}
	for _, opt := range opts {
		opt(&o)
	}
	level, err := o.IsolationLevel.sqlLevel()
	if err != nil {
		return err
	}
	db, err := c.source(ctx)
	if err != nil {
		return err
	}
	// sqlite transactions are always serializable and reject explicit levels
	if db.Dialector.Name() == "sqlite" {
		level = sql.LevelDefault
	}

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	waiting := time.AfterFunc(o.MaxWait, func() { cancel(dberr.ErrTransactionMaxWait) })
	tx := db.WithContext(runCtx).Begin(&sql.TxOptions{Isolation: level})
	if !waiting.Stop() {
		if tx.Error == nil {
			tx.Rollback()
		}
		return dberr.Translate("", dberr.ErrTransactionMaxWait)
	}
	if tx.Error != nil {
		return dberr.Translate("", tx.Error)
	}

	expired := time.AfterFunc(o.Timeout, func() { cancel(dberr.ErrTransactionTimeout) })
	defer expired.Stop()

	committed := false
	defer func() {
		if !committed {
			// rollback after the context is canceled is already done by database/sql
			if err := tx.Rollback().Error; err != nil && !errors.Is(err, sql.ErrTxDone) {
				c.log.Warn("Transaction rollback failed", zap.Error(err))
			}
		}
	}()

	scope := &txScope{db: tx, ctx: runCtx, hooks: &repository.CommitHooks{}}
	fnErr := fn(c.scoped(scope))
	if errors.Is(context.Cause(runCtx), dberr.ErrTransactionTimeout) {
		return dberr.Translate("", dberr.ErrTransactionTimeout)
	}
	if fnErr != nil {
		return fnErr
	}
	if err := tx.Commit().Error; err != nil {
		if errors.Is(context.Cause(runCtx), dberr.ErrTransactionTimeout) {
			return dberr.Translate("", dberr.ErrTransactionTimeout)
		}
		return dberr.Translate("", err)
	}
	committed = true
	scope.hooks.Run()
	return nil
}

// BatchOp is one operation of a batch transaction.
type BatchOp func(ctx context.Context, tx *Client) (any, error)

// Batch runs ops in order inside one transaction and returns their results in
// the same order. The first failure rolls back every op.
func (c *Client) Batch(ctx context.Context, ops ...BatchOp) ([]any, error) {
	results := make([]any, 0, len(ops))
	err := c.Transaction(ctx, func(tx *Client) error {
		for _, op := range ops {
			res, err := op(ctx, tx)
			if err != nil {
				return err
			}
			results = append(results, res)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}
