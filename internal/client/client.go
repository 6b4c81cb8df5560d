// Package client is the entry point of the data-access layer. A Client is
// constructed by main, connected explicitly and disconnected on shutdown;
// it exposes one repository per model, transactions, raw queries, middleware
// and events.
package client

import (
	"context"
	"sync"
	"time"

	"go-pos-store/internal/config"
	"go-pos-store/internal/dberr"
	"go-pos-store/internal/model"
	"go-pos-store/internal/repository"
	"go-pos-store/pkg/database"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	DefaultMaxWait = 2 * time.Second
	DefaultTimeout = 5 * time.Second
)

type Client struct {
	cfg    config.DatabaseConfig
	log    *zap.Logger
	chain  *repository.Chain
	events *emitter

	// root holds the pool; nil until Connect. Scoped clients share it.
	root *root
	// tx is set on clients handed to transaction callbacks.
	tx *txScope

	Users           repository.UserRepository
	Categories      repository.CategoryRepository
	Products        repository.ProductRepository
	Orders          repository.OrderRepository
	OrderItems      repository.OrderItemRepository
	Comments        repository.CommentRepository
	StoreSettings   repository.SettingsRepository[model.StoreSettings]
	BusinessHours   repository.BusinessHoursRepository
	PrinterSettings repository.SettingsRepository[model.PrinterSettings]
	GeneralSettings repository.SettingsRepository[model.GeneralSettings]
}

type root struct {
	mu sync.RWMutex
	db *gorm.DB
}

func New(cfg config.DatabaseConfig, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = DefaultMaxWait
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	c := &Client{
		cfg:    cfg,
		log:    log,
		chain:  repository.NewChain(),
		events: newEmitter(),
		root:   &root{},
	}
	c.wire(c.source)
	return c
}

func (c *Client) wire(src repository.Source) {
	c.Users = repository.NewUserRepo(src, c.chain)
	c.Categories = repository.NewCategoryRepo(src, c.chain)
	c.Products = repository.NewProductRepo(src, c.chain)
	c.Orders = repository.NewOrderRepo(src, c.chain)
	c.OrderItems = repository.NewOrderItemRepo(src, c.chain)
	c.Comments = repository.NewCommentRepo(src, c.chain)
	c.StoreSettings = repository.NewStoreSettingsRepo(src, c.chain)
	c.BusinessHours = repository.NewBusinessHoursRepo(src, c.chain)
	c.PrinterSettings = repository.NewPrinterSettingsRepo(src, c.chain)
	c.GeneralSettings = repository.NewGeneralSettingsRepo(src, c.chain)
}

// source hands repositories the pool, bound to the caller's context.
func (c *Client) source(ctx context.Context) (*gorm.DB, error) {
	c.root.mu.RLock()
	db := c.root.db
	c.root.mu.RUnlock()
	if db == nil {
		return nil, &dberr.InitializationError{Message: "client is not connected", Err: dberr.ErrNotConnected}
	}
	return db.WithContext(ctx), nil
}

// Connect opens the connection pool. Calling it on a connected client is a no-op.
func (c *Client) Connect(ctx context.Context) error {
	c.root.mu.Lock()
	defer c.root.mu.Unlock()
	if c.root.db != nil {
		return nil
	}

	db, err := database.Open(database.Options{
		URL:             c.cfg.URL,
		MaxIdleConns:    c.cfg.MaxIdleConns,
		MaxOpenConns:    c.cfg.MaxOpenConns,
		ConnMaxLifetime: c.cfg.ConnMaxLifetime,
		Logger:          newGormLogger(c.log, c.cfg.LogLevel, c.cfg.SlowThreshold, c.events),
	})
	if err != nil {
		return &dberr.InitializationError{Message: "cannot open database", Err: err}
	}
	sqlDB, err := db.DB()
	if err != nil {
		return &dberr.InitializationError{Message: "cannot open database", Err: err}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return &dberr.InitializationError{Message: "cannot reach database", Err: err}
	}
	if err := registerCallbacks(db, c.events); err != nil {
		sqlDB.Close()
		return &dberr.InitializationError{Message: "cannot register query callbacks", Err: err}
	}

	c.root.db = db
	c.log.Info("Database connection established", zap.String("dialect", db.Dialector.Name()))
	return nil
}

// Disconnect releases every pooled connection.
func (c *Client) Disconnect(ctx context.Context) error {
	c.root.mu.Lock()
	defer c.root.mu.Unlock()
	if c.root.db == nil {
		return nil
	}
	sqlDB, err := c.root.db.DB()
	c.root.db = nil
	if err != nil {
		return &dberr.InitializationError{Message: "cannot close database", Err: err}
	}
	if err := sqlDB.Close(); err != nil {
		return &dberr.UnknownRequestError{Message: "cannot close database", Err: err}
	}
	c.log.Info("Database connection closed")
	return nil
}

// Connected reports whether Connect succeeded and Disconnect was not called since.
func (c *Client) Connected() bool {
	c.root.mu.RLock()
	defer c.root.mu.RUnlock()
	return c.root.db != nil
}

// Migrate creates or updates the tables of every model.
func (c *Client) Migrate(ctx context.Context) error {
	db, err := c.source(ctx)
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(model.All()...); err != nil {
		return &dberr.InitializationError{Message: "migration failed", Err: err}
	}
	return nil
}

// Use registers middleware around every repository operation and raw query.
func (c *Client) Use(mws ...repository.Middleware) {
	c.chain.Use(mws...)
}

// On subscribes fn to events of kind.
func (c *Client) On(kind EventKind, fn func(Event)) {
	c.events.on(kind, fn)
}

// Dialect names the connected database dialect, or "" when disconnected.
func (c *Client) Dialect() string {
	c.root.mu.RLock()
	defer c.root.mu.RUnlock()
	if c.root.db == nil {
		return ""
	}
	return c.root.db.Dialector.Name()
}
