package client_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go-pos-store/internal/client"
	"go-pos-store/internal/config"
	"go-pos-store/internal/dberr"
	"go-pos-store/internal/model"
	"go-pos-store/internal/query"
	"go-pos-store/internal/repository"
	"go-pos-store/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNotConnected(t *testing.T) {
	c := client.New(config.DatabaseConfig{URL: "sqlite::memory:"}, zap.NewNop())
	assert.False(t, c.Connected())
	assert.Equal(t, "", c.Dialect())

	_, err := c.Users.Count(context.Background(), query.Where{})
	var initErr *dberr.InitializationError
	require.ErrorAs(t, err, &initErr)
	assert.ErrorIs(t, err, dberr.ErrNotConnected)

	err = c.Transaction(context.Background(), func(tx *client.Client) error { return nil })
	assert.ErrorIs(t, err, dberr.ErrNotConnected)

	_, err = c.QueryRaw(context.Background(), query.Raw("SELECT 1"))
	assert.ErrorIs(t, err, dberr.ErrNotConnected)
}

func TestConnectFailures(t *testing.T) {
	testCases := []struct {
		name string
		url  string
	}{
		{name: "unknown scheme", url: "oracle://db"},
		{name: "empty", url: ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := client.New(config.DatabaseConfig{URL: tc.url}, nil)
			err := c.Connect(context.Background())
			var initErr *dberr.InitializationError
			assert.ErrorAs(t, err, &initErr)
			assert.False(t, c.Connected())
		})
	}
}

func TestConnectDisconnect(t *testing.T) {
	c := testutil.NewClient(t)
	ctx := context.Background()

	assert.True(t, c.Connected())
	assert.Equal(t, "sqlite", c.Dialect())
	require.NoError(t, c.Connect(ctx), "second connect is a no-op")

	require.NoError(t, c.Disconnect(ctx))
	assert.False(t, c.Connected())
	require.NoError(t, c.Disconnect(ctx), "second disconnect is a no-op")

	_, err := c.Users.Count(ctx, query.Where{})
	assert.ErrorIs(t, err, dberr.ErrNotConnected)
}

func TestTransactionCommitAndRollback(t *testing.T) {
	c := testutil.NewClient(t)
	ctx := context.Background()

	err := c.Transaction(ctx, func(tx *client.Client) error {
		assert.True(t, tx.InTransaction())
		return tx.Categories.Create(ctx, &model.Category{Name: "Kept"})
	})
	require.NoError(t, err)
	assert.False(t, c.InTransaction())

	boom := errors.New("boom")
	err = c.Transaction(ctx, func(tx *client.Client) error {
		if err := tx.Categories.Create(ctx, &model.Category{Name: "Dropped"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	rows, err := c.Categories.FindMany(ctx, query.FindArgs{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Kept", rows[0].Name)
}

func TestTransactionRollsBackOnStoreError(t *testing.T) {
	c := testutil.NewClient(t)
	ctx := context.Background()
	testutil.Seed(t, c)

	err := c.Transaction(ctx, func(tx *client.Client) error {
		if err := tx.Categories.Create(ctx, &model.Category{Name: "Snacks"}); err != nil {
			return err
		}
		return tx.Users.Create(ctx, &model.User{Email: "staff@example.com", Name: "Dup", Role: model.RoleStaff})
	})
	assert.True(t, dberr.IsCode(err, dberr.CodeUniqueConstraint), "%v", err)

	n, err := c.Categories.Count(ctx, query.Is("name", "Snacks"))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestNestedTransaction(t *testing.T) {
	c := testutil.NewClient(t)
	ctx := context.Background()

	err := c.Transaction(ctx, func(tx *client.Client) error {
		if err := tx.Categories.Create(ctx, &model.Category{Name: "Outer"}); err != nil {
			return err
		}
		inner := tx.Transaction(ctx, func(tx *client.Client) error {
			if err := tx.Categories.Create(ctx, &model.Category{Name: "Inner"}); err != nil {
				return err
			}
			return errors.New("undo inner")
		})
		assert.EqualError(t, inner, "undo inner")
		return nil
	})
	require.NoError(t, err)

	rows, err := c.Categories.FindMany(ctx, query.FindArgs{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Outer", rows[0].Name)
}

func TestTransactionTimeout(t *testing.T) {
	c := testutil.NewFileClient(t)
	ctx := context.Background()

	err := c.Transaction(ctx, func(tx *client.Client) error {
		if err := tx.Categories.Create(ctx, &model.Category{Name: "Late"}); err != nil {
			return err
		}
		time.Sleep(200 * time.Millisecond)
		return nil
	}, client.WithTimeout(50*time.Millisecond))

	assert.True(t, dberr.IsCode(err, dberr.CodeTransaction), "%v", err)
	assert.ErrorIs(t, err, dberr.ErrTransactionTimeout)

	n, err := c.Categories.Count(ctx, query.Where{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStatementsAfterTimeoutFail(t *testing.T) {
	c := testutil.NewFileClient(t)
	ctx := context.Background()

	var late error
	_ = c.Transaction(ctx, func(tx *client.Client) error {
		time.Sleep(100 * time.Millisecond)
		late = tx.Categories.Create(ctx, &model.Category{Name: "Late"})
		return nil
	}, client.WithTimeout(20*time.Millisecond))

	assert.Error(t, late)
	n, err := c.Categories.Count(ctx, query.Where{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestTransactionMaxWait(t *testing.T) {
	// the in-memory database has a single connection
	c := testutil.NewClient(t)
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- c.Transaction(ctx, func(tx *client.Client) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	err := c.Transaction(ctx, func(tx *client.Client) error { return nil }, client.WithMaxWait(50*time.Millisecond))
	close(release)
	require.NoError(t, <-done)

	assert.True(t, dberr.IsCode(err, dberr.CodeTransaction), "%v", err)
	assert.ErrorIs(t, err, dberr.ErrTransactionMaxWait)
}

func TestIsolationLevel(t *testing.T) {
	c := testutil.NewClient(t)
	ctx := context.Background()

	err := c.Transaction(ctx, func(tx *client.Client) error { return nil }, client.WithIsolationLevel(client.Serializable))
	assert.NoError(t, err)

	err = c.Transaction(ctx, func(tx *client.Client) error { return nil }, client.WithIsolationLevel("Snapshot"))
	var ve *dberr.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestBatch(t *testing.T) {
	c := testutil.NewClient(t)
	ctx := context.Background()
	fx := testutil.Seed(t, c)

	res, err := c.Batch(ctx,
		func(ctx context.Context, tx *client.Client) (any, error) {
			return tx.Products.Count(ctx, query.Where{})
		},
		func(ctx context.Context, tx *client.Client) (any, error) {
			return tx.Products.UpdateMany(ctx, query.Where{}, query.Data{"available": false})
		},
	)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.EqualValues(t, 2, res[0])
	assert.EqualValues(t, 2, res[1])

	_, err = c.Batch(ctx,
		func(ctx context.Context, tx *client.Client) (any, error) {
			return tx.Products.Delete(ctx, query.ByID(fx.Cola.ID))
		},
		func(ctx context.Context, tx *client.Client) (any, error) {
			return tx.Products.Update(ctx, query.ByID(uuid.New()), query.Data{"name": "x"})
		},
	)
	assert.True(t, dberr.IsCode(err, dberr.CodeRecordNotFound), "%v", err)

	n, err := c.Products.Count(ctx, query.Where{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n, "the delete was rolled back")
}

func TestRawQueries(t *testing.T) {
	c := testutil.NewClient(t)
	ctx := context.Background()
	testutil.Seed(t, c)

	rows, err := c.QueryRaw(ctx, query.Raw("SELECT name FROM products WHERE price > ? ORDER BY name", 2))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Tea", rows[0]["name"])

	n, err := c.ExecuteRaw(ctx, query.Raw("UPDATE products SET available = ? WHERE name = ?", false, "Cola"))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = c.QueryRaw(ctx, query.Raw("SELECT * FROM products WHERE name = ?"))
	var ve *dberr.ValidationError
	assert.ErrorAs(t, err, &ve)

	_, err = c.ExecuteRaw(ctx, query.Raw(""))
	assert.ErrorAs(t, err, &ve)

	rows, err = c.QueryRawUnsafe(ctx, "SELECT count(*) AS n FROM products WHERE name = '?'")
	require.NoError(t, err)
	assert.EqualValues(t, 0, rows[0]["n"])

	_, err = c.ExecuteRawUnsafe(ctx, "UPDATE nowhere SET x = 1")
	var unknown *dberr.UnknownRequestError
	assert.ErrorAs(t, err, &unknown)
}

func TestRawInsideTransaction(t *testing.T) {
	c := testutil.NewClient(t)
	ctx := context.Background()
	testutil.Seed(t, c)

	err := c.Transaction(ctx, func(tx *client.Client) error {
		if _, err := tx.ExecuteRaw(ctx, query.Raw("DELETE FROM products")); err != nil {
			return err
		}
		return errors.New("rollback")
	})
	require.Error(t, err)

	n, err := c.Products.Count(ctx, query.Where{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestRawPassesThroughMiddleware(t *testing.T) {
	c := testutil.NewClient(t)
	ctx := context.Background()

	var actions []string
	c.Use(func(next repository.Handler) repository.Handler {
		return func(ctx context.Context, op repository.Operation) (any, error) {
			actions = append(actions, op.Model+"/"+op.Action)
			return next(ctx, op)
		}
	})
	_, err := c.QueryRaw(ctx, query.Raw("SELECT 1"))
	require.NoError(t, err)
	_, err = c.ExecuteRaw(ctx, query.Raw("DELETE FROM comments"))
	require.NoError(t, err)

	assert.Equal(t, []string{"/" + client.ActionQueryRaw, "/" + client.ActionExecuteRaw}, actions)
}

func TestMiddlewareSeesTransactionOperations(t *testing.T) {
	c := testutil.NewClient(t)
	ctx := context.Background()

	var actions []string
	c.Use(func(next repository.Handler) repository.Handler {
		return func(ctx context.Context, op repository.Operation) (any, error) {
			actions = append(actions, op.Model+"."+op.Action)
			return next(ctx, op)
		}
	})
	require.NoError(t, c.Transaction(ctx, func(tx *client.Client) error {
		return tx.Categories.Create(ctx, &model.Category{Name: "Drinks"})
	}))
	assert.Equal(t, []string{"Category.create"}, actions)
}

func TestQueryEvents(t *testing.T) {
	c := testutil.NewClient(t)
	ctx := context.Background()
	testutil.Seed(t, c)

	var mu sync.Mutex
	var events []client.Event
	c.On(client.EventQuery, func(e client.Event) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, e)
	})

	_, err := c.Products.FindMany(ctx, query.FindArgs{Where: query.Is("name", "Cola")})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, client.EventQuery, last.Kind)
	assert.Equal(t, "products", last.Target)
	assert.True(t, strings.HasPrefix(last.Query, "SELECT"), last.Query)
	assert.Contains(t, last.Params, "Cola")
	assert.False(t, last.Timestamp.IsZero())
}
