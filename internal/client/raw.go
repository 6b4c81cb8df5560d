package client

import (
	"context"

	"go-pos-store/internal/dberr"
	"go-pos-store/internal/query"
	"go-pos-store/internal/repository"
)

// Raw operations pass through the middleware chain with an empty model name.
const (
	ActionQueryRaw   = "queryRaw"
	ActionExecuteRaw = "executeRaw"
)

// QueryRaw runs a parameterized statement and returns its rows as column maps.
func (c *Client) QueryRaw(ctx context.Context, raw query.RawSQL) ([]map[string]any, error) {
	if err := raw.Validate(); err != nil {
		return nil, err
	}
	return c.queryRaw(ctx, raw)
}

// QueryRawUnsafe passes sql and args to the driver without any checks.
func (c *Client) QueryRawUnsafe(ctx context.Context, sql string, args ...any) ([]map[string]any, error) {
	return c.queryRaw(ctx, query.RawSQL{SQL: sql, Args: args})
}

// ExecuteRaw runs a parameterized statement and returns the affected row count.
func (c *Client) ExecuteRaw(ctx context.Context, raw query.RawSQL) (int64, error) {
	if err := raw.Validate(); err != nil {
		return 0, err
	}
	return c.executeRaw(ctx, raw)
}

func (c *Client) ExecuteRawUnsafe(ctx context.Context, sql string, args ...any) (int64, error) {
	return c.executeRaw(ctx, query.RawSQL{SQL: sql, Args: args})
}

func (c *Client) queryRaw(ctx context.Context, raw query.RawSQL) ([]map[string]any, error) {
	h := c.chain.Then(func(ctx context.Context, op repository.Operation) (any, error) {
		raw, ok := op.Args.(query.RawSQL)
		if !ok {
			return nil, dberr.Invalid("", "", "unexpected arguments %T for %s", op.Args, op.Action)
		}
		db, err := c.db(ctx)
		if err != nil {
			return nil, err
		}
		rows := make([]map[string]any, 0)
		if err := db.Raw(raw.SQL, raw.Args...).Scan(&rows).Error; err != nil {
			return nil, dberr.Translate("", err)
		}
		for _, row := range rows {
			for k, v := range row {
				if b, ok := v.([]byte); ok {
					row[k] = string(b)
				}
			}
		}
		return rows, nil
	})
	out, err := h(ctx, repository.Operation{Action: ActionQueryRaw, Args: raw})
	if err != nil {
		return nil, err
	}
	rows, _ := out.([]map[string]any)
	return rows, nil
}

func (c *Client) executeRaw(ctx context.Context, raw query.RawSQL) (int64, error) {
	h := c.chain.Then(func(ctx context.Context, op repository.Operation) (any, error) {
		raw, ok := op.Args.(query.RawSQL)
		if !ok {
			return nil, dberr.Invalid("", "", "unexpected arguments %T for %s", op.Args, op.Action)
		}
		db, err := c.db(ctx)
		if err != nil {
			return nil, err
		}
		res := db.Exec(raw.SQL, raw.Args...)
		if res.Error != nil {
			return nil, dberr.Translate("", res.Error)
		}
		return res.RowsAffected, nil
	})
	out, err := h(ctx, repository.Operation{Action: ActionExecuteRaw, Args: raw})
	if err != nil {
		return 0, err
	}
	n, _ := out.(int64)
	return n, nil
}
