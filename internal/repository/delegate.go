package repository

import (
	"context"
	"reflect"

	"go-pos-store/internal/dberr"
	"go-pos-store/internal/query"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const batchSize = 100

// Repository is the query surface shared by every entity.
type Repository[T any] interface {
	FindUnique(ctx context.Context, where query.Where, include ...string) (*T, error)
	FindUniqueOrThrow(ctx context.Context, where query.Where, include ...string) (*T, error)
	FindFirst(ctx context.Context, args query.FindArgs) (*T, error)
	FindFirstOrThrow(ctx context.Context, args query.FindArgs) (*T, error)
	FindMany(ctx context.Context, args query.FindArgs) ([]T, error)
	Create(ctx context.Context, v *T) error
	CreateMany(ctx context.Context, data []T, skipDuplicates bool) (int64, error)
	CreateManyAndReturn(ctx context.Context, data []T, skipDuplicates bool) ([]T, error)
	Update(ctx context.Context, where query.Where, data query.Data) (*T, error)
	UpdateMany(ctx context.Context, where query.Where, data query.Data) (int64, error)
	Upsert(ctx context.Context, where query.Where, create *T, update query.Data) (*T, error)
	Delete(ctx context.Context, where query.Where) (*T, error)
	DeleteMany(ctx context.Context, where query.Where) (int64, error)
	Count(ctx context.Context, where query.Where) (int64, error)
	Aggregate(ctx context.Context, args query.AggregateArgs) (*AggregateResult, error)
	GroupBy(ctx context.Context, args query.GroupByArgs) ([]GroupRow, error)
}

// Arguments carried by Operation.Args, per action.
type (
	UniqueArgs struct {
		Where   query.Where
		Include []string
	}
	CreateManyArgs[T any] struct {
		Data           []T
		SkipDuplicates bool
	}
	UpdateArgs struct {
		Where query.Where
		Data  query.Data
	}
	UpsertArgs[T any] struct {
		Where  query.Where
		Create *T
		Update query.Data
	}
)

// Delegate implements Repository for one model type over gorm.
type Delegate[T any] struct {
	name  string
	src   Source
	chain *Chain
}

func NewDelegate[T any](src Source, chain *Chain) *Delegate[T] {
	if chain == nil {
		chain = NewChain()
	}
	return &Delegate[T]{
		name:  reflect.TypeOf((*T)(nil)).Elem().Name(),
		src:   src,
		chain: chain,
	}
}

// Name is the model name reported in operations and errors.
func (d *Delegate[T]) Name() string { return d.name }

func (d *Delegate[T]) op(action string, args any) Operation {
	return Operation{Model: d.name, Action: action, Args: args}
}

// bind resolves the database handle and the compiled schema of T.
func (d *Delegate[T]) bind(ctx context.Context) (*gorm.DB, *query.Model, error) {
	db, err := d.src(ctx)
	if err != nil {
		return nil, nil, err
	}
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(new(T)); err != nil {
		return nil, nil, &dberr.InitializationError{Message: "cannot parse model " + d.name, Err: err}
	}
	return db, query.NewModel(stmt.Schema), nil
}

// KeyWhere builds a unique where selecting row by its primary key.
func (d *Delegate[T]) KeyWhere(ctx context.Context, row *T) (query.Where, error) {
	_, m, err := d.bind(ctx)
	if err != nil {
		return query.Where{}, err
	}
	w := query.Where{Fields: map[string]query.Filter{}}
	for _, pk := range m.Schema.PrimaryFields {
		v, _ := pk.ValueOf(ctx, reflect.ValueOf(row).Elem())
		w.Fields[pk.DBName] = query.Eq(v)
	}
	return w, nil
}

// run sends op through the middleware chain and converts the result back.
func run[R any](ctx context.Context, c *Chain, op Operation, final func(context.Context, Operation) (R, error)) (R, error) {
	var zero R
	out, err := c.Then(func(ctx context.Context, op Operation) (any, error) {
		return final(ctx, op)
	})(ctx, op)
	if err != nil {
		return zero, err
	}
	if out == nil {
		return zero, nil
	}
	r, ok := out.(R)
	if !ok {
		return zero, dberr.Invalid(op.Model, "", "middleware returned %T for %s", out, op.Action)
	}
	return r, nil
}

func argsOf[A any](op Operation) (A, error) {
	a, ok := op.Args.(A)
	if !ok {
		return a, dberr.Invalid(op.Model, "", "unexpected arguments %T for %s", op.Args, op.Action)
	}
	return a, nil
}

func where(exprs ...clause.Expression) clause.Where {
	return clause.Where{Exprs: exprs}
}

func (d *Delegate[T]) FindUnique(ctx context.Context, w query.Where, include ...string) (*T, error) {
	return run(ctx, d.chain, d.op("findUnique", UniqueArgs{Where: w, Include: include}), d.findUnique)
}

func (d *Delegate[T]) FindUniqueOrThrow(ctx context.Context, w query.Where, include ...string) (*T, error) {
	return run(ctx, d.chain, d.op("findUniqueOrThrow", UniqueArgs{Where: w, Include: include}), func(ctx context.Context, op Operation) (*T, error) {
		row, err := d.findUnique(ctx, op)
		if err != nil {
			return nil, err
		}
		if row == nil {
			return nil, &dberr.NotFoundError{Model: d.name, Action: op.Action}
		}
		return row, nil
	})
}

func (d *Delegate[T]) findUnique(ctx context.Context, op Operation) (*T, error) {
	args, err := argsOf[UniqueArgs](op)
	if err != nil {
		return nil, err
	}
	db, m, err := d.bind(ctx)
	if err != nil {
		return nil, err
	}
	expr, err := m.Unique(args.Where)
	if err != nil {
		return nil, err
	}
	plan, err := m.Find(query.FindArgs{Include: args.Include})
	if err != nil {
		return nil, err
	}
	tx := db.Model(new(T)).Clauses(where(expr))
	for _, p := range plan.Preload {
		tx = tx.Preload(p)
	}
	var rows []T
	if err := tx.Limit(1).Find(&rows).Error; err != nil {
		return nil, dberr.Translate(d.name, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (d *Delegate[T]) FindFirst(ctx context.Context, args query.FindArgs) (*T, error) {
	return run(ctx, d.chain, d.op("findFirst", args), d.findFirst)
}

func (d *Delegate[T]) FindFirstOrThrow(ctx context.Context, args query.FindArgs) (*T, error) {
	return run(ctx, d.chain, d.op("findFirstOrThrow", args), func(ctx context.Context, op Operation) (*T, error) {
		row, err := d.findFirst(ctx, op)
		if err != nil {
			return nil, err
		}
		if row == nil {
			return nil, &dberr.NotFoundError{Model: d.name, Action: op.Action}
		}
		return row, nil
	})
}

func (d *Delegate[T]) findFirst(ctx context.Context, op Operation) (*T, error) {
	args, err := argsOf[query.FindArgs](op)
	if err != nil {
		return nil, err
	}
	if args.Take < 0 {
		args.Take = -1
	} else {
		args.Take = 1
	}
	rows, err := d.find(ctx, args)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return &rows[0], nil
}

func (d *Delegate[T]) FindMany(ctx context.Context, args query.FindArgs) ([]T, error) {
	return run(ctx, d.chain, d.op("findMany", args), func(ctx context.Context, op Operation) ([]T, error) {
		args, err := argsOf[query.FindArgs](op)
		if err != nil {
			return nil, err
		}
		return d.find(ctx, args)
	})
}

func (d *Delegate[T]) find(ctx context.Context, args query.FindArgs) ([]T, error) {
	db, m, err := d.bind(ctx)
	if err != nil {
		return nil, err
	}
	plan, err := m.Find(args)
	if err != nil {
		return nil, err
	}

	var conds []clause.Expression
	if plan.Where != nil {
		conds = append(conds, plan.Where)
	}
	if plan.Cursor != nil {
		var cur []T
		if err := db.Model(new(T)).Clauses(where(plan.Cursor)).Limit(1).Find(&cur).Error; err != nil {
			return nil, dberr.Translate(d.name, err)
		}
		// a cursor that matches nothing yields an empty page
		if len(cur) == 0 {
			return []T{}, nil
		}
		conds = append(conds, query.After(plan.Order, plan.CursorValues(ctx, reflect.ValueOf(&cur[0]))))
	}

	tx := db.Model(new(T))
	if len(conds) > 0 {
		tx = tx.Clauses(where(conds...))
	}
	tx = tx.Clauses(query.OrderClause(plan.Order))
	if plan.Take > 0 {
		tx = tx.Limit(plan.Take)
	}
	if plan.Skip > 0 {
		tx = tx.Offset(plan.Skip)
	}
	if len(plan.Select) > 0 {
		tx = tx.Select(plan.Select)
	}
	for _, p := range plan.Preload {
		tx = tx.Preload(p)
	}

	rows := make([]T, 0)
	if err := tx.Find(&rows).Error; err != nil {
		return nil, dberr.Translate(d.name, err)
	}
	if plan.Backward {
		for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
			rows[i], rows[j] = rows[j], rows[i]
		}
	}
	return rows, nil
}

// Create inserts v, filling generated columns in place. Nested relations set
// on v are inserted as well.
func (d *Delegate[T]) Create(ctx context.Context, v *T) error {
	_, err := run(ctx, d.chain, d.op("create", v), func(ctx context.Context, op Operation) (*T, error) {
		v, err := argsOf[*T](op)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return nil, dberr.Invalid(d.name, "", "nothing to create")
		}
		db, _, err := d.bind(ctx)
		if err != nil {
			return nil, err
		}
		if err := db.Create(v).Error; err != nil {
			return nil, dberr.Translate(d.name, err)
		}
		return v, nil
	})
	return err
}

func (d *Delegate[T]) CreateMany(ctx context.Context, data []T, skipDuplicates bool) (int64, error) {
	args := CreateManyArgs[T]{Data: data, SkipDuplicates: skipDuplicates}
	return run(ctx, d.chain, d.op("createMany", args), func(ctx context.Context, op Operation) (int64, error) {
		args, err := argsOf[CreateManyArgs[T]](op)
		if err != nil {
			return 0, err
		}
		db, _, err := d.bind(ctx)
		if err != nil {
			return 0, err
		}
		return d.insert(db, args)
	})
}

func (d *Delegate[T]) CreateManyAndReturn(ctx context.Context, data []T, skipDuplicates bool) ([]T, error) {
	args := CreateManyArgs[T]{Data: data, SkipDuplicates: skipDuplicates}
	return run(ctx, d.chain, d.op("createManyAndReturn", args), func(ctx context.Context, op Operation) ([]T, error) {
		args, err := argsOf[CreateManyArgs[T]](op)
		if err != nil {
			return nil, err
		}
		db, m, err := d.bind(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]T, 0, len(args.Data))
		err = db.Transaction(func(tx *gorm.DB) error {
			n, err := d.insert(tx, args)
			if err != nil || n == 0 {
				return err
			}
			// skipped duplicates are not returned, so read back what landed
			keys := make([]clause.Expression, len(args.Data))
			for i := range args.Data {
				keys[i] = m.Key(ctx, reflect.ValueOf(&args.Data[i]))
			}
			var rows []T
			if err := tx.Model(new(T)).Clauses(where(query.AnyOf(keys...))).Find(&rows).Error; err != nil {
				return err
			}
			byKey := make(map[string]T, len(rows))
			for i := range rows {
				byKey[m.KeyOf(ctx, reflect.ValueOf(&rows[i]))] = rows[i]
			}
			for i := range args.Data {
				if row, ok := byKey[m.KeyOf(ctx, reflect.ValueOf(&args.Data[i]))]; ok {
					out = append(out, row)
				}
			}
			return nil
		})
		if err != nil {
			return nil, dberr.Translate(d.name, err)
		}
		return out, nil
	})
}

func (d *Delegate[T]) insert(db *gorm.DB, args CreateManyArgs[T]) (int64, error) {
	if len(args.Data) == 0 {
		return 0, nil
	}
	tx := db.Omit(clause.Associations)
	if args.SkipDuplicates {
		tx = tx.Clauses(clause.OnConflict{DoNothing: true})
	}
	res := tx.CreateInBatches(&args.Data, batchSize)
	if res.Error != nil {
		return 0, dberr.Translate(d.name, res.Error)
	}
	return res.RowsAffected, nil
}

// lockUnique reads the row matching expr and locks it for the rest of tx.
func (d *Delegate[T]) lockUnique(tx *gorm.DB, expr clause.Expression) (*T, error) {
	var rows []T
	err := tx.Model(new(T)).
		Clauses(where(expr), clause.Locking{Strength: clause.LockingStrengthUpdate}).
		Limit(1).
		Find(&rows).Error
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return &rows[0], nil
}

func (d *Delegate[T]) reload(tx *gorm.DB, key clause.Expression, action string) (*T, error) {
	var rows []T
	if err := tx.Model(new(T)).Clauses(where(key)).Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, dberr.RecordNotFound(d.name, action)
	}
	return &rows[0], nil
}

// Update changes the single row selected by a unique where and returns it.
// A missing row is a P2025 known request error.
func (d *Delegate[T]) Update(ctx context.Context, w query.Where, data query.Data) (*T, error) {
	return run(ctx, d.chain, d.op("update", UpdateArgs{Where: w, Data: data}), func(ctx context.Context, op Operation) (*T, error) {
		args, err := argsOf[UpdateArgs](op)
		if err != nil {
			return nil, err
		}
		db, m, err := d.bind(ctx)
		if err != nil {
			return nil, err
		}
		expr, err := m.Unique(args.Where)
		if err != nil {
			return nil, err
		}
		set, err := m.Assignments(args.Data)
		if err != nil {
			return nil, err
		}

		var out *T
		err = db.Transaction(func(tx *gorm.DB) error {
			row, err := d.lockUnique(tx, expr)
			if err != nil {
				return err
			}
			if row == nil {
				return dberr.RecordNotFound(d.name, "update")
			}
			out, err = d.apply(ctx, tx, m, row, set, "update")
			return err
		})
		if err != nil {
			return nil, dberr.Translate(d.name, err)
		}
		return out, nil
	})
}

func (d *Delegate[T]) apply(ctx context.Context, tx *gorm.DB, m *query.Model, row *T, set map[string]any, action string) (*T, error) {
	key := m.Key(ctx, reflect.ValueOf(row))
	if err := tx.Model(new(T)).Clauses(where(key)).Updates(set).Error; err != nil {
		return nil, err
	}
	// the primary key itself may have been reassigned
	if len(m.Schema.PrimaryFields) == 1 {
		if v, ok := set[m.Schema.PrimaryFields[0].DBName]; ok {
			if err := m.Schema.PrimaryFields[0].Set(ctx, reflect.ValueOf(row).Elem(), v); err == nil {
				key = m.Key(ctx, reflect.ValueOf(row))
			}
		}
	}
	return d.reload(tx, key, action)
}

func (d *Delegate[T]) UpdateMany(ctx context.Context, w query.Where, data query.Data) (int64, error) {
	return run(ctx, d.chain, d.op("updateMany", UpdateArgs{Where: w, Data: data}), func(ctx context.Context, op Operation) (int64, error) {
		args, err := argsOf[UpdateArgs](op)
		if err != nil {
			return 0, err
		}
		db, m, err := d.bind(ctx)
		if err != nil {
			return 0, err
		}
		expr, err := m.Where(args.Where)
		if err != nil {
			return 0, err
		}
		set, err := m.Assignments(args.Data)
		if err != nil {
			return 0, err
		}
		tx := db.Model(new(T))
		if expr == nil {
			tx = tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		} else {
			tx = tx.Clauses(where(expr))
		}
		res := tx.Updates(set)
		if res.Error != nil {
			return 0, dberr.Translate(d.name, res.Error)
		}
		return res.RowsAffected, nil
	})
}

// Upsert updates the row selected by a unique where, or creates it when there
// is none. Exactly one of the two runs, inside one transaction.
func (d *Delegate[T]) Upsert(ctx context.Context, w query.Where, create *T, update query.Data) (*T, error) {
	args := UpsertArgs[T]{Where: w, Create: create, Update: update}
	return run(ctx, d.chain, d.op("upsert", args), func(ctx context.Context, op Operation) (*T, error) {
		args, err := argsOf[UpsertArgs[T]](op)
		if err != nil {
			return nil, err
		}
		if args.Create == nil {
			return nil, dberr.Invalid(d.name, "", "upsert needs create data")
		}
		db, m, err := d.bind(ctx)
		if err != nil {
			return nil, err
		}
		expr, err := m.Unique(args.Where)
		if err != nil {
			return nil, err
		}
		var set map[string]any
		if len(args.Update) > 0 {
			if set, err = m.Assignments(args.Update); err != nil {
				return nil, err
			}
		}

		var out *T
		err = db.Transaction(func(tx *gorm.DB) error {
			row, err := d.lockUnique(tx, expr)
			if err != nil {
				return err
			}
			if row == nil {
				if err := tx.Create(args.Create).Error; err != nil {
					return err
				}
				out = args.Create
				return nil
			}
			if set == nil {
				out = row
				return nil
			}
			out, err = d.apply(ctx, tx, m, row, set, "upsert")
			return err
		})
		if err != nil {
			return nil, dberr.Translate(d.name, err)
		}
		return out, nil
	})
}

// Delete removes the row selected by a unique where and returns it.
func (d *Delegate[T]) Delete(ctx context.Context, w query.Where) (*T, error) {
	return run(ctx, d.chain, d.op("delete", w), func(ctx context.Context, op Operation) (*T, error) {
		w, err := argsOf[query.Where](op)
		if err != nil {
			return nil, err
		}
		db, m, err := d.bind(ctx)
		if err != nil {
			return nil, err
		}
		expr, err := m.Unique(w)
		if err != nil {
			return nil, err
		}
		var out *T
		err = db.Transaction(func(tx *gorm.DB) error {
			row, err := d.lockUnique(tx, expr)
			if err != nil {
				return err
			}
			if row == nil {
				return dberr.RecordNotFound(d.name, "delete")
			}
			if err := tx.Clauses(where(m.Key(ctx, reflect.ValueOf(row)))).Delete(new(T)).Error; err != nil {
				return err
			}
			out = row
			return nil
		})
		if err != nil {
			return nil, dberr.Translate(d.name, err)
		}
		return out, nil
	})
}

func (d *Delegate[T]) DeleteMany(ctx context.Context, w query.Where) (int64, error) {
	return run(ctx, d.chain, d.op("deleteMany", w), func(ctx context.Context, op Operation) (int64, error) {
		w, err := argsOf[query.Where](op)
		if err != nil {
			return 0, err
		}
		db, m, err := d.bind(ctx)
		if err != nil {
			return 0, err
		}
		expr, err := m.Where(w)
		if err != nil {
			return 0, err
		}
		tx := db
		if expr == nil {
			tx = tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		} else {
			tx = tx.Clauses(where(expr))
		}
		res := tx.Delete(new(T))
		if res.Error != nil {
			return 0, dberr.Translate(d.name, res.Error)
		}
		return res.RowsAffected, nil
	})
}

func (d *Delegate[T]) Count(ctx context.Context, w query.Where) (int64, error) {
	return run(ctx, d.chain, d.op("count", w), func(ctx context.Context, op Operation) (int64, error) {
		w, err := argsOf[query.Where](op)
		if err != nil {
			return 0, err
		}
		db, m, err := d.bind(ctx)
		if err != nil {
			return 0, err
		}
		expr, err := m.Where(w)
		if err != nil {
			return 0, err
		}
		tx := db.Model(new(T))
		if expr != nil {
			tx = tx.Clauses(where(expr))
		}
		var n int64
		if err := tx.Count(&n).Error; err != nil {
			return 0, dberr.Translate(d.name, err)
		}
		return n, nil
	})
}

func (d *Delegate[T]) Aggregate(ctx context.Context, args query.AggregateArgs) (*AggregateResult, error) {
	return run(ctx, d.chain, d.op("aggregate", args), func(ctx context.Context, op Operation) (*AggregateResult, error) {
		args, err := argsOf[query.AggregateArgs](op)
		if err != nil {
			return nil, err
		}
		db, m, err := d.bind(ctx)
		if err != nil {
			return nil, err
		}
		plan, err := m.Aggregate(args)
		if err != nil {
			return nil, err
		}
		tx := db.Model(new(T)).Clauses(clause.Select{Expression: plan.Select})
		if plan.Where != nil {
			tx = tx.Clauses(where(plan.Where))
		}
		var rows []map[string]any
		if err := tx.Find(&rows).Error; err != nil {
			return nil, dberr.Translate(d.name, err)
		}
		var row map[string]any
		if len(rows) > 0 {
			row = rows[0]
		}
		res := newAggregateResult(plan.Outputs, row)
		return &res, nil
	})
}

func (d *Delegate[T]) GroupBy(ctx context.Context, args query.GroupByArgs) ([]GroupRow, error) {
	return run(ctx, d.chain, d.op("groupBy", args), func(ctx context.Context, op Operation) ([]GroupRow, error) {
		args, err := argsOf[query.GroupByArgs](op)
		if err != nil {
			return nil, err
		}
		db, m, err := d.bind(ctx)
		if err != nil {
			return nil, err
		}
		plan, err := m.GroupBy(args)
		if err != nil {
			return nil, err
		}
		tx := db.Model(new(T)).Clauses(clause.Select{Expression: plan.Select}, plan.GroupBy)
		if plan.Where != nil {
			tx = tx.Clauses(where(plan.Where))
		}
		if len(plan.Order) > 0 {
			tx = tx.Clauses(query.OrderClause(plan.Order))
		}
		if plan.Take > 0 {
			tx = tx.Limit(plan.Take)
		}
		if plan.Skip > 0 {
			tx = tx.Offset(plan.Skip)
		}
		var rows []map[string]any
		if err := tx.Find(&rows).Error; err != nil {
			return nil, dberr.Translate(d.name, err)
		}
		out := make([]GroupRow, 0, len(rows))
		for _, row := range rows {
			g := GroupRow{Keys: make(map[string]any, len(plan.Keys)), AggregateResult: newAggregateResult(plan.Outputs, row)}
			for _, k := range plan.Keys {
				g.Keys[k.Name] = plain(row[k.Alias])
			}
			out = append(out, g)
		}
		return out, nil
	})
}
