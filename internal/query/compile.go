package query

import (
	"context"
	"database/sql/driver"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"go-pos-store/internal/dberr"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

// Model compiles arguments against one parsed gorm schema.
type Model struct {
	Name   string
	Schema *schema.Schema
}

func NewModel(s *schema.Schema) *Model {
	return &Model{Name: s.Name, Schema: s}
}

// Field resolves a field by Go name, column name or json name.
func (m *Model) Field(name string) (*schema.Field, error) {
	f := m.Schema.LookUpField(name)
	if f == nil {
		for _, candidate := range m.Schema.Fields {
			if tag := strings.Split(candidate.Tag.Get("json"), ",")[0]; tag != "" && tag == name {
				f = candidate
				break
			}
		}
	}
	if f == nil || f.DBName == "" {
		return nil, dberr.Invalid(m.Name, name, "unknown field")
	}
	return f, nil
}

func column(f *schema.Field) clause.Column {
	return clause.Column{Table: clause.CurrentTable, Name: f.DBName}
}

func isNumeric(f *schema.Field) bool {
	switch f.DataType {
	case schema.Int, schema.Uint, schema.Float:
		return true
	}
	dt := strings.ToLower(string(f.DataType))
	return strings.HasPrefix(dt, "decimal") || strings.HasPrefix(dt, "numeric")
}

// scaleOf returns the fixed decimal scale of f, 0 when the column has none.
// gorm only fills Field.Scale from the scale tag, so decimal(p,s) types are
// read from the data type as well.
func scaleOf(f *schema.Field) int32 {
	if f.Scale > 0 {
		return int32(f.Scale)
	}
	dt := strings.ToLower(string(f.DataType))
	if !strings.HasPrefix(dt, "decimal(") && !strings.HasPrefix(dt, "numeric(") {
		return 0
	}
	_, spec, ok := strings.Cut(strings.TrimSuffix(dt, ")"), ",")
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(spec))
	if err != nil || n < 0 {
		return 0
	}
	return int32(n)
}

func isString(f *schema.Field) bool {
	if f.DataType == schema.String {
		return true
	}
	dt := strings.ToLower(string(f.DataType))
	return strings.HasPrefix(dt, "varchar") || strings.HasPrefix(dt, "text") || strings.HasPrefix(dt, "char")
}

// isUnique reports whether a single field is the primary key or carries its own unique index.
func (m *Model) isUnique(f *schema.Field) bool {
	if f.PrimaryKey || f.Unique {
		return true
	}
	idx, ok := f.TagSettings["UNIQUEINDEX"]
	if !ok {
		return false
	}
	if idx == "UNIQUEINDEX" {
		return true
	}
	shared := 0
	for _, other := range m.Schema.Fields {
		if other.TagSettings["UNIQUEINDEX"] == idx {
			shared++
		}
	}
	return shared == 1
}

// Where compiles w; it returns nil when w is empty.
func (m *Model) Where(w Where) (clause.Expression, error) {
	if w.IsZero() {
		return nil, nil
	}
	return m.where(w)
}

func (m *Model) where(w Where) (clause.Expression, error) {
	var parts []clause.Expression

	names := make([]string, 0, len(w.Fields))
	for name := range w.Fields {
		names = append(names, name)
	}
	// stable SQL text for identical arguments
	sort.Strings(names)
	for _, name := range names {
		f, err := m.Field(name)
		if err != nil {
			return nil, err
		}
		exprs, err := m.filter(f, w.Fields[name])
		if err != nil {
			return nil, err
		}
		parts = append(parts, exprs...)
	}
	for _, sub := range w.AND {
		e, err := m.where(sub)
		if err != nil {
			return nil, err
		}
		parts = append(parts, e)
	}
	if len(w.OR) > 0 {
		var alts []clause.Expression
		for _, sub := range w.OR {
			e, err := m.where(sub)
			if err != nil {
				return nil, err
			}
			alts = append(alts, e)
		}
		parts = append(parts, or(alts...))
	}
	for _, sub := range w.NOT {
		e, err := m.where(sub)
		if err != nil {
			return nil, err
		}
		parts = append(parts, notExpr{inner: e})
	}
	if len(parts) == 0 {
		return constExpr(true), nil
	}
	return and(parts...), nil
}

func (m *Model) filter(f *schema.Field, flt Filter) ([]clause.Expression, error) {
	if flt.empty() {
		return nil, dberr.Invalid(m.Name, f.Name, "empty filter")
	}
	if flt.hasStringOps() && !isString(f) {
		return nil, dberr.Invalid(m.Name, f.Name, "contains/startsWith/endsWith need a string field")
	}
	col := column(f)
	exprs := comparisons(columnOperand{col: col}, flt)
	fold := flt.Mode == Insensitive
	if fold && flt.Equals != nil {
		if s, ok := flt.Equals.(string); ok {
			// replace the plain equality with a folded one
			exprs = exprs[1:]
			exprs = append([]clause.Expression{likeExpr{col: col, pattern: escapeLike(s), fold: true}}, exprs...)
		}
	}
	if flt.Contains != "" {
		exprs = append(exprs, likeExpr{col: col, pattern: "%" + escapeLike(flt.Contains) + "%", fold: fold})
	}
	if flt.StartsWith != "" {
		exprs = append(exprs, likeExpr{col: col, pattern: escapeLike(flt.StartsWith) + "%", fold: fold})
	}
	if flt.EndsWith != "" {
		exprs = append(exprs, likeExpr{col: col, pattern: "%" + escapeLike(flt.EndsWith), fold: fold})
	}
	return exprs, nil
}

// comparisons renders the non-string predicates of flt. Equals, when set, is
// always the first expression.
func comparisons(left operand, flt Filter) []clause.Expression {
	var exprs []clause.Expression
	if flt.Equals != nil {
		exprs = append(exprs, cmpExpr{left: left, op: "=", val: flt.Equals})
	}
	if flt.Not != nil {
		exprs = append(exprs, cmpExpr{left: left, op: "<>", val: flt.Not})
	}
	if flt.In != nil {
		exprs = append(exprs, inExpr{left: left, vals: flt.In})
	}
	if flt.NotIn != nil {
		exprs = append(exprs, inExpr{left: left, vals: flt.NotIn, not: true})
	}
	if flt.Lt != nil {
		exprs = append(exprs, cmpExpr{left: left, op: "<", val: flt.Lt})
	}
	if flt.Lte != nil {
		exprs = append(exprs, cmpExpr{left: left, op: "<=", val: flt.Lte})
	}
	if flt.Gt != nil {
		exprs = append(exprs, cmpExpr{left: left, op: ">", val: flt.Gt})
	}
	if flt.Gte != nil {
		exprs = append(exprs, cmpExpr{left: left, op: ">=", val: flt.Gte})
	}
	if flt.Null != nil {
		exprs = append(exprs, nullExpr{left: left, not: !*flt.Null})
	}
	return exprs
}

// Unique checks that w pins a unique field with an equality and compiles it.
func (m *Model) Unique(w Where) (clause.Expression, error) {
	pinned := false
	for name, flt := range w.Fields {
		f, err := m.Field(name)
		if err != nil {
			return nil, err
		}
		if m.isUnique(f) && flt.equalityOnly() && flt.Mode == Default {
			pinned = true
		}
	}
	if !pinned {
		return nil, dberr.Invalid(m.Name, "", "where must select a unique field (primary key or unique index) with an equality")
	}
	return m.where(w)
}

// Order resolves field orderings and appends the primary key as a tie-breaker.
func (m *Model) Order(obs []OrderBy) ([]Term, []*schema.Field, error) {
	var terms []Term
	var fields []*schema.Field
	seen := map[string]bool{}
	for _, ob := range obs {
		if ob.Dir != Ascending && ob.Dir != Descending && ob.Dir != "" {
			return nil, nil, dberr.Invalid(m.Name, ob.Field, "unknown sort direction %q", ob.Dir)
		}
		f, err := m.Field(ob.Field)
		if err != nil {
			return nil, nil, err
		}
		if seen[f.DBName] {
			continue
		}
		seen[f.DBName] = true
		terms = append(terms, Term{Column: column(f), Desc: ob.Dir == Descending, Nulls: ob.Nulls})
		fields = append(fields, f)
	}
	for _, pk := range m.Schema.PrimaryFields {
		if !seen[pk.DBName] {
			terms = append(terms, Term{Column: column(pk)})
			fields = append(fields, pk)
		}
	}
	return terms, fields, nil
}

// Plan is a compiled FindArgs.
type Plan struct {
	Where       clause.Expression
	Cursor      clause.Expression
	Order       []Term
	OrderFields []*schema.Field
	Take        int
	Skip        int
	Backward    bool
	Select      []string
	Preload     []string
}

// Find validates and compiles args.
func (m *Model) Find(args FindArgs) (*Plan, error) {
	if args.Skip < 0 {
		return nil, dberr.Invalid(m.Name, "", "skip must not be negative")
	}
	where, err := m.Where(args.Where)
	if err != nil {
		return nil, err
	}
	terms, fields, err := m.Order(args.OrderBy)
	if err != nil {
		return nil, err
	}
	p := &Plan{Where: where, OrderFields: fields, Take: args.Take, Skip: args.Skip}
	if !args.Cursor.IsZero() {
		if p.Cursor, err = m.Unique(args.Cursor); err != nil {
			return nil, err
		}
	}
	if args.Take < 0 {
		p.Take = -args.Take
		p.Backward = true
	}
	if p.Cursor != nil || p.Backward {
		for i := range terms {
			terms[i] = terms[i].explicit()
			if p.Backward {
				terms[i] = terms[i].reversed()
			}
		}
	}
	p.Order = terms

	if p.Preload, err = m.includes(args.Include); err != nil {
		return nil, err
	}
	if len(args.Select) > 0 {
		cols := map[string]bool{}
		for _, name := range args.Select {
			f, err := m.Field(name)
			if err != nil {
				return nil, err
			}
			cols[f.DBName] = true
		}
		for _, pk := range m.Schema.PrimaryFields {
			cols[pk.DBName] = true
		}
		// belongs-to preloads need their foreign keys
		for _, path := range p.Preload {
			rel := m.Schema.Relationships.Relations[strings.Split(path, ".")[0]]
			if rel != nil && rel.Type == schema.BelongsTo {
				for _, ref := range rel.References {
					cols[ref.ForeignKey.DBName] = true
				}
			}
		}
		for _, f := range m.Schema.Fields {
			if f.DBName != "" && cols[f.DBName] {
				p.Select = append(p.Select, f.DBName)
			}
		}
	}
	return p, nil
}

func (m *Model) includes(paths []string) ([]string, error) {
	var out []string
	for _, path := range paths {
		s := m.Schema
		var resolved []string
		for _, seg := range strings.Split(path, ".") {
			rel := lookupRelation(s, seg)
			if rel == nil {
				return nil, dberr.Invalid(m.Name, path, "unknown relation")
			}
			resolved = append(resolved, rel.Name)
			s = rel.FieldSchema
		}
		out = append(out, strings.Join(resolved, "."))
	}
	return out, nil
}

func lookupRelation(s *schema.Schema, name string) *schema.Relationship {
	if rel, ok := s.Relationships.Relations[name]; ok {
		return rel
	}
	for relName, rel := range s.Relationships.Relations {
		if strings.EqualFold(relName, name) {
			return rel
		}
		if tag := strings.Split(rel.Field.Tag.Get("json"), ",")[0]; tag == name {
			return rel
		}
	}
	return nil
}

// Key builds an equality on the primary key of row.
func (m *Model) Key(ctx context.Context, row reflect.Value) clause.Expression {
	var parts []clause.Expression
	for _, pk := range m.Schema.PrimaryFields {
		v, _ := pk.ValueOf(ctx, reflect.Indirect(row))
		parts = append(parts, cmpExpr{left: columnOperand{col: column(pk)}, op: "=", val: normalize(v)})
	}
	return and(parts...)
}

// KeyOf returns the primary key value of row as a comparable string.
func (m *Model) KeyOf(ctx context.Context, row reflect.Value) string {
	var b strings.Builder
	for i, pk := range m.Schema.PrimaryFields {
		if i > 0 {
			b.WriteByte('|')
		}
		v, _ := pk.ValueOf(ctx, reflect.Indirect(row))
		b.WriteString(fmt.Sprint(normalize(v)))
	}
	return b.String()
}

// CursorValues reads the ordering values of a fetched cursor row.
func (p *Plan) CursorValues(ctx context.Context, row reflect.Value) []any {
	values := make([]any, len(p.OrderFields))
	for i, f := range p.OrderFields {
		v, _ := f.ValueOf(ctx, reflect.Indirect(row))
		values[i] = normalize(v)
	}
	return values
}

func normalize(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		v = rv.Elem().Interface()
	}
	if valuer, ok := v.(driver.Valuer); ok {
		out, err := valuer.Value()
		if err != nil {
			return v
		}
		return out
	}
	return v
}

// Assignments validates update data and converts it to column assignments.
func (m *Model) Assignments(data Data) (map[string]any, error) {
	if len(data) == 0 {
		return nil, dberr.Invalid(m.Name, "", "no data to update")
	}
	out := make(map[string]any, len(data))
	for name, v := range data {
		f, err := m.Field(name)
		if err != nil {
			return nil, err
		}
		if op, ok := v.(NumberOp); ok {
			if !isNumeric(f) {
				return nil, dberr.Invalid(m.Name, f.Name, "number operation on a non-numeric field")
			}
			out[f.DBName] = gorm.Expr("? "+op.op+" ?", clause.Column{Name: f.DBName}, op.value)
			continue
		}
		out[f.DBName] = v
	}
	return out, nil
}

// Output maps a result column back to the aggregate the caller asked for.
// Scale is set on sums of fixed-point columns; dialects that aggregate
// decimals as floats are rounded back to it.
type Output struct {
	Func  AggFunc
	Name  string
	Alias string
	Scale int32
}

// AggregatePlan is a compiled aggregate selection.
type AggregatePlan struct {
	Select  clause.Expression
	Where   clause.Expression
	Outputs []Output
}

func (m *Model) aggItems(a Aggregates) ([]selectItem, []Output, error) {
	var items []selectItem
	var outputs []Output
	add := func(fn AggFunc, names []string, numeric bool) error {
		for _, name := range names {
			if fn == Count && name == AllRows {
				alias := aggAlias(Count, AllRows)
				items = append(items, selectItem{expr: aggOperand{fn: Count}, alias: alias})
				outputs = append(outputs, Output{Func: Count, Name: AllRows, Alias: alias})
				continue
			}
			f, err := m.Field(name)
			if err != nil {
				return err
			}
			if numeric && !isNumeric(f) {
				return dberr.Invalid(m.Name, f.Name, "%s needs a numeric field", fn)
			}
			col := column(f)
			alias := aggAlias(fn, f.DBName)
			items = append(items, selectItem{expr: aggOperand{fn: fn, col: &col}, alias: alias})
			out := Output{Func: fn, Name: name, Alias: alias}
			if fn == Sum {
				out.Scale = scaleOf(f)
			}
			outputs = append(outputs, out)
		}
		return nil
	}
	if err := add(Count, a.Count, false); err != nil {
		return nil, nil, err
	}
	if err := add(Sum, a.Sum, true); err != nil {
		return nil, nil, err
	}
	if err := add(Avg, a.Avg, true); err != nil {
		return nil, nil, err
	}
	if err := add(Min, a.Min, false); err != nil {
		return nil, nil, err
	}
	if err := add(Max, a.Max, false); err != nil {
		return nil, nil, err
	}
	return items, outputs, nil
}

func (m *Model) Aggregate(args AggregateArgs) (*AggregatePlan, error) {
	if args.Aggregates.empty() {
		return nil, dberr.Invalid(m.Name, "", "select at least one aggregate")
	}
	items, outputs, err := m.aggItems(args.Aggregates)
	if err != nil {
		return nil, err
	}
	where, err := m.Where(args.Where)
	if err != nil {
		return nil, err
	}
	return &AggregatePlan{Select: selectList{items: items}, Where: where, Outputs: outputs}, nil
}

// GroupPlan is a compiled GroupByArgs.
type GroupPlan struct {
	Select  clause.Expression
	Where   clause.Expression
	GroupBy clause.GroupBy
	Order   []Term
	Keys    []Output
	Outputs []Output
	Take    int
	Skip    int
}

func (m *Model) GroupBy(args GroupByArgs) (*GroupPlan, error) {
	if len(args.By) == 0 {
		return nil, dberr.Invalid(m.Name, "", "groupBy needs at least one field")
	}
	if args.Take < 0 || args.Skip < 0 {
		return nil, dberr.Invalid(m.Name, "", "take and skip must not be negative")
	}
	p := &GroupPlan{Take: args.Take, Skip: args.Skip}
	var items []selectItem
	byCols := map[string]bool{}
	for _, name := range args.By {
		f, err := m.Field(name)
		if err != nil {
			return nil, err
		}
		col := column(f)
		byCols[f.DBName] = true
		p.Keys = append(p.Keys, Output{Name: name, Alias: f.DBName})
		p.GroupBy.Columns = append(p.GroupBy.Columns, col)
		items = append(items, selectItem{expr: columnOperand{col: col}, alias: f.DBName})
	}
	aggs, outputs, err := m.aggItems(args.Aggregates)
	if err != nil {
		return nil, err
	}
	p.Outputs = outputs
	p.Select = selectList{items: append(items, aggs...)}
	if p.Where, err = m.Where(args.Where); err != nil {
		return nil, err
	}
	for _, h := range args.Having {
		left, err := m.aggOperandFor(h.Func, h.Field)
		if err != nil {
			return nil, err
		}
		if h.Filter.hasStringOps() || h.Filter.Mode != Default {
			return nil, dberr.Invalid(m.Name, h.Field, "having supports comparison filters only")
		}
		if h.Filter.empty() {
			return nil, dberr.Invalid(m.Name, h.Field, "empty having filter")
		}
		flt := h.Filter
		if left.fn == Count || left.numeric {
			flt = numericFilter(flt)
		}
		p.GroupBy.Having = append(p.GroupBy.Having, comparisons(left, flt)...)
	}
	for _, ob := range args.OrderBy {
		desc := ob.Dir == Descending
		if fn, field, ok := splitAggField(ob.Field); ok {
			agg, err := m.aggOperandFor(fn, field)
			if err != nil {
				return nil, err
			}
			p.Order = append(p.Order, Term{Agg: &agg, Desc: desc, Nulls: ob.Nulls})
			continue
		}
		f, err := m.Field(ob.Field)
		if err != nil {
			return nil, err
		}
		if !byCols[f.DBName] {
			return nil, dberr.Invalid(m.Name, f.Name, "orderBy field must be part of by")
		}
		p.Order = append(p.Order, Term{Column: column(f), Desc: desc, Nulls: ob.Nulls})
	}
	return p, nil
}

func (m *Model) aggOperandFor(fn AggFunc, field string) (aggOperand, error) {
	switch fn {
	case Count, Sum, Avg, Min, Max:
	default:
		return aggOperand{}, dberr.Invalid(m.Name, field, "unknown aggregate %q", fn)
	}
	if fn == Count && (field == AllRows || field == "") {
		return aggOperand{fn: Count}, nil
	}
	f, err := m.Field(field)
	if err != nil {
		return aggOperand{}, err
	}
	if (fn == Sum || fn == Avg) && !isNumeric(f) {
		return aggOperand{}, dberr.Invalid(m.Name, f.Name, "%s needs a numeric field", fn)
	}
	col := column(f)
	return aggOperand{fn: fn, col: &col, numeric: isNumeric(f)}, nil
}

// numericFilter binds Valuer operands (decimal.Decimal among them) as plain
// numbers. Aggregates carry no column affinity, so sqlite would otherwise
// compare them against TEXT and never match.
func numericFilter(f Filter) Filter {
	f.Equals = numericBind(f.Equals)
	f.Not = numericBind(f.Not)
	f.Lt = numericBind(f.Lt)
	f.Lte = numericBind(f.Lte)
	f.Gt = numericBind(f.Gt)
	f.Gte = numericBind(f.Gte)
	if f.In != nil {
		f.In = numericBinds(f.In)
	}
	if f.NotIn != nil {
		f.NotIn = numericBinds(f.NotIn)
	}
	return f
}

func numericBinds(vs []any) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = numericBind(v)
	}
	return out
}

func numericBind(v any) any {
	valuer, ok := v.(driver.Valuer)
	if !ok {
		return v
	}
	dv, err := valuer.Value()
	if err != nil || dv == nil {
		return v
	}
	s, ok := dv.(string)
	if !ok {
		return dv
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if x, err := strconv.ParseFloat(s, 64); err == nil {
		return x
	}
	return v
}

// Alias returns the result column name of an aggregate.
func Alias(fn AggFunc, column string) string { return aggAlias(fn, column) }
