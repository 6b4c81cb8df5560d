// Package query holds the argument types accepted by repositories (filters,
// ordering, pagination, aggregation, update data) and compiles them against a
// gorm schema into SQL clauses.
package query

// Mode selects how string filters compare.
type Mode int

const (
	Default Mode = iota
	Insensitive
)

// Filter is a set of predicates on one field. Every predicate that is set must
// hold. Use IsNull/NotNull for null checks; a nil Equals means "not set".
type Filter struct {
	Equals     any
	Not        any
	In         []any
	NotIn      []any
	Lt         any
	Lte        any
	Gt         any
	Gte        any
	Contains   string
	StartsWith string
	EndsWith   string
	Null       *bool
	Mode       Mode
}

func Eq(v any) Filter  { return Filter{Equals: v} }
func Neq(v any) Filter { return Filter{Not: v} }
func Lt(v any) Filter  { return Filter{Lt: v} }
func Lte(v any) Filter { return Filter{Lte: v} }
func Gt(v any) Filter  { return Filter{Gt: v} }
func Gte(v any) Filter { return Filter{Gte: v} }

func Between(lo, hi any) Filter { return Filter{Gte: lo, Lte: hi} }

func In(values ...any) Filter {
	if values == nil {
		values = []any{}
	}
	return Filter{In: values}
}

func NotIn(values ...any) Filter {
	if values == nil {
		values = []any{}
	}
	return Filter{NotIn: values}
}

func Contains(s string) Filter   { return Filter{Contains: s} }
func StartsWith(s string) Filter { return Filter{StartsWith: s} }
func EndsWith(s string) Filter   { return Filter{EndsWith: s} }

func IsNull() Filter {
	t := true
	return Filter{Null: &t}
}

func NotNull() Filter {
	f := false
	return Filter{Null: &f}
}

// Fold switches string predicates to case-insensitive matching.
func (f Filter) Fold() Filter {
	f.Mode = Insensitive
	return f
}

func (f Filter) empty() bool {
	return f.Equals == nil && f.Not == nil && f.In == nil && f.NotIn == nil &&
		f.Lt == nil && f.Lte == nil && f.Gt == nil && f.Gte == nil &&
		f.Contains == "" && f.StartsWith == "" && f.EndsWith == "" && f.Null == nil
}

// equalityOnly reports whether the filter pins a single value.
func (f Filter) equalityOnly() bool {
	if f.Equals == nil {
		return false
	}
	g := f
	g.Equals = nil
	g.Mode = Default
	return g.empty()
}

func (f Filter) hasStringOps() bool {
	return f.Contains != "" || f.StartsWith != "" || f.EndsWith != ""
}

// Where composes field filters with AND, OR and NOT. All parts must hold:
// every field filter, every AND entry, at least one OR entry (when OR is not
// empty) and no NOT entry.
type Where struct {
	Fields map[string]Filter
	AND    []Where
	OR     []Where
	NOT    []Where
}

// Field builds a Where with a single field filter.
func Field(name string, f Filter) Where {
	return Where{Fields: map[string]Filter{name: f}}
}

// ByID is shorthand for an equality on the primary key.
func ByID(id any) Where {
	return Field("id", Eq(id))
}

// Is is shorthand for an equality on field.
func Is(field string, v any) Where {
	return Field(field, Eq(v))
}

// With returns a copy of w with one more field filter.
func (w Where) With(name string, f Filter) Where {
	fields := make(map[string]Filter, len(w.Fields)+1)
	for k, v := range w.Fields {
		fields[k] = v
	}
	fields[name] = f
	w.Fields = fields
	return w
}

func And(ws ...Where) Where { return Where{AND: ws} }
func Or(ws ...Where) Where  { return Where{OR: ws} }
func Not(ws ...Where) Where { return Where{NOT: ws} }

// IsZero reports whether w has no predicates at all.
func (w Where) IsZero() bool {
	return len(w.Fields) == 0 && len(w.AND) == 0 && len(w.OR) == 0 && len(w.NOT) == 0
}
