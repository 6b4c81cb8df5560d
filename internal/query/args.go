package query

import "strings"

type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

type Nulls string

const (
	NullsDefault Nulls = ""
	NullsFirst   Nulls = "first"
	NullsLast    Nulls = "last"
)

// OrderBy sorts by one field. Field may also name an aggregate in GroupBy,
// written as "_count", "_sum.<field>", "_avg.<field>", "_min.<field>" or "_max.<field>".
type OrderBy struct {
	Field string
	Dir   Direction
	Nulls Nulls
}

func Asc(field string) OrderBy  { return OrderBy{Field: field, Dir: Ascending} }
func Desc(field string) OrderBy { return OrderBy{Field: field, Dir: Descending} }

func (o OrderBy) WithNulls(n Nulls) OrderBy {
	o.Nulls = n
	return o
}

// FindArgs are the arguments of FindFirst and FindMany.
//
// Cursor must pin a unique field; the row it names is the first row returned
// (Skip: 1 excludes it). Take 0 means no limit, a negative Take pages
// backwards from the cursor.
type FindArgs struct {
	Where   Where
	OrderBy []OrderBy
	Cursor  Where
	Take    int
	Skip    int
	Select  []string
	Include []string
}

// AggFunc names an aggregate.
type AggFunc string

const (
	Count AggFunc = "_count"
	Sum   AggFunc = "_sum"
	Avg   AggFunc = "_avg"
	Min   AggFunc = "_min"
	Max   AggFunc = "_max"
)

// AllRows is the Count target that counts rows rather than non-null values.
const AllRows = "_all"

// Aggregates selects which aggregate values to compute.
type Aggregates struct {
	Count []string
	Sum   []string
	Avg   []string
	Min   []string
	Max   []string
}

func (a Aggregates) empty() bool {
	return len(a.Count)+len(a.Sum)+len(a.Avg)+len(a.Min)+len(a.Max) == 0
}

type AggregateArgs struct {
	Where Where
	Aggregates
}

// Having filters groups on an aggregate value. Only comparison predicates of
// Filter are allowed.
type Having struct {
	Func   AggFunc
	Field  string
	Filter Filter
}

type GroupByArgs struct {
	By      []string
	Where   Where
	Having  []Having
	OrderBy []OrderBy
	Take    int
	Skip    int
	Aggregates
}

// Data maps field names to new values for Update, UpdateMany and Upsert.
// Values may be plain values or number operations built with Increment,
// Decrement, Multiply and Divide.
type Data map[string]any

// NumberOp is an atomic arithmetic update applied by the store.
type NumberOp struct {
	op    string
	value any
}

func Increment(v any) NumberOp { return NumberOp{op: "+", value: v} }
func Decrement(v any) NumberOp { return NumberOp{op: "-", value: v} }
func Multiply(v any) NumberOp  { return NumberOp{op: "*", value: v} }
func Divide(v any) NumberOp    { return NumberOp{op: "/", value: v} }

// aggAlias is the column alias used for an aggregate in result rows.
func aggAlias(fn AggFunc, field string) string {
	return string(fn) + "__" + field
}

func splitAggField(name string) (AggFunc, string, bool) {
	if name == string(Count) {
		return Count, AllRows, true
	}
	for _, fn := range []AggFunc{Count, Sum, Avg, Min, Max} {
		if strings.HasPrefix(name, string(fn)+".") {
			return fn, strings.TrimPrefix(name, string(fn)+"."), true
		}
	}
	return "", "", false
}
