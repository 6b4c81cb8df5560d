package query

import (
	"strings"

	"gorm.io/gorm/clause"
)

const likeEscape = '!'

// operand is the left-hand side of a predicate: a column or an aggregate.
type operand interface {
	write(b clause.Builder)
}

type columnOperand struct{ col clause.Column }

func (c columnOperand) write(b clause.Builder) { b.WriteQuoted(c.col) }

type aggOperand struct {
	fn      AggFunc
	col     *clause.Column // nil for COUNT(*)
	numeric bool
}

func (a aggOperand) write(b clause.Builder) {
	switch a.fn {
	case Count:
		b.WriteString("COUNT(")
	case Sum:
		b.WriteString("SUM(")
	case Avg:
		b.WriteString("AVG(")
	case Min:
		b.WriteString("MIN(")
	case Max:
		b.WriteString("MAX(")
	}
	if a.col == nil {
		b.WriteByte('*')
	} else {
		b.WriteQuoted(*a.col)
	}
	b.WriteByte(')')
}

type cmpExpr struct {
	left operand
	op   string
	val  any
}

func (e cmpExpr) Build(b clause.Builder) {
	e.left.write(b)
	b.WriteByte(' ')
	b.WriteString(e.op)
	b.WriteByte(' ')
	b.AddVar(b, e.val)
}

type nullExpr struct {
	left operand
	not  bool
}

func (e nullExpr) Build(b clause.Builder) {
	e.left.write(b)
	if e.not {
		b.WriteString(" IS NOT NULL")
	} else {
		b.WriteString(" IS NULL")
	}
}

type inExpr struct {
	left operand
	vals []any
	not  bool
}

func (e inExpr) Build(b clause.Builder) {
	if len(e.vals) == 0 {
		if e.not {
			b.WriteString("1 = 1")
		} else {
			b.WriteString("1 = 0")
		}
		return
	}
	e.left.write(b)
	if e.not {
		b.WriteString(" NOT IN (")
	} else {
		b.WriteString(" IN (")
	}
	b.AddVar(b, e.vals...)
	b.WriteByte(')')
}

type likeExpr struct {
	col     clause.Column
	pattern string
	fold    bool
}

func (e likeExpr) Build(b clause.Builder) {
	if e.fold {
		b.WriteString("LOWER(")
		b.WriteQuoted(e.col)
		b.WriteString(") LIKE LOWER(")
		b.AddVar(b, e.pattern)
		b.WriteString(")")
	} else {
		b.WriteQuoted(e.col)
		b.WriteString(" LIKE ")
		b.AddVar(b, e.pattern)
	}
	b.WriteString(" ESCAPE '")
	b.WriteByte(likeEscape)
	b.WriteByte('\'')
}

func escapeLike(s string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return r.Replace(s)
}

// junction joins expressions with AND or OR. An empty AND is true, an empty OR
// is false.
type junction struct {
	op    string
	exprs []clause.Expression
}

func (j junction) Build(b clause.Builder) {
	if len(j.exprs) == 0 {
		if j.op == "OR" {
			b.WriteString("1 = 0")
		} else {
			b.WriteString("1 = 1")
		}
		return
	}
	b.WriteByte('(')
	for i, e := range j.exprs {
		if i > 0 {
			b.WriteByte(' ')
			b.WriteString(j.op)
			b.WriteByte(' ')
		}
		e.Build(b)
	}
	b.WriteByte(')')
}

func and(exprs ...clause.Expression) clause.Expression {
	if len(exprs) == 1 {
		return exprs[0]
	}
	return junction{op: "AND", exprs: exprs}
}

func or(exprs ...clause.Expression) clause.Expression {
	if len(exprs) == 1 {
		return exprs[0]
	}
	return junction{op: "OR", exprs: exprs}
}

type notExpr struct{ inner clause.Expression }

func (n notExpr) Build(b clause.Builder) {
	b.WriteString("NOT (")
	n.inner.Build(b)
	b.WriteByte(')')
}

type constExpr bool

func (c constExpr) Build(b clause.Builder) {
	if c {
		b.WriteString("1 = 1")
	} else {
		b.WriteString("1 = 0")
	}
}

// Term is one resolved ORDER BY entry.
type Term struct {
	Column clause.Column
	Agg    *aggOperand
	Desc   bool
	Nulls  Nulls
}

func (t Term) write(b clause.Builder) {
	if t.Agg != nil {
		t.Agg.write(b)
		return
	}
	b.WriteQuoted(t.Column)
}

// reversed flips direction and null placement.
func (t Term) reversed() Term {
	t.Desc = !t.Desc
	switch t.Nulls {
	case NullsFirst:
		t.Nulls = NullsLast
	case NullsLast:
		t.Nulls = NullsFirst
	}
	return t
}

// explicit pins null placement to "nulls sort lowest" when not chosen.
func (t Term) explicit() Term {
	if t.Nulls == NullsDefault {
		if t.Desc {
			t.Nulls = NullsLast
		} else {
			t.Nulls = NullsFirst
		}
	}
	return t
}

type orderExpr struct{ terms []Term }

func (o orderExpr) Build(b clause.Builder) {
	for i, t := range o.terms {
		if i > 0 {
			b.WriteString(", ")
		}
		// portable NULLS FIRST/LAST: sort on the null flag first
		if t.Nulls != NullsDefault {
			t.write(b)
			if t.Nulls == NullsFirst {
				b.WriteString(" IS NULL DESC, ")
			} else {
				b.WriteString(" IS NULL ASC, ")
			}
		}
		t.write(b)
		if t.Desc {
			b.WriteString(" DESC")
		} else {
			b.WriteString(" ASC")
		}
	}
}

// OrderClause renders terms as an ORDER BY clause.
func OrderClause(terms []Term) clause.OrderBy {
	return clause.OrderBy{Expression: orderExpr{terms: terms}}
}

// After builds the keyset predicate selecting the row whose order values are
// values, and every row sorting after it under terms. Terms must carry
// explicit null placement and end with a unique column.
func After(terms []Term, values []any) clause.Expression {
	var alts []clause.Expression
	var prefix []clause.Expression
	for i, t := range terms {
		col := columnOperand{col: t.Column}
		v := values[i]
		var strictly clause.Expression
		switch {
		case v == nil && t.Nulls == NullsFirst:
			strictly = nullExpr{left: col, not: true}
		case v == nil:
			strictly = constExpr(false)
		default:
			op := ">"
			if t.Desc {
				op = "<"
			}
			strictly = cmpExpr{left: col, op: op, val: v}
			if t.Nulls == NullsLast {
				strictly = or(strictly, nullExpr{left: col})
			}
		}
		alts = append(alts, and(append(append([]clause.Expression{}, prefix...), strictly)...))

		if v == nil {
			prefix = append(prefix, nullExpr{left: col})
		} else {
			prefix = append(prefix, cmpExpr{left: col, op: "=", val: v})
		}
	}
	alts = append(alts, and(prefix...))
	return or(alts...)
}

// selectItem is one entry of an aggregate SELECT list.
type selectItem struct {
	expr  operand
	alias string
}

type selectList struct{ items []selectItem }

func (s selectList) Build(b clause.Builder) {
	for i, it := range s.items {
		if i > 0 {
			b.WriteString(", ")
		}
		it.expr.write(b)
		b.WriteString(" AS ")
		b.WriteQuoted(it.alias)
	}
}

// AnyOf matches when at least one expression holds; with none it never matches.
func AnyOf(exprs ...clause.Expression) clause.Expression {
	if len(exprs) == 0 {
		return constExpr(false)
	}
	return or(exprs...)
}
