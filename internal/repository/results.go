package repository

import (
	"strconv"

	"go-pos-store/internal/query"

	"github.com/shopspring/decimal"
)

// AggregateResult holds aggregate values keyed by the field names the caller
// asked for. Count under query.AllRows is the row count.
type AggregateResult struct {
	Count map[string]int64
	Sum   map[string]decimal.NullDecimal
	Avg   map[string]decimal.NullDecimal
	Min   map[string]any
	Max   map[string]any
}

// GroupRow is one group of a GroupBy result.
type GroupRow struct {
	Keys map[string]any
	AggregateResult
}

func newAggregateResult(outputs []query.Output, row map[string]any) AggregateResult {
	var r AggregateResult
	for _, o := range outputs {
		v := row[o.Alias]
		switch o.Func {
		case query.Count:
			if r.Count == nil {
				r.Count = map[string]int64{}
			}
			r.Count[o.Name] = toInt64(v)
		case query.Sum:
			if r.Sum == nil {
				r.Sum = map[string]decimal.NullDecimal{}
			}
			sum := toDecimal(v)
			if sum.Valid && o.Scale > 0 {
				sum.Decimal = sum.Decimal.Round(o.Scale)
			}
			r.Sum[o.Name] = sum
		case query.Avg:
			if r.Avg == nil {
				r.Avg = map[string]decimal.NullDecimal{}
			}
			r.Avg[o.Name] = toDecimal(v)
		case query.Min:
			if r.Min == nil {
				r.Min = map[string]any{}
			}
			r.Min[o.Name] = plain(v)
		case query.Max:
			if r.Max == nil {
				r.Max = map[string]any{}
			}
			r.Max[o.Name] = plain(v)
		}
	}
	return r
}

// CountAll returns the row count when query.AllRows was requested.
func (r AggregateResult) CountAll() int64 {
	return r.Count[query.AllRows]
}

// SumOf returns the sum of field, zero when it is null.
func (r AggregateResult) SumOf(field string) decimal.Decimal {
	return r.Sum[field].Decimal
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int32:
		return int64(n)
	case int:
		return int64(n)
	case uint64:
		return int64(n)
	case float64:
		return int64(n)
	case []byte:
		i, _ := strconv.ParseInt(string(n), 10, 64)
		return i
	case string:
		i, _ := strconv.ParseInt(n, 10, 64)
		return i
	}
	return 0
}

func toDecimal(v any) decimal.NullDecimal {
	var d decimal.NullDecimal
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	if err := d.Scan(v); err != nil {
		return decimal.NullDecimal{}
	}
	return d
}

func plain(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
