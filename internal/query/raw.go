package query

import (
	"go-pos-store/internal/dberr"
)

// RawSQL is a parameterized statement for the raw escape hatch. Placeholders
// are written as '?' and are bound by the driver.
type RawSQL struct {
	SQL  string
	Args []any
}

func Raw(sql string, args ...any) RawSQL {
	return RawSQL{SQL: sql, Args: args}
}

// Validate checks that the number of placeholders matches the arguments.
func (r RawSQL) Validate() error {
	if r.SQL == "" {
		return dberr.Invalid("", "sql", "empty statement")
	}
	if n := placeholders(r.SQL); n != len(r.Args) {
		return dberr.Invalid("", "sql", "statement has %d placeholders but %d arguments", n, len(r.Args))
	}
	return nil
}

// placeholders counts '?' outside quoted strings and identifiers.
func placeholders(sql string) int {
	n := 0
	var quote byte
	for i := 0; i < len(sql); i++ {
		c := sql[i]
		switch {
		case quote != 0:
			if c == quote {
				// doubled quote is an escaped quote
				if i+1 < len(sql) && sql[i+1] == quote {
					i++
					continue
				}
				quote = 0
			}
		case c == '\'' || c == '"' || c == '`':
			quote = c
		case c == '?':
			n++
		}
	}
	return n
}
