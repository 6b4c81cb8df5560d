package client

import (
	"time"

	"gorm.io/gorm"
)

const startedAtKey = "pos:started_at"

type registrar interface {
	Register(name string, fn func(*gorm.DB)) error
}

// registerCallbacks times every statement and publishes it as a query event.
func registerCallbacks(db *gorm.DB, events *emitter) error {
	before := func(tx *gorm.DB) {
		tx.InstanceSet(startedAtKey, time.Now())
	}
	after := func(tx *gorm.DB) {
		if !events.has(EventQuery) {
			return
		}
		started := time.Now()
		if v, ok := tx.InstanceGet(startedAtKey); ok {
			if t, ok := v.(time.Time); ok {
				started = t
			}
		}
		events.emit(Event{
			Kind:      EventQuery,
			Timestamp: started,
			Query:     tx.Statement.SQL.String(),
			Params:    append([]any(nil), tx.Statement.Vars...),
			Duration:  time.Since(started),
			Target:    tx.Statement.Table,
		})
	}

	cb := db.Callback()
	hooks := []struct {
		name          string
		before, after registrar
	}{
		{"create", cb.Create().Before("gorm:create"), cb.Create().After("gorm:create")},
		{"query", cb.Query().Before("gorm:query"), cb.Query().After("gorm:query")},
		{"update", cb.Update().Before("gorm:update"), cb.Update().After("gorm:update")},
		{"delete", cb.Delete().Before("gorm:delete"), cb.Delete().After("gorm:delete")},
		{"row", cb.Row().Before("gorm:row"), cb.Row().After("gorm:row")},
		{"raw", cb.Raw().Before("gorm:raw"), cb.Raw().After("gorm:raw")},
	}
	for _, h := range hooks {
		if err := h.before.Register("pos:before_"+h.name, before); err != nil {
			return err
		}
		if err := h.after.Register("pos:after_"+h.name, after); err != nil {
			return err
		}
	}
	return nil
}
