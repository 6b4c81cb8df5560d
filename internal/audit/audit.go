// Package audit records successful writes made through the client.
package audit

import (
	"context"
	"encoding/json"
	"reflect"
	"strings"
	"time"

	"go-pos-store/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// Entry is one recorded write.
type Entry struct {
	ID        string    `bson:"_id,omitempty" json:"id,omitempty"`
	Model     string    `bson:"model" json:"model"`
	Action    string    `bson:"action" json:"action"`
	EntityID  string    `bson:"entity_id,omitempty" json:"entity_id,omitempty"`
	Actor     string    `bson:"actor,omitempty" json:"actor,omitempty"`
	Count     int64     `bson:"count,omitempty" json:"count,omitempty"`
	Data      bson.M    `bson:"data,omitempty" json:"data,omitempty"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

type Sink interface {
	Record(ctx context.Context, e *Entry) error
}

// Reader looks up the recorded writes of one entity.
type Reader interface {
	History(ctx context.Context, entityID string, limit int64) ([]*Entry, error)
}

type actorKey struct{}

// WithActor tags ctx with who is making the change.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func ActorFrom(ctx context.Context) string {
	s, _ := ctx.Value(actorKey{}).(string)
	return s
}

// Writes reports whether action changes rows.
func Writes(action string) bool {
	for _, prefix := range []string{"create", "update", "upsert", "delete"} {
		if strings.HasPrefix(action, prefix) {
			return true
		}
	}
	return false
}

// Middleware records every successful write to sink. Writes made inside a
// transaction are recorded once it commits and never when it rolls back. A
// failing sink is logged and never fails the write.
func Middleware(sink Sink, log *zap.Logger) repository.Middleware {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("audit")
	return func(next repository.Handler) repository.Handler {
		return func(ctx context.Context, op repository.Operation) (any, error) {
			out, err := next(ctx, op)
			if err != nil || op.Model == "" || !Writes(op.Action) {
				return out, err
			}
			e := &Entry{
				Model:     op.Model,
				Action:    op.Action,
				Actor:     ActorFrom(ctx),
				CreatedAt: time.Now().UTC(),
			}
			describe(e, out)
			record := func() {
				if rerr := sink.Record(ctx, e); rerr != nil {
					log.Warn("cannot record write", zap.String("model", op.Model), zap.String("action", op.Action), zap.Error(rerr))
				}
			}
			if !repository.AfterCommit(ctx, record) {
				record()
			}
			return out, nil
		}
	}
}

// describe fills the entity id, count and data snapshot from an operation result.
func describe(e *Entry, out any) {
	switch v := out.(type) {
	case int64:
		e.Count = v
		return
	case nil:
		return
	}
	rv := reflect.ValueOf(out)
	if rv.Kind() == reflect.Slice {
		e.Count = int64(rv.Len())
		return
	}
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return
	}
	e.Count = 1
	if id := rv.FieldByName("ID"); id.IsValid() {
		if s, ok := id.Interface().(interface{ String() string }); ok {
			e.EntityID = s.String()
		}
	}
	if raw, err := json.Marshal(out); err == nil {
		var data bson.M
		if json.Unmarshal(raw, &data) == nil {
			e.Data = data
		}
	}
}
