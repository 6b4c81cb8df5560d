package client

import (
	"sync"
	"time"
)

type EventKind string

const (
	EventQuery EventKind = "query"
	EventInfo  EventKind = "info"
	EventWarn  EventKind = "warn"
	EventError EventKind = "error"
)

// Event is delivered to subscribers registered with On. Query events carry
// the statement, its parameters and how long it took; the others carry Message.
type Event struct {
	Kind      EventKind
	Timestamp time.Time
	Query     string
	Params    []any
	Duration  time.Duration
	Target    string
	Message   string
}

type emitter struct {
	mu   sync.RWMutex
	subs map[EventKind][]func(Event)
}

func newEmitter() *emitter {
	return &emitter{subs: map[EventKind][]func(Event){}}
}

func (e *emitter) on(kind EventKind, fn func(Event)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subs[kind] = append(e.subs[kind], fn)
}

func (e *emitter) has(kind EventKind) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.subs[kind]) > 0
}

func (e *emitter) emit(ev Event) {
	e.mu.RLock()
	subs := e.subs[ev.Kind]
	e.mu.RUnlock()
	for _, fn := range subs {
		fn(ev)
	}
}
