package events

import (
	"sync"

	"donex/core/types"
)

// Event represents a structured state change emitted by the node.
type Event interface {
	EventType() string
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(Event)

// Emit implements the Emitter interface.
func (f EmitterFunc) Emit(evt Event) { f(evt) }

// Fanout delivers every event to each registered emitter in registration order.
type Fanout struct {
	mu       sync.RWMutex
	emitters []Emitter
}

// NewFanout builds a fanout over the supplied emitters. Nil entries are skipped.
func NewFanout(emitters ...Emitter) *Fanout {
	f := &Fanout{}
	for _, e := range emitters {
		f.Add(e)
	}
	return f
}

// Add registers an additional emitter.
func (f *Fanout) Add(e Emitter) {
	if e == nil {
		return
	}
	f.mu.Lock()
	f.emitters = append(f.emitters, e)
	f.mu.Unlock()
}

// Emit implements the Emitter interface.
func (f *Fanout) Emit(evt Event) {
	if f == nil || evt == nil {
		return
	}
	f.mu.RLock()
	targets := append([]Emitter(nil), f.emitters...)
	f.mu.RUnlock()
	for _, e := range targets {
		e.Emit(evt)
	}
}

// Generic converts any event into the attribute form used by subscribers.
// Typed events expose Event(); plain *types.Event values pass through.
func Generic(evt Event) *types.Event {
	switch e := evt.(type) {
	case *types.Event:
		return e
	case interface{ Event() *types.Event }:
		return e.Event()
	default:
		return &types.Event{Type: evt.EventType(), Attributes: map[string]string{}}
	}
}
