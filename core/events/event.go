package events

import "yieldplus/core/types"

// Event represents a structured state change recorded by a native module.
type Event interface {
	EventType() string
}

// Payload is implemented by events that render to the generic attribute
// form stored alongside state.
type Payload interface {
	Event
	Event() *types.Event
}

// Emitter broadcasts events to downstream subscribers (logs, metrics, API
// consumers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Generic wraps an already rendered event so it can be re-emitted.
type Generic struct {
	*types.Event
}

// EventType implements the Event interface.
func (g Generic) EventType() string {
	if g.Event == nil {
		return ""
	}
	return g.Event.Type
}

// Fanout emits every event to each of its emitters in order.
type Fanout []Emitter

// Emit implements the Emitter interface.
func (f Fanout) Emit(evt Event) {
	for _, e := range f {
		if e != nil {
			e.Emit(evt)
		}
	}
}
