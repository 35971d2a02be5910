package events

import "reliefchain/core/types"

// Event is a structured audit record emitted by a state-mutating command.
// Concrete events flatten themselves into the wire representation consumed by
// subscribers.
type Event interface {
	EventType() string
	Event() *types.Event
}

// Emitter broadcasts events to downstream subscribers (RPC stream, indexers,
// dashboards).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter satisfies the Emitter interface while discarding all events. It
// is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}
