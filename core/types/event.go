package types

// Event represents a typed audit record emitted during state transitions.
// Events are the only history the engine keeps; downstream consumers must
// subscribe and persist the stream themselves.
type Event struct {
	Sequence   uint64            `json:"sequence"`
	Type       string            `json:"type"`
	Timestamp  int64             `json:"timestamp"`
	Attributes map[string]string `json:"attributes"`
}
