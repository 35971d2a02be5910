package config

import "fmt"

// Limits bundles the runtime admission knobs enforced on the node's RPC
// surface and event feed. Zero values are replaced with the programme
// defaults at load.
type Limits struct {
	RPCMaxBodyBytes       int64  `toml:"RPCMaxBodyBytes"`
	RPCRequestsPerMin     int    `toml:"RPCRequestsPerMin"`
	EventBufferSize       int    `toml:"EventBufferSize"`
	ShutdownGraceSecs     uint64 `toml:"ShutdownGraceSecs"`
	ReadHeaderTimeoutSecs uint64 `toml:"ReadHeaderTimeoutSecs"`
}

func (l *Limits) applyDefaults() {
	if l.RPCMaxBodyBytes == 0 {
		l.RPCMaxBodyBytes = 1 << 20
	}
	if l.RPCRequestsPerMin == 0 {
		l.RPCRequestsPerMin = 600
	}
	if l.EventBufferSize == 0 {
		l.EventBufferSize = 4096
	}
	if l.ShutdownGraceSecs == 0 {
		l.ShutdownGraceSecs = 15
	}
	if l.ReadHeaderTimeoutSecs == 0 {
		l.ReadHeaderTimeoutSecs = 10
	}
}

// ValidateLimits rejects configurations that would leave a surface without
// admission control.
func ValidateLimits(l Limits) error {
	if l.RPCMaxBodyBytes <= 0 {
		return fmt.Errorf("limits: rpc_max_body_bytes <= 0")
	}
	if l.RPCRequestsPerMin <= 0 {
		return fmt.Errorf("limits: rpc_requests_per_min <= 0")
	}
	if l.EventBufferSize <= 0 {
		return fmt.Errorf("limits: event_buffer_size <= 0")
	}
	return nil
}
