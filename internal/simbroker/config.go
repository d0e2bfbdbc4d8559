package simbroker

import "github.com/abdoElHodaky/backsim/pkg/simtype"

// Config holds the per-exchange latency and matching-mode parameters a
// SimBroker is constructed with.
type Config struct {
	// WireLatency is the symmetric request/response transport delay.
	WireLatency simtype.Timestamp
	// InternalLatency is the venue-side processing delay.
	InternalLatency simtype.Timestamp
	// StrictExecution: true means a resting limit order crosses only on
	// a strictly-better trade print; false means equal-price prints also
	// fill it.
	StrictExecution bool
}

// DefaultConfig returns the zero-latency, non-strict configuration used
// when the caller does not supply a per-exchange override.
func DefaultConfig() Config {
	return Config{}
}
