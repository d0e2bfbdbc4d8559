package simtype

import "github.com/segmentio/ksuid"

// NewEventID mints a k-sortable public event id. Event ids are opaque to
// the rest of the engine; ksuid gives them external sortability (useful
// for log correlation and downstream tooling) without the broker needing
// to hand out its internal dense numeric sequence, which is reserved for
// exchange order ids (see simbroker.Order).
func NewEventID() EventID {
	return EventID(ksuid.New().String())
}
