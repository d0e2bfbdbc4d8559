// Package simerr centralizes the error taxonomy shared by every core
// component: configuration errors (propagated), routing errors
// (propagated to the caller of send_order/cancel_order), and
// data-integrity violations (fatal, abort the run). Venue-modeled errors
// (duplicate client order id, unknown order, etc.) are never returned as
// Go errors — they are surfaced as *Rejected events, see pkg/events.
package simerr

import "errors"

// Configuration errors.
var (
	ErrBrokerAlreadyExists = errors.New("simenv: broker already registered for exchange")
	ErrMissedParameter     = errors.New("engine: missing required parameter")
)

// Routing errors.
var (
	ErrUnknownExchange     = errors.New("gateway: unknown exchange")
	ErrSendFailed          = errors.New("gateway: send failed, channel closed")
	ErrActionNotSupported  = errors.New("actions: message bus not configured")
)

// Data-integrity violations. These are fatal: callers should abort the
// run rather than attempt to continue.
var (
	ErrMarketDataOutOfOrder = errors.New("marketdata: provider returned events out of exchange-timestamp order")
	ErrTimestampRegressed   = errors.New("engine: event delivered with timestamp before the last seen timestamp")
	ErrInvalidOrderState    = errors.New("simbroker: invalid order state transition")
)

// ErrUnsupportedOrderType is attached to the panic the broker's matcher
// raises when it reaches an open order of any type other than LIMIT
// (see SPEC_FULL.md, Open Question decisions). Such orders are accepted
// at submission; the panic fires on the first market-data tick for their
// symbol, so a strategy relying on them fails loudly in tests.
var ErrUnsupportedOrderType = errors.New("simbroker: order type not supported by the matcher")
