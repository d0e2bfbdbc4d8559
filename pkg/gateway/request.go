// Package gateway routes exchange requests generated by actors to the
// correct broker's inbound queue. It is a process-local fan-out: one
// unbounded queue per known exchange, send endpoints held by the router,
// receive endpoints held by each broker.
package gateway

import "github.com/abdoElHodaky/backsim/pkg/simtype"

// Kind tags which ExchangeRequest variant is carried.
type Kind int

const (
	KindNewOrder Kind = iota
	KindCancelOrder
)

// NewOrderRequest asks a broker to create a new order.
type NewOrderRequest struct {
	RequestID     simtype.RequestID
	ClientOrderID simtype.ClientOrderID
	Exchange      simtype.Exchange
	Symbol        simtype.Symbol
	CreationTS    simtype.Timestamp

	Type         simtype.OrderType
	TimeInForce  simtype.TimeInForce
	Side         simtype.Side
	Quantity     float64
	Price        *float64
	TriggerPrice *float64
}

// CancelOrderRequest asks a broker to cancel a resting order.
type CancelOrderRequest struct {
	RequestID       simtype.RequestID
	ClientOrderID   simtype.ClientOrderID
	ExchangeOrderID simtype.ExchangeOrderID
	Exchange        simtype.Exchange
	Symbol          simtype.Symbol
	CreationTS      simtype.Timestamp
}

// ExchangeRequest is the tagged union of {NewOrder, CancelOrder}.
type ExchangeRequest struct {
	Kind        Kind
	NewOrder    NewOrderRequest
	CancelOrder CancelOrderRequest
}

// NewOrderExchangeRequest wraps a NewOrderRequest.
func NewOrderExchangeRequest(r NewOrderRequest) ExchangeRequest {
	return ExchangeRequest{Kind: KindNewOrder, NewOrder: r}
}

// CancelOrderExchangeRequest wraps a CancelOrderRequest.
func CancelOrderExchangeRequest(r CancelOrderRequest) ExchangeRequest {
	return ExchangeRequest{Kind: KindCancelOrder, CancelOrder: r}
}

// CreationTS returns the request's strategy-side creation timestamp,
// used by the broker to compute the wire-latency ack timestamp.
func (r ExchangeRequest) CreationTS() simtype.Timestamp {
	if r.Kind == KindCancelOrder {
		return r.CancelOrder.CreationTS
	}
	return r.NewOrder.CreationTS
}

// Exchange returns the destination exchange of the request.
func (r ExchangeRequest) Exchange() simtype.Exchange {
	if r.Kind == KindCancelOrder {
		return r.CancelOrder.Exchange
	}
	return r.NewOrder.Exchange
}
