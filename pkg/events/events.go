// Package events defines the engine's public Event type: the tagged
// union delivered to actors by the event loop. Every variant exposes
// Timestamp() (strategy-visible) and ExchangeTimestamp().
package events

import (
	"github.com/abdoElHodaky/backsim/pkg/marketdata"
	"github.com/abdoElHodaky/backsim/pkg/simtype"
)

// Kind tags which variant an Event carries.
type Kind int

const (
	KindNewQuote Kind = iota
	KindNewMarketTrade
	KindResponseNewOrderAccepted
	KindResponseNewOrderRejected
	KindResponseCancelOrderAccepted
	KindResponseCancelOrderRejected
	KindUDSOrderUpdate
)

// NewOrderAccepted acknowledges a NewOrderRequest.
type NewOrderAccepted struct {
	EventID         simtype.EventID
	RequestID       simtype.RequestID
	Timestamp       simtype.Timestamp
	ExchangeTS      simtype.Timestamp
	ClientOrderID   simtype.ClientOrderID
	ExchangeOrderID simtype.ExchangeOrderID
	Exchange        simtype.Exchange
	Symbol          simtype.Symbol
}

// NewOrderRejected rejects a NewOrderRequest with a human-readable reason.
type NewOrderRejected struct {
	EventID       simtype.EventID
	RequestID     simtype.RequestID
	Timestamp     simtype.Timestamp
	ExchangeTS    simtype.Timestamp
	ClientOrderID simtype.ClientOrderID
	Reason        string
	Exchange      simtype.Exchange
	Symbol        simtype.Symbol
}

// CancelOrderAccepted acknowledges a CancelOrderRequest.
type CancelOrderAccepted struct {
	EventID         simtype.EventID
	RequestID       simtype.RequestID
	Timestamp       simtype.Timestamp
	ExchangeTS      simtype.Timestamp
	ClientOrderID   simtype.ClientOrderID
	ExchangeOrderID simtype.ExchangeOrderID
	Exchange        simtype.Exchange
	Symbol          simtype.Symbol
}

// CancelOrderRejected rejects a CancelOrderRequest with a reason.
type CancelOrderRejected struct {
	EventID         simtype.EventID
	RequestID       simtype.RequestID
	Timestamp       simtype.Timestamp
	ExchangeTS      simtype.Timestamp
	ClientOrderID   simtype.ClientOrderID
	ExchangeOrderID simtype.ExchangeOrderID
	Reason          string
	Exchange        simtype.Exchange
	Symbol          simtype.Symbol
}

// OrderUpdate is a user-data-stream execution report.
type OrderUpdate struct {
	EventID              simtype.EventID
	Timestamp            simtype.Timestamp
	ExchangeTS           simtype.Timestamp
	Symbol               simtype.Symbol
	Exchange             simtype.Exchange
	Side                 simtype.Side
	ClientOrderID        simtype.ClientOrderID
	ExchangeOrderID      simtype.ExchangeOrderID
	OrderType            simtype.OrderType
	TimeInForce          simtype.TimeInForce
	OriginalQty          float64
	OriginalPrice        *float64
	AveragePrice         *float64
	StopPrice            *float64
	ExecutionType        simtype.ExecutionType
	OrderStatus          simtype.OrderStatus
	LastFilledQty        *float64
	AccumulatedFilledQty *float64
	LastFilledPrice      *float64
	LastTradeTime        *simtype.Timestamp
}

// Event is the tagged union delivered to actors by the event loop.
// Exactly one of the payload fields is populated, selected by Kind.
type Event struct {
	Kind Kind

	Quote marketdata.Event
	Trade marketdata.Event

	NewOrderAccepted      NewOrderAccepted
	NewOrderRejected      NewOrderRejected
	CancelOrderAccepted   CancelOrderAccepted
	CancelOrderRejected   CancelOrderRejected
	OrderUpdate           OrderUpdate
}

// FromMarketData converts a decoded market-data event into its Event
// variant. md must already carry the strategy-visible ReceivedTimestamp.
func FromMarketData(md marketdata.Event) Event {
	if md.Kind == marketdata.KindTrade {
		return Event{Kind: KindNewMarketTrade, Trade: md}
	}
	return Event{Kind: KindNewQuote, Quote: md}
}

func NewOrderAcceptedEvent(v NewOrderAccepted) Event {
	return Event{Kind: KindResponseNewOrderAccepted, NewOrderAccepted: v}
}

func NewOrderRejectedEvent(v NewOrderRejected) Event {
	return Event{Kind: KindResponseNewOrderRejected, NewOrderRejected: v}
}

func CancelOrderAcceptedEvent(v CancelOrderAccepted) Event {
	return Event{Kind: KindResponseCancelOrderAccepted, CancelOrderAccepted: v}
}

func CancelOrderRejectedEvent(v CancelOrderRejected) Event {
	return Event{Kind: KindResponseCancelOrderRejected, CancelOrderRejected: v}
}

func OrderUpdateEvent(v OrderUpdate) Event {
	return Event{Kind: KindUDSOrderUpdate, OrderUpdate: v}
}

// Timestamp returns the strategy-visible timestamp of the event.
func (e Event) Timestamp() simtype.Timestamp {
	switch e.Kind {
	case KindNewQuote, KindNewMarketTrade:
		return e.marketDataPayload().ReceivedTimestamp
	case KindResponseNewOrderAccepted:
		return e.NewOrderAccepted.Timestamp
	case KindResponseNewOrderRejected:
		return e.NewOrderRejected.Timestamp
	case KindResponseCancelOrderAccepted:
		return e.CancelOrderAccepted.Timestamp
	case KindResponseCancelOrderRejected:
		return e.CancelOrderRejected.Timestamp
	case KindUDSOrderUpdate:
		return e.OrderUpdate.Timestamp
	}
	return 0
}

// ExchangeTimestamp returns the venue-side timestamp of the event.
func (e Event) ExchangeTimestamp() simtype.Timestamp {
	switch e.Kind {
	case KindNewQuote, KindNewMarketTrade:
		return e.marketDataPayload().ExchangeTimestamp
	case KindResponseNewOrderAccepted:
		return e.NewOrderAccepted.ExchangeTS
	case KindResponseNewOrderRejected:
		return e.NewOrderRejected.ExchangeTS
	case KindResponseCancelOrderAccepted:
		return e.CancelOrderAccepted.ExchangeTS
	case KindResponseCancelOrderRejected:
		return e.CancelOrderRejected.ExchangeTS
	case KindUDSOrderUpdate:
		return e.OrderUpdate.ExchangeTS
	}
	return 0
}

// Exchange returns the exchange the event pertains to.
func (e Event) Exchange() simtype.Exchange {
	switch e.Kind {
	case KindNewQuote, KindNewMarketTrade:
		return e.marketDataPayload().Exchange
	case KindResponseNewOrderAccepted:
		return e.NewOrderAccepted.Exchange
	case KindResponseNewOrderRejected:
		return e.NewOrderRejected.Exchange
	case KindResponseCancelOrderAccepted:
		return e.CancelOrderAccepted.Exchange
	case KindResponseCancelOrderRejected:
		return e.CancelOrderRejected.Exchange
	case KindUDSOrderUpdate:
		return e.OrderUpdate.Exchange
	}
	return ""
}

func (e Event) marketDataPayload() marketdata.Event {
	if e.Kind == KindNewMarketTrade {
		return e.Trade
	}
	return e.Quote
}
