// Package marketdata defines the market-data event model and the
// pull-based provider contract consumed by the simulated environment.
// Deserialization of any particular wire/file format is an external
// collaborator's concern (see internal/mdfile for a JSON file provider);
// this package only describes the shape of an event once decoded.
package marketdata

import "github.com/abdoElHodaky/backsim/pkg/simtype"

// Kind tags which payload a MarketDataEvent carries.
type Kind int

const (
	KindQuote Kind = iota
	KindTrade
)

// Quote is a top-of-book bid/ask snapshot.
type Quote struct {
	Bid     float64
	Ask     float64
	BidSize *float64
	AskSize *float64
}

// Trade is a single print on the tape.
type Trade struct {
	LastPrice float64
	LastSize  float64
}

// Event is the tagged union of {NewQuote, NewMarketTrade}. Exactly one of
// Quote/Trade is populated, selected by Kind.
type Event struct {
	Kind              Kind
	Symbol            simtype.Symbol
	Exchange          simtype.Exchange
	ExchangeTimestamp simtype.Timestamp
	ReceivedTimestamp simtype.Timestamp
	Quote             Quote
	Trade             Trade
}

// NewQuoteEvent builds a quote-flavored Event.
func NewQuoteEvent(symbol simtype.Symbol, exchange simtype.Exchange, exchangeTS simtype.Timestamp, q Quote) Event {
	return Event{
		Kind:              KindQuote,
		Symbol:            symbol,
		Exchange:          exchange,
		ExchangeTimestamp: exchangeTS,
		Quote:             q,
	}
}

// NewTradeEvent builds a trade-flavored Event.
func NewTradeEvent(symbol simtype.Symbol, exchange simtype.Exchange, exchangeTS simtype.Timestamp, t Trade) Event {
	return Event{
		Kind:              KindTrade,
		Symbol:            symbol,
		Exchange:          exchange,
		ExchangeTimestamp: exchangeTS,
		Trade:             t,
	}
}

// WithReceivedTimestamp returns a copy of the event stamped with the
// strategy-visible receive timestamp. Brokers call this when forwarding a
// market-data tick to the strategy (exchange_timestamp + wire_latency).
func (e Event) WithReceivedTimestamp(ts simtype.Timestamp) Event {
	e.ReceivedTimestamp = ts
	return e
}

// Provider is pulled lazily by the simulated environment. Implementations
// must return events in non-decreasing ExchangeTimestamp order; violating
// this is a programming error (see pkg/simerr.ErrMarketDataOutOfOrder).
type Provider interface {
	NextEvent() (Event, bool)
}
