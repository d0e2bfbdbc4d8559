// Package mdfile implements a marketdata.Provider backed by a JSON
// fixture file: an array of quote records, loaded once and replayed in
// file order. It is the JSON counterpart of the reference's MessagePack
// FileMarketDataProvider.
package mdfile

import (
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/abdoElHodaky/backsim/pkg/marketdata"
	"github.com/abdoElHodaky/backsim/pkg/simtype"
)

// QuoteDef is the on-disk shape of one quote tick. Field names are
// short to keep large fixtures compact, mirroring the reference
// fixture format.
type QuoteDef struct {
	Symbol            simtype.Symbol `json:"s"`
	Exchange          string         `json:"exchange,omitempty"`
	Bid               float64        `json:"b"`
	Ask               float64        `json:"a"`
	BidSize           *float64       `json:"bs,omitempty"`
	AskSize           *float64       `json:"as,omitempty"`
	ExchangeTimestamp float64        `json:"e"`
	ReceivedTimestamp float64        `json:"r"`
}

// toEvent converts one fixture record to a marketdata.Event, stamping
// it with exchange (the caller's configured exchange overrides any
// value present in the fixture, matching the reference, which always
// forces quotes onto its single simulated exchange). The fixture's
// timestamp unit is whatever the caller chose when the fixture was
// generated; this provider passes it through unmodified rather than
// assuming a unit to scale from.
func (d QuoteDef) toEvent(exchange simtype.Exchange) marketdata.Event {
	return marketdata.NewQuoteEvent(
		d.Symbol,
		exchange,
		simtype.Timestamp(d.ExchangeTimestamp),
		marketdata.Quote{Bid: d.Bid, Ask: d.Ask, BidSize: d.BidSize, AskSize: d.AskSize},
	)
}

// Provider replays a JSON fixture file as a marketdata.Provider.
type Provider struct {
	exchange simtype.Exchange
	logger   *zap.Logger

	events []marketdata.Event
	idx    int
	lastTS simtype.Timestamp
}

// New loads path (a JSON array of QuoteDef) entirely into memory and
// returns a Provider ready to replay it on exchange.
func New(path string, exchange simtype.Exchange, logger *zap.Logger) (*Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read market data file %s: %w", path, err)
	}

	var defs []QuoteDef
	if err := json.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("decode market data file %s: %w", path, err)
	}

	events := make([]marketdata.Event, len(defs))
	for i, def := range defs {
		events[i] = def.toEvent(exchange)
	}

	logger.Info("loaded market data fixture", zap.String("path", path), zap.Int("events", len(events)))
	return &Provider{exchange: exchange, logger: logger, events: events}, nil
}

// NextEvent satisfies marketdata.Provider. A fixture whose timestamps
// regress is a fatal configuration error: it violates the contract
// every downstream component (the environment's read-ahead window in
// particular) depends on.
func (p *Provider) NextEvent() (marketdata.Event, bool) {
	if p.idx >= len(p.events) {
		return marketdata.Event{}, false
	}
	ev := p.events[p.idx]
	p.idx++

	if ev.ExchangeTimestamp < p.lastTS {
		p.logger.Panic("market data fixture out of order",
			zap.Uint64("previous", uint64(p.lastTS)),
			zap.Uint64("got", uint64(ev.ExchangeTimestamp)))
	}
	p.lastTS = ev.ExchangeTimestamp

	return ev, true
}
