package simenv

import (
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/abdoElHodaky/backsim/pkg/events"
	"github.com/abdoElHodaky/backsim/pkg/marketdata"
	"github.com/abdoElHodaky/backsim/pkg/simtype"
)

// sliceProvider is a test-only marketdata.Provider backed by a fixed,
// pre-sorted slice.
type sliceProvider struct {
	events []marketdata.Event
	idx    int
}

func (p *sliceProvider) NextEvent() (marketdata.Event, bool) {
	if p.idx >= len(p.events) {
		return marketdata.Event{}, false
	}
	ev := p.events[p.idx]
	p.idx++
	return ev, true
}

// stubBroker is a test double for Broker: it just forwards every
// market-data tick it receives as a quote/trade event stamped with its
// own fixed wire latency, and counts timestamp-only advances.
type stubBroker struct {
	exchange    simtype.Exchange
	wireLatency simtype.Timestamp
	tsAdvances  int
}

func (b *stubBroker) Exchange() simtype.Exchange        { return b.exchange }
func (b *stubBroker) WireLatency() simtype.Timestamp    { return b.wireLatency }
func (b *stubBroker) EstimateMarketDataTimestamp(md marketdata.Event) simtype.Timestamp {
	return md.ExchangeTimestamp + b.wireLatency
}
func (b *stubBroker) OnNewTimestamp(ts simtype.Timestamp) []events.Event {
	b.tsAdvances++
	return nil
}
func (b *stubBroker) OnNewMarketData(md marketdata.Event) []events.Event {
	return []events.Event{events.FromMarketData(md.WithReceivedTimestamp(b.EstimateMarketDataTimestamp(md)))}
}

type EnvironmentSuite struct {
	suite.Suite
}

func (s *EnvironmentSuite) TestSingleExchangeOrderPreserved() {
	provider := &sliceProvider{events: []marketdata.Event{
		marketdata.NewQuoteEvent("BTCUSDT", "A", 10, marketdata.Quote{Bid: 1, Ask: 2}),
		marketdata.NewQuoteEvent("BTCUSDT", "A", 20, marketdata.Quote{Bid: 1, Ask: 2}),
		marketdata.NewQuoteEvent("BTCUSDT", "A", 30, marketdata.Quote{Bid: 1, Ask: 2}),
	}}
	env := New(provider, 0, zap.NewNop())
	s.Require().NoError(env.AddBroker(&stubBroker{exchange: "A", wireLatency: 3}))

	var seen []simtype.Timestamp
	for {
		ev, ok := env.NextEvent()
		if !ok {
			break
		}
		seen = append(seen, ev.Timestamp())
	}

	s.Equal([]simtype.Timestamp{13, 23, 33}, seen)
}

// P1/S5: with two exchanges of differing wire latency, the environment
// must deliver events in non-decreasing strategy-visible timestamp order
// even when the higher-latency exchange's market data arrives "first" in
// exchange-timestamp terms.
func (s *EnvironmentSuite) TestTwoExchangeLatencyOrdering() {
	provider := &sliceProvider{events: []marketdata.Event{
		marketdata.NewQuoteEvent("BTCUSDT", "SLOW", 0, marketdata.Quote{Bid: 1, Ask: 2}),
		marketdata.NewQuoteEvent("BTCUSDT", "FAST", 5, marketdata.Quote{Bid: 1, Ask: 2}),
	}}
	env := New(provider, 0, zap.NewNop())
	s.Require().NoError(env.AddBroker(&stubBroker{exchange: "SLOW", wireLatency: 10}))
	s.Require().NoError(env.AddBroker(&stubBroker{exchange: "FAST", wireLatency: 1}))

	var seen []simtype.Timestamp
	for {
		ev, ok := env.NextEvent()
		if !ok {
			break
		}
		seen = append(seen, ev.Timestamp())
	}

	s.Require().Len(seen, 2)
	// FAST's tick (exchange_ts 5, received ts 6) is delivered before
	// SLOW's (exchange_ts 0, received ts 10), although SLOW's tick has the
	// earlier exchange timestamp: delivery follows received timestamps.
	s.True(seen[0] <= seen[1])
}

func (s *EnvironmentSuite) TestDuplicateBrokerRejected() {
	env := New(&sliceProvider{}, 0, zap.NewNop())
	s.Require().NoError(env.AddBroker(&stubBroker{exchange: "A", wireLatency: 1}))
	s.Error(env.AddBroker(&stubBroker{exchange: "A", wireLatency: 2}))
}

func (s *EnvironmentSuite) TestEmptyProviderYieldsNoEvents() {
	env := New(&sliceProvider{}, 0, zap.NewNop())
	s.Require().NoError(env.AddBroker(&stubBroker{exchange: "A", wireLatency: 1}))
	_, ok := env.NextEvent()
	s.False(ok)
}

func TestEnvironmentSuite(t *testing.T) {
	suite.Run(t, new(EnvironmentSuite))
}
