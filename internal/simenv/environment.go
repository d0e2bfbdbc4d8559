// Package simenv implements the simulated trading environment: the
// read-ahead market-data scheduler that feeds each registered broker in
// an order that guarantees every event leaves the environment in
// non-decreasing strategy-visible timestamp order, across however many
// exchanges (and however much per-exchange wire latency) are involved.
package simenv

import (
	"sort"

	"go.uber.org/zap"

	"github.com/abdoElHodaky/backsim/pkg/events"
	"github.com/abdoElHodaky/backsim/pkg/marketdata"
	"github.com/abdoElHodaky/backsim/pkg/simerr"
	"github.com/abdoElHodaky/backsim/pkg/simtype"
)

// Broker is the subset of internal/simbroker.Broker the environment
// depends on. Defined here, rather than imported as a concrete type, so
// the environment can be driven by a test double without constructing a
// real broker's queues and latency model.
type Broker interface {
	Exchange() simtype.Exchange
	WireLatency() simtype.Timestamp
	OnNewTimestamp(ts simtype.Timestamp) []events.Event
	OnNewMarketData(md marketdata.Event) []events.Event
	EstimateMarketDataTimestamp(md marketdata.Event) simtype.Timestamp
}

// Environment is the deterministic event source handed to the engine's
// event loop. It owns exactly one market-data provider and any number of
// brokers, one per exchange.
type Environment struct {
	logger         *zap.Logger
	mdProvider     marketdata.Provider
	brokers        map[simtype.Exchange]Broker
	brokerOrder    []simtype.Exchange // insertion order, for deterministic feed iteration
	defaultLatency simtype.Timestamp
	maxWireLatency simtype.Timestamp

	pendingMD   *marketdata.Event
	mdBuffer    []marketdata.Event
	noMoreMD    bool
	eventBuffer []events.Event
}

// New constructs an environment around mdProvider. defaultLatency is the
// wire latency assumed for market data whose exchange has no registered
// broker (the environment logs a warning and keeps running rather than
// failing the run over it).
func New(mdProvider marketdata.Provider, defaultLatency simtype.Timestamp, logger *zap.Logger) *Environment {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Environment{
		logger:         logger,
		mdProvider:     mdProvider,
		brokers:        make(map[simtype.Exchange]Broker),
		defaultLatency: defaultLatency,
	}
}

// AddBroker registers broker for its exchange. Registering a second
// broker for the same exchange is a configuration error.
func (e *Environment) AddBroker(broker Broker) error {
	exchange := broker.Exchange()
	if _, exists := e.brokers[exchange]; exists {
		return simerr.ErrBrokerAlreadyExists
	}
	e.brokers[exchange] = broker
	e.brokerOrder = append(e.brokerOrder, exchange)

	if wl := broker.WireLatency(); wl > e.maxWireLatency {
		e.maxWireLatency = wl
	}
	return nil
}

func (e *Environment) expectedReceivedTS(md marketdata.Event) simtype.Timestamp {
	if broker, ok := e.brokers[md.Exchange]; ok {
		return broker.EstimateMarketDataTimestamp(md)
	}
	e.logger.Warn("no broker registered for market data exchange",
		zap.String("exchange", string(md.Exchange)))
	return md.ExchangeTimestamp + e.defaultLatency
}

// updatePendingMD ensures pendingMD holds the next market-data event to
// feed to the brokers, read ahead across a max_md_wire_latency window so
// that an event from a low-latency exchange with a later exchange
// timestamp is fed ahead of an earlier one from a high-latency exchange
// whenever its expected receive timestamp is smaller.
func (e *Environment) updatePendingMD() {
	if e.pendingMD != nil {
		return
	}

	if len(e.mdBuffer) == 0 {
		if e.noMoreMD {
			return
		}
		ev, ok := e.mdProvider.NextEvent()
		if !ok {
			e.noMoreMD = true
			return
		}
		e.mdBuffer = append(e.mdBuffer, ev)
	}

	maxExchangeTSToRead := e.mdBuffer[0].ExchangeTimestamp + e.maxWireLatency
	for {
		ev, ok := e.mdProvider.NextEvent()
		if !ok {
			break
		}
		e.mdBuffer = append(e.mdBuffer, ev)
		if ev.ExchangeTimestamp > maxExchangeTSToRead {
			break
		}
	}

	earliestIdx := 0
	earliestReceiveTS := e.expectedReceivedTS(e.mdBuffer[0])
	for i, ev := range e.mdBuffer {
		if expected := e.expectedReceivedTS(ev); expected < earliestReceiveTS {
			earliestReceiveTS = expected
			earliestIdx = i
		}
	}

	pending := e.mdBuffer[earliestIdx]
	e.mdBuffer = append(e.mdBuffer[:earliestIdx], e.mdBuffer[earliestIdx+1:]...)
	e.pendingMD = &pending
}

// feedMarketDataToBrokers delivers pendingMD to the broker it addresses
// and a mere timestamp advance to every other broker, so every broker's
// clock stays current even between its own market-data ticks.
func (e *Environment) feedMarketDataToBrokers(pending marketdata.Event) {
	for _, exchange := range e.brokerOrder {
		broker := e.brokers[exchange]
		var generated []events.Event
		if exchange == pending.Exchange {
			generated = broker.OnNewMarketData(pending)
		} else {
			generated = broker.OnNewTimestamp(pending.ExchangeTimestamp)
		}
		e.eventBuffer = append(e.eventBuffer, generated...)
	}

	sort.SliceStable(e.eventBuffer, func(i, j int) bool {
		return e.eventBuffer[i].Timestamp() < e.eventBuffer[j].Timestamp()
	})
}

// NextEvent returns the next event in strategy-visible timestamp order,
// or ok=false once every broker event has drained and the market-data
// provider is exhausted. It satisfies internal/eventloop's EventProvider
// contract.
func (e *Environment) NextEvent() (events.Event, bool) {
	for {
		e.updatePendingMD()

		if len(e.eventBuffer) == 0 {
			if e.noMoreMD {
				return events.Event{}, false
			}
			pending := *e.pendingMD
			e.pendingMD = nil
			e.feedMarketDataToBrokers(pending)
			continue
		}

		if e.noMoreMD {
			ev := e.eventBuffer[0]
			e.eventBuffer = e.eventBuffer[1:]
			return ev, true
		}

		expectedMDTS := e.expectedReceivedTS(*e.pendingMD)
		if e.eventBuffer[0].Timestamp() > expectedMDTS {
			pending := *e.pendingMD
			e.pendingMD = nil
			e.feedMarketDataToBrokers(pending)
			continue
		}

		ev := e.eventBuffer[0]
		e.eventBuffer = e.eventBuffer[1:]
		return ev, true
	}
}
