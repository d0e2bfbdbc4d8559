// Package simbroker implements the per-exchange simulated broker: a
// state machine that drains exchange requests from its inbound queue,
// applies wire/internal latency, ingests market data, matches resting
// orders against quotes and trades, and emits acknowledgments,
// rejections and order updates at the correct simulated timestamps.
package simbroker

import (
	"sort"
	"strconv"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/abdoElHodaky/backsim/pkg/events"
	"github.com/abdoElHodaky/backsim/pkg/gateway"
	"github.com/abdoElHodaky/backsim/pkg/marketdata"
	"github.com/abdoElHodaky/backsim/pkg/simerr"
	"github.com/abdoElHodaky/backsim/pkg/simtype"
)

// pendingRequest is an ExchangeRequest wrapped with the internal
// monotonic id and wire-latency ack timestamp the broker assigned it on
// intake.
type pendingRequest struct {
	ackTimestamp simtype.Timestamp
	requestID    uint64
	request      gateway.ExchangeRequest
}

// Broker is the simulated exchange. One Broker owns exactly one
// Exchange's inbound request queue and is the sole authority for the
// ExchangeTimestamp and Timestamp fields on every event it emits.
type Broker struct {
	exchange simtype.Exchange
	config   Config
	logger   *zap.Logger
	receiver gateway.Receiver

	lastExchangeOrderID uint64
	lastRequestID       uint64
	lastTS              simtype.Timestamp

	openOrders      map[uint64]*Order
	doneOrders      *cache.Cache
	clientOrderIdx  *cache.Cache
	pendingRequests map[uint64]pendingRequest

	generatedEvents []events.Event
}

// New constructs a simulated broker for exchange, reading requests from
// receiver. The done-orders archive and the client-order-id duplicate
// index are backed by a no-expiration go-cache.Cache rather than a bare
// map: both are pure lookups that never need ordered iteration, and the
// cache gives free thread-safety and introspection (ItemCount) should a
// caller want to dump broker state for diagnostics.
func New(exchange simtype.Exchange, receiver gateway.Receiver, config Config, logger *zap.Logger) *Broker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broker{
		exchange:        exchange,
		config:          config,
		logger:          logger,
		receiver:        receiver,
		openOrders:      make(map[uint64]*Order),
		doneOrders:      cache.New(cache.NoExpiration, cache.NoExpiration),
		clientOrderIdx:  cache.New(cache.NoExpiration, cache.NoExpiration),
		pendingRequests: make(map[uint64]pendingRequest),
	}
}

// Exchange returns the exchange this broker models.
func (b *Broker) Exchange() simtype.Exchange { return b.exchange }

// WireLatency returns the configured symmetric transport delay.
func (b *Broker) WireLatency() simtype.Timestamp { return b.config.WireLatency }

// EstimateMarketDataTimestamp returns the strategy-visible receive
// timestamp this broker would assign to md were it fed to it now.
func (b *Broker) EstimateMarketDataTimestamp(md marketdata.Event) simtype.Timestamp {
	return md.ExchangeTimestamp + b.config.WireLatency
}

// OnNewTimestamp advances simulated time without new market data for this
// exchange (used when another exchange's market data ticks forward and
// this broker still needs a chance to execute any requests whose ack
// timestamp has now elapsed). It returns every event generated as a
// result, draining the broker's buffer completely.
func (b *Broker) OnNewTimestamp(ts simtype.Timestamp) []events.Event {
	b.lastTS = ts
	b.processRequestsOnNewTS(ts)
	return b.drainGeneratedEvents()
}

// OnNewMarketData ingests a market-data event addressed to this exchange.
// It first forwards a strategy-visible copy of the event, then executes
// any eligible pending requests, then attempts to match open orders
// against the tick. It returns every event generated as a result.
func (b *Broker) OnNewMarketData(md marketdata.Event) []events.Event {
	mdTS := md.ExchangeTimestamp
	b.lastTS = mdTS

	forwarded := md.WithReceivedTimestamp(b.EstimateMarketDataTimestamp(md))
	b.addGeneratedEvent(events.FromMarketData(forwarded))

	b.processRequestsOnNewTS(mdTS)
	b.updateOrdersOnMD(md)
	return b.drainGeneratedEvents()
}

func (b *Broker) nextPublicEventID() simtype.EventID {
	return simtype.NewEventID()
}

func (b *Broker) addGeneratedEvent(e events.Event) {
	b.generatedEvents = append(b.generatedEvents, e)
}

// drainGeneratedEvents removes and returns every buffered event. Per the
// reference's drain-all convention, a broker call always empties its
// buffer completely; ordering across brokers is the environment's job.
func (b *Broker) drainGeneratedEvents() []events.Event {
	out := b.generatedEvents
	b.generatedEvents = nil
	return out
}

func (b *Broker) processRequestsOnNewTS(ts simtype.Timestamp) {
	for {
		req, ok := b.receiver.TryRecv()
		if !ok {
			break
		}
		b.lastRequestID++
		b.pendingRequests[b.lastRequestID] = pendingRequest{
			ackTimestamp: req.CreationTS() + b.config.WireLatency,
			requestID:    b.lastRequestID,
			request:      req,
		}
	}
	b.executeRequestsAfterTS(ts)
}

// executeRequestsAfterTS scans pending requests and executes every
// request whose ack timestamp has elapsed, tie-breaking by internal
// request id (stable insertion order) for deterministic replay.
func (b *Broker) executeRequestsAfterTS(ts simtype.Timestamp) {
	if len(b.pendingRequests) == 0 {
		return
	}

	ids := make([]uint64, 0, len(b.pendingRequests))
	for id := range b.pendingRequests {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		wrapped := b.pendingRequests[id]
		if wrapped.ackTimestamp > ts {
			continue
		}
		delete(b.pendingRequests, id)

		switch wrapped.request.Kind {
		case gateway.KindNewOrder:
			b.onNewOrderRequest(wrapped.request.NewOrder, wrapped.ackTimestamp)
		case gateway.KindCancelOrder:
			b.onCancelOrderRequest(wrapped.request.CancelOrder, wrapped.ackTimestamp)
		}
	}
}

func (b *Broker) onNewOrderRequest(req gateway.NewOrderRequest, ts simtype.Timestamp) {
	if _, found := b.clientOrderIdx.Get(string(req.ClientOrderID)); found {
		b.addGeneratedEvent(events.NewOrderRejectedEvent(events.NewOrderRejected{
			EventID:       b.nextPublicEventID(),
			RequestID:     req.RequestID,
			ExchangeTS:    ts + b.config.InternalLatency,
			Timestamp:     ts + b.config.InternalLatency + b.config.WireLatency,
			ClientOrderID: req.ClientOrderID,
			Reason:        "duplicate client order id",
			Exchange:      req.Exchange,
			Symbol:        req.Symbol,
		}))
		return
	}

	b.lastExchangeOrderID++
	exchangeOrderID := b.lastExchangeOrderID
	exchangeOrderIDStr := simtype.ExchangeOrderID(strconv.FormatUint(exchangeOrderID, 10))
	exchangeTS := ts + b.config.InternalLatency

	b.addGeneratedEvent(events.NewOrderAcceptedEvent(events.NewOrderAccepted{
		EventID:         b.nextPublicEventID(),
		RequestID:       req.RequestID,
		ExchangeTS:      exchangeTS,
		Timestamp:       exchangeTS + b.config.WireLatency,
		ClientOrderID:   req.ClientOrderID,
		ExchangeOrderID: exchangeOrderIDStr,
		Exchange:        req.Exchange,
		Symbol:          req.Symbol,
	}))

	b.addGeneratedEvent(events.OrderUpdateEvent(events.OrderUpdate{
		EventID:         b.nextPublicEventID(),
		Exchange:        req.Exchange,
		ExchangeTS:      exchangeTS,
		Timestamp:       exchangeTS + b.config.WireLatency,
		Symbol:          req.Symbol,
		Side:            req.Side,
		ClientOrderID:   req.ClientOrderID,
		ExchangeOrderID: exchangeOrderIDStr,
		OrderType:       req.Type,
		TimeInForce:     req.TimeInForce,
		OriginalQty:     req.Quantity,
		OriginalPrice:   req.Price,
		ExecutionType:   simtype.ExecutionTypeNew,
		OrderStatus:     simtype.OrderStatusNew,
	}))

	order := newOrderFromRequest(req, exchangeTS)
	if err := order.setConfirmedByExchange(exchangeOrderIDStr, exchangeTS); err != nil {
		b.logger.Panic("failed to confirm order", zap.Error(err), zap.String("client_order_id", string(req.ClientOrderID)))
	}

	b.openOrders[exchangeOrderID] = order
	b.clientOrderIdx.Set(string(req.ClientOrderID), exchangeOrderID, cache.NoExpiration)
}

func (b *Broker) onCancelOrderRequest(req gateway.CancelOrderRequest, ts simtype.Timestamp) {
	exchangeOrderID, err := strconv.ParseUint(string(req.ExchangeOrderID), 10, 64)
	if err != nil {
		b.addGeneratedEvent(events.CancelOrderRejectedEvent(events.CancelOrderRejected{
			EventID:         b.nextPublicEventID(),
			RequestID:       req.RequestID,
			Timestamp:       ts + b.config.InternalLatency + b.config.WireLatency,
			ExchangeTS:      ts + b.config.InternalLatency,
			ClientOrderID:   req.ClientOrderID,
			ExchangeOrderID: req.ExchangeOrderID,
			Reason:          "invalid exchange order id",
			Exchange:        req.Exchange,
			Symbol:          req.Symbol,
		}))
		return
	}

	order, found := b.openOrders[exchangeOrderID]
	if !found {
		b.addGeneratedEvent(events.CancelOrderRejectedEvent(events.CancelOrderRejected{
			EventID:         b.nextPublicEventID(),
			RequestID:       req.RequestID,
			Timestamp:       ts + b.config.InternalLatency + b.config.WireLatency,
			ExchangeTS:      ts + b.config.InternalLatency,
			ClientOrderID:   req.ClientOrderID,
			ExchangeOrderID: req.ExchangeOrderID,
			Reason:          "order not found",
			Exchange:        req.Exchange,
			Symbol:          req.Symbol,
		}))
		return
	}
	delete(b.openOrders, exchangeOrderID)

	if err := order.cancel(ts); err != nil {
		b.logger.Panic("failed to cancel order", zap.Error(err), zap.String("exchange_order_id", string(req.ExchangeOrderID)))
	}

	b.addGeneratedEvent(events.CancelOrderAcceptedEvent(events.CancelOrderAccepted{
		EventID:         b.nextPublicEventID(),
		RequestID:       req.RequestID,
		Timestamp:       ts + b.config.InternalLatency + b.config.WireLatency,
		ExchangeTS:      ts + b.config.InternalLatency,
		ClientOrderID:   order.ClientOrderID,
		ExchangeOrderID: req.ExchangeOrderID,
		Exchange:        req.Exchange,
		Symbol:          req.Symbol,
	}))

	b.addGeneratedEvent(events.OrderUpdateEvent(events.OrderUpdate{
		EventID:              b.nextPublicEventID(),
		Exchange:             req.Exchange,
		Timestamp:            ts + b.config.InternalLatency + b.config.WireLatency,
		ExchangeTS:           ts + b.config.InternalLatency,
		Symbol:               order.Symbol,
		Side:                 order.Side,
		ClientOrderID:        order.ClientOrderID,
		ExchangeOrderID:      req.ExchangeOrderID,
		OrderType:            order.Type,
		TimeInForce:          order.TimeInForce,
		OriginalQty:          order.Quantity,
		OriginalPrice:        order.Price,
		AveragePrice:         order.AvgFillPrice,
		StopPrice:            order.TriggerPrice,
		ExecutionType:        simtype.ExecutionTypeCanceled,
		OrderStatus:          simtype.OrderStatusCanceled,
		AccumulatedFilledQty: order.FilledQuantity,
	}))

	b.doneOrders.Set(strconv.FormatUint(exchangeOrderID, 10), order, cache.NoExpiration)
}

// updateOrdersOnMD matches open orders for md's symbol against the tick.
// Only LIMIT orders are matched; the reference leaves STOP/MARKET
// unimplemented (see SPEC_FULL.md Open Question decisions).
func (b *Broker) updateOrdersOnMD(md marketdata.Event) {
	if len(b.openOrders) == 0 {
		return
	}

	ids := make([]uint64, 0, len(b.openOrders))
	for id, order := range b.openOrders {
		if order.Symbol == md.Symbol {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		order := b.openOrders[id]
		switch order.Type {
		case simtype.OrderTypeLimit:
			b.executeLimitOrder(md, id)
		default:
			b.logger.Panic("unsupported order type reached the matcher",
				zap.Error(simerr.ErrUnsupportedOrderType),
				zap.String("order_type", string(order.Type)),
				zap.String("exchange_order_id", string(order.ExchangeOrderID)))
		}
	}
}

func (b *Broker) executeLimitOrder(md marketdata.Event, internalOrderID uint64) {
	order := b.openOrders[internalOrderID]
	if order.CreateTS > md.ExchangeTimestamp {
		// The order did not yet exist at the venue when this tick was
		// generated: prevents look-ahead fills.
		return
	}

	orderPrice := *order.Price
	filled := fillPredicate(order.Side, md, orderPrice, b.config.StrictExecution)
	if !filled {
		return
	}

	delete(b.openOrders, internalOrderID)
	order.Status = simtype.OrderStatusFilled
	qty := order.Quantity
	order.FilledQuantity = &qty
	order.AvgFillPrice = &orderPrice
	order.UpdateTS = md.ExchangeTimestamp

	exchangeTS := order.UpdateTS + b.config.InternalLatency
	lastTradeTime := order.UpdateTS

	b.addGeneratedEvent(events.OrderUpdateEvent(events.OrderUpdate{
		EventID:              b.nextPublicEventID(),
		ExchangeTS:           exchangeTS,
		Timestamp:            exchangeTS + b.config.WireLatency,
		Symbol:               order.Symbol,
		Exchange:             order.Exchange,
		Side:                 order.Side,
		ClientOrderID:        order.ClientOrderID,
		ExchangeOrderID:      order.ExchangeOrderID,
		OrderType:            order.Type,
		TimeInForce:          order.TimeInForce,
		OriginalQty:          order.Quantity,
		OriginalPrice:        &orderPrice,
		AveragePrice:         &orderPrice,
		ExecutionType:        simtype.ExecutionTypeTrade,
		OrderStatus:          simtype.OrderStatusFilled,
		LastFilledQty:        &qty,
		AccumulatedFilledQty: &qty,
		LastFilledPrice:      &orderPrice,
		LastTradeTime:        &lastTradeTime,
	}))

	b.doneOrders.Set(strconv.FormatUint(internalOrderID, 10), order, cache.NoExpiration)
}

// fillPredicate implements the §4.1 matching rules for a LIMIT order.
func fillPredicate(side simtype.Side, md marketdata.Event, orderPrice float64, strict bool) bool {
	switch side {
	case simtype.SideBuy:
		if md.Kind == marketdata.KindTrade {
			if strict {
				return md.Trade.LastPrice < orderPrice
			}
			return md.Trade.LastPrice <= orderPrice
		}
		return md.Quote.Ask <= orderPrice
	case simtype.SideSell:
		if md.Kind == marketdata.KindTrade {
			if strict {
				return md.Trade.LastPrice > orderPrice
			}
			return md.Trade.LastPrice >= orderPrice
		}
		return md.Quote.Bid >= orderPrice
	}
	return false
}
