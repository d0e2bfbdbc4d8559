// Package exampleactor implements a minimal quote-following strategy:
// on the first quote it sees for a symbol it posts a GTC limit buy at
// the ask, then cancels it the moment the exchange confirms it resting
// (NEW), and is ready to post again once that cancel is itself
// confirmed. It exists to exercise every eventloop.Actor/messagebus.Handler
// path end to end, the way the reference's SampleStrategy does for its
// own engine.
package exampleactor

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/abdoElHodaky/backsim/internal/actions"
	"github.com/abdoElHodaky/backsim/internal/messagebus"
	"github.com/abdoElHodaky/backsim/pkg/events"
	"github.com/abdoElHodaky/backsim/pkg/gateway"
	"github.com/abdoElHodaky/backsim/pkg/marketdata"
	"github.com/abdoElHodaky/backsim/pkg/simtype"
)

// Strategy is a single-symbol, single-exchange demo actor.
type Strategy struct {
	exchange simtype.Exchange
	logger   *zap.Logger

	hasOpenOrder bool
	orderSeq     uint64
	lastTS       simtype.Timestamp
}

// New builds a Strategy that trades on exchange.
func New(exchange simtype.Exchange, logger *zap.Logger) *Strategy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Strategy{exchange: exchange, logger: logger}
}

// OnEvent satisfies eventloop.Actor. A regressing event timestamp is a
// fatal invariant violation: the environment guarantees non-decreasing
// delivery, so seeing one here means that guarantee broke.
func (s *Strategy) OnEvent(event events.Event, actionsCtx *actions.Context) {
	if ts := event.Timestamp(); ts < s.lastTS {
		s.logger.Panic("event delivered out of order",
			zap.Uint64("last", uint64(s.lastTS)), zap.Uint64("got", uint64(ts)))
	} else {
		s.lastTS = ts
	}

	switch event.Kind {
	case events.KindNewQuote:
		s.onQuote(event.Quote, actionsCtx)
	case events.KindUDSOrderUpdate:
		s.onOrderUpdate(event.OrderUpdate, actionsCtx)
	}
}

func (s *Strategy) onQuote(quote marketdata.Event, actionsCtx *actions.Context) {
	if s.hasOpenOrder {
		return
	}

	price := quote.Quote.Ask
	s.orderSeq++
	req := gateway.NewOrderRequest{
		ClientOrderID: simtype.ClientOrderID(fmt.Sprint(s.orderSeq)),
		Exchange:      s.exchange,
		Symbol:        quote.Symbol,
		Type:          simtype.OrderTypeLimit,
		TimeInForce:   simtype.TimeInForceGTC,
		Side:          simtype.SideBuy,
		Quantity:      1.0,
		Price:         &price,
		CreationTS:    quote.ReceivedTimestamp,
	}

	s.logger.Debug("submitting new order", zap.Any("request", req))
	if err := actionsCtx.SendOrder(req); err != nil {
		s.logger.Panic("send order failed", zap.Error(err))
	}
	s.hasOpenOrder = true
}

func (s *Strategy) onOrderUpdate(update events.OrderUpdate, actionsCtx *actions.Context) {
	switch update.OrderStatus {
	case simtype.OrderStatusNew:
		req := gateway.CancelOrderRequest{
			ClientOrderID:   update.ClientOrderID,
			ExchangeOrderID: update.ExchangeOrderID,
			Exchange:        update.Exchange,
			Symbol:          update.Symbol,
			CreationTS:      update.ExchangeTS,
		}

		if err := actionsCtx.SendMessage(messagebus.SimpleMessage{
			TopicName: "UDS",
			Body:      []byte(fmt.Sprintf(`{"client_order_id":%q}`, update.ClientOrderID)),
		}); err != nil {
			s.logger.Warn("failed to publish UDS notification", zap.Error(err))
		}

		if err := actionsCtx.CancelOrder(req); err != nil {
			s.logger.Panic("cancel order failed", zap.Error(err))
		}
	case simtype.OrderStatusCanceled:
		s.hasOpenOrder = false
	}
}

// OnMessage satisfies messagebus.Handler: the demo strategy only logs
// sideband traffic.
func (s *Strategy) OnMessage(message messagebus.Message, _ *gateway.Router) {
	s.logger.Info("received sideband message", zap.String("topic", message.Topic()))
}

// Topics returns nil: the strategy is topic-agnostic.
func (s *Strategy) Topics() []messagebus.Topic { return nil }
