package exampleactor

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/abdoElHodaky/backsim/internal/actions"
	"github.com/abdoElHodaky/backsim/pkg/events"
	"github.com/abdoElHodaky/backsim/pkg/gateway"
	"github.com/abdoElHodaky/backsim/pkg/marketdata"
	"github.com/abdoElHodaky/backsim/pkg/simtype"
)

const testExchange = simtype.Exchange("BINANCE")

func newTestActionsCtx() *actions.Context {
	router := gateway.NewRouter([]simtype.Exchange{testExchange})
	return actions.New(router, nil)
}

func TestStrategySendsOrderOnFirstQuoteOnly(t *testing.T) {
	router := gateway.NewRouter([]simtype.Exchange{testExchange})
	ctx := actions.New(router, nil)
	s := New(testExchange, zap.NewNop())

	quote := events.FromMarketData(marketdata.NewQuoteEvent("BTCUSDT", testExchange, 1, marketdata.Quote{Bid: 99, Ask: 100}).WithReceivedTimestamp(1))
	s.OnEvent(quote, ctx)
	s.OnEvent(quote, ctx)

	recv := router.Receivers()[testExchange]
	_, ok := recv.TryRecv()
	require.True(t, ok, "expected exactly one order request")
	_, ok = recv.TryRecv()
	require.False(t, ok, "second quote should not have submitted another order")
}

func TestStrategyCancelsOnNewOrderConfirmation(t *testing.T) {
	router := gateway.NewRouter([]simtype.Exchange{testExchange})
	ctx := actions.New(router, nil)
	s := New(testExchange, zap.NewNop())

	quote := events.FromMarketData(marketdata.NewQuoteEvent("BTCUSDT", testExchange, 1, marketdata.Quote{Bid: 99, Ask: 100}).WithReceivedTimestamp(1))
	s.OnEvent(quote, ctx)

	recv := router.Receivers()[testExchange]
	_, ok := recv.TryRecv()
	require.True(t, ok, "expected new order request to be routed")

	update := events.OrderUpdateEvent(events.OrderUpdate{
		Exchange:        testExchange,
		Symbol:          "BTCUSDT",
		ClientOrderID:   "1",
		ExchangeOrderID: "1",
		OrderStatus:     simtype.OrderStatusNew,
		Timestamp:       2,
		ExchangeTS:      2,
	})
	s.OnEvent(update, ctx)

	_, ok = recv.TryRecv()
	require.True(t, ok, "expected cancel order request to be routed")
}

func TestStrategyReopensAfterCancelConfirmation(t *testing.T) {
	router := gateway.NewRouter([]simtype.Exchange{testExchange})
	ctx := actions.New(router, nil)
	s := New(testExchange, zap.NewNop())
	s.hasOpenOrder = true

	s.OnEvent(events.OrderUpdateEvent(events.OrderUpdate{
		Exchange:     testExchange,
		OrderStatus:  simtype.OrderStatusCanceled,
		Timestamp:    3,
	}), ctx)

	require.False(t, s.hasOpenOrder)
}

func TestStrategyPanicsOnTimestampRegression(t *testing.T) {
	ctx := newTestActionsCtx()
	s := New(testExchange, zap.NewNop())

	later := events.OrderUpdateEvent(events.OrderUpdate{Timestamp: 10})
	earlier := events.OrderUpdateEvent(events.OrderUpdate{Timestamp: 5})

	s.OnEvent(later, ctx)
	require.Panics(t, func() { s.OnEvent(earlier, ctx) })
}
