package simbroker

import (
	"github.com/abdoElHodaky/backsim/pkg/gateway"
	"github.com/abdoElHodaky/backsim/pkg/simerr"
	"github.com/abdoElHodaky/backsim/pkg/simtype"
)

// Order is the broker-internal representation of a resting or completed
// order. A newly constructed Order has Status NEW and no
// ExchangeOrderID; setConfirmedByExchange is callable only while Status
// is NEW; cancel is callable only when Status is not FILLED and
// ExchangeOrderID is set; UpdateTS is monotonically non-decreasing.
type Order struct {
	CreateTS        simtype.Timestamp
	UpdateTS        simtype.Timestamp
	ExchangeOrderID simtype.ExchangeOrderID
	ClientOrderID   simtype.ClientOrderID
	Exchange        simtype.Exchange
	Type            simtype.OrderType
	TimeInForce     simtype.TimeInForce
	Price           *float64
	TriggerPrice    *float64
	Symbol          simtype.Symbol
	Side            simtype.Side
	Quantity        float64
	FilledQuantity  *float64
	AvgFillPrice    *float64
	Status          simtype.OrderStatus
}

// newOrderFromRequest derives price/trigger_price from the request's
// order type (LIMIT: price only; MARKET: neither; STOP: trigger_price
// only) and constructs a fresh, unconfirmed Order.
func newOrderFromRequest(req gateway.NewOrderRequest, ts simtype.Timestamp) *Order {
	var price, trigger *float64
	switch req.Type {
	case simtype.OrderTypeLimit:
		price = req.Price
	case simtype.OrderTypeMarket:
		// neither price nor trigger price
	case simtype.OrderTypeStop:
		trigger = req.TriggerPrice
	}

	return &Order{
		CreateTS:      ts,
		UpdateTS:      ts,
		ClientOrderID: req.ClientOrderID,
		Exchange:      req.Exchange,
		Type:          req.Type,
		TimeInForce:   req.TimeInForce,
		Price:         price,
		TriggerPrice:  trigger,
		Symbol:        req.Symbol,
		Side:          req.Side,
		Quantity:      req.Quantity,
		Status:        simtype.OrderStatusNew,
	}
}

// setConfirmedByExchange stamps the order with its venue-assigned id.
// Callable only while Status is NEW.
func (o *Order) setConfirmedByExchange(exchangeOrderID simtype.ExchangeOrderID, confirmationTS simtype.Timestamp) error {
	if o.Status != simtype.OrderStatusNew {
		return simerr.ErrInvalidOrderState
	}
	o.UpdateTS = maxTS(o.UpdateTS, confirmationTS)
	o.ExchangeOrderID = exchangeOrderID
	return nil
}

// cancel marks the order canceled. Callable only when Status is not
// FILLED and the order has already been confirmed by the exchange.
func (o *Order) cancel(cancelTS simtype.Timestamp) error {
	if o.Status == simtype.OrderStatusFilled || o.ExchangeOrderID == "" {
		return simerr.ErrInvalidOrderState
	}
	o.UpdateTS = maxTS(o.UpdateTS, cancelTS)
	o.Status = simtype.OrderStatusCanceled
	return nil
}

func maxTS(a, b simtype.Timestamp) simtype.Timestamp {
	if a > b {
		return a
	}
	return b
}
