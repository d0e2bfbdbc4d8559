// Package actions provides the single surface actors use to affect the
// outside world: placing and canceling orders through the gateway
// router, and publishing sideband messages onto the message bus. It is
// the Go counterpart of the reference's ActionsContext, generalized
// with a circuit breaker around the message bus so a wedged or
// unreachable bus degrades gracefully instead of stalling the caller.
package actions

import (
	"time"

	"github.com/sony/gobreaker"

	"github.com/abdoElHodaky/backsim/internal/messagebus"
	"github.com/abdoElHodaky/backsim/pkg/gateway"
	"github.com/abdoElHodaky/backsim/pkg/simerr"
)

// Context is handed to every actor's OnEvent call; message handlers'
// OnMessage receives the gateway.Router, not a Context. It is safe
// to hold across calls and to clone (gateway.Router and the breaker are
// both already safe for concurrent use).
type Context struct {
	router  *gateway.Router
	sender  messagebus.Sender
	breaker *gobreaker.CircuitBreaker
}

// New builds a Context around router. sender may be nil, in which case
// SendMessage always fails with ErrActionNotSupported — a valid
// configuration for a run with no message bus.
func New(router *gateway.Router, sender messagebus.Sender) *Context {
	var breaker *gobreaker.CircuitBreaker
	if sender != nil {
		breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "message-bus-sender",
			MaxRequests: 1,
			Interval:    0,
			Timeout:     10 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		})
	}
	return &Context{router: router, sender: sender, breaker: breaker}
}

// SendExchangeRequest routes a tagged ExchangeRequest to its exchange.
func (c *Context) SendExchangeRequest(req gateway.ExchangeRequest) error {
	return c.router.SendRequest(req)
}

// SendOrder routes a NewOrderRequest to its exchange.
func (c *Context) SendOrder(req gateway.NewOrderRequest) error {
	return c.router.SendOrder(req)
}

// CancelOrder routes a CancelOrderRequest to its exchange.
func (c *Context) CancelOrder(req gateway.CancelOrderRequest) error {
	return c.router.CancelOrder(req)
}

// SendMessage publishes message on the configured bus, through a
// circuit breaker so a run with a wedged bus fails fast instead of
// blocking every subsequent call once the bus stops draining.
func (c *Context) SendMessage(message messagebus.Message) error {
	if c.sender == nil {
		return simerr.ErrActionNotSupported
	}
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.sender.SendMessage(message)
	})
	return err
}
