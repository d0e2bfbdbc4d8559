package gateway

import (
	"sync"

	"github.com/abdoElHodaky/backsim/pkg/simerr"
	"github.com/abdoElHodaky/backsim/pkg/simtype"
)

// Receiver is the consumer side of one exchange's inbound queue, held by
// that exchange's simulated broker. TryRecv never blocks.
type Receiver struct {
	q *unboundedQueue
}

// TryRecv pops the oldest pending request for this exchange, if any.
func (r Receiver) TryRecv() (ExchangeRequest, bool) {
	return r.q.tryPop()
}

// Router is a process-local mapping from Exchange to a send endpoint for
// ExchangeRequests. Construction takes the list of known exchanges and
// allocates one unbounded queue per exchange. Router is safe to share
// across goroutines: a send takes the router's read lock to look up the
// queue (which does not exclude other senders) and then that exchange's
// own queue mutex, so concurrent sends to different exchanges do not
// wait on each other's queue.
type Router struct {
	mu     sync.RWMutex
	queues map[simtype.Exchange]*unboundedQueue
}

// NewRouter allocates one inbound queue per known exchange.
func NewRouter(exchanges []simtype.Exchange) *Router {
	queues := make(map[simtype.Exchange]*unboundedQueue, len(exchanges))
	for _, ex := range exchanges {
		queues[ex] = &unboundedQueue{}
	}
	return &Router{queues: queues}
}

// Receivers returns the receive endpoint for every known exchange, handed
// to the brokers that own them (and to tests that want to intercept
// traffic instead of running a real broker).
func (r *Router) Receivers() map[simtype.Exchange]Receiver {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[simtype.Exchange]Receiver, len(r.queues))
	for ex, q := range r.queues {
		out[ex] = Receiver{q: q}
	}
	return out
}

// SendRequest routes a tagged ExchangeRequest by its destination exchange.
func (r *Router) SendRequest(req ExchangeRequest) error {
	return r.send(req.Exchange(), req)
}

// SendOrder routes a NewOrderRequest.
func (r *Router) SendOrder(req NewOrderRequest) error {
	return r.send(req.Exchange, NewOrderExchangeRequest(req))
}

// CancelOrder routes a CancelOrderRequest.
func (r *Router) CancelOrder(req CancelOrderRequest) error {
	return r.send(req.Exchange, CancelOrderExchangeRequest(req))
}

func (r *Router) send(exchange simtype.Exchange, req ExchangeRequest) error {
	r.mu.RLock()
	q, ok := r.queues[exchange]
	r.mu.RUnlock()
	if !ok {
		return simerr.ErrUnknownExchange
	}
	q.push(req)
	return nil
}
