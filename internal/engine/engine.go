// Package engine assembles the event loop, the simulated environment
// (or any other EventProvider), the gateway router, the optional
// message bus, and the actor set into one runnable unit, and hosts their
// two worker goroutines on a small ants pool rather than bare `go`
// statements, the way the rest of this codebase hosts background work.
package engine

import (
	"sync"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/abdoElHodaky/backsim/internal/actions"
	"github.com/abdoElHodaky/backsim/internal/eventloop"
	"github.com/abdoElHodaky/backsim/internal/messagebus"
	"github.com/abdoElHodaky/backsim/internal/simbroker"
	"github.com/abdoElHodaky/backsim/internal/simenv"
	"github.com/abdoElHodaky/backsim/pkg/gateway"
	"github.com/abdoElHodaky/backsim/pkg/marketdata"
	"github.com/abdoElHodaky/backsim/pkg/simerr"
	"github.com/abdoElHodaky/backsim/pkg/simtype"
)

// poolCapacity is fixed: the engine ever hosts exactly two long-lived
// workers, the event loop and (optionally) the message bus.
const poolCapacity = 2

// ExecutionInfo is returned once every worker has been submitted to the
// pool. Wait blocks until both have returned.
type ExecutionInfo struct {
	wg *sync.WaitGroup
}

// Wait blocks until the event loop (and message bus, if running) have
// both finished.
func (i ExecutionInfo) Wait() { i.wg.Wait() }

// Engine collects actors, a message bus handler set and the exchanges a
// run will need broker instances for, then wires them together at
// Execute* time.
type Engine struct {
	logger    *zap.Logger
	actors    []eventloop.Actor
	handlers  []messagebus.Handler
	exchanges []simtype.Exchange

	pool *ants.Pool
}

// New constructs an empty Engine. Register actors, message handlers and
// exchanges with AddActor/AddMessageHandler/AddExchange before calling
// one of the Execute* methods.
func New(logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	pool, err := ants.NewPool(poolCapacity, ants.WithPanicHandler(func(i interface{}) {
		logger.Error("engine worker panicked", zap.Any("panic", i))
	}))
	if err != nil {
		return nil, err
	}
	return &Engine{logger: logger, pool: pool}, nil
}

func (e *Engine) AddActor(actor eventloop.Actor) { e.actors = append(e.actors, actor) }

func (e *Engine) AddMessageHandler(h messagebus.Handler) { e.handlers = append(e.handlers, h) }

func (e *Engine) AddExchange(exchange simtype.Exchange) { e.exchanges = append(e.exchanges, exchange) }

// Release returns the engine's worker pool resources. Callers should
// defer this after construction.
func (e *Engine) Release() { e.pool.Release() }

// BrokerConfigs maps an exchange to the simbroker.Config it should be
// constructed with; an exchange with no entry gets DefaultConfig.
type BrokerConfigs map[simtype.Exchange]simbroker.Config

// Messaging bundles the two halves of a message bus backend:
// GoChannelBus and NATSBus both satisfy Provider and Sender at once, but
// nothing requires the read and write sides to share an implementation,
// so the engine keeps them separate.
type Messaging struct {
	Provider messagebus.Provider
	Sender   messagebus.Sender
}

// ExecuteWithSimEnvironment wires a fresh simbroker.Broker per
// registered exchange around mdProvider's events, runs the backtest to
// completion (the event loop terminates once the environment's provider
// is exhausted and every generated event has drained), and, if messaging
// is non-nil, runs the message bus concurrently until its provider stops
// yielding messages.
func (e *Engine) ExecuteWithSimEnvironment(
	mdProvider marketdata.Provider,
	defaultLatency simtype.Timestamp,
	configs BrokerConfigs,
	messaging *Messaging,
) (ExecutionInfo, error) {
	if len(e.exchanges) == 0 {
		return ExecutionInfo{}, simerr.ErrMissedParameter
	}

	router := gateway.NewRouter(e.exchanges)
	env := simenv.New(mdProvider, defaultLatency, e.logger)

	receivers := router.Receivers()
	for _, exchange := range e.exchanges {
		conf, ok := configs[exchange]
		if !ok {
			conf = simbroker.DefaultConfig()
		}
		broker := simbroker.New(exchange, receivers[exchange], conf, e.logger)
		if err := env.AddBroker(broker); err != nil {
			return ExecutionInfo{}, err
		}
	}

	var sender messagebus.Sender
	var bus *messagebus.Bus
	if messaging != nil {
		if messaging.Provider == nil {
			return ExecutionInfo{}, simerr.ErrMissedParameter
		}
		sender = messaging.Sender
		bus = messagebus.New(messaging.Provider, e.handlers, router)
	}

	actionsCtx := actions.New(router, sender)
	loop := eventloop.New(env, e.actors, actionsCtx, e.logger)

	return e.startWorkers(loop, bus, sender)
}

// startWorkers submits the event loop, and the message bus if present, to
// the pool. Once the loop's provider is exhausted the loop returns on its
// own; with messaging enabled that alone would leave the bus worker
// blocked forever on NextMessage, so the loop's terminal stop message is
// sent through sender right after loop.Run() returns, the same way the
// reference terminates its messaging worker when the event loop stops.
func (e *Engine) startWorkers(loop *eventloop.Loop, bus *messagebus.Bus, sender messagebus.Sender) (ExecutionInfo, error) {
	var wg sync.WaitGroup

	wg.Add(1)
	if err := e.pool.Submit(func() {
		defer wg.Done()
		loop.Run()
		if bus != nil && sender != nil {
			if err := sender.SendMessage(messagebus.StopMessage()); err != nil {
				e.logger.Error("failed to stop message bus after event loop exit", zap.Error(err))
			}
		}
	}); err != nil {
		wg.Done()
		return ExecutionInfo{}, err
	}

	if bus != nil {
		wg.Add(1)
		if err := e.pool.Submit(func() {
			defer wg.Done()
			bus.Run()
		}); err != nil {
			wg.Done()
			return ExecutionInfo{}, err
		}
	}

	return ExecutionInfo{wg: &wg}, nil
}
