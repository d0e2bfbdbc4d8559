// Package eventloop drives the engine's deterministic core: pull one
// event at a time from an EventProvider (the simulated environment in a
// backtest, a live feed in production) and dispatch it to every actor in
// registration order.
package eventloop

import (
	"go.uber.org/zap"

	"github.com/abdoElHodaky/backsim/internal/actions"
	"github.com/abdoElHodaky/backsim/pkg/events"
)

// EventProvider is pulled once per loop iteration. A nil-ok return ends
// the run.
type EventProvider interface {
	NextEvent() (events.Event, bool)
}

// Actor reacts to events, optionally issuing exchange requests or
// sideband messages through actionsCtx.
type Actor interface {
	OnEvent(event events.Event, actionsCtx *actions.Context)
}

// Loop owns the event source and the registered actors. One Loop
// instance drives exactly one simulated (or live) run.
type Loop struct {
	provider   EventProvider
	actors     []Actor
	actionsCtx *actions.Context
	logger     *zap.Logger
}

// New constructs a Loop. actors are dispatched to in the given order on
// every event, so an actor that depends on another's side effect within
// the same timestamp should be registered after it.
func New(provider EventProvider, actors []Actor, actionsCtx *actions.Context, logger *zap.Logger) *Loop {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{provider: provider, actors: actors, actionsCtx: actionsCtx, logger: logger}
}

// Run pulls events until the provider is exhausted. A panicking actor is
// recovered and logged rather than aborting the whole run: one broken
// strategy should not prevent others sharing the loop from continuing.
// On exhaustion it logs a terminal message before returning, so callers
// driving a message bus alongside the loop have a clear signal in the
// logs that the loop side of the run has ended.
func (l *Loop) Run() {
	for {
		event, ok := l.provider.NextEvent()
		if !ok {
			l.logger.Info("event loop stopped: provider exhausted")
			return
		}
		for _, actor := range l.actors {
			l.dispatch(actor, event)
		}
	}
}

func (l *Loop) dispatch(actor Actor, event events.Event) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("actor panicked handling event", zap.Any("panic", r))
		}
	}()
	actor.OnEvent(event, l.actionsCtx)
}
