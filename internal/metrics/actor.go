package metrics

import (
	"github.com/abdoElHodaky/backsim/internal/actions"
	"github.com/abdoElHodaky/backsim/internal/messagebus"
	"github.com/abdoElHodaky/backsim/pkg/events"
	"github.com/abdoElHodaky/backsim/pkg/gateway"
	"github.com/abdoElHodaky/backsim/pkg/simtype"
)

// EventRecorder is an eventloop.Actor that does nothing but update
// Metrics counters as events pass through the loop. Register it
// alongside the run's real strategies; it never touches actionsCtx.
type EventRecorder struct {
	metrics *Metrics
}

// NewEventRecorder builds an EventRecorder around m.
func NewEventRecorder(m *Metrics) *EventRecorder { return &EventRecorder{metrics: m} }

// OnEvent satisfies eventloop.Actor.
func (r *EventRecorder) OnEvent(event events.Event, _ *actions.Context) {
	switch event.Kind {
	case events.KindResponseNewOrderAccepted:
		r.metrics.OrderAccepted()
	case events.KindResponseNewOrderRejected:
		r.metrics.OrderRejected()
	case events.KindResponseCancelOrderAccepted:
		r.metrics.CancelAccepted()
	case events.KindResponseCancelOrderRejected:
		r.metrics.CancelRejected()
	case events.KindUDSOrderUpdate:
		u := event.OrderUpdate
		if u.ExecutionType == simtype.ExecutionTypeTrade && u.LastFilledQty != nil {
			r.metrics.Fill(string(u.Exchange), string(u.Side), *u.LastFilledQty)
		}
	}
}

// MessageHandler is a topic-agnostic messagebus.Handler that records
// every message dispatched on the bus.
type MessageHandler struct {
	metrics *Metrics
}

// NewMessageHandler builds a MessageHandler around m.
func NewMessageHandler(m *Metrics) *MessageHandler { return &MessageHandler{metrics: m} }

// OnMessage satisfies messagebus.Handler.
func (h *MessageHandler) OnMessage(messagebus.Message, *gateway.Router) { h.metrics.BusMessage() }

// Topics returns nil: the handler is topic-agnostic and sees every
// message.
func (h *MessageHandler) Topics() []messagebus.Topic { return nil }
