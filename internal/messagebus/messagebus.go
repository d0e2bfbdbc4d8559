// Package messagebus is the sideband channel actors use to talk to each
// other outside the event loop's per-event dispatch — typically to
// signal state across symbols/strategies that don't otherwise share an
// event stream. It is independent of the core event loop: the engine
// starts the bus worker only when it is given a Messaging value, and
// rejects one whose Provider is nil with ErrMissedParameter. A bus may
// run with zero handlers.
package messagebus

import "github.com/abdoElHodaky/backsim/pkg/gateway"

// Topic groups messages for handlers that only care about a subset of
// traffic. The empty string is not a valid topic.
type Topic = string

// Message is the unit of sideband traffic. A topic-agnostic message
// (Topic returning "") is delivered to every handler regardless of
// the topics it declared interest in.
type Message interface {
	Topic() Topic
	IsStopMessage() bool
}

// Handler reacts to messages, optionally issuing exchange requests of
// its own through router. Handlers that return no topics from Topics
// are topic-agnostic and receive every message on the bus.
type Handler interface {
	OnMessage(message Message, router *gateway.Router)
	Topics() []Topic
}

// Provider is pulled by the bus's run loop. Returning ok=false — whether
// because the underlying transport closed or because a stop message was
// received — ends the run loop.
type Provider interface {
	NextMessage() (Message, bool)
}

// Sender is the write side used by actions.Context.SendMessage.
type Sender interface {
	SendMessage(message Message) error
}

// Bus dispatches every message pulled from provider to the handlers
// registered for its topic, plus every topic-agnostic handler. Handler
// lookup is precomputed once at construction, mirroring how the
// reference partitions handlers by topic up front rather than scanning
// all handlers per message.
type Bus struct {
	provider      Provider
	router        *gateway.Router
	byTopic       map[Topic][]Handler
	topicAgnostic []Handler
}

// New partitions handlers into topic-specific and topic-agnostic
// buckets and returns a Bus ready to Run.
func New(provider Provider, handlers []Handler, router *gateway.Router) *Bus {
	byTopic := make(map[Topic][]Handler)
	var agnostic []Handler
	for _, h := range handlers {
		topics := h.Topics()
		if len(topics) == 0 {
			agnostic = append(agnostic, h)
			continue
		}
		for _, t := range topics {
			byTopic[t] = append(byTopic[t], h)
		}
	}
	return &Bus{provider: provider, router: router, byTopic: byTopic, topicAgnostic: agnostic}
}

// Run pulls messages until the provider is exhausted or yields a stop
// message, dispatching each to the matching handlers. It blocks the
// calling goroutine; callers run it inside a worker.
func (b *Bus) Run() {
	for {
		msg, ok := b.provider.NextMessage()
		if !ok || msg.IsStopMessage() {
			return
		}

		for _, h := range b.topicAgnostic {
			h.OnMessage(msg, b.router)
		}

		topic := msg.Topic()
		if topic == "" {
			// Iterates byTopic in Go's randomized map order; the reference
			// dispatches a topic-less message to its handler set the same
			// way, with no ordering guarantee across topics, so this is
			// not subject to §9's "don't rely on hash-map order" caution —
			// there is no order to rely on here either way.
			for _, handlers := range b.byTopic {
				for _, h := range handlers {
					h.OnMessage(msg, b.router)
				}
			}
			continue
		}
		for _, h := range b.byTopic[topic] {
			h.OnMessage(msg, b.router)
		}
	}
}
