// Package metrics exposes the engine's Prometheus instrumentation: order
// flow, fills, rejections and event-loop throughput. A Metrics value owns
// its own registry so a run can be instantiated more than once (e.g. in
// tests) without colliding with prometheus's global default registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects every counter/histogram the engine records during a
// run.
type Metrics struct {
	registry *prometheus.Registry

	ordersAccepted  prometheus.Counter
	ordersRejected  prometheus.Counter
	cancelsAccepted prometheus.Counter
	cancelsRejected prometheus.Counter
	fills           *prometheus.CounterVec
	fillQty         prometheus.Histogram

	eventsProcessed prometheus.Counter
	eventLatency    prometheus.Histogram

	busMessages prometheus.Counter
	busErrors   prometheus.Counter
}

// New builds a Metrics instance and registers every collector with a
// fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		ordersAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "backsim_orders_accepted_total",
			Help: "Total number of new-order requests accepted by a simulated broker.",
		}),
		ordersRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "backsim_orders_rejected_total",
			Help: "Total number of new-order requests rejected by a simulated broker.",
		}),
		cancelsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "backsim_cancels_accepted_total",
			Help: "Total number of cancel-order requests accepted by a simulated broker.",
		}),
		cancelsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "backsim_cancels_rejected_total",
			Help: "Total number of cancel-order requests rejected by a simulated broker.",
		}),
		fills: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backsim_fills_total",
			Help: "Total number of order fills, by exchange and side.",
		}, []string{"exchange", "side"}),
		fillQty: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "backsim_fill_quantity",
			Help:    "Distribution of per-fill executed quantity.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		eventsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "backsim_events_processed_total",
			Help: "Total number of events dispatched by the event loop.",
		}),
		eventLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "backsim_event_dispatch_seconds",
			Help:    "Wall-clock time spent dispatching a single event to every actor.",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
		}),
		busMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "backsim_bus_messages_total",
			Help: "Total number of sideband messages dispatched by the message bus.",
		}),
		busErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "backsim_bus_send_errors_total",
			Help: "Total number of SendMessage calls that returned an error (including circuit-breaker rejections).",
		}),
	}

	registry.MustRegister(
		m.ordersAccepted,
		m.ordersRejected,
		m.cancelsAccepted,
		m.cancelsRejected,
		m.fills,
		m.fillQty,
		m.eventsProcessed,
		m.eventLatency,
		m.busMessages,
		m.busErrors,
	)

	return m
}

// Registry exposes the underlying prometheus.Registry for an HTTP
// /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) OrderAccepted()  { m.ordersAccepted.Inc() }
func (m *Metrics) OrderRejected()  { m.ordersRejected.Inc() }
func (m *Metrics) CancelAccepted() { m.cancelsAccepted.Inc() }
func (m *Metrics) CancelRejected() { m.cancelsRejected.Inc() }

// Fill records one executed fill for exchange/side at the given
// quantity.
func (m *Metrics) Fill(exchange, side string, qty float64) {
	m.fills.WithLabelValues(exchange, side).Inc()
	m.fillQty.Observe(qty)
}

// EventDispatched records one event having been handed to every actor,
// with the wall-clock seconds the dispatch loop took.
func (m *Metrics) EventDispatched(seconds float64) {
	m.eventsProcessed.Inc()
	m.eventLatency.Observe(seconds)
}

func (m *Metrics) BusMessage()  { m.busMessages.Inc() }
func (m *Metrics) BusSendError() { m.busErrors.Inc() }
