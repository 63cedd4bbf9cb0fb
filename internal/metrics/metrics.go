// Package metrics provides Prometheus instrumentation for the chat server.
// It exposes gauges for connection counts, counters for message and bus
// throughput, and failure counters for the shared stores.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ConnectionsTotal tracks the current number of active WebSocket connections.
	ConnectionsTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "parley_connections_total",
		Help: "Current number of active WebSocket connections",
	})

	// MessagesTotal counts processed chat messages, labeled by outcome:
	// "persisted", "delivered", or "dropped".
	MessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "parley_messages_total",
		Help: "Total number of chat messages processed",
	}, []string{"outcome"}) // outcome = "persisted", "delivered", "dropped"

	// BusPublishFailures counts failed bus publishes, labeled by topic.
	BusPublishFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "parley_bus_publish_failures_total",
		Help: "Total number of failed broadcast bus publishes",
	}, []string{"topic"})

	// PresenceOpFailures counts failed presence store operations, labeled by
	// operation: "register", "refresh", "deregister", or "list".
	PresenceOpFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "parley_presence_op_failures_total",
		Help: "Total number of failed presence store operations",
	}, []string{"op"})

	// AuthFailures counts rejected connection handshakes.
	AuthFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "parley_auth_failures_total",
		Help: "Total number of rejected credential tokens",
	})
)

func init() {
	prometheus.MustRegister(
		ConnectionsTotal,
		MessagesTotal,
		BusPublishFailures,
		PresenceOpFailures,
		AuthFailures,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
