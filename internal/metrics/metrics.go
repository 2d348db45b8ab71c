// Package metrics exposes the engine's Prometheus collectors. Stale
// references are counted here rather than surfaced as errors: the engine
// deliberately no-ops on unknown message ids, and the counter is the
// distinguishable signal that it happened.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	MessagesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_messages_total",
		Help: "Messages appended to room logs.",
	})

	PrivateMessagesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_private_messages_total",
		Help: "Private messages sent.",
	})

	StaleReferencesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_stale_references_total",
		Help: "Operations dropped because the referenced message was evicted or never existed.",
	})

	EvictionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_log_evictions_total",
		Help: "Messages evicted from room logs at capacity.",
	})

	OpenConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_open_connections",
		Help: "Live websocket connections.",
	})

	Rooms = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_rooms",
		Help: "Known rooms. Rooms are never deleted, so this only grows.",
	})
)

func init() {
	prometheus.MustRegister(
		MessagesTotal,
		PrivateMessagesTotal,
		StaleReferencesTotal,
		EvictionsTotal,
		OpenConnections,
		Rooms,
	)
}

// Handler serves the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
