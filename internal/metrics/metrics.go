// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcomes of a remote API call.
const (
	OutcomeOK        = "ok"
	OutcomeRemote    = "remote_error"
	OutcomeTransport = "transport_error"
)

// Outcomes of a cache read.
const (
	ReadHit   = "hit"
	ReadMiss  = "miss"
	ReadStale = "stale"
	ReadNull  = "null"
)

var (
	// RemoteRequests counts calls to the short.io API.
	RemoteRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shorty",
		Subsystem: "shortio",
		Name:      "requests_total",
		Help:      "Requests sent to the short link API.",
	}, []string{"endpoint", "outcome"})

	// CacheReads counts cache reads by outcome.
	CacheReads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shorty",
		Subsystem: "cache",
		Name:      "reads_total",
		Help:      "Cache reads by outcome.",
	}, []string{"outcome"})

	// CacheDeduplicated counts fetches joined to one already in flight.
	CacheDeduplicated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "shorty",
		Subsystem: "cache",
		Name:      "deduplicated_total",
		Help:      "Fetches that joined an in-flight request for the same key.",
	})

	// ActiveSessions tracks open browser sessions.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "shorty",
		Subsystem: "session",
		Name:      "active",
		Help:      "Open browser sessions.",
	})
)
