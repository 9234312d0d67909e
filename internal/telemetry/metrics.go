// Package telemetry provides application-level observability for the
// Orb Integration Hub.
//
// # Prometheus Metrics Endpoint
//
// All metrics are registered against the default Prometheus registry and are
// automatically available on the side-channel HTTP server started by main.go:
//
//	GET http(s)://<host>:<ORB_TELEMETRY_METRICS_PROMETHEUS_PORT>/metrics
//
// Default port: 9090.  The endpoint returns data in the Prometheus text exposition
// format (Content-Type: text/plain; version=0.0.4) and is intended to be scraped by
// a Prometheus server every 15–60 seconds.  It is NOT served by the Gin router.
//
// # Metric Groups
//
//   - HTTP request counters and latency histograms (labelled by route template, not raw URL)
//   - API key lifecycle counters (generations, rotations, revocations, sweeps)
//   - Activation gate failure counter
//   - Ingest authentication counters
//   - API key expiry notification counter
//   - Database connection pool gauge (polled every 30 s)
//
// # Label Cardinality
//
// HTTP metrics use c.FullPath() (route template such as
// /v1/applications/:id/api-keys) rather than the raw request URL to prevent
// unbounded label cardinality from user-supplied path segments such as
// application IDs.  Lifecycle counters are labelled by environment, a closed
// set of five values.
//
// # Usage
//
// Import the package for side effects so metrics are registered before the HTTP server
// starts listening, or use an exported var directly:
//
//	telemetry.KeyGenerationsTotal.WithLabelValues(string(env)).Inc()
package telemetry

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics — labelled by method, route template, and status code.
//
// HTTPRequestsTotal is a CounterVec with labels {method, path, status}.
// The path label holds the Gin route template (e.g. /v1/applications/:id/api-keys),
// NOT the raw URL, to prevent unbounded cardinality.
//
// Example PromQL queries:
//   - Request rate (req/s, 5 m window):  rate(http_requests_total[5m])
//   - Error rate (%):                    sum(rate(http_requests_total{status=~"5.."}[5m])) / sum(rate(http_requests_total[5m])) * 100
//   - Requests by route:                 sum by (path) (rate(http_requests_total[5m]))
//
// HTTPRequestDuration is a HistogramVec with labels {method, path} and exponential-ish
// buckets from 5 ms to 30 s.  Use histogram_quantile to compute latency percentiles.
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route template, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route template.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)
)

// API key lifecycle metrics — recorded by the admin API key handlers and the
// expiry sweeper.  All three transition counters carry an {environment} label
// (production, staging, development, test, preview) so rotation cadence can be
// compared per deployment target.
//
// Example PromQL queries:
//   - Rotations per environment:   sum by (environment) (rate(api_key_rotations_total[7d]))
//   - Revocation spike alert:      increase(api_key_revocations_total[1h]) > 5
//   - Keys expired by the sweeper: rate(api_keys_swept_total[24h])
var (
	KeyGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_key_generations_total",
			Help: "Total number of API keys generated, by environment.",
		},
		[]string{"environment"},
	)

	KeyRotationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_key_rotations_total",
			Help: "Total number of API key rotations started, by environment.",
		},
		[]string{"environment"},
	)

	KeyRevocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_key_revocations_total",
			Help: "Total number of API keys revoked, by environment.",
		},
		[]string{"environment"},
	)

	KeysSweptTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "api_keys_swept_total",
			Help: "Total number of keys transitioned to EXPIRED by the lifecycle sweeper.",
		},
	)
)

// ActivationGateFailuresTotal is a plain Counter (no labels) incremented each
// time an application activation is rejected because one or more selected
// environments lack a usable API key.  A high rate suggests the activation
// flow is confusing users or that key provisioning is lagging behind
// application setup.
//
// Example PromQL queries:
//   - Failure rate:  rate(activation_gate_failures_total[1h])
var ActivationGateFailuresTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "activation_gate_failures_total",
		Help: "Total number of application activations rejected by the API key gate.",
	},
)

// Ingest authentication metrics — recorded by the API key auth middleware on
// the ingest surface.  The {result} label is one of: ok, bad_format, unknown,
// revoked, expired.
//
// Example PromQL queries:
//   - Rejection rate by cause:  sum by (result) (rate(ingest_auth_attempts_total{result!="ok"}[1h]))
var IngestAuthAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ingest_auth_attempts_total",
		Help: "Total number of ingest authentication attempts, by result.",
	},
	[]string{"result"},
)

// IngestEventsAcceptedTotal counts events accepted by the ingest surface, by
// environment.  Incremented once per event, not per batch, so the counter
// doubles as a throughput gauge for the integration pipeline.
//
// Example PromQL queries:
//   - Event throughput per environment:  sum by (environment) (rate(ingest_events_accepted_total[5m]))
var IngestEventsAcceptedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ingest_events_accepted_total",
		Help: "Total number of integration events accepted, by environment.",
	},
	[]string{"environment"},
)

// APIKeyExpiryNotificationsSentTotal is a plain Counter (no labels) incremented once
// per email successfully delivered by the key expiry notifier background job.
// A stalled counter combined with keys approaching their grace deadline is a
// useful alert signal for SMTP delivery failures.
//
// Example PromQL queries:
//   - Rate of notifications sent:  rate(apikey_expiry_notifications_sent_total[24h])
var APIKeyExpiryNotificationsSentTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "apikey_expiry_notifications_sent_total",
		Help: "Total number of API key expiry warning emails successfully sent.",
	},
)

// DBOpenConnections is a Gauge that tracks the number of open connections currently
// held by the sql.DB connection pool.  It is sampled every 30 seconds by
// StartDBStatsCollector rather than per-request to avoid the overhead of sql.DB.Stats().
//
// Example PromQL queries:
//   - Pool utilisation (%): db_open_connections / <ORB_DATABASE_MAX_CONNECTIONS> * 100
//   - Alert on near-exhaustion: db_open_connections > 20  (for max_connections=25)
var DBOpenConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "db_open_connections",
		Help: "Current number of open database connections in the pool.",
	},
)

// StartDBStatsCollector launches a background goroutine that samples sql.DB connection
// pool statistics every 30 seconds and updates the DBOpenConnections gauge.
// The goroutine exits cleanly when the database becomes unreachable (db.Ping fails),
// which happens automatically when the application shuts down and defers db.Close().
//
// Call this once, immediately after db.Connect() succeeds in main.go:
//
//	telemetry.StartDBStatsCollector(database)
func StartDBStatsCollector(db *sql.DB) {
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			if err := db.Ping(); err != nil {
				slog.Warn("db stats collector: database unreachable, stopping collector", "error", err)
				return
			}
			DBOpenConnections.Set(float64(db.Stats().OpenConnections))
		}
	}()
}
