// Package metrics exposes the process-level Prometheus counters. Results and
// tallies stay out of metrics; only operational counts are recorded.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kosning",
		Name:      "http_requests_total",
		Help:      "HTTP requests by service, route, and status class.",
	}, []string{"service", "route", "status"})

	TokensIssuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "kosning",
		Name:      "tokens_issued_total",
		Help:      "Voting tokens minted by the events service.",
	})

	BallotsRecordedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kosning",
		Name:      "ballots_recorded_total",
		Help:      "Ballots accepted by the elections service, by voting type.",
	}, []string{"voting_type"})

	RateLimitedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kosning",
		Name:      "rate_limited_total",
		Help:      "Requests refused by the rate limiter, by operation.",
	}, []string{"operation"})
)

// Handler serves the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
