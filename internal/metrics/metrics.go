package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: Namespace + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    Namespace + "_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: Namespace + "_http_requests_in_flight",
			Help: "Number of HTTP requests currently being served",
		},
	)

	ProviderRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    Namespace + "_provider_request_duration_seconds",
			Help:    "Latency of outbound requests to the identity provider",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"operation", "code", "method"},
	)

	LoginsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: Namespace + "_logins_started_total",
			Help: "Total number of authorization redirects issued",
		},
	)

	TokenExchanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: Namespace + "_token_exchanges_total",
			Help: "Total number of authorization code exchanges by outcome",
		},
		[]string{"outcome"},
	)

	ProfileFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: Namespace + "_profile_fetches_total",
			Help: "Total number of profile requests by outcome",
		},
		[]string{"outcome"},
	)
)
