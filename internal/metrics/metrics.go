package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oidc_http_requests_total",
			Help: "HTTP requests by route, method and status.",
		},
		[]string{"route", "method", "status"},
	)

	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "oidc_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	Errors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oidc_errors_total",
			Help: "Errors returned to callers by error code.",
		},
		[]string{"code"},
	)

	TokensIssued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oidc_tokens_issued_total",
			Help: "Token responses issued by grant type.",
		},
		[]string{"grant_type"},
	)

	KeyRotations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "oidc_signing_key_rotations_total",
			Help: "Signing keys created.",
		},
	)

	CacheLockFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "oidc_cache_lock_failures_total",
			Help: "Cache lookups abandoned because the key lock could not be acquired.",
		},
	)
)

var registerOnce sync.Once

// Register adds the collectors to the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(HTTPRequests, HTTPDuration, Errors, TokensIssued, KeyRotations, CacheLockFailures)
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}
