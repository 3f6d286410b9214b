package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/littlelibrary/server/pkg/errcodes"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "littlelibrary_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	ExternalRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "littlelibrary_external_request_duration_seconds",
			Help:    "Duration of calls to external services in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "outcome"},
	)

	LookupCacheResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "littlelibrary_lookup_cache_results_total",
			Help: "Catalog lookup cache hits and misses",
		},
		[]string{"result"},
	)

	ScanOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "littlelibrary_scan_outcomes_total",
			Help: "Scans by canonical kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	IdentifierPasses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "littlelibrary_identifier_passes_total",
			Help: "Which extraction pass produced an ISBN from recognized text",
		},
		[]string{"pass"},
	)

	RecommendationCandidates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "littlelibrary_recommendation_candidates_total",
			Help: "Similar-book candidates by filter decision",
		},
		[]string{"decision"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "littlelibrary_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "littlelibrary_circuit_breaker_state_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)
)

// ObserveExternal records how long a call to an external service took.
func ObserveExternal(service string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	ExternalRequestDuration.WithLabelValues(service, outcome).Observe(time.Since(start).Seconds())
}

// Handler serves the default registry in the Prometheus text format.
func Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}

// Middleware records the duration of every request under its route pattern,
// so path parameters don't explode label cardinality.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				status = http.StatusInternalServerError
				var he *echo.HTTPError
				var ee *errcodes.Error
				switch {
				case errors.As(err, &ee):
					status = ee.HTTPCode
				case errors.As(err, &he):
					status = he.Code
				}
			}

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			HTTPRequestDuration.
				WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).
				Observe(time.Since(start).Seconds())
			return err
		}
	}
}
