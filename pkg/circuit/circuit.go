package circuit

import (
	"time"

	"github.com/littlelibrary/server/pkg/metrics"
	"github.com/robinjoseph08/golib/logger"
	"github.com/sony/gobreaker/v2"
)

// New returns a circuit breaker for calls to an external service. It opens
// after 5 consecutive failures, or a 60% failure rate over at least 10
// requests in a minute, and probes again after 30 seconds.
func New[T any](name string) *gobreaker.CircuitBreaker[T] {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures >= 5 {
				return true
			}
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.New().Warn("circuit breaker state change", logger.Data{
				"name": name,
				"from": from.String(),
				"to":   to.String(),
			})
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
