package gateway

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/cassiomorais/marketsync/internal/infrastructure/observability"
)

// breakerTransport trips a per-host circuit after consecutive transport
// failures. HTTP status codes never count as failures.
type breakerTransport struct {
	base      http.RoundTripper
	threshold uint32
	timeout   time.Duration
	metrics   *observability.Metrics
	logger    zerolog.Logger

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[*http.Response]
}

func newBreakerTransport(base http.RoundTripper, threshold uint32, timeout time.Duration, metrics *observability.Metrics, logger zerolog.Logger) *breakerTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &breakerTransport{
		base:      base,
		threshold: threshold,
		timeout:   timeout,
		metrics:   metrics,
		logger:    logger,
		breakers:  make(map[string]*gobreaker.CircuitBreaker[*http.Response]),
	}
}

func (t *breakerTransport) breaker(host string) *gobreaker.CircuitBreaker[*http.Response] {
	t.mu.Lock()
	defer t.mu.Unlock()

	if cb, ok := t.breakers[host]; ok {
		return cb
	}

	cb := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        host,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     t.timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= t.threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			t.logger.Warn().Str("host", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state changed")
			if t.metrics != nil {
				t.metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			}
		},
	})
	t.breakers[host] = cb
	return cb
}

func (t *breakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.threshold == 0 {
		return t.base.RoundTrip(req)
	}

	host := req.URL.Host
	resp, err := t.breaker(host).Execute(func() (*http.Response, error) {
		return t.base.RoundTrip(req)
	})

	if t.metrics != nil {
		result := "success"
		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			result = "rejected"
		case err != nil:
			result = "failure"
		}
		t.metrics.CircuitBreakerRequests.WithLabelValues(host, result).Inc()
	}
	return resp, err
}
