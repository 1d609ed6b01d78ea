// Package gateway sends authenticated requests to marketplace APIs and
// classifies their outcomes.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	domainErrors "github.com/cassiomorais/marketsync/internal/domain/errors"
	"github.com/cassiomorais/marketsync/internal/domain/platform"
	"github.com/cassiomorais/marketsync/internal/infrastructure/observability"
)

// TokenSource supplies bearer tokens and refreshes them after a 401.
// RefreshToken receives the token the marketplace rejected, so a refresh
// that already replaced it is not repeated.
type TokenSource interface {
	ValidAccessToken(ctx context.Context, p platform.Platform) (string, error)
	RefreshToken(ctx context.Context, p platform.Platform, rejectedToken string) error
}

// Attempt describes one request sent on the wire.
type Attempt struct {
	Platform platform.Platform
	Path     string
	Method   string
	Number   int
	Status   int
	Err      error
	Duration time.Duration
}

type Config struct {
	BaseURLs          map[platform.Platform]string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	BreakerThreshold  uint32
	BreakerTimeout    time.Duration
}

// Gateway is the single chokepoint for marketplace HTTP traffic.
type Gateway struct {
	tokens    TokenSource
	baseURLs  map[platform.Platform]string
	client    *http.Client
	limiters  map[platform.Platform]*rate.Limiter
	metrics   *observability.Metrics
	onAttempt func(Attempt)
	logger    zerolog.Logger
}

type Option func(*Gateway)

func WithMetrics(m *observability.Metrics) Option { return func(g *Gateway) { g.metrics = m } }

// WithAttemptHook registers fn to be called after every attempt.
func WithAttemptHook(fn func(Attempt)) Option { return func(g *Gateway) { g.onAttempt = fn } }

// WithTransport replaces the base round tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(g *Gateway) { g.client.Transport = rt }
}

func New(cfg Config, tokens TokenSource, logger zerolog.Logger, opts ...Option) *Gateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	g := &Gateway{
		tokens:   tokens,
		baseURLs: make(map[platform.Platform]string, len(cfg.BaseURLs)),
		client:   &http.Client{Timeout: timeout, Transport: http.DefaultTransport},
		limiters: make(map[platform.Platform]*rate.Limiter),
		logger:   observability.Category(logger, "gateway"),
	}
	for p, u := range cfg.BaseURLs {
		g.baseURLs[p] = strings.TrimRight(u, "/")
	}
	for _, opt := range opts {
		opt(g)
	}

	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		for _, p := range platform.All() {
			g.limiters[p] = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
		}
	}

	breakerTimeout := cfg.BreakerTimeout
	if breakerTimeout <= 0 {
		breakerTimeout = 30 * time.Second
	}
	g.client.Transport = otelhttp.NewTransport(
		newBreakerTransport(g.client.Transport, cfg.BreakerThreshold, breakerTimeout, g.metrics, g.logger),
	)

	return g
}

// Send performs ep and decodes a 2xx body into out; a nil out discards the body.
//
// A 401 triggers one token refresh and one retry of the same request. A
// second 401 is returned as HTTPError(401). A 429 is returned as
// ErrRateLimited without retrying.
func (g *Gateway) Send(ctx context.Context, ep Endpoint, out any) error {
	const maxAttempts = 2

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		token, err := g.tokens.ValidAccessToken(ctx, ep.Platform)
		if err != nil {
			return err
		}

		status, body, err := g.attempt(ctx, ep, token, attempt)
		if err != nil {
			return err
		}

		switch {
		case status >= 200 && status <= 299:
			return decode(body, out)
		case status == http.StatusUnauthorized && attempt < maxAttempts:
			g.logger.Info().
				Str("platform", ep.Platform.String()).
				Str("path", ep.Path).
				Msg("Unauthorized, refreshing token and retrying")
			if err := g.tokens.RefreshToken(ctx, ep.Platform, token); err != nil {
				return err
			}
		case status == http.StatusTooManyRequests:
			return domainErrors.ErrRateLimited
		default:
			return domainErrors.NewHTTPError(status)
		}
	}

	return domainErrors.NewHTTPError(http.StatusUnauthorized)
}

// Do performs ep and decodes the response into a new T.
func Do[T any](ctx context.Context, g *Gateway, ep Endpoint) (T, error) {
	var out T
	err := g.Send(ctx, ep, &out)
	return out, err
}

func (g *Gateway) attempt(ctx context.Context, ep Endpoint, token string, number int) (int, []byte, error) {
	start := time.Now()
	status, body, err := g.roundTrip(ctx, ep, token)
	g.observe(Attempt{
		Platform: ep.Platform,
		Path:     ep.Path,
		Method:   ep.method(),
		Number:   number,
		Status:   status,
		Err:      err,
		Duration: time.Since(start),
	})
	return status, body, err
}

func (g *Gateway) roundTrip(ctx context.Context, ep Endpoint, token string) (int, []byte, error) {
	base, ok := g.baseURLs[ep.Platform]
	if !ok {
		return 0, nil, fmt.Errorf("no base url for %s: %w", ep.Platform, domainErrors.ErrUnknownPlatform)
	}

	if limiter, ok := g.limiters[ep.Platform]; ok {
		if err := limiter.Wait(ctx); err != nil {
			return 0, nil, domainErrors.NetworkError(err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, ep.method(), base+ep.Path, bytes.NewReader(ep.Body))
	if err != nil {
		return 0, nil, fmt.Errorf("build request %s: %w", ep, err)
	}
	for k, v := range ep.Headers {
		req.Header.Set(k, v)
	}

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return 0, nil, domainErrors.NetworkError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, domainErrors.InvalidResponse(err)
	}
	return resp.StatusCode, body, nil
}

func (g *Gateway) observe(a Attempt) {
	event := g.logger.Debug()
	if a.Err != nil {
		event = g.logger.Warn().Err(a.Err)
	}
	event.
		Str("platform", a.Platform.String()).
		Str("method", a.Method).
		Str("path", a.Path).
		Int("attempt", a.Number).
		Int("status", a.Status).
		Dur("duration", a.Duration).
		Msg("Marketplace request")

	if g.metrics != nil {
		g.metrics.GatewayAttempts.WithLabelValues(a.Platform.String(), a.Method, outcome(a)).Inc()
		g.metrics.GatewayDuration.WithLabelValues(a.Platform.String()).Observe(a.Duration.Seconds())
	}
	if g.onAttempt != nil {
		g.onAttempt(a)
	}
}

func outcome(a Attempt) string {
	switch {
	case a.Err != nil:
		return "error"
	case a.Status >= 200 && a.Status <= 299:
		return "ok"
	case a.Status == http.StatusUnauthorized:
		return "unauthorized"
	case a.Status == http.StatusTooManyRequests:
		return "rate_limited"
	default:
		return "http_error"
	}
}

func decode(body []byte, out any) error {
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return domainErrors.DecodingError(err)
	}
	return nil
}
