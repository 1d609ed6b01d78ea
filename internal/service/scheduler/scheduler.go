// Package scheduler runs the periodic marketplace sync.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"

	"github.com/cassiomorais/marketsync/internal/domain/listing"
	"github.com/cassiomorais/marketsync/internal/domain/order"
	"github.com/cassiomorais/marketsync/internal/infrastructure/observability"
)

type OrderFetcher interface {
	FetchAll(ctx context.Context) ([]*order.Order, error)
}

type PublishRetrier interface {
	RetryFailedPublishes(ctx context.Context, maxRetries int) ([]*listing.PublishJob, error)
}

type StatsSyncer interface {
	SyncListingStats(ctx context.Context) error
}

// Telemetry receives the outcome of the order sync phase.
type Telemetry interface {
	RecordSyncSuccess()
	RecordRetry(reason string)
}

// Locker guards a cycle across processes sharing one store.
type Locker interface {
	TryLock(ctx context.Context, key string) (func(), error)
}

const cycleLockKey = "sync-cycle"

var errPhasePanic = errors.New("sync phase panicked")

// Scheduler runs the order fetch phase then the publish retry phase.
// A failing phase never stops the cycle or the loop.
type Scheduler struct {
	orders     OrderFetcher
	retrier    PublishRetrier
	telemetry  Telemetry
	stats      StatsSyncer
	locker     Locker
	interval   time.Duration
	maxRetries int
	metrics    *observability.Metrics
	logger     zerolog.Logger
}

type Option func(*Scheduler)

// WithStatsSync adds a listing stats phase after the retry phase.
func WithStatsSync(s StatsSyncer) Option { return func(sc *Scheduler) { sc.stats = s } }

// WithLocker skips a cycle when another process holds the cycle lock.
func WithLocker(l Locker) Option { return func(sc *Scheduler) { sc.locker = l } }

func WithMetrics(m *observability.Metrics) Option { return func(sc *Scheduler) { sc.metrics = m } }

func New(
	orders OrderFetcher,
	retrier PublishRetrier,
	telemetry Telemetry,
	interval time.Duration,
	maxRetries int,
	logger zerolog.Logger,
	opts ...Option,
) *Scheduler {
	s := &Scheduler{
		orders:     orders,
		retrier:    retrier,
		telemetry:  telemetry,
		interval:   interval,
		maxRetries: maxRetries,
		logger:     observability.Category(logger, "scheduler"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunCycle runs one sync cycle. Phase failures are logged and recorded,
// never returned.
func (s *Scheduler) RunCycle(ctx context.Context) {
	start := time.Now()

	if s.locker != nil {
		unlock, err := s.locker.TryLock(ctx, cycleLockKey)
		if err != nil {
			s.logger.Info().Err(err).Msg("sync cycle skipped, lock held elsewhere")
			return
		}
		defer unlock()
	}

	// Phase 1: orders.
	var orders []*order.Order
	err := s.guard("orders", func() (err error) {
		orders, err = s.orders.FetchAll(ctx)
		return err
	})
	switch {
	case errors.Is(err, errPhasePanic):
		// recorded by guard
	case err != nil:
		s.telemetry.RecordRetry(err.Error())
		s.logger.Warn().Err(err).Msg("order sync failed")
	default:
		s.telemetry.RecordSyncSuccess()
		s.logger.Info().Int("orders", len(orders)).Msg("order sync succeeded")
	}
	s.observe("orders", err)

	// Phase 2: publish retries, unconditionally.
	var retried []*listing.PublishJob
	err = s.guard("publish_retry", func() (err error) {
		retried, err = s.retrier.RetryFailedPublishes(ctx, s.maxRetries)
		return err
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("publish retry failed")
	} else if len(retried) > 0 {
		s.logger.Info().Int("jobs", len(retried)).Msg("failed publishes retried")
	}
	s.observe("publish_retry", err)

	if s.stats != nil {
		err := s.guard("listing_stats", func() error { return s.stats.SyncListingStats(ctx) })
		if err != nil {
			s.logger.Warn().Err(err).Msg("listing stats sync failed")
		}
		s.observe("listing_stats", err)
	}

	if s.metrics != nil {
		s.metrics.SyncDuration.Observe(time.Since(start).Seconds())
	}
	s.logger.Debug().Dur("duration", time.Since(start)).Msg("sync cycle finished")
}

// guard runs fn and turns a panic into an error wrapping errPhasePanic,
// recorded as a retry event.
func (s *Scheduler) guard(phase string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", errPhasePanic, phase, r)
			s.logger.Error().
				Str("phase", phase).
				Str("stack", string(debug.Stack())).
				Interface("panic", r).
				Msg("sync phase panicked")
			s.telemetry.RecordRetry(err.Error())
		}
	}()
	return fn()
}

func (s *Scheduler) observe(phase string, err error) {
	if s.metrics != nil {
		s.metrics.SyncCycles.WithLabelValues(phase, observability.Result(err)).Inc()
	}
}

// Run executes a cycle immediately and then every interval until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info().Dur("interval", s.interval).Msg("scheduler started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.RunCycle(ctx)

		select {
		case <-ctx.Done():
			s.logger.Info().Msg("scheduler stopped")
			return nil
		case <-ticker.C:
		}
	}
}
