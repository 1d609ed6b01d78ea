// Package orders collects orders from every marketplace into the local store.
package orders

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/cassiomorais/marketsync/internal/domain/order"
	"github.com/cassiomorais/marketsync/internal/domain/platform"
	"github.com/cassiomorais/marketsync/internal/infrastructure/observability"
	"github.com/cassiomorais/marketsync/internal/marketplace"
	"github.com/cassiomorais/marketsync/internal/store"
)

// Adapters resolves marketplace adapters.
type Adapters interface {
	Get(p platform.Platform) (marketplace.Adapter, error)
	All() []marketplace.Adapter
}

// Aggregator merges orders from all adapters. Writes are serialized under mu.
type Aggregator struct {
	mu       sync.Mutex
	adapters Adapters
	store    store.Store
	orders   *store.Collection[order.Order]
	now      func() time.Time
	metrics  *observability.Metrics
	logger   zerolog.Logger
}

type Option func(*Aggregator)

func WithMetrics(m *observability.Metrics) Option { return func(a *Aggregator) { a.metrics = m } }

func WithClock(now func() time.Time) Option { return func(a *Aggregator) { a.now = now } }

func NewAggregator(s store.Store, adapters Adapters, logger zerolog.Logger, opts ...Option) *Aggregator {
	a := &Aggregator{
		adapters: adapters,
		store:    s,
		orders:   store.NewCollection(s, store.KindOrder, func(o *order.Order) string { return key(o.Platform, o.PlatformOrderID) }),
		now:      time.Now,
		logger:   observability.Category(logger, "orders"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// key identifies an order locally. Platform order ids are only unique per platform.
func key(p platform.Platform, platformOrderID string) string {
	return p.String() + ":" + platformOrderID
}

// FetchAll pulls orders from every adapter concurrently and stores them.
// If any adapter fails nothing is written. It returns the full local order
// set, newest first.
func (a *Aggregator) FetchAll(ctx context.Context) ([]*order.Order, error) {
	adapters := a.adapters.All()
	results := make([][]*order.Order, len(adapters))

	var g errgroup.Group
	for i, ad := range adapters {
		g.Go(func() error {
			fetched, err := ad.FetchOrders(ctx)
			if err != nil {
				return err
			}
			results[i] = fetched
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		a.logger.Warn().Err(err).Msg("order fetch failed")
		return nil, err
	}

	var fetched []*order.Order
	for i, batch := range results {
		if a.metrics != nil {
			a.metrics.OrdersFetched.WithLabelValues(adapters[i].Platform().String()).Add(float64(len(batch)))
		}
		fetched = append(fetched, batch...)
	}

	if err := a.persist(ctx, fetched); err != nil {
		return nil, err
	}
	a.logger.Info().Int("fetched", len(fetched)).Msg("orders fetched")

	return a.Orders(ctx)
}

// persist writes every order in one transaction when the store supports it.
// An order already stored keeps its local id and local timestamps. An order
// whose platform reported no status keeps its local status, or starts pending.
func (a *Aggregator) persist(ctx context.Context, fetched []*order.Order) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	return store.WithinTransaction(ctx, a.store, func(ctx context.Context) error {
		for _, o := range fetched {
			existing, err := a.orders.Get(ctx, key(o.Platform, o.PlatformOrderID))
			if err != nil {
				return err
			}
			if existing != nil {
				mergeLocal(o, existing)
			}
			if o.Status == "" {
				o.Status = order.StatusPending
			}
			if err := a.orders.Save(ctx, o); err != nil {
				return err
			}
		}
		return nil
	})
}

func mergeLocal(o, existing *order.Order) {
	o.ID = existing.ID
	if o.Status == "" {
		o.Status = existing.Status
	}
	if o.ProductID == nil {
		o.ProductID = existing.ProductID
	}
	if o.PaidAt == nil {
		o.PaidAt = existing.PaidAt
	}
	if o.ShippedAt == nil {
		o.ShippedAt = existing.ShippedAt
	}
	if o.EstimatedDeliveryAt == nil {
		o.EstimatedDeliveryAt = existing.EstimatedDeliveryAt
	}
}

// Orders returns every stored order, newest first.
func (a *Aggregator) Orders(ctx context.Context) ([]*order.Order, error) {
	orders, err := a.orders.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(orders, func(x, y *order.Order) int {
		if c := y.CreatedAt.Compare(x.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(key(x.Platform, x.PlatformOrderID), key(y.Platform, y.PlatformOrderID))
	})
	return orders, nil
}

// Order returns the stored order, or nil when it is unknown.
func (a *Aggregator) Order(ctx context.Context, p platform.Platform, platformOrderID string) (*order.Order, error) {
	return a.orders.Get(ctx, key(p, platformOrderID))
}

// UpdateOrderStatus pushes status to the owning marketplace and then stores
// it locally. An unknown order is a no-op. When the push fails the local
// order is left unchanged.
func (a *Aggregator) UpdateOrderStatus(ctx context.Context, platformOrderID string, status order.Status, p platform.Platform) (err error) {
	if _, err := order.ParseStatus(string(status)); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	o, err := a.orders.Get(ctx, key(p, platformOrderID))
	if err != nil {
		return err
	}
	if o == nil {
		a.logger.Debug().Str("platform", p.String()).Str("order_id", platformOrderID).Msg("status update for unknown order ignored")
		return nil
	}

	defer func() {
		if a.metrics != nil {
			a.metrics.OrderStatusUpdates.WithLabelValues(p.String(), observability.Result(err)).Inc()
		}
	}()

	adapter, err := a.adapters.Get(p)
	if err != nil {
		return err
	}
	if err := adapter.UpdateOrderStatus(ctx, platformOrderID, status); err != nil {
		return fmt.Errorf("push status %s for %s order %s: %w", status, p, platformOrderID, err)
	}

	o.SetStatus(status, a.now())
	if err := a.orders.Update(ctx, o); err != nil {
		return err
	}

	a.logger.Info().
		Str("platform", p.String()).
		Str("order_id", platformOrderID).
		Str("status", string(status)).
		Msg("order status updated")
	return nil
}
