// Package listing publishes catalog products to marketplaces and keeps the
// resulting listings and publish jobs.
package listing

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/cassiomorais/marketsync/internal/domain/catalog"
	domainErrors "github.com/cassiomorais/marketsync/internal/domain/errors"
	domain "github.com/cassiomorais/marketsync/internal/domain/listing"
	"github.com/cassiomorais/marketsync/internal/domain/platform"
	"github.com/cassiomorais/marketsync/internal/infrastructure/observability"
	"github.com/cassiomorais/marketsync/internal/marketplace"
	"github.com/cassiomorais/marketsync/internal/store"
	"github.com/cassiomorais/marketsync/pkg/saga"
)

// DefaultListingTTL is how long a new listing stays live on a marketplace.
const DefaultListingTTL = 30 * 24 * time.Hour

// Adapters resolves the marketplace adapter for a platform.
type Adapters interface {
	Get(p platform.Platform) (marketplace.Adapter, error)
}

// Orchestrator owns products, platform listings and publish jobs.
// Job writes are serialized under mu; a retry pass holds retryMu for its
// duration. Publishes and retries of one product never overlap.
type Orchestrator struct {
	mu       sync.Mutex
	retryMu  sync.Mutex
	inFlight productLocks

	adapters   Adapters
	products   *store.Collection[catalog.Product]
	listings   *store.Collection[domain.PlatformListing]
	jobs       *store.Collection[domain.PublishJob]
	listingTTL time.Duration
	now        func() time.Time
	metrics    *observability.Metrics
	logger     zerolog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

func WithMetrics(m *observability.Metrics) Option { return func(o *Orchestrator) { o.metrics = m } }

// WithClock replaces time.Now for listing timestamps.
func WithClock(now func() time.Time) Option { return func(o *Orchestrator) { o.now = now } }

func NewOrchestrator(s store.Store, adapters Adapters, listingTTL time.Duration, logger zerolog.Logger, opts ...Option) *Orchestrator {
	if listingTTL <= 0 {
		listingTTL = DefaultListingTTL
	}
	o := &Orchestrator{
		adapters: adapters,
		products: store.NewCollection(s, store.KindProduct, func(p *catalog.Product) string {
			return p.ID.String()
		}),
		listings: store.NewCollection(s, store.KindListing, func(l *domain.PlatformListing) string {
			return l.ID.String()
		}),
		jobs: store.NewCollection(s, store.KindPublishJob, func(j *domain.PublishJob) string {
			return j.ID.String()
		}),
		listingTTL: listingTTL,
		now:        time.Now,
		logger:     observability.Category(logger, "listing.publish"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// --- Products ---

// CreateProduct validates and stores a new product.
func (o *Orchestrator) CreateProduct(ctx context.Context, p *catalog.Product) error {
	if err := p.Validate(); err != nil {
		return err
	}
	now := o.now()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	if err := o.products.Save(ctx, p); err != nil {
		return err
	}
	o.logger.Info().Str("product_id", p.ID.String()).Str("title", p.Title).Msg("product created")
	return nil
}

// UpdateProduct replaces a stored product. It does not touch live listings.
func (o *Orchestrator) UpdateProduct(ctx context.Context, p *catalog.Product) error {
	existing, err := o.products.Get(ctx, p.ID.String())
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("product %s: %w", p.ID, domainErrors.ErrNotFound)
	}
	if err := p.Validate(); err != nil {
		return err
	}
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = o.now()
	return o.products.Update(ctx, p)
}

// Product returns the product with id, or ErrNotFound.
func (o *Orchestrator) Product(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	p, err := o.products.Get(ctx, id.String())
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("product %s: %w", id, domainErrors.ErrNotFound)
	}
	return p, nil
}

// Products returns every product, newest first.
func (o *Orchestrator) Products(ctx context.Context) ([]*catalog.Product, error) {
	products, err := o.products.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(products, func(a, b *catalog.Product) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return products, nil
}

// --- Publishing ---

// PublishProduct loads the product with id and publishes it.
func (o *Orchestrator) PublishProduct(ctx context.Context, id uuid.UUID, platforms []platform.Platform) (*domain.PublishJob, error) {
	p, err := o.Product(ctx, id)
	if err != nil {
		return nil, err
	}
	return o.Publish(ctx, p, platforms)
}

// Publish lists p on every platform concurrently. The job is stored InFlight
// before any marketplace call. When any platform fails the job ends Failed
// and the first error is returned; listings created on the other platforms
// are kept. The returned job is non-nil whenever it was stored.
func (o *Orchestrator) Publish(ctx context.Context, p *catalog.Product, platforms []platform.Platform) (*domain.PublishJob, error) {
	if len(platforms) == 0 {
		return nil, domainErrors.NewValidationError("platforms", "at least one platform is required")
	}
	for _, pl := range platforms {
		if !pl.Valid() {
			return nil, fmt.Errorf("%q: %w", pl, domainErrors.ErrUnknownPlatform)
		}
	}

	unlock := o.inFlight.lock(p.ID)
	defer unlock()

	job := domain.NewPublishJob(p.ID, platforms)
	if err := o.saveJob(ctx, job); err != nil {
		return nil, err
	}

	log := o.logger.With().Str("job_id", job.ID.String()).Str("product_id", p.ID.String()).Logger()
	log.Info().Interface("platforms", job.Platforms).Msg("publish started")

	results := make([]error, len(job.Platforms))
	var g errgroup.Group
	for i, pl := range job.Platforms {
		g.Go(func() error {
			results[i] = o.publishTo(ctx, p, pl)
			return results[i]
		})
	}
	firstErr := g.Wait()

	for i, pl := range job.Platforms {
		job.RecordOutcome(pl, results[i])
	}
	if firstErr != nil {
		job.SetStatus(domain.Failed{Reason: firstErr.Error()})
	} else {
		job.SetStatus(domain.Succeeded{})
	}

	if err := o.saveJob(ctx, job); err != nil {
		return job.Clone(), errors.Join(firstErr, err)
	}
	o.recordJob(job)

	if firstErr != nil {
		log.Warn().Err(firstErr).Msg("publish failed")
		return job.Clone(), firstErr
	}
	log.Info().Msg("publish succeeded")
	return job.Clone(), nil
}

// publishTo creates the remote listing and then the local record. If the
// local save fails the remote listing is removed again.
func (o *Orchestrator) publishTo(ctx context.Context, p *catalog.Product, pl platform.Platform) (err error) {
	defer func() {
		if o.metrics != nil {
			o.metrics.PlatformPublishes.WithLabelValues(pl.String(), observability.Result(err)).Inc()
		}
	}()

	adapter, err := o.adapters.Get(pl)
	if err != nil {
		return err
	}

	var remoteID string
	s := saga.New("publish-" + pl.String()).
		AddStep(saga.Step{
			Name: "create_listing",
			Execute: func(ctx context.Context) error {
				id, err := adapter.CreateListing(ctx, p)
				if err != nil {
					return err
				}
				remoteID = id
				return nil
			},
			Compensate: func(ctx context.Context) error {
				return adapter.EndOrRemoveListing(ctx, remoteID)
			},
		}).
		AddStep(saga.Step{
			Name: "save_listing",
			Execute: func(ctx context.Context) error {
				l := domain.NewPublished(p.ID, pl, remoteID, adapter.ListingURL(remoteID), o.now(), o.listingTTL)
				return o.listings.Save(ctx, l)
			},
		})

	if err := s.Execute(ctx); err != nil {
		var stepErr *saga.StepError
		if errors.As(err, &stepErr) && !stepErr.Compensated() {
			o.logger.Error().Err(stepErr.CompensationErr).
				Str("platform", pl.String()).
				Str("listing_id", remoteID).
				Msg("remote listing left without local record")
		}
		return fmt.Errorf("publish to %s: %w", pl, err)
	}

	o.logger.Debug().
		Str("platform", pl.String()).
		Str("product_id", p.ID.String()).
		Str("listing_id", remoteID).
		Msg("listing created")
	return nil
}

// RetryFailedPublishes re-attempts every Failed job still under maxRetries.
// Only platforms without a listing for the product are re-published. Each
// failed platform counts one retry; the job becomes Succeeded only when all
// re-attempts succeed. Jobs whose product no longer exists are skipped.
// It returns the jobs it touched; the error reports storage failures only.
func (o *Orchestrator) RetryFailedPublishes(ctx context.Context, maxRetries int) ([]*domain.PublishJob, error) {
	o.retryMu.Lock()
	defer o.retryMu.Unlock()

	jobs, err := o.jobs.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(jobs, func(a, b *domain.PublishJob) int { return a.CreatedAt.Compare(b.CreatedAt) })

	var (
		retried []*domain.PublishJob
		errs    []error
	)
	for _, job := range jobs {
		if !job.CanRetry(maxRetries) {
			continue
		}
		touched, err := o.retryJob(ctx, job)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if touched {
			retried = append(retried, job.Clone())
		}
	}
	return retried, errors.Join(errs...)
}

func (o *Orchestrator) retryJob(ctx context.Context, job *domain.PublishJob) (bool, error) {
	log := o.logger.With().Str("job_id", job.ID.String()).Str("product_id", job.ProductID.String()).Logger()

	unlock := o.inFlight.lock(job.ProductID)
	defer unlock()

	p, err := o.products.Get(ctx, job.ProductID.String())
	if err != nil {
		return false, err
	}
	if p == nil {
		log.Warn().Msg("skipping retry, product no longer exists")
		return false, nil
	}

	listed, err := o.listedPlatforms(ctx, p.ID)
	if err != nil {
		return false, err
	}

	var lastErr error
	for _, pl := range job.Platforms {
		if listed[pl] {
			continue
		}
		err := o.publishTo(ctx, p, pl)
		job.RecordOutcome(pl, err)
		if err != nil {
			job.IncrementRetry()
			lastErr = err
			log.Warn().Err(err).Str("platform", pl.String()).Int("retry_count", job.RetryCount).Msg("retry failed")
			continue
		}
		log.Info().Str("platform", pl.String()).Msg("retry succeeded")
	}

	if lastErr != nil {
		job.SetStatus(domain.Failed{Reason: lastErr.Error()})
	} else {
		job.SetStatus(domain.Succeeded{})
	}
	if err := o.saveJob(ctx, job); err != nil {
		return false, err
	}
	o.recordJob(job)
	return true, nil
}

func (o *Orchestrator) listedPlatforms(ctx context.Context, productID uuid.UUID) (map[platform.Platform]bool, error) {
	listings, err := o.ListingsForProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	listed := make(map[platform.Platform]bool, len(listings))
	for _, l := range listings {
		listed[l.Platform] = true
	}
	return listed, nil
}

// Job returns the publish job with id, or ErrNotFound.
func (o *Orchestrator) Job(ctx context.Context, id uuid.UUID) (*domain.PublishJob, error) {
	job, err := o.jobs.Get(ctx, id.String())
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("job %s: %w", id, domainErrors.ErrNotFound)
	}
	return job, nil
}

// Jobs returns every publish job, newest first.
func (o *Orchestrator) Jobs(ctx context.Context) ([]*domain.PublishJob, error) {
	jobs, err := o.jobs.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(jobs, func(a, b *domain.PublishJob) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return jobs, nil
}

func (o *Orchestrator) saveJob(ctx context.Context, job *domain.PublishJob) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.jobs.Save(ctx, job)
}

func (o *Orchestrator) recordJob(job *domain.PublishJob) {
	if o.metrics != nil {
		o.metrics.PublishJobs.WithLabelValues(domain.StatusName(job.Status)).Inc()
	}
}

// --- Listings ---

// Listings returns every tracked listing ordered by platform, newest first within a platform.
func (o *Orchestrator) Listings(ctx context.Context) ([]*domain.PlatformListing, error) {
	listings, err := o.listings.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	order := make(map[platform.Platform]int, 3)
	for i, p := range platform.All() {
		order[p] = i
	}
	slices.SortFunc(listings, func(a, b *domain.PlatformListing) int {
		if a.Platform != b.Platform {
			return order[a.Platform] - order[b.Platform]
		}
		return publishedAt(b).Compare(publishedAt(a))
	})
	return listings, nil
}

func publishedAt(l *domain.PlatformListing) time.Time {
	if l.PublishedAt == nil {
		return time.Time{}
	}
	return *l.PublishedAt
}

// ListingsForProduct returns the listings of one product.
func (o *Orchestrator) ListingsForProduct(ctx context.Context, productID uuid.UUID) ([]*domain.PlatformListing, error) {
	all, err := o.Listings(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, l := range all {
		if l.ProductID == productID {
			out = append(out, l)
		}
	}
	return out, nil
}

// SyncListingStats refreshes view count and status of every listing from its
// marketplace. A failing listing is skipped and reported in the joined error.
func (o *Orchestrator) SyncListingStats(ctx context.Context) error {
	listings, err := o.listings.Fetch(ctx)
	if err != nil {
		return err
	}

	var errs []error
	for _, l := range listings {
		if err := o.syncListing(ctx, l); err != nil {
			o.logger.Warn().Err(err).Str("listing", l.String()).Msg("listing stats sync failed")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (o *Orchestrator) syncListing(ctx context.Context, l *domain.PlatformListing) error {
	adapter, err := o.adapters.Get(l.Platform)
	if err != nil {
		return err
	}
	stats, err := adapter.GetListingStats(ctx, l.PlatformListingID)
	if err != nil {
		return fmt.Errorf("stats for %s: %w", l, err)
	}
	l.ApplyStats(stats, o.now())
	return o.listings.Update(ctx, l)
}

// RemoveListing ends the listing on its marketplace and then deletes the
// local record. The record is kept when the remote removal fails.
func (o *Orchestrator) RemoveListing(ctx context.Context, id uuid.UUID) error {
	l, err := o.listings.Get(ctx, id.String())
	if err != nil {
		return err
	}
	if l == nil {
		return fmt.Errorf("listing %s: %w", id, domainErrors.ErrNotFound)
	}
	return o.removeListing(ctx, l)
}

func (o *Orchestrator) removeListing(ctx context.Context, l *domain.PlatformListing) (err error) {
	defer func() {
		if o.metrics != nil {
			o.metrics.ListingsRemoved.WithLabelValues(l.Platform.String(), observability.Result(err)).Inc()
		}
	}()

	adapter, err := o.adapters.Get(l.Platform)
	if err != nil {
		return err
	}
	if err := adapter.EndOrRemoveListing(ctx, l.PlatformListingID); err != nil {
		return fmt.Errorf("remove %s: %w", l, err)
	}
	if err := o.listings.Delete(ctx, l.ID.String()); err != nil {
		return err
	}
	o.logger.Info().Str("listing", l.String()).Msg("listing removed")
	return nil
}

// DeleteProduct removes every listing of the product and then the product.
// Removal continues past failures; when any listing could not be removed the
// product is kept and the joined error is returned.
func (o *Orchestrator) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if _, err := o.Product(ctx, id); err != nil {
		return err
	}
	listings, err := o.ListingsForProduct(ctx, id)
	if err != nil {
		return err
	}

	var errs []error
	for _, l := range listings {
		if err := o.removeListing(ctx, l); err != nil {
			o.logger.Warn().Err(err).Str("listing", l.String()).Msg("listing removal failed")
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	if err := o.products.Delete(ctx, id.String()); err != nil {
		return err
	}
	o.logger.Info().Str("product_id", id.String()).Int("listings", len(listings)).Msg("product deleted")
	return nil
}

// productLocks hands out one mutex per product, dropped once unused.
type productLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*productLock
}

type productLock struct {
	sync.Mutex
	refs int
}

func (l *productLocks) lock(id uuid.UUID) (unlock func()) {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[uuid.UUID]*productLock)
	}
	pl, ok := l.locks[id]
	if !ok {
		pl = &productLock{}
		l.locks[id] = pl
	}
	pl.refs++
	l.mu.Unlock()

	pl.Lock()
	return func() {
		pl.Unlock()
		l.mu.Lock()
		pl.refs--
		if pl.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
