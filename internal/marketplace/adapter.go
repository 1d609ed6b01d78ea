// Package marketplace translates domain operations into marketplace API calls.
package marketplace

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/cassiomorais/marketsync/internal/domain/catalog"
	domainErrors "github.com/cassiomorais/marketsync/internal/domain/errors"
	"github.com/cassiomorais/marketsync/internal/domain/listing"
	"github.com/cassiomorais/marketsync/internal/domain/order"
	"github.com/cassiomorais/marketsync/internal/domain/platform"
)

// Adapter is the capability set every marketplace integration provides.
type Adapter interface {
	Platform() platform.Platform
	// ListingURL returns the public URL of a listing.
	ListingURL(listingID string) string

	CreateListing(ctx context.Context, p *catalog.Product) (string, error)
	EndOrRemoveListing(ctx context.Context, listingID string) error
	GetListingStats(ctx context.Context, listingID string) (listing.Stats, error)
	FetchOrders(ctx context.Context) ([]*order.Order, error)
	UpdateOrderStatus(ctx context.Context, platformOrderID string, status order.Status) error
}

// Registry selects the adapter for a platform.
type Registry struct {
	adapters map[platform.Platform]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[platform.Platform]Adapter, len(adapters))}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

// Register adds a, replacing any adapter for the same platform.
func (r *Registry) Register(a Adapter) {
	r.adapters[a.Platform()] = a
}

func (r *Registry) Get(p platform.Platform) (Adapter, error) {
	a, ok := r.adapters[p]
	if !ok {
		return nil, fmt.Errorf("no adapter for %q: %w", p, domainErrors.ErrUnknownPlatform)
	}
	return a, nil
}

// All returns the registered adapters in platform order.
func (r *Registry) All() []Adapter {
	out := make([]Adapter, 0, len(r.adapters))
	for _, p := range platform.All() {
		if a, ok := r.adapters[p]; ok {
			out = append(out, a)
		}
	}
	return out
}

func listingURL(prefix, listingID string) string {
	if prefix == "" {
		prefix = "https://example.com/item/"
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix + url.PathEscape(listingID)
}
