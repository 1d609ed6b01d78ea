package testutil

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cassiomorais/marketsync/internal/domain/account"
	"github.com/cassiomorais/marketsync/internal/domain/catalog"
	"github.com/cassiomorais/marketsync/internal/domain/listing"
	"github.com/cassiomorais/marketsync/internal/domain/order"
	"github.com/cassiomorais/marketsync/internal/domain/platform"
)

// --- Token Exchanger Mock ---

// MockTokenExchanger is a mock implementation of account.TokenExchanger.
// By default it grants "refreshed-<platform>-token" and "access-<platform>-<code>".
type MockTokenExchanger struct {
	RefreshCalls atomic.Int32
	CodeCalls    atomic.Int32

	ExchangeRefreshTokenFunc      func(ctx context.Context, p platform.Platform, refreshToken string) (*account.TokenGrant, error)
	ExchangeAuthorizationCodeFunc func(ctx context.Context, p platform.Platform, code string) (*account.TokenGrant, error)
}

func (m *MockTokenExchanger) ExchangeRefreshToken(ctx context.Context, p platform.Platform, refreshToken string) (*account.TokenGrant, error) {
	m.RefreshCalls.Add(1)
	if m.ExchangeRefreshTokenFunc != nil {
		return m.ExchangeRefreshTokenFunc(ctx, p, refreshToken)
	}
	return &account.TokenGrant{AccessToken: fmt.Sprintf("refreshed-%s-token", p)}, nil
}

func (m *MockTokenExchanger) ExchangeAuthorizationCode(ctx context.Context, p platform.Platform, code string) (*account.TokenGrant, error) {
	m.CodeCalls.Add(1)
	if m.ExchangeAuthorizationCodeFunc != nil {
		return m.ExchangeAuthorizationCodeFunc(ctx, p, code)
	}
	return &account.TokenGrant{
		AccessToken:  fmt.Sprintf("access-%s-%s", p, code),
		RefreshToken: fmt.Sprintf("refresh-%s-%s", p, code),
		ExpiresIn:    time.Hour,
		Scopes:       []string{"sell", "orders", "inventory"},
	}, nil
}

// --- Marketplace Adapter Mock ---

// MockAdapter implements the marketplace adapter method set in memory.
// Listing ids are "<platform>-<n>". Func fields override the defaults.
type MockAdapter struct {
	mu       sync.Mutex
	platform platform.Platform
	seq      int
	listings map[string]listing.Stats
	orders   []*order.Order
	statuses map[string]order.Status

	CreateListingFunc      func(ctx context.Context, p *catalog.Product) (string, error)
	EndOrRemoveListingFunc func(ctx context.Context, listingID string) error
	GetListingStatsFunc    func(ctx context.Context, listingID string) (listing.Stats, error)
	FetchOrdersFunc        func(ctx context.Context) ([]*order.Order, error)
	UpdateOrderStatusFunc  func(ctx context.Context, platformOrderID string, status order.Status) error
}

func NewMockAdapter(p platform.Platform, orders ...*order.Order) *MockAdapter {
	return &MockAdapter{
		platform: p,
		listings: make(map[string]listing.Stats),
		orders:   orders,
		statuses: make(map[string]order.Status),
	}
}

func (m *MockAdapter) Platform() platform.Platform { return m.platform }

func (m *MockAdapter) ListingURL(listingID string) string {
	return "https://example.com/item/" + listingID
}

func (m *MockAdapter) CreateListing(ctx context.Context, p *catalog.Product) (string, error) {
	if m.CreateListingFunc != nil {
		return m.CreateListingFunc(ctx, p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	id := fmt.Sprintf("%s-%d", m.platform, m.seq)
	m.listings[id] = listing.Stats{Active: true}
	return id, nil
}

func (m *MockAdapter) EndOrRemoveListing(ctx context.Context, listingID string) error {
	if m.EndOrRemoveListingFunc != nil {
		return m.EndOrRemoveListingFunc(ctx, listingID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.listings, listingID)
	return nil
}

func (m *MockAdapter) GetListingStats(ctx context.Context, listingID string) (listing.Stats, error) {
	if m.GetListingStatsFunc != nil {
		return m.GetListingStatsFunc(ctx, listingID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listings[listingID], nil
}

func (m *MockAdapter) FetchOrders(ctx context.Context) ([]*order.Order, error) {
	if m.FetchOrdersFunc != nil {
		return m.FetchOrdersFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*order.Order, len(m.orders))
	for i, o := range m.orders {
		cp := *o
		out[i] = &cp
	}
	return out, nil
}

func (m *MockAdapter) UpdateOrderStatus(ctx context.Context, platformOrderID string, status order.Status) error {
	if m.UpdateOrderStatusFunc != nil {
		return m.UpdateOrderStatusFunc(ctx, platformOrderID, status)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses[platformOrderID] = status
	return nil
}

// ListingCount returns the number of remote listings currently live.
func (m *MockAdapter) ListingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.listings)
}

// SetListingStats overrides the stats reported for a listing.
func (m *MockAdapter) SetListingStats(listingID string, stats listing.Stats) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listings[listingID] = stats
}

// PushedStatus returns the last status pushed for a platform order id.
func (m *MockAdapter) PushedStatus(platformOrderID string) (order.Status, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.statuses[platformOrderID]
	return s, ok
}
