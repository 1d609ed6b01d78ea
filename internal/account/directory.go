// Package account keeps the seller's connected marketplace accounts.
package account

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cassiomorais/marketsync/internal/credentials"
	domain "github.com/cassiomorais/marketsync/internal/domain/account"
	domainErrors "github.com/cassiomorais/marketsync/internal/domain/errors"
	"github.com/cassiomorais/marketsync/internal/domain/platform"
	"github.com/cassiomorais/marketsync/internal/infrastructure/observability"
	"github.com/cassiomorais/marketsync/internal/store"
)

// Directory holds one PlatformAccount per platform and performs token
// exchanges against the platform's OAuth endpoint.
type Directory struct {
	mu        sync.Mutex
	accounts  *store.Collection[domain.PlatformAccount]
	creds     *credentials.Store
	exchanger domain.TokenExchanger
	validity  time.Duration
	now       func() time.Time
	logger    zerolog.Logger
}

var _ domain.Repository = (*Directory)(nil)

func NewDirectory(
	s store.Store,
	creds *credentials.Store,
	exchanger domain.TokenExchanger,
	validity time.Duration,
	logger zerolog.Logger,
) *Directory {
	return &Directory{
		accounts: store.NewCollection(s, store.KindAccount, func(a *domain.PlatformAccount) string {
			return string(a.Platform)
		}),
		creds:     creds,
		exchanger: exchanger,
		validity:  validity,
		now:       time.Now,
		logger:    observability.Category(logger, "auth.accounts"),
	}
}

// Get returns the account connected for p, or nil, nil when there is none.
func (d *Directory) Get(ctx context.Context, p platform.Platform) (*domain.PlatformAccount, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.accounts.Get(ctx, string(p))
}

// Update saves a, replacing the platform's previous account.
func (d *Directory) Update(ctx context.Context, a *domain.PlatformAccount) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.accounts.Update(ctx, a)
}

// List returns the connected accounts in platform order.
func (d *Directory) List(ctx context.Context) ([]*domain.PlatformAccount, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	accounts, err := d.accounts.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	order := platform.All()
	slices.SortFunc(accounts, func(a, b *domain.PlatformAccount) int {
		return slices.Index(order, a.Platform) - slices.Index(order, b.Platform)
	})
	return accounts, nil
}

// ExchangeRefreshToken trades refreshToken for a new grant. It does not touch stored state.
func (d *Directory) ExchangeRefreshToken(ctx context.Context, p platform.Platform, refreshToken string) (*domain.TokenGrant, error) {
	return d.exchanger.ExchangeRefreshToken(ctx, p, refreshToken)
}

// Connect completes the OAuth authorization-code flow for p and stores the
// resulting credential and account.
func (d *Directory) Connect(ctx context.Context, p platform.Platform, code string) (*domain.PlatformAccount, error) {
	if code == "" {
		return nil, domainErrors.NewValidationError("code", "missing authorization code")
	}

	grant, err := d.exchanger.ExchangeAuthorizationCode(ctx, p, code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code for %s: %w", p, err)
	}

	acct, err := domain.NewPlatformAccount(p, "", grant.AccessToken)
	if err != nil {
		return nil, err
	}

	now := d.now()
	validity := grant.ExpiresIn
	if validity <= 0 {
		validity = d.validity
	}
	acct.ApplyRefresh(grant.AccessToken, grant.RefreshToken, now, validity)
	acct.ConnectedAt = now
	if len(grant.Scopes) > 0 {
		acct.Scopes = grant.Scopes
	}

	if err := d.creds.SetToken(ctx, p, grant.AccessToken); err != nil {
		return nil, fmt.Errorf("store token for %s: %w", p, err)
	}
	if err := d.Update(ctx, acct); err != nil {
		return nil, err
	}

	d.logger.Info().
		Str("platform", p.String()).
		Dur("expires_in", validity).
		Strs("scopes", acct.Scopes).
		Msg("Stored OAuth tokens")

	return acct, nil
}

// Disconnect removes the account and credential for p.
func (d *Directory) Disconnect(ctx context.Context, p platform.Platform) error {
	if err := d.creds.Delete(ctx, p); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.accounts.Delete(ctx, string(p))
}

// ParseCallback identifies the platform of an OAuth redirect URL and extracts its code.
func ParseCallback(rawURL string) (platform.Platform, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("parse redirect url: %w", domainErrors.ErrInvalidInput)
	}

	p, ok := platform.FromCallbackURL(rawURL)
	if !ok {
		return "", "", fmt.Errorf("unsupported redirect url %s: %w", rawURL, domainErrors.ErrUnknownPlatform)
	}

	code := u.Query().Get("code")
	if code == "" {
		return "", "", domainErrors.NewValidationError("code", "missing authorization code")
	}
	return p, code, nil
}
