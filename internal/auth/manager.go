// Package auth hands out valid access tokens and owns token refresh.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/cassiomorais/marketsync/internal/domain/account"
	domainErrors "github.com/cassiomorais/marketsync/internal/domain/errors"
	"github.com/cassiomorais/marketsync/internal/domain/platform"
	"github.com/cassiomorais/marketsync/internal/infrastructure/observability"
)

// Accounts is the account directory the manager reads and refreshes.
type Accounts interface {
	Get(ctx context.Context, p platform.Platform) (*account.PlatformAccount, error)
	Update(ctx context.Context, a *account.PlatformAccount) error
	ExchangeRefreshToken(ctx context.Context, p platform.Platform, refreshToken string) (*account.TokenGrant, error)
}

// Credentials holds the secret access token per platform.
type Credentials interface {
	Token(ctx context.Context, p platform.Platform) (string, bool, error)
	SetToken(ctx context.Context, p platform.Platform, token string) error
}

// Locker serializes refreshes across processes sharing one store.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// RefreshRecorder is notified of every successful token refresh.
type RefreshRecorder interface {
	RecordTokenRefresh(p platform.Platform)
}

// Manager computes valid access tokens. Refreshes for one platform are
// collapsed: concurrent callers share the outcome of a single exchange.
type Manager struct {
	accounts Accounts
	creds    Credentials
	validity time.Duration
	flights  singleflight.Group
	locker   Locker
	recorder RefreshRecorder
	metrics  *observability.Metrics
	now      func() time.Time
	logger   zerolog.Logger
}

type Option func(*Manager)

// WithLocker wraps every refresh in a distributed lock.
func WithLocker(l Locker) Option { return func(m *Manager) { m.locker = l } }

func WithRecorder(r RefreshRecorder) Option { return func(m *Manager) { m.recorder = r } }

func WithMetrics(metrics *observability.Metrics) Option {
	return func(m *Manager) { m.metrics = metrics }
}

func NewManager(accounts Accounts, creds Credentials, validity time.Duration, logger zerolog.Logger, opts ...Option) *Manager {
	m := &Manager{
		accounts: accounts,
		creds:    creds,
		validity: validity,
		now:      time.Now,
		logger:   observability.Category(logger, "auth"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ValidAccessToken returns a usable token for p, refreshing it first when
// expired. It returns "" with no error when no account is connected.
func (m *Manager) ValidAccessToken(ctx context.Context, p platform.Platform) (string, error) {
	acct, err := m.accounts.Get(ctx, p)
	if err != nil {
		return "", fmt.Errorf("load %s account: %w", p, err)
	}
	if acct == nil {
		return "", nil
	}

	if acct.IsExpired(m.now()) {
		stale, err := m.storedToken(ctx, acct)
		if err != nil {
			return "", err
		}
		if err := m.refresh(ctx, p, stale); err != nil {
			return "", err
		}
		acct, err = m.accounts.Get(ctx, p)
		if err != nil {
			return "", fmt.Errorf("reload %s account: %w", p, err)
		}
		if acct == nil {
			return "", nil
		}
	}

	return m.storedToken(ctx, acct)
}

// RefreshToken exchanges the stored refresh token for a new access token
// after rejectedToken was refused by the marketplace. When the stored token
// has already moved past rejectedToken no exchange happens. It fails with
// ErrNoRefreshToken when none is stored and with ErrTokenRefreshFailed when
// the exchange fails.
func (m *Manager) RefreshToken(ctx context.Context, p platform.Platform, rejectedToken string) error {
	return m.refresh(ctx, p, rejectedToken)
}

func (m *Manager) storedToken(ctx context.Context, acct *account.PlatformAccount) (string, error) {
	token, ok, err := m.creds.Token(ctx, acct.Platform)
	if err != nil {
		return "", fmt.Errorf("load %s token: %w", acct.Platform, err)
	}
	if !ok {
		return acct.AccessToken, nil
	}
	return token, nil
}

// refresh runs at most one exchange per platform at a time. staleToken is the
// access token the caller saw; if it has already been replaced by the time the
// refresh runs, the newer token is kept and no exchange happens.
func (m *Manager) refresh(ctx context.Context, p platform.Platform, staleToken string) error {
	_, err, shared := m.flights.Do(string(p), func() (any, error) {
		return nil, m.doRefresh(ctx, p, staleToken)
	})
	if shared {
		m.logger.Debug().Str("platform", p.String()).Msg("Joined in-flight token refresh")
	}
	return err
}

func (m *Manager) doRefresh(ctx context.Context, p platform.Platform, staleToken string) error {
	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, "token-refresh:"+string(p))
		if err != nil {
			return fmt.Errorf("%w: lock: %v", domainErrors.ErrTokenRefreshFailed, err)
		}
		defer unlock()
	}

	acct, err := m.accounts.Get(ctx, p)
	if err != nil {
		return fmt.Errorf("load %s account: %w", p, err)
	}
	if acct == nil || !acct.HasRefreshToken() {
		return domainErrors.ErrNoRefreshToken
	}
	current, err := m.storedToken(ctx, acct)
	if err != nil {
		return err
	}
	if current != staleToken && !acct.IsExpired(m.now()) {
		m.logger.Debug().Str("platform", p.String()).Msg("Token already refreshed, skipping exchange")
		return nil
	}

	grant, err := m.accounts.ExchangeRefreshToken(ctx, p, *acct.RefreshToken)
	if err != nil {
		m.observe(p, err)
		m.logger.Error().Err(err).Str("platform", p.String()).Msg("Token refresh failed")
		return fmt.Errorf("%w: %s", domainErrors.ErrTokenRefreshFailed, p)
	}
	if grant == nil || grant.AccessToken == "" {
		m.observe(p, errors.New("empty grant"))
		return fmt.Errorf("%w: %s returned no access token", domainErrors.ErrTokenRefreshFailed, p)
	}

	if err := m.creds.SetToken(ctx, p, grant.AccessToken); err != nil {
		return fmt.Errorf("store %s token: %w", p, err)
	}

	acct.ApplyRefresh(grant.AccessToken, grant.RefreshToken, m.now(), m.validity)
	if err := m.accounts.Update(ctx, acct); err != nil {
		return fmt.Errorf("save %s account: %w", p, err)
	}

	m.observe(p, nil)
	if m.recorder != nil {
		m.recorder.RecordTokenRefresh(p)
	}
	m.logger.Info().
		Str("platform", p.String()).
		Time("expires_at", *acct.TokenExpiresAt).
		Msg("Refreshed access token")
	return nil
}

func (m *Manager) observe(p platform.Platform, err error) {
	if m.metrics == nil {
		return
	}
	m.metrics.TokenRefreshes.WithLabelValues(p.String(), observability.Result(err)).Inc()
}
