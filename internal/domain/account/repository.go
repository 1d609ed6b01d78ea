package account

import (
	"context"
	"time"

	"github.com/cassiomorais/marketsync/internal/domain/platform"
)

// Repository defines the interface for platform account persistence.
// Get returns nil, nil when no account is connected for the platform.
type Repository interface {
	Get(ctx context.Context, p platform.Platform) (*PlatformAccount, error)
	Update(ctx context.Context, account *PlatformAccount) error
	List(ctx context.Context) ([]*PlatformAccount, error)
}

// TokenGrant is the result of a token endpoint exchange.
type TokenGrant struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
	Scopes       []string
}

// TokenExchanger performs the platform-specific OAuth token exchanges.
type TokenExchanger interface {
	ExchangeRefreshToken(ctx context.Context, p platform.Platform, refreshToken string) (*TokenGrant, error)
	ExchangeAuthorizationCode(ctx context.Context, p platform.Platform, code string) (*TokenGrant, error)
}
