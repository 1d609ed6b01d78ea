package account

import (
	"time"

	"github.com/cassiomorais/marketsync/internal/domain/errors"
	"github.com/cassiomorais/marketsync/internal/domain/platform"
	"github.com/google/uuid"
)

// PlatformAccount is the seller's connection to one marketplace.
type PlatformAccount struct {
	ID             uuid.UUID         `json:"id"`
	Platform       platform.Platform `json:"platform"`
	AccountName    string            `json:"account_name"`
	AccessToken    string            `json:"access_token"`
	RefreshToken   *string           `json:"refresh_token,omitempty"`
	TokenExpiresAt *time.Time        `json:"token_expires_at,omitempty"`
	Scopes         []string          `json:"scopes"`
	IsActive       bool              `json:"is_active"`
	ConnectedAt    time.Time         `json:"connected_at"`
}

func NewPlatformAccount(p platform.Platform, accountName, accessToken string) (*PlatformAccount, error) {
	if !p.Valid() {
		return nil, errors.NewValidationError("platform", "unsupported platform "+string(p))
	}
	if accessToken == "" {
		return nil, errors.NewValidationError("access_token", "cannot be empty")
	}
	if accountName == "" {
		accountName = p.DisplayName() + " User"
	}

	return &PlatformAccount{
		ID:          uuid.New(),
		Platform:    p,
		AccountName: accountName,
		AccessToken: accessToken,
		Scopes:      []string{},
		IsActive:    true,
		ConnectedAt: time.Now(),
	}, nil
}

// IsExpired reports whether the access token expired before now.
// An account without an expiry never expires.
func (a *PlatformAccount) IsExpired(now time.Time) bool {
	if a.TokenExpiresAt == nil {
		return false
	}
	return now.After(*a.TokenExpiresAt)
}

// HasRefreshToken reports whether a non-empty refresh token is stored.
func (a *PlatformAccount) HasRefreshToken() bool {
	return a.RefreshToken != nil && *a.RefreshToken != ""
}

// ApplyRefresh records a refreshed access token valid until now+validity.
// A non-empty rotated refresh token replaces the stored one.
func (a *PlatformAccount) ApplyRefresh(accessToken, rotatedRefreshToken string, now time.Time, validity time.Duration) {
	a.AccessToken = accessToken
	expiresAt := now.Add(validity)
	a.TokenExpiresAt = &expiresAt
	if rotatedRefreshToken != "" {
		a.RefreshToken = &rotatedRefreshToken
	}
}
