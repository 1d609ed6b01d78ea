// Package oauth exchanges OAuth authorization codes and refresh tokens at
// each marketplace's token endpoint.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/cassiomorais/marketsync/internal/domain/account"
	domainErrors "github.com/cassiomorais/marketsync/internal/domain/errors"
	"github.com/cassiomorais/marketsync/internal/domain/platform"
	"github.com/cassiomorais/marketsync/internal/infrastructure/observability"
	"github.com/cassiomorais/marketsync/pkg/retry"
)

// Client identifies this application to one platform's token endpoint.
type Client struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Exchanger implements account.TokenExchanger over HTTP.
type Exchanger struct {
	clients  map[platform.Platform]Client
	http     *http.Client
	retryCfg retry.Config
	logger   zerolog.Logger
}

var _ account.TokenExchanger = (*Exchanger)(nil)

func NewExchanger(clients map[platform.Platform]Client, httpClient *http.Client, attempts uint, logger zerolog.Logger) *Exchanger {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	logger = observability.Category(logger, "auth.oauth")

	cfg := retry.DefaultConfig()
	if attempts > 0 {
		cfg.MaxAttempts = attempts
	}
	cfg.RetryIf = func(err error) bool { return errors.Is(err, domainErrors.ErrNetwork) }
	cfg.OnRetry = func(attempt uint, err error) {
		logger.Warn().Err(err).Uint("attempt", attempt).Msg("Token exchange failed, retrying")
	}

	return &Exchanger{clients: clients, http: httpClient, retryCfg: cfg, logger: logger}
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope"`
}

func (e *Exchanger) ExchangeRefreshToken(ctx context.Context, p platform.Platform, refreshToken string) (*account.TokenGrant, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	return e.exchange(ctx, p, form)
}

func (e *Exchanger) ExchangeAuthorizationCode(ctx context.Context, p platform.Platform, code string) (*account.TokenGrant, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	return e.exchange(ctx, p, form)
}

func (e *Exchanger) exchange(ctx context.Context, p platform.Platform, form url.Values) (*account.TokenGrant, error) {
	client, ok := e.clients[p]
	if !ok || client.TokenURL == "" {
		return nil, fmt.Errorf("no oauth client for %s: %w", p, domainErrors.ErrUnknownPlatform)
	}

	form.Set("client_id", client.ClientID)
	form.Set("client_secret", client.ClientSecret)
	if client.RedirectURL != "" {
		form.Set("redirect_uri", client.RedirectURL)
	}

	resp, err := retry.DoWithResult(ctx, e.retryCfg, func() (*tokenResponse, error) {
		return e.post(ctx, client.TokenURL, form)
	})
	if err != nil {
		return nil, fmt.Errorf("%s token exchange: %w", p, err)
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("%s token exchange: %w", p, domainErrors.InvalidResponse(errors.New("empty access_token")))
	}

	grant := &account.TokenGrant{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    time.Duration(resp.ExpiresIn) * time.Second,
	}
	if resp.Scope != "" {
		grant.Scopes = strings.Fields(resp.Scope)
	}

	e.logger.Debug().
		Str("platform", p.String()).
		Str("grant_type", form.Get("grant_type")).
		Dur("expires_in", grant.ExpiresIn).
		Msg("Token exchange succeeded")

	return grant, nil
}

func (e *Exchanger) post(ctx context.Context, tokenURL string, form url.Values) (*tokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	res, err := e.http.Do(req)
	if err != nil {
		return nil, domainErrors.NetworkError(err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, domainErrors.InvalidResponse(err)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, domainErrors.NewHTTPError(res.StatusCode)
	}

	var out tokenResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, domainErrors.DecodingError(err)
	}
	return &out, nil
}
