package oauth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainErrors "github.com/cassiomorais/marketsync/internal/domain/errors"
	"github.com/cassiomorais/marketsync/internal/domain/platform"
)

func newTestExchanger(url string) *Exchanger {
	e := NewExchanger(map[platform.Platform]Client{
		platform.EBay: {TokenURL: url, ClientID: "id", ClientSecret: "secret", RedirectURL: "marketsync://oauth/ebay"},
	}, nil, 3, zerolog.Nop())
	e.retryCfg.InitialDelay = time.Millisecond
	e.retryCfg.MaxDelay = time.Millisecond
	return e
}

func TestExchangeRefreshToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "R1", r.PostForm.Get("refresh_token"))
		assert.Equal(t, "id", r.PostForm.Get("client_id"))
		assert.Equal(t, "secret", r.PostForm.Get("client_secret"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"A2","refresh_token":"R2","expires_in":7200,"scope":"sell orders"}`))
	}))
	defer srv.Close()

	grant, err := newTestExchanger(srv.URL).ExchangeRefreshToken(context.Background(), platform.EBay, "R1")
	require.NoError(t, err)

	assert.Equal(t, "A2", grant.AccessToken)
	assert.Equal(t, "R2", grant.RefreshToken)
	assert.Equal(t, 2*time.Hour, grant.ExpiresIn)
	assert.Equal(t, []string{"sell", "orders"}, grant.Scopes)
}

func TestExchangeAuthorizationCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "C1", r.PostForm.Get("code"))
		assert.Equal(t, "marketsync://oauth/ebay", r.PostForm.Get("redirect_uri"))
		w.Write([]byte(`{"access_token":"A1","expires_in":3600}`))
	}))
	defer srv.Close()

	grant, err := newTestExchanger(srv.URL).ExchangeAuthorizationCode(context.Background(), platform.EBay, "C1")
	require.NoError(t, err)
	assert.Equal(t, "A1", grant.AccessToken)
	assert.Empty(t, grant.Scopes)
}

func TestExchange_HTTPErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newTestExchanger(srv.URL).ExchangeRefreshToken(context.Background(), platform.EBay, "R1")
	assert.True(t, domainErrors.IsHTTPStatus(err, http.StatusBadRequest))
	assert.Equal(t, int32(1), calls.Load())
}

func TestExchange_NetworkErrorRetried(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newTestExchanger(url).ExchangeRefreshToken(context.Background(), platform.EBay, "R1")
	assert.ErrorIs(t, err, domainErrors.ErrNetwork)
}

func TestExchange_EmptyAccessToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"expires_in":3600}`))
	}))
	defer srv.Close()

	_, err := newTestExchanger(srv.URL).ExchangeRefreshToken(context.Background(), platform.EBay, "R1")
	assert.ErrorIs(t, err, domainErrors.ErrInvalidResponse)
}

func TestExchange_UnknownPlatform(t *testing.T) {
	_, err := newTestExchanger("http://unused").ExchangeRefreshToken(context.Background(), platform.Mercari, "R1")
	assert.ErrorIs(t, err, domainErrors.ErrUnknownPlatform)
}
