package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	accounts "github.com/cassiomorais/marketsync/internal/account"
	"github.com/cassiomorais/marketsync/internal/credentials"
	"github.com/cassiomorais/marketsync/internal/domain/account"
	domainErrors "github.com/cassiomorais/marketsync/internal/domain/errors"
	"github.com/cassiomorais/marketsync/internal/domain/platform"
	"github.com/cassiomorais/marketsync/internal/gateway"
	"github.com/cassiomorais/marketsync/internal/infrastructure/observability"
	"github.com/cassiomorais/marketsync/internal/store"
	"github.com/cassiomorais/marketsync/internal/testutil"
)

type fixture struct {
	manager   *Manager
	directory *accounts.Directory
	creds     *credentials.Store
	exchanger *testutil.MockTokenExchanger
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	s := store.NewMemory()
	creds := credentials.New(s)
	ex := &testutil.MockTokenExchanger{}
	dir := accounts.NewDirectory(s, creds, ex, time.Hour, zerolog.Nop())
	return &fixture{
		manager:   NewManager(dir, creds, time.Hour, zerolog.Nop(), opts...),
		directory: dir,
		creds:     creds,
		exchanger: ex,
	}
}

func (f *fixture) connect(t *testing.T, p platform.Platform, token, refresh string, expiresAt time.Time) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.directory.Update(ctx, testutil.NewTestAccount(p, token, refresh, expiresAt)))
	require.NoError(t, f.creds.SetToken(ctx, p, token))
}

type countingRecorder struct {
	mu        sync.Mutex
	platforms []platform.Platform
}

func (r *countingRecorder) RecordTokenRefresh(p platform.Platform) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.platforms = append(r.platforms, p)
}

func TestValidAccessToken_NotExpired_NoRefresh(t *testing.T) {
	for _, p := range platform.All() {
		t.Run(p.String(), func(t *testing.T) {
			f := newFixture(t)
			f.connect(t, p, "T1", "R1", time.Now().Add(time.Hour))

			token, err := f.manager.ValidAccessToken(context.Background(), p)
			require.NoError(t, err)
			assert.Equal(t, "T1", token)
			assert.Zero(t, f.exchanger.RefreshCalls.Load())
		})
	}
}

func TestValidAccessToken_NoExpiry_NeverRefreshes(t *testing.T) {
	f := newFixture(t)
	f.connect(t, platform.EBay, "T1", "", time.Time{})

	token, err := f.manager.ValidAccessToken(context.Background(), platform.EBay)
	require.NoError(t, err)
	assert.Equal(t, "T1", token)
	assert.Zero(t, f.exchanger.RefreshCalls.Load())
}

func TestValidAccessToken_Expired_RefreshesOnce(t *testing.T) {
	for _, p := range platform.All() {
		t.Run(p.String(), func(t *testing.T) {
			recorder := &countingRecorder{}
			f := newFixture(t, WithRecorder(recorder))
			f.connect(t, p, "T1", "R1", time.Now().Add(-time.Minute))

			token, err := f.manager.ValidAccessToken(context.Background(), p)
			require.NoError(t, err)
			assert.Equal(t, "refreshed-"+p.String()+"-token", token)
			assert.Equal(t, int32(1), f.exchanger.RefreshCalls.Load())
			assert.Equal(t, []platform.Platform{p}, recorder.platforms)

			acct, err := f.directory.Get(context.Background(), p)
			require.NoError(t, err)
			assert.Equal(t, token, acct.AccessToken)
			require.NotNil(t, acct.TokenExpiresAt)
			assert.WithinDuration(t, time.Now().Add(time.Hour), *acct.TokenExpiresAt, 5*time.Second)
		})
	}
}

func TestValidAccessToken_NoAccount(t *testing.T) {
	f := newFixture(t)

	token, err := f.manager.ValidAccessToken(context.Background(), platform.Mercari)
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestValidAccessToken_ConcurrentCallersShareRefresh(t *testing.T) {
	f := newFixture(t)
	f.connect(t, platform.Facebook, "T1", "R1", time.Now().Add(-time.Minute))

	release := make(chan struct{})
	f.exchanger.ExchangeRefreshTokenFunc = func(ctx context.Context, p platform.Platform, refresh string) (*account.TokenGrant, error) {
		<-release
		return &account.TokenGrant{AccessToken: "T2"}, nil
	}

	var wg sync.WaitGroup
	tokens := make([]string, 10)
	for i := range tokens {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := f.manager.ValidAccessToken(context.Background(), platform.Facebook)
			assert.NoError(t, err)
			tokens[i] = token
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), f.exchanger.RefreshCalls.Load())
	for _, token := range tokens {
		assert.Equal(t, "T2", token)
	}
}

func TestRefreshToken_NoRefreshToken(t *testing.T) {
	f := newFixture(t)
	f.connect(t, platform.EBay, "T1", "", time.Now().Add(-time.Minute))

	err := f.manager.RefreshToken(context.Background(), platform.EBay, "T1")
	assert.ErrorIs(t, err, domainErrors.ErrNoRefreshToken)
	assert.NotErrorIs(t, err, domainErrors.ErrTokenRefreshFailed)

	_, err = f.manager.ValidAccessToken(context.Background(), platform.EBay)
	assert.ErrorIs(t, err, domainErrors.ErrNoRefreshToken)
}

func TestRefreshToken_NoAccount(t *testing.T) {
	f := newFixture(t)

	err := f.manager.RefreshToken(context.Background(), platform.EBay, "T1")
	assert.ErrorIs(t, err, domainErrors.ErrNoRefreshToken)
}

func TestRefreshToken_ExchangeFailureIsNormalized(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics("test", reg)
	f := newFixture(t, WithMetrics(metrics))
	f.connect(t, platform.Mercari, "T1", "R1", time.Now().Add(time.Hour))

	raw := errors.New("invalid_grant")
	f.exchanger.ExchangeRefreshTokenFunc = func(ctx context.Context, p platform.Platform, refresh string) (*account.TokenGrant, error) {
		return nil, raw
	}

	err := f.manager.RefreshToken(context.Background(), platform.Mercari, "T1")
	assert.ErrorIs(t, err, domainErrors.ErrTokenRefreshFailed)
	assert.NotErrorIs(t, err, raw)
	assert.Equal(t, float64(1), promtest.ToFloat64(metrics.TokenRefreshes.WithLabelValues("mercari", "failure")))

	token, ok, err := f.creds.Token(context.Background(), platform.Mercari)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "T1", token)
}

func TestRefreshToken_RotatesRefreshToken(t *testing.T) {
	f := newFixture(t)
	f.connect(t, platform.EBay, "T1", "R1", time.Now().Add(time.Hour))
	f.exchanger.ExchangeRefreshTokenFunc = func(ctx context.Context, p platform.Platform, refresh string) (*account.TokenGrant, error) {
		assert.Equal(t, "R1", refresh)
		return &account.TokenGrant{AccessToken: "T2", RefreshToken: "R2"}, nil
	}

	require.NoError(t, f.manager.RefreshToken(context.Background(), platform.EBay, "T1"))

	acct, err := f.directory.Get(context.Background(), platform.EBay)
	require.NoError(t, err)
	assert.Equal(t, "T2", acct.AccessToken)
	assert.Equal(t, "R2", *acct.RefreshToken)
}

type fakeLocker struct {
	locks   atomic.Int32
	unlocks atomic.Int32
	err     error
}

func (l *fakeLocker) Lock(ctx context.Context, key string) (func(), error) {
	if l.err != nil {
		return nil, l.err
	}
	l.locks.Add(1)
	return func() { l.unlocks.Add(1) }, nil
}

func TestRefreshToken_UsesDistributedLock(t *testing.T) {
	locker := &fakeLocker{}
	f := newFixture(t, WithLocker(locker))
	f.connect(t, platform.EBay, "T1", "R1", time.Now().Add(-time.Minute))

	_, err := f.manager.ValidAccessToken(context.Background(), platform.EBay)
	require.NoError(t, err)
	assert.Equal(t, int32(1), locker.locks.Load())
	assert.Equal(t, int32(1), locker.unlocks.Load())
}

func TestRefreshToken_LockFailure(t *testing.T) {
	f := newFixture(t, WithLocker(&fakeLocker{err: errors.New("redis down")}))
	f.connect(t, platform.EBay, "T1", "R1", time.Now().Add(-time.Minute))

	err := f.manager.RefreshToken(context.Background(), platform.EBay, "T1")
	assert.ErrorIs(t, err, domainErrors.ErrTokenRefreshFailed)
	assert.Zero(t, f.exchanger.RefreshCalls.Load())
}

func TestRefreshToken_SkipsWhenAlreadyRefreshed(t *testing.T) {
	f := newFixture(t)
	f.connect(t, platform.EBay, "T2", "R1", time.Now().Add(time.Hour))

	require.NoError(t, f.manager.refresh(context.Background(), platform.EBay, "T1"))
	assert.Zero(t, f.exchanger.RefreshCalls.Load())
}

func TestRefreshToken_RejectedTokenAlreadyReplaced(t *testing.T) {
	f := newFixture(t)
	f.connect(t, platform.EBay, "T1", "R1", time.Now().Add(time.Hour))
	f.exchanger.ExchangeRefreshTokenFunc = func(ctx context.Context, p platform.Platform, refresh string) (*account.TokenGrant, error) {
		return &account.TokenGrant{AccessToken: "T2"}, nil
	}

	require.NoError(t, f.manager.RefreshToken(context.Background(), platform.EBay, "T1"))
	require.NoError(t, f.manager.RefreshToken(context.Background(), platform.EBay, "T1"))

	assert.Equal(t, int32(1), f.exchanger.RefreshCalls.Load())
	token, err := f.manager.ValidAccessToken(context.Background(), platform.EBay)
	require.NoError(t, err)
	assert.Equal(t, "T2", token)
}

// Two requests go out with T1. The first 401 refreshes to T2 and its retry
// succeeds before the second 401 arrives; the second must reuse T2.
func TestGateway_SequentialUnauthorizedOnSameToken_SingleExchange(t *testing.T) {
	f := newFixture(t)
	f.connect(t, platform.EBay, "T1", "R1", time.Now().Add(time.Hour))
	f.exchanger.ExchangeRefreshTokenFunc = func(ctx context.Context, p platform.Platform, refresh string) (*account.TokenGrant, error) {
		return &account.TokenGrant{AccessToken: "T2"}, nil
	}

	var (
		staleArrived sync.WaitGroup
		staleCount   atomic.Int32
		freshServed  = make(chan struct{})
		once         sync.Once
	)
	staleArrived.Add(2)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Header.Get("Authorization") {
		case "Bearer T1":
			n := staleCount.Add(1)
			staleArrived.Done()
			staleArrived.Wait()
			if n == 2 {
				<-freshServed
			}
			w.WriteHeader(http.StatusUnauthorized)
		case "Bearer T2":
			w.Write([]byte(`{}`))
			once.Do(func() { close(freshServed) })
		default:
			w.WriteHeader(http.StatusForbidden)
		}
	}))
	defer srv.Close()

	gw := gateway.New(gateway.Config{
		BaseURLs: map[platform.Platform]string{platform.EBay: srv.URL},
		Timeout:  5 * time.Second,
	}, f.manager, zerolog.Nop())

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = gw.Send(context.Background(), gateway.NewEndpoint(platform.EBay, http.MethodGet, "/orders"), nil)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(2), staleCount.Load())
	assert.Equal(t, int32(1), f.exchanger.RefreshCalls.Load())
}
