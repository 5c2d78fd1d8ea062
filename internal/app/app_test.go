package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dropDatabas3/connkeeper/internal/config"
	"github.com/dropDatabas3/connkeeper/internal/domain/repository"
	"github.com/dropDatabas3/connkeeper/internal/lifecycle"
	"github.com/dropDatabas3/connkeeper/internal/store"
)

func providerServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/probe", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer new-at" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "new-at",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestBuild_MemoryStackEndToEnd(t *testing.T) {
	srv := providerServer(t)

	cfg := config.Default()
	cfg.Security.TokenEncryptionKey = "0123456789abcdef0123456789abcdef"
	cfg.Providers.YouTube = config.OAuthClient{ClientID: "yt", ClientSecret: "s", TokenURL: srv.URL + "/token"}
	cfg.Providers.ProbeURLs = map[string]string{"youtube": srv.URL + "/probe"}

	c, err := Build(context.Background(), cfg, Options{
		Registerer: prometheus.NewRegistry(),
		HTTPClient: srv.Client(),
		Logger:     zap.NewNop(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	secondary, ok := c.Stores.Store(repository.StoreSecondary)
	require.True(t, ok)
	past := time.Now().Add(-time.Hour).UTC()
	require.NoError(t, secondary.Create(context.Background(),
		store.Identity{ID: "s1", Username: "dana", Email: "dana@example.com"},
		map[repository.Platform]repository.PlatformConnection{
			repository.PlatformYouTube: {AccessToken: "old-at", RefreshToken: "rt", TokenExpiry: &past},
		}))

	ctx := context.Background()
	user, err := c.Engine.ResolveUser(ctx, "dana", "")
	require.NoError(t, err)
	assert.Equal(t, repository.StoreSecondary, user.Store)

	res := c.Engine.RefreshIfNeeded(ctx, user, repository.PlatformYouTube)
	require.True(t, res.Success, res.Error)
	assert.True(t, res.Refreshed)

	hr, err := c.Engine.CheckHealth(ctx, user, repository.PlatformYouTube)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusHealthy, hr.Status)

	assert.Empty(t, c.Stores.Ping(ctx))
}

func TestBuild_RejectsBadProbeURLPlatform(t *testing.T) {
	cfg := config.Default()
	cfg.Providers.ProbeURLs = map[string]string{"myspace": "http://localhost"}
	_, err := Build(context.Background(), cfg, Options{Registerer: prometheus.NewRegistry(), Logger: zap.NewNop()})
	require.ErrorIs(t, err, repository.ErrPlatformUnsupported)
}

func TestBuild_RejectsBadKey(t *testing.T) {
	cfg := config.Default()
	cfg.Security.TokenEncryptionKey = "short"
	_, err := Build(context.Background(), cfg, Options{Registerer: prometheus.NewRegistry(), Logger: zap.NewNop()})
	require.Error(t, err)
}

// downDriver simula un backend que no responde al abrir.
type downDriver struct{}

func (downDriver) Name() string { return "down" }

func (downDriver) Open(context.Context, store.BackendConfig) (store.Backend, error) {
	return nil, fmt.Errorf("%w: dial tcp 127.0.0.1:1: connection refused", repository.ErrStoreUnavailable)
}

func init() { store.RegisterDriver(downDriver{}) }

func TestBuild_OneStoreDownStartsDegraded(t *testing.T) {
	srv := providerServer(t)
	cfg := config.Default()
	cfg.Stores.Secondary.Driver = "down"
	cfg.Providers.ProbeURLs = map[string]string{"youtube": srv.URL + "/probe"}

	c, err := Build(context.Background(), cfg, Options{
		Registerer: prometheus.NewRegistry(),
		HTTPClient: srv.Client(),
		Logger:     zap.NewNop(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	ctx := context.Background()
	primary, ok := c.Stores.Store(repository.StorePrimary)
	require.True(t, ok)
	future := time.Now().Add(time.Hour).UTC()
	require.NoError(t, primary.Create(ctx,
		store.Identity{ID: "p1", Username: "erin"},
		map[repository.Platform]repository.PlatformConnection{
			repository.PlatformYouTube: {AccessToken: "new-at", TokenExpiry: &future},
		}))

	user, err := c.Engine.ResolveUser(ctx, "erin", "")
	require.NoError(t, err)
	assert.Equal(t, repository.StorePrimary, user.Store)

	hr, err := c.Engine.CheckHealth(ctx, user, repository.PlatformYouTube)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusHealthy, hr.Status)

	_, err = c.Engine.ResolveUser(ctx, "nobody", "")
	require.ErrorIs(t, err, repository.ErrUserNotFound)

	down := c.Stores.Ping(ctx)
	require.Len(t, down, 1)
	assert.ErrorIs(t, down[repository.StoreSecondary], repository.ErrStoreUnavailable)

	secondary, ok := c.Stores.Store(repository.StoreSecondary)
	require.True(t, ok)
	err = secondary.Create(ctx, store.Identity{ID: "s1"}, nil)
	assert.ErrorIs(t, err, repository.ErrStoreWriteFailed)
}

func TestBuild_BothStoresDownFails(t *testing.T) {
	cfg := config.Default()
	cfg.Stores.Primary.Driver = "down"
	cfg.Stores.Secondary.Driver = "down"
	_, err := Build(context.Background(), cfg, Options{Registerer: prometheus.NewRegistry(), Logger: zap.NewNop()})
	require.ErrorIs(t, err, repository.ErrStoreUnavailable)
}

func TestBuild_UnknownDriverIsFatal(t *testing.T) {
	cfg := config.Default()
	cfg.Stores.Secondary.Driver = "cassandra"
	_, err := Build(context.Background(), cfg, Options{Registerer: prometheus.NewRegistry(), Logger: zap.NewNop()})
	require.Error(t, err)
	assert.NotErrorIs(t, err, repository.ErrStoreUnavailable)
}
