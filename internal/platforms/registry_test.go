package platforms

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/connkeeper/internal/domain/repository"
)

func TestHTTPProbe_StatusMapping(t *testing.T) {
	var gotAuth, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotUA = r.Header.Get("User-Agent")
		if r.Header.Get("Authorization") == "Bearer good" {
			_, _ = w.Write([]byte(`{"id":"me"}`))
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	probe := HTTPProbe(srv.Client(), srv.URL, map[string]string{"User-Agent": "test-agent"})

	res, err := probe(context.Background(), "good")
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, "Bearer good", gotAuth)
	assert.Equal(t, "test-agent", gotUA)

	res, err = probe(context.Background(), "revoked")
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, "status 401", res.Reason)
}

func TestHTTPProbe_TransportErrorIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := HTTPProbe(nil, url, nil)(context.Background(), "tok")
	require.Error(t, err)
}

func TestRegistry_ProbeWrapsErrors(t *testing.T) {
	boom := errors.New("dns failure")
	r := NewRegistry(Entry{
		Platform: repository.PlatformReddit,
		Probe:    func(context.Context, string) (ProbeResult, error) { return ProbeResult{}, boom },
	})

	_, err := r.Probe(context.Background(), repository.PlatformReddit, "t")
	require.ErrorIs(t, err, repository.ErrProbeFailed)
	require.ErrorIs(t, err, boom)

	_, err = r.Probe(context.Background(), repository.PlatformGmail, "t")
	require.ErrorIs(t, err, repository.ErrPlatformUnsupported)
}

func TestRegistry_RefreshUnsupported(t *testing.T) {
	r := NewRegistry(Entry{
		Platform: repository.PlatformPinterest,
		Probe:    func(context.Context, string) (ProbeResult, error) { return Valid(), nil },
	})
	assert.False(t, r.CanRefresh(repository.PlatformPinterest))

	_, err := r.Refresh(context.Background(), repository.PlatformPinterest, Identity{RefreshToken: "rt"})
	require.ErrorIs(t, err, repository.ErrRefreshFailed)
	assert.Contains(t, err.Error(), "unsupported")
}

func TestRegistry_RegisterValidation(t *testing.T) {
	r := NewRegistry()
	probe := func(context.Context, string) (ProbeResult, error) { return Valid(), nil }

	require.ErrorIs(t, r.Register(Entry{Platform: "myspace", Probe: probe}), repository.ErrPlatformUnsupported)
	require.ErrorIs(t, r.Register(Entry{Platform: repository.PlatformGoogle}), repository.ErrInvalidInput)
	require.NoError(t, r.Register(Entry{Platform: repository.PlatformGoogle, Probe: probe}))
	require.ErrorIs(t, r.Register(Entry{Platform: repository.PlatformGoogle, Probe: probe}), repository.ErrAlreadyExists)
}

func tokenServer(t *testing.T, calls *atomic.Int32, body map[string]any, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
}

func TestBuiltin_YouTubeRefreshViaTokenEndpoint(t *testing.T) {
	var calls atomic.Int32
	srv := tokenServer(t, &calls, map[string]any{
		"access_token":  "new-at",
		"refresh_token": "rotated-rt",
		"token_type":    "Bearer",
		"expires_in":    3600,
	}, http.StatusOK)
	defer srv.Close()

	r := Builtin(Config{
		YouTube:    OAuthClient{ClientID: "cid", ClientSecret: "secret", TokenURL: srv.URL},
		HTTPClient: srv.Client(),
	})
	assert.Equal(t, []repository.Platform{
		repository.PlatformGoogle, repository.PlatformLinkedIn, repository.PlatformPinterest,
		repository.PlatformReddit, repository.PlatformYouTube,
	}, r.Platforms())
	assert.True(t, r.CanRefresh(repository.PlatformYouTube))
	assert.False(t, r.CanRefresh(repository.PlatformLinkedIn))

	tok, err := r.Refresh(context.Background(), repository.PlatformYouTube, Identity{UserID: "u1", RefreshToken: "old-rt"})
	require.NoError(t, err)
	assert.Equal(t, "new-at", tok.AccessToken)
	assert.Equal(t, "rotated-rt", tok.RefreshToken)
	assert.WithinDuration(t, time.Now().Add(time.Hour), tok.Expiry, time.Minute)
	assert.Equal(t, int32(1), calls.Load())
}

func TestOAuth2Refresh_Rejected(t *testing.T) {
	var calls atomic.Int32
	srv := tokenServer(t, &calls, map[string]any{"error": "invalid_grant"}, http.StatusBadRequest)
	defer srv.Close()

	r := Builtin(Config{
		LinkedIn:   OAuthClient{ClientID: "cid", TokenURL: srv.URL},
		HTTPClient: srv.Client(),
	})
	_, err := r.Refresh(context.Background(), repository.PlatformLinkedIn, Identity{RefreshToken: "rt"})
	require.ErrorIs(t, err, repository.ErrRefreshFailed)
	assert.Contains(t, err.Error(), "invalid_grant")
}

func TestBuiltin_ProbeURLOverride(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	r := Builtin(Config{
		ProbeURLs:  map[repository.Platform]string{repository.PlatformPinterest: srv.URL},
		HTTPClient: srv.Client(),
	})
	res, err := r.Probe(context.Background(), repository.PlatformPinterest, "tok")
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, "status 403", res.Reason)
}
