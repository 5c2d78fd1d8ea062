package lifecycle_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dropDatabas3/connkeeper/internal/cache"
	"github.com/dropDatabas3/connkeeper/internal/domain/repository"
	"github.com/dropDatabas3/connkeeper/internal/lifecycle"
	"github.com/dropDatabas3/connkeeper/internal/platforms"
	"github.com/dropDatabas3/connkeeper/internal/store"
	"github.com/dropDatabas3/connkeeper/internal/store/adapters/memory"
	"github.com/dropDatabas3/connkeeper/internal/store/schema"
)

var now = time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)

type harness struct {
	primary   *memory.Backend
	secondary *memory.Backend
	mgr       *store.Manager
	engine    *lifecycle.Engine
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{primary: memory.New("id"), secondary: memory.New("_id")}
	clock := func() time.Time { return now }
	mgr, err := store.NewManager(
		store.NewUserStore(repository.StorePrimary, h.primary, schema.Flat{}),
		store.NewUserStore(repository.StoreSecondary, h.secondary, schema.Nested{}),
		store.WithClock(clock), store.WithLogger(zap.NewNop()),
	)
	require.NoError(t, err)
	h.mgr = mgr

	probe := func(_ context.Context, token string) (platforms.ProbeResult, error) {
		if token == "fresh" || token == "good" {
			return platforms.Valid(), nil
		}
		return platforms.Invalid("status 401"), nil
	}
	refresh := func(context.Context, platforms.Identity) (*platforms.Token, error) {
		return &platforms.Token{AccessToken: "fresh", Expiry: now.Add(time.Hour)}, nil
	}
	reg := platforms.NewRegistry(
		platforms.Entry{Platform: repository.PlatformYouTube, Probe: probe, Refresh: refresh},
		platforms.Entry{Platform: repository.PlatformReddit, Probe: probe, Refresh: refresh},
	)
	h.engine = lifecycle.New(mgr, reg, lifecycle.DefaultConfig(),
		lifecycle.WithClock(clock), lifecycle.WithLogger(zap.NewNop()),
		lifecycle.WithSnapshots(cache.NewMemory("test:")))
	return h
}

func nestedUser() store.Document {
	return store.Document{
		"_id":     "s1",
		"profile": map[string]any{"username": "carol", "email": "carol@example.com"},
		"connections": map[string]any{
			"youtube": map[string]any{"accessToken": "stale", "refreshToken": "rt", "tokenExpiry": now.Add(-time.Hour)},
			"reddit":  map[string]any{"accessToken": "good", "refreshToken": "rt2", "tokenExpiry": now.Add(time.Hour)},
		},
	}
}

func TestEngine_EndToEndOnSecondaryStore(t *testing.T) {
	h := newHarness(t)
	h.secondary.Seed(nestedUser())
	ctx := context.Background()

	user, err := h.engine.ResolveUser(ctx, "carol", "")
	require.NoError(t, err)
	assert.Equal(t, repository.StoreSecondary, user.Store)

	before, cmp, err := h.engine.HealthTrend(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 50, before.OverallScore)
	assert.Equal(t, lifecycle.StatusExpiredRefreshable, before.Platforms[repository.PlatformYouTube].Status)
	assert.Empty(t, cmp.PreviousReportID)

	rep, err := h.engine.RepairConnections(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.ActionTokenRefreshed, rep.Results[repository.PlatformYouTube].Action)
	assert.Equal(t, lifecycle.StatusHealthy, rep.Results[repository.PlatformYouTube].StatusAfter)

	doc, ok := h.secondary.Get("s1")
	require.True(t, ok)
	at, _ := store.GetPath(doc, "connections.youtube.accessToken")
	assert.Equal(t, "fresh", at)
	lv, _ := store.GetPath(doc, "connections.youtube.lastValidated")
	require.NotNil(t, store.AsTime(lv))
	assert.True(t, now.Equal(*store.AsTime(lv)))
	assert.Zero(t, h.primary.Len())

	after, cmp, err := h.engine.HealthTrend(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 100, after.OverallScore)
	assert.Equal(t, before.ReportID, cmp.PreviousReportID)
	assert.Equal(t, 50, cmp.ScoreDelta)
	assert.Equal(t, lifecycle.TrendImproving, cmp.Trend)
	require.Len(t, cmp.Improvements, 1)
	assert.Equal(t, repository.PlatformYouTube, cmp.Improvements[0].Platform)
}

func TestEngine_PrimaryOutageStillChecksHealth(t *testing.T) {
	h := newHarness(t)
	h.primary.SetFailure(errors.New("connection refused"))
	h.secondary.Seed(nestedUser())
	ctx := context.Background()

	user, err := h.engine.ResolveUser(ctx, "carol@example.com", "")
	require.NoError(t, err)

	r, err := h.engine.CheckAllHealth(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 2, r.ConnectedCount)
}

func TestEngine_UnknownUser(t *testing.T) {
	h := newHarness(t)
	_, err := h.engine.ResolveUser(context.Background(), "nobody", "")
	require.ErrorIs(t, err, repository.ErrUserNotFound)
	assert.Equal(t, repository.KindUserNotFound, repository.KindOf(err))
}

func TestEngine_SyncAndDisconnect(t *testing.T) {
	h := newHarness(t)
	h.secondary.Seed(nestedUser())
	ctx := context.Background()

	res, err := h.engine.SyncUser(ctx, "carol", repository.StoreSecondary, repository.StorePrimary)
	require.NoError(t, err)
	assert.Equal(t, store.SyncCopied, res.Status)
	assert.Equal(t, 1, h.primary.Len())

	res, err = h.engine.SyncUser(ctx, "carol", repository.StoreSecondary, repository.StorePrimary)
	require.NoError(t, err)
	assert.Equal(t, store.SyncAlreadyExists, res.Status)

	user, err := h.engine.ResolveUser(ctx, "carol", repository.StorePrimary)
	require.NoError(t, err)
	assert.Equal(t, repository.StorePrimary, user.Store)

	require.NoError(t, h.engine.RemoveConnection(ctx, user, repository.PlatformReddit))
	conns, err := h.engine.GetConnections(ctx, user)
	require.NoError(t, err)
	assert.NotContains(t, conns, repository.PlatformReddit)
	assert.Contains(t, conns, repository.PlatformYouTube)

	// El secundario no se toca.
	sconns, err := h.mgr.GetConnections(ctx, &repository.UserRecord{ID: "s1", Store: repository.StoreSecondary})
	require.NoError(t, err)
	assert.Contains(t, sconns, repository.PlatformReddit)
}
