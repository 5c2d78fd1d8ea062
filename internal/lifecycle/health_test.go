package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dropDatabas3/connkeeper/internal/domain/repository"
	"github.com/dropDatabas3/connkeeper/internal/platforms"
)

func threePlatformRegistry(probe platforms.ProbeFunc) *platforms.Registry {
	return platforms.NewRegistry(
		platforms.Entry{Platform: repository.PlatformYouTube, Probe: probe, Refresh: freshToken},
		platforms.Entry{Platform: repository.PlatformLinkedIn, Probe: probe, Refresh: freshToken},
		platforms.Entry{Platform: repository.PlatformReddit, Probe: probe},
	)
}

func TestCheckAllHealth_AllConnectedHealthy(t *testing.T) {
	future := ptrTime(testNow.Add(time.Hour))
	repo := newFakeRepo(map[repository.Platform]repository.PlatformConnection{
		repository.PlatformYouTube:  {AccessToken: "good", TokenExpiry: future},
		repository.PlatformLinkedIn: {AccessToken: "good", TokenExpiry: future},
	})
	eng := newTestEngine(repo, threePlatformRegistry(tokenProbe("good")))

	r, err := eng.CheckAllHealth(context.Background(), testUser())
	require.NoError(t, err)
	assert.Equal(t, 2, r.ConnectedCount)
	assert.Equal(t, 2, r.HealthyCount)
	assert.Equal(t, 100, r.OverallScore)
	assert.Equal(t, BandExcellent, r.OverallStatus)
	assert.Len(t, r.Platforms, 3)
	assert.Equal(t, StatusNotConnected, r.Platforms[repository.PlatformReddit].Status)
	assert.Empty(t, r.ActionItems)
	assert.Empty(t, r.Recommendations)
	assert.False(t, r.Partial)
	assert.NotEmpty(t, r.ReportID)
}

func TestCheckAllHealth_ExpiredRefreshable(t *testing.T) {
	repo := newFakeRepo(map[repository.Platform]repository.PlatformConnection{
		repository.PlatformYouTube: expiredConn(),
	})
	eng := newTestEngine(repo, threePlatformRegistry(tokenProbe()))

	r, err := eng.CheckAllHealth(context.Background(), testUser())
	require.NoError(t, err)
	assert.Equal(t, 1, r.ConnectedCount)
	assert.Equal(t, 0, r.OverallScore)
	assert.Equal(t, BandCritical, r.OverallStatus)
	require.Len(t, r.Recommendations, 1)
	assert.Equal(t, RecommendTokenRefresh, r.Recommendations[0].Type)
	assert.Equal(t, repository.PlatformYouTube, r.Recommendations[0].Platform)
	require.Len(t, r.ActionItems, 1)
	assert.Equal(t, PriorityMedium, r.ActionItems[0].Priority)
}

func TestCheckAllHealth_ExpiredWithoutProviderRefreshSuggestsReconnect(t *testing.T) {
	repo := newFakeRepo(map[repository.Platform]repository.PlatformConnection{
		repository.PlatformReddit: expiredConn(),
	})
	eng := newTestEngine(repo, threePlatformRegistry(tokenProbe()))

	r, err := eng.CheckAllHealth(context.Background(), testUser())
	require.NoError(t, err)
	res := r.Platforms[repository.PlatformReddit]
	assert.Equal(t, StatusExpiredRefreshable, res.Status)
	assert.False(t, res.CanRefresh)
	require.Len(t, r.Recommendations, 1)
	assert.Equal(t, RecommendReconnect, r.Recommendations[0].Type)
	require.Len(t, r.ActionItems, 1)
	assert.Equal(t, PriorityHigh, r.ActionItems[0].Priority)
	assert.Equal(t, "reconnect account", r.ActionItems[0].Action)
}

func TestCheckAllHealth_NothingConnected(t *testing.T) {
	eng := newTestEngine(newFakeRepo(nil), threePlatformRegistry(tokenProbe()))

	r, err := eng.CheckAllHealth(context.Background(), testUser())
	require.NoError(t, err)
	assert.Equal(t, 0, r.ConnectedCount)
	assert.Equal(t, 0, r.OverallScore)
	assert.Equal(t, BandCritical, r.OverallStatus)
}

func TestCheckAllHealth_ActionItemsHighFirst(t *testing.T) {
	noRefresh := expiredConn()
	noRefresh.RefreshToken = ""
	repo := newFakeRepo(map[repository.Platform]repository.PlatformConnection{
		repository.PlatformYouTube:  expiredConn(),
		repository.PlatformLinkedIn: {AccessToken: "revoked", TokenExpiry: ptrTime(testNow.Add(time.Hour))},
		repository.PlatformReddit:   noRefresh,
	})
	eng := newTestEngine(repo, threePlatformRegistry(tokenProbe()))

	r, err := eng.CheckAllHealth(context.Background(), testUser())
	require.NoError(t, err)
	require.Len(t, r.ActionItems, 3)
	assert.Equal(t, PriorityHigh, r.ActionItems[0].Priority)
	assert.Equal(t, repository.PlatformReddit, r.ActionItems[0].Platform)
	assert.Equal(t, StatusInvalidToken, r.Platforms[repository.PlatformLinkedIn].Status)

	types := map[RecommendationType]repository.Platform{}
	for _, rec := range r.Recommendations {
		types[rec.Type] = rec.Platform
	}
	assert.Equal(t, repository.PlatformYouTube, types[RecommendTokenRefresh])
	assert.Equal(t, repository.PlatformLinkedIn, types[RecommendReauthorization])
	assert.Equal(t, repository.PlatformReddit, types[RecommendReconnect])
}

func TestCheckAllHealth_IsolatesPanicAndHang(t *testing.T) {
	block := make(chan struct{})
	t.Cleanup(func() { close(block) })

	reg := platforms.NewRegistry(
		platforms.Entry{Platform: repository.PlatformYouTube, Probe: func(context.Context, string) (platforms.ProbeResult, error) {
			panic("boom")
		}},
		platforms.Entry{Platform: repository.PlatformLinkedIn, Probe: func(context.Context, string) (platforms.ProbeResult, error) {
			<-block
			return platforms.Valid(), nil
		}},
		platforms.Entry{Platform: repository.PlatformReddit, Probe: tokenProbe("good")},
	)
	future := ptrTime(testNow.Add(time.Hour))
	repo := newFakeRepo(map[repository.Platform]repository.PlatformConnection{
		repository.PlatformYouTube:  {AccessToken: "good", TokenExpiry: future},
		repository.PlatformLinkedIn: {AccessToken: "good", TokenExpiry: future},
		repository.PlatformReddit:   {AccessToken: "good", TokenExpiry: future},
	})
	cfg := testConfig()
	cfg.PlatformTimeout = 100 * time.Millisecond
	eng := New(repo, reg, cfg, WithClock(clock), WithLogger(zap.NewNop()))

	r, err := eng.CheckAllHealth(context.Background(), testUser())
	require.NoError(t, err)
	assert.Equal(t, StatusError, r.Platforms[repository.PlatformYouTube].Status)
	assert.Equal(t, repository.KindInternal, r.Platforms[repository.PlatformYouTube].ErrorKind)
	assert.Equal(t, StatusError, r.Platforms[repository.PlatformLinkedIn].Status)
	assert.Equal(t, repository.KindTimeout, r.Platforms[repository.PlatformLinkedIn].ErrorKind)
	assert.Equal(t, StatusHealthy, r.Platforms[repository.PlatformReddit].Status)
	assert.Equal(t, 33, r.OverallScore)
	assert.False(t, r.Partial)
}

func TestCheckAllHealth_CallerDeadlineMarksPartial(t *testing.T) {
	reg := threePlatformRegistry(func(ctx context.Context, _ string) (platforms.ProbeResult, error) {
		<-ctx.Done()
		return platforms.ProbeResult{}, ctx.Err()
	})
	repo := newFakeRepo(map[repository.Platform]repository.PlatformConnection{
		repository.PlatformYouTube: {AccessToken: "x", TokenExpiry: ptrTime(testNow.Add(time.Hour))},
	})
	eng := newTestEngine(repo, reg)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	r, err := eng.CheckAllHealth(ctx, testUser())
	require.NoError(t, err)
	assert.True(t, r.Partial)
	assert.Equal(t, StatusError, r.Platforms[repository.PlatformYouTube].Status)
	for _, res := range r.Platforms {
		assert.NotEqual(t, StatusChecking, res.Status)
	}
}

func TestCheckAllHealth_ReadFailure(t *testing.T) {
	repo := newFakeRepo(nil)
	repo.failRead = repository.ErrStoreUnavailable
	eng := newTestEngine(repo, threePlatformRegistry(tokenProbe()))

	_, err := eng.CheckAllHealth(context.Background(), testUser())
	require.ErrorIs(t, err, repository.ErrStoreUnavailable)
}

func TestCheckHealth_SinglePlatform(t *testing.T) {
	repo := newFakeRepo(map[repository.Platform]repository.PlatformConnection{
		repository.PlatformYouTube: {AccessToken: "good"},
	})
	eng := newTestEngine(repo, threePlatformRegistry(tokenProbe("good")))

	r, err := eng.CheckHealth(context.Background(), testUser(), repository.PlatformYouTube)
	require.NoError(t, err)
	// Sin vencimiento cuenta como vencido, pero el probe manda.
	assert.Equal(t, StatusHealthy, r.Status)
	assert.True(t, r.IsExpired)

	r, err = eng.CheckHealth(context.Background(), testUser(), repository.Platform("myspace"))
	require.NoError(t, err)
	assert.Equal(t, StatusError, r.Status)
	assert.Equal(t, repository.KindPlatformUnsupported, r.ErrorKind)
}

func TestScoreAndBand(t *testing.T) {
	assert.Equal(t, 0, Score(0, 0))
	assert.Equal(t, 67, Score(2, 3))
	assert.Equal(t, 50, Score(1, 2))

	cases := map[int]Band{100: BandExcellent, 90: BandExcellent, 89: BandGood, 70: BandGood, 69: BandFair, 50: BandFair, 49: BandPoor, 30: BandPoor, 29: BandCritical, 0: BandCritical}
	for score, band := range cases {
		assert.Equal(t, band, BandFor(score), "score %d", score)
	}
}

func TestCompare(t *testing.T) {
	prev := &HealthReport{ReportID: "a", OverallScore: 50, Platforms: map[repository.Platform]HealthResult{
		repository.PlatformYouTube:  {Status: StatusHealthy},
		repository.PlatformLinkedIn: {Status: StatusExpiredRefreshable},
	}}
	curr := &HealthReport{ReportID: "b", OverallScore: 50, Platforms: map[repository.Platform]HealthResult{
		repository.PlatformYouTube:  {Status: StatusInvalidToken},
		repository.PlatformLinkedIn: {Status: StatusHealthy},
		repository.PlatformReddit:   {Status: StatusHealthy},
	}}

	cmp := Compare(prev, curr)
	assert.Equal(t, "a", cmp.PreviousReportID)
	assert.Equal(t, 0, cmp.ScoreDelta)
	require.Len(t, cmp.Degradations, 1)
	assert.Equal(t, StatusChange{Platform: repository.PlatformYouTube, From: StatusHealthy, To: StatusInvalidToken}, cmp.Degradations[0])
	require.Len(t, cmp.Improvements, 2)
	assert.Equal(t, TrendImproving, cmp.Trend)

	same := Compare(curr, curr)
	assert.Equal(t, TrendStable, same.Trend)
	assert.Empty(t, same.Improvements)
	assert.Empty(t, same.Degradations)

	first := Compare(nil, curr)
	assert.Empty(t, first.PreviousReportID)
	assert.Equal(t, 50, first.ScoreDelta)
	assert.Len(t, first.Improvements, 3)
}
