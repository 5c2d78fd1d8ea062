package lifecycle

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/connkeeper/internal/domain/repository"
	"github.com/dropDatabas3/connkeeper/internal/platforms"
)

var testNow = time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)

func clock() time.Time { return testNow }

func ptrTime(t time.Time) *time.Time { return &t }

// fakeRepo guarda las conexiones de un solo usuario en memoria.
type fakeRepo struct {
	mu        sync.Mutex
	conns     map[repository.Platform]repository.PlatformConnection
	updates   atomic.Int32
	failRead  error
	failWrite error
}

func newFakeRepo(conns map[repository.Platform]repository.PlatformConnection) *fakeRepo {
	if conns == nil {
		conns = map[repository.Platform]repository.PlatformConnection{}
	}
	return &fakeRepo{conns: conns}
}

func (r *fakeRepo) ResolveUser(_ context.Context, identifier string, _ repository.StoreTag) (*repository.UserRecord, error) {
	return &repository.UserRecord{Identifier: identifier, ID: "u1", Store: repository.StorePrimary}, nil
}

func (r *fakeRepo) GetConnections(context.Context, *repository.UserRecord) (map[repository.Platform]repository.PlatformConnection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failRead != nil {
		return nil, r.failRead
	}
	out := make(map[repository.Platform]repository.PlatformConnection, len(r.conns))
	for p, c := range r.conns {
		out[p] = c
	}
	return out, nil
}

func (r *fakeRepo) UpdateConnection(_ context.Context, _ *repository.UserRecord, p repository.Platform, upd repository.ConnectionUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates.Add(1)
	if r.failWrite != nil {
		return r.failWrite
	}
	c := r.conns[p]
	c.Platform = p
	if upd.AccessToken != nil {
		c.AccessToken = *upd.AccessToken
	}
	if upd.RefreshToken != nil {
		c.RefreshToken = *upd.RefreshToken
	}
	if upd.TokenExpiry != nil {
		c.TokenExpiry = upd.TokenExpiry
	}
	c.LastValidated = ptrTime(testNow)
	r.conns[p] = c
	return nil
}

func (r *fakeRepo) RemoveConnection(_ context.Context, _ *repository.UserRecord, p repository.Platform) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, p)
	return nil
}

func (r *fakeRepo) get(p repository.Platform) repository.PlatformConnection {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conns[p]
}

// tokenProbe acepta sólo los tokens del set.
func tokenProbe(valid ...string) platforms.ProbeFunc {
	ok := map[string]bool{}
	for _, v := range valid {
		ok[v] = true
	}
	return func(_ context.Context, token string) (platforms.ProbeResult, error) {
		if ok[token] {
			return platforms.Valid(), nil
		}
		return platforms.Invalid("status 401"), nil
	}
}

func testUser() *repository.UserRecord {
	return &repository.UserRecord{Identifier: "alice", ID: "u1", Store: repository.StorePrimary}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.PlatformTimeout = 2 * time.Second
	cfg.ProbeTimeout = time.Second
	cfg.RefreshTimeout = 2 * time.Second
	return cfg
}

func newTestEngine(repo repository.ConnectionRepository, reg *platforms.Registry, opts ...Option) *Engine {
	opts = append([]Option{WithClock(clock), WithLogger(zap.NewNop())}, opts...)
	return New(repo, reg, testConfig(), opts...)
}
