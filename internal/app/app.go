// Package app arma el Container: config -> backends -> stores -> registry -> engine.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/dropDatabas3/connkeeper/internal/cache"
	"github.com/dropDatabas3/connkeeper/internal/config"
	"github.com/dropDatabas3/connkeeper/internal/domain/repository"
	"github.com/dropDatabas3/connkeeper/internal/lifecycle"
	"github.com/dropDatabas3/connkeeper/internal/metrics"
	"github.com/dropDatabas3/connkeeper/internal/observability/logger"
	"github.com/dropDatabas3/connkeeper/internal/platforms"
	"github.com/dropDatabas3/connkeeper/internal/security/secretbox"
	"github.com/dropDatabas3/connkeeper/internal/store"
	_ "github.com/dropDatabas3/connkeeper/internal/store/adapters/dal"
	"github.com/dropDatabas3/connkeeper/internal/store/schema"
)

// Container agrupa las dependencias armadas.
type Container struct {
	Config   *config.Config
	Stores   *store.Manager
	Cache    cache.Client
	Registry *platforms.Registry
	Engine   *lifecycle.Engine
}

// Options permite inyectar piezas en tests.
type Options struct {
	// Registerer para las métricas. nil => default.
	Registerer prometheus.Registerer
	// HTTPClient para probes y refresh. nil => client con providers.http_timeout.
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Build arma el Container. Si algo falla a mitad de camino cierra lo que ya abrió.
func Build(ctx context.Context, cfg *config.Config, opts Options) (c *Container, err error) {
	log := opts.Logger
	if log == nil {
		log = logger.L()
	}
	if err := metrics.Register(opts.Registerer); err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	var closers []func() error
	defer func() {
		if err != nil {
			for i := len(closers) - 1; i >= 0; i-- {
				_ = closers[i]()
			}
		}
	}()

	var cipher store.TokenCipher
	if cfg.Security.TokenEncryptionKey != "" {
		box, err := secretbox.New(cfg.Security.TokenEncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("token encryption key: %w", err)
		}
		cipher = box
	}

	// Un store caído al arrancar degrada el lookup; sólo fallan ambos o un error de config.
	primary, perr := openStore(ctx, repository.StorePrimary, cfg.Stores.Primary, cipher, log)
	secondary, serr := openStore(ctx, repository.StoreSecondary, cfg.Stores.Secondary, cipher, log)
	for _, e := range []error{perr, serr} {
		if e != nil && !errors.Is(e, repository.ErrStoreUnavailable) {
			closeStores(primary, secondary)
			return nil, e
		}
	}
	if perr != nil && serr != nil {
		return nil, fmt.Errorf("no store available: %w", errors.Join(perr, serr))
	}
	if perr != nil {
		log.Warn("primary store unavailable, starting degraded", logger.Store(string(repository.StorePrimary)), logger.Err(perr))
		primary = store.Unavailable(repository.StorePrimary, perr)
	}
	if serr != nil {
		log.Warn("secondary store unavailable, starting degraded", logger.Store(string(repository.StoreSecondary)), logger.Err(serr))
		secondary = store.Unavailable(repository.StoreSecondary, serr)
	}
	closers = append(closers, primary.Close, secondary.Close)

	cc, err := openCache(ctx, cfg)
	if err != nil {
		return nil, err
	}
	closers = append(closers, cc.Close)

	order := make([]repository.StoreTag, 0, len(cfg.Stores.LookupOrder))
	for _, tag := range cfg.Stores.LookupOrder {
		order = append(order, repository.StoreTag(tag))
	}
	mgr, err := store.NewManager(primary, secondary,
		store.WithLookupOrder(order...),
		store.WithHints(cc, cfg.Stores.HintTTL),
		store.WithLogger(log.Named("store")),
	)
	if err != nil {
		return nil, err
	}

	reg, err := buildRegistry(cfg, opts.HTTPClient)
	if err != nil {
		return nil, err
	}

	engine := lifecycle.New(mgr, reg, engineConfig(cfg),
		lifecycle.WithLogger(log.Named("engine")),
		lifecycle.WithSnapshots(cc),
	)

	log.Info("container ready",
		logger.String("primary", cfg.Stores.Primary.Driver),
		logger.String("secondary", cfg.Stores.Secondary.Driver),
		logger.String("cache", cfg.Cache.Kind),
		logger.Count(len(reg.Platforms())))

	return &Container{Config: cfg, Stores: mgr, Cache: cc, Registry: reg, Engine: engine}, nil
}

func openStore(ctx context.Context, tag repository.StoreTag, sc config.StoreConfig, cipher store.TokenCipher, log *zap.Logger) (store.UserStore, error) {
	sch, err := schema.ByName(sc.Schema)
	if err != nil {
		return nil, fmt.Errorf("%s store: %w", tag, err)
	}
	backend, err := store.OpenBackend(ctx, store.BackendConfig{
		Driver:       sc.Driver,
		DSN:          sc.DSN,
		Database:     sc.Database,
		Table:        sc.Table,
		Schema:       sc.Schema,
		MaxConns:     sc.MaxConns,
		MinConns:     sc.MinConns,
		EnsureSchema: sc.EnsureSchema,
	})
	if err != nil {
		return nil, fmt.Errorf("%s store: %w", tag, err)
	}
	opts := []store.StoreOption{store.WithStoreLogger(log.Named("store").With(logger.Store(string(tag))))}
	if cipher != nil {
		opts = append(opts, store.WithCipher(cipher))
	}
	return store.NewUserStore(tag, backend, sch, opts...), nil
}

func closeStores(stores ...store.UserStore) {
	for _, s := range stores {
		if s != nil {
			_ = s.Close()
		}
	}
}

func openCache(ctx context.Context, cfg *config.Config) (cache.Client, error) {
	cc := cache.Config{Driver: cfg.Cache.Kind, Prefix: cfg.Cache.Memory.Prefix}
	if cfg.Cache.Kind == "redis" {
		cc.Addr = cfg.Cache.Redis.Addr
		cc.Password = cfg.Cache.Redis.Password
		cc.DB = cfg.Cache.Redis.DB
		cc.Prefix = cfg.Cache.Redis.Prefix
	}
	c, err := cache.New(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	return c, nil
}

func buildRegistry(cfg *config.Config, client *http.Client) (*platforms.Registry, error) {
	if client == nil {
		client = &http.Client{Timeout: cfg.Providers.HTTPTimeout}
	}
	probeURLs := make(map[repository.Platform]string, len(cfg.Providers.ProbeURLs))
	for name, u := range cfg.Providers.ProbeURLs {
		p, err := repository.ParsePlatform(name)
		if err != nil {
			return nil, fmt.Errorf("providers.probe_urls: %w", err)
		}
		probeURLs[p] = u
	}
	return platforms.Builtin(platforms.Config{
		YouTube: platforms.OAuthClient{
			ClientID:     cfg.Providers.YouTube.ClientID,
			ClientSecret: cfg.Providers.YouTube.ClientSecret,
			TokenURL:     cfg.Providers.YouTube.TokenURL,
		},
		LinkedIn: platforms.OAuthClient{
			ClientID:     cfg.Providers.LinkedIn.ClientID,
			ClientSecret: cfg.Providers.LinkedIn.ClientSecret,
			TokenURL:     cfg.Providers.LinkedIn.TokenURL,
		},
		RedditUserAgent: cfg.Providers.RedditUserAgent,
		ProbeURLs:       probeURLs,
		HTTPClient:      client,
	}), nil
}

func engineConfig(cfg *config.Config) lifecycle.Config {
	e := cfg.Engine
	return lifecycle.Config{
		Parallelism:     e.Parallelism,
		ProbeTimeout:    e.ProbeTimeout,
		RefreshTimeout:  e.RefreshTimeout,
		PlatformTimeout: e.PlatformTimeout,
		ExpiryBuffer:    e.ExpiryBuffer,
		DefaultTokenTTL: e.DefaultTokenTTL,
		StaleAfter:      e.StaleAfter,
		SnapshotTTL:     e.SnapshotTTL,
	}
}

// Close cierra stores y cache.
func (c *Container) Close() error {
	return errors.Join(c.Stores.Close(), c.Cache.Close())
}
