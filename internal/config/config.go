package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// StoreConfig describe uno de los dos stores de usuarios.
type StoreConfig struct {
	// postgres | mongo | memory
	Driver   string `yaml:"driver"`
	DSN      string `yaml:"dsn"`
	Database string `yaml:"database"`
	// Tabla (postgres) o colección (mongo).
	Table string `yaml:"table"`
	// flat | nested. Vacío => flat para primary, nested para secondary.
	Schema       string `yaml:"schema"`
	MaxConns     int    `yaml:"max_conns"`
	MinConns     int    `yaml:"min_conns"`
	EnsureSchema bool   `yaml:"ensure_schema"`
}

// OAuthClient son las credenciales de app de un proveedor.
type OAuthClient struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	TokenURL     string `yaml:"token_url"`
}

type Config struct {
	App struct {
		// dev | staging | prod
		Env      string `yaml:"app_env"`
		LogLevel string `yaml:"log_level"`
	} `yaml:"app"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Stores struct {
		Primary   StoreConfig `yaml:"primary"`
		Secondary StoreConfig `yaml:"secondary"`
		// Orden de búsqueda por defecto: [primary, secondary].
		LookupOrder []string      `yaml:"lookup_order"`
		HintTTL     time.Duration `yaml:"hint_ttl"`
	} `yaml:"stores"`

	Cache struct {
		Kind  string `yaml:"kind"`
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
		Memory struct {
			Prefix string `yaml:"prefix"`
		} `yaml:"memory"`
	} `yaml:"cache"`

	Engine struct {
		Parallelism     int           `yaml:"parallelism"`
		ProbeTimeout    time.Duration `yaml:"probe_timeout"`
		RefreshTimeout  time.Duration `yaml:"refresh_timeout"`
		PlatformTimeout time.Duration `yaml:"platform_timeout"`
		ExpiryBuffer    time.Duration `yaml:"expiry_buffer"`
		DefaultTokenTTL time.Duration `yaml:"default_token_ttl"`
		StaleAfter      time.Duration `yaml:"stale_after"`
		SnapshotTTL     time.Duration `yaml:"snapshot_ttl"`
	} `yaml:"engine"`

	Security struct {
		// base64/hex/raw de 32 bytes. Vacío => tokens en texto plano.
		TokenEncryptionKey string `yaml:"token_encryption_key"`
	} `yaml:"security"`

	Providers struct {
		YouTube         OAuthClient       `yaml:"youtube"`
		LinkedIn        OAuthClient       `yaml:"linkedin"`
		RedditUserAgent string            `yaml:"reddit_user_agent"`
		HTTPTimeout     time.Duration     `yaml:"http_timeout"`
		ProbeURLs       map[string]string `yaml:"probe_urls"`
	} `yaml:"providers"`
}

// Default retorna una configuración sólo-memoria, útil para desarrollo y tests.
func Default() *Config {
	var c Config
	c.applyDefaults()
	return &c
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	c.applyDefaults()

	// Overrides por env
	c.applyEnvOverrides()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// FromEnv arma la config sin archivo: defaults + env.
func FromEnv() (*Config, error) {
	c := Default()
	c.applyEnvOverrides()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}

	if c.Stores.Primary.Driver == "" {
		c.Stores.Primary.Driver = "memory"
	}
	if c.Stores.Primary.Schema == "" {
		c.Stores.Primary.Schema = "flat"
	}
	if c.Stores.Secondary.Driver == "" {
		c.Stores.Secondary.Driver = "memory"
	}
	if c.Stores.Secondary.Schema == "" {
		c.Stores.Secondary.Schema = "nested"
	}
	if len(c.Stores.LookupOrder) == 0 {
		c.Stores.LookupOrder = []string{"primary", "secondary"}
	}
	if c.Stores.HintTTL == 0 {
		c.Stores.HintTTL = 10 * time.Minute
	}

	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.Redis.Prefix == "" {
		c.Cache.Redis.Prefix = "connkeeper:"
	}
	if c.Cache.Memory.Prefix == "" {
		c.Cache.Memory.Prefix = "connkeeper:"
	}

	e := &c.Engine
	if e.Parallelism == 0 {
		e.Parallelism = 4
	}
	if e.ProbeTimeout == 0 {
		e.ProbeTimeout = 5 * time.Second
	}
	if e.RefreshTimeout == 0 {
		e.RefreshTimeout = 15 * time.Second
	}
	if e.PlatformTimeout == 0 {
		e.PlatformTimeout = 10 * time.Second
	}
	if e.ExpiryBuffer == 0 {
		e.ExpiryBuffer = 5 * time.Minute
	}
	if e.DefaultTokenTTL == 0 {
		e.DefaultTokenTTL = time.Hour
	}
	if e.StaleAfter == 0 {
		e.StaleAfter = 30 * 24 * time.Hour
	}
	if e.SnapshotTTL == 0 {
		e.SnapshotTTL = 7 * 24 * time.Hour
	}

	if c.Providers.RedditUserAgent == "" {
		c.Providers.RedditUserAgent = "connkeeper/1.0"
	}
	if c.Providers.HTTPTimeout == 0 {
		c.Providers.HTTPTimeout = 10 * time.Second
	}
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}
func getEnvDur(key string) (time.Duration, bool) {
	if s, ok := getEnvStr(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
			return d, true
		}
	}
	return 0, false
}
func getEnvCSV(key string) ([]string, bool) {
	if s, ok := getEnvStr(key); ok {
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				out = append(out, p)
			}
		}
		return out, true
	}
	return nil, false
}

// applyEnvOverrides: pisa config.yaml con variables de entorno.
func (c *Config) applyEnvOverrides() {
	// APP
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.App.LogLevel = strings.ToLower(v)
	}

	// SERVER
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}

	// STORES
	if v, ok := getEnvStr("PRIMARY_STORE_DRIVER"); ok {
		c.Stores.Primary.Driver = v
	}
	if v, ok := getEnvStr("PRIMARY_STORE_DSN"); ok {
		c.Stores.Primary.DSN = v
	}
	if v, ok := getEnvStr("SECONDARY_STORE_DRIVER"); ok {
		c.Stores.Secondary.Driver = v
	}
	if v, ok := getEnvStr("SECONDARY_STORE_DSN"); ok {
		c.Stores.Secondary.DSN = v
	}
	if v, ok := getEnvStr("SECONDARY_STORE_DATABASE"); ok {
		c.Stores.Secondary.Database = v
	}
	if v, ok := getEnvCSV("STORE_LOOKUP_ORDER"); ok && len(v) > 0 {
		c.Stores.LookupOrder = v
	}

	// CACHE
	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvStr("REDIS_PASSWORD"); ok {
		c.Cache.Redis.Password = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("REDIS_PREFIX"); ok {
		c.Cache.Redis.Prefix = v
	}

	// ENGINE
	if v, ok := getEnvInt("ENGINE_PARALLELISM"); ok {
		c.Engine.Parallelism = v
	}
	if v, ok := getEnvDur("PROBE_TIMEOUT"); ok {
		c.Engine.ProbeTimeout = v
	}
	if v, ok := getEnvDur("REFRESH_TIMEOUT"); ok {
		c.Engine.RefreshTimeout = v
	}

	// SECURITY
	if v, ok := getEnvStr("TOKEN_ENCRYPTION_KEY"); ok {
		c.Security.TokenEncryptionKey = v
	}

	// PROVIDERS
	if v, ok := getEnvStr("YOUTUBE_CLIENT_ID"); ok {
		c.Providers.YouTube.ClientID = v
	}
	if v, ok := getEnvStr("YOUTUBE_CLIENT_SECRET"); ok {
		c.Providers.YouTube.ClientSecret = v
	}
	if v, ok := getEnvStr("LINKEDIN_CLIENT_ID"); ok {
		c.Providers.LinkedIn.ClientID = v
	}
	if v, ok := getEnvStr("LINKEDIN_CLIENT_SECRET"); ok {
		c.Providers.LinkedIn.ClientSecret = v
	}
	if v, ok := getEnvStr("REDDIT_USER_AGENT"); ok {
		c.Providers.RedditUserAgent = v
	}
}

var (
	validDrivers = map[string]bool{"postgres": true, "mongo": true, "memory": true}
	validSchemas = map[string]bool{"flat": true, "nested": true}
	validCaches  = map[string]bool{"memory": true, "redis": true}
)

// Validate verifica los valores críticos. Junta todos los problemas en un solo error.
func (c *Config) Validate() error {
	var errs []error

	for name, s := range map[string]StoreConfig{"primary": c.Stores.Primary, "secondary": c.Stores.Secondary} {
		if !validDrivers[s.Driver] {
			errs = append(errs, fmt.Errorf("stores.%s.driver: unknown driver %q", name, s.Driver))
		}
		if !validSchemas[s.Schema] {
			errs = append(errs, fmt.Errorf("stores.%s.schema: unknown schema %q", name, s.Schema))
		}
		if s.Driver != "memory" && strings.TrimSpace(s.DSN) == "" {
			errs = append(errs, fmt.Errorf("stores.%s.dsn: required for driver %s", name, s.Driver))
		}
		if s.Driver == "postgres" && s.Schema != "flat" {
			errs = append(errs, fmt.Errorf("stores.%s: postgres only supports the flat schema", name))
		}
	}

	seen := map[string]bool{}
	for _, tag := range c.Stores.LookupOrder {
		if tag != "primary" && tag != "secondary" {
			errs = append(errs, fmt.Errorf("stores.lookup_order: unknown store %q", tag))
		}
		if seen[tag] {
			errs = append(errs, fmt.Errorf("stores.lookup_order: %q listed twice", tag))
		}
		seen[tag] = true
	}

	if !validCaches[c.Cache.Kind] {
		errs = append(errs, fmt.Errorf("cache.kind: unknown kind %q", c.Cache.Kind))
	}
	if c.Cache.Kind == "redis" && c.Cache.Redis.Addr == "" {
		errs = append(errs, errors.New("cache.redis.addr: required when cache.kind=redis"))
	}

	if c.Engine.Parallelism < 1 {
		errs = append(errs, fmt.Errorf("engine.parallelism: must be >= 1, got %d", c.Engine.Parallelism))
	}
	for name, d := range map[string]time.Duration{
		"probe_timeout":    c.Engine.ProbeTimeout,
		"refresh_timeout":  c.Engine.RefreshTimeout,
		"platform_timeout": c.Engine.PlatformTimeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("engine.%s: must be positive", name))
		}
	}
	if c.Engine.ExpiryBuffer < 0 {
		errs = append(errs, errors.New("engine.expiry_buffer: must not be negative"))
	}

	// En prod no se guardan tokens en claro.
	if strings.EqualFold(c.App.Env, "prod") && c.Security.TokenEncryptionKey == "" {
		errs = append(errs, errors.New("security.token_encryption_key: required in prod"))
	}

	return errors.Join(errs...)
}
