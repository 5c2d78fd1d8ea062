// Package cache guarda strings con TTL para el engine: hints de qué store respondió por
// identificador y snapshots JSON del último reporte de salud por usuario.
//
// Backends: memory (go-cache, un solo proceso) y redis (compartido entre instancias).
package cache

import (
	"context"
	"errors"
	"time"
)

// Client es lo que el engine necesita de un cache.
type Client interface {
	// Get retorna ErrNotFound si la key no existe o venció.
	Get(ctx context.Context, key string) (string, error)
	// Set con ttl <= 0 no expira.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// Config para New. Prefix se antepone tal cual a cada key ("connkeeper:").
type Config struct {
	Driver   string // "memory" | "redis"
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// ErrNotFound indica key inexistente.
var ErrNotFound = errors.New("cache: key not found")

// IsNotFound reporta si err es un miss.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// New crea el cliente según Driver. Para redis verifica la conexión con ctx.
func New(ctx context.Context, cfg Config) (Client, error) {
	switch cfg.Driver {
	case "redis":
		return NewRedis(ctx, cfg)
	case "", "memory":
		return NewMemory(cfg.Prefix), nil
	default:
		return nil, errors.New("cache: unknown driver " + cfg.Driver)
	}
}
