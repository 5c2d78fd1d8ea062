// Package store implementa el Store Adapter: traduce los dos esquemas nativos de usuarios
// (plano y anidado) a la forma canónica de internal/domain/repository, y resuelve usuarios
// entre los dos stores en un orden de fallback fijo.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Backend es el acceso nativo a un store de usuarios. No conoce el esquema de conexiones:
// trabaja con nombres de campo nativos (columnas o paths con puntos).
type Backend interface {
	// Name retorna el nombre del driver (ej: "postgres", "mongo", "memory").
	Name() string

	// FindOne busca un documento cuyo campo field sea igual a value.
	// Retorna repository.ErrNotFound si no hay match.
	FindOne(ctx context.Context, field, value string) (Document, error)

	// Set actualiza campos del documento con id dado.
	Set(ctx context.Context, id string, fields Document) error

	// Unset borra campos del documento con id dado.
	Unset(ctx context.Context, id string, fields []string) error

	// Insert crea un documento nuevo.
	Insert(ctx context.Context, doc Document) error

	// Ping verifica la conexión.
	Ping(ctx context.Context) error

	// Close cierra la conexión.
	Close() error
}

// Driver crea conexiones de un tipo de backend.
type Driver interface {
	Name() string
	Open(ctx context.Context, cfg BackendConfig) (Backend, error)
}

// BackendConfig configuración para conectar a un backend.
type BackendConfig struct {
	// Driver: "postgres", "mongo", "memory"
	Driver string

	// DSN connection string / URI
	DSN string

	// Database (mongo)
	Database string

	// Table o colección de usuarios
	Table string

	// Schema nativo del store: "flat" | "nested". Lo usan los drivers que crean estructura.
	Schema string

	// Pool settings (postgres)
	MaxConns int
	MinConns int

	// EnsureSchema crea tabla/índices al conectar.
	EnsureSchema bool
}

// ─── Registry Global ───

var (
	registryMu sync.RWMutex
	drivers    = make(map[string]Driver)
)

// RegisterDriver registra un driver en el registry global.
// Llamar en init() de cada adapter.
func RegisterDriver(d Driver) {
	registryMu.Lock()
	defer registryMu.Unlock()

	name := d.Name()
	if _, exists := drivers[name]; exists {
		panic(fmt.Sprintf("store: driver %q already registered", name))
	}
	drivers[name] = d
}

// GetDriver obtiene un driver por nombre.
func GetDriver(name string) (Driver, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	d, ok := drivers[name]
	return d, ok
}

// ListDrivers retorna los nombres de todos los drivers registrados.
func ListDrivers() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OpenBackend abre una conexión usando el driver especificado en la config.
func OpenBackend(ctx context.Context, cfg BackendConfig) (Backend, error) {
	d, ok := GetDriver(cfg.Driver)
	if !ok {
		return nil, fmt.Errorf("store: driver %q not registered (available: %v)", cfg.Driver, ListDrivers())
	}
	return d.Open(ctx, cfg)
}
