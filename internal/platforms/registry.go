// Package platforms es el registry de probe/refresh por proveedor OAuth.
//
// Es el único punto de extensión para agregar proveedores: el resto del engine no conoce
// plataformas concretas, sólo llama Probe y Refresh por nombre.
package platforms

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dropDatabas3/connkeeper/internal/domain/repository"
	"github.com/dropDatabas3/connkeeper/internal/metrics"
)

// ProbeResult es el resultado de un probe que llegó a completarse.
type ProbeResult struct {
	Valid  bool
	Reason string
}

// Valid construye un resultado válido.
func Valid() ProbeResult { return ProbeResult{Valid: true} }

// Invalid construye un resultado inválido con motivo.
func Invalid(reason string) ProbeResult { return ProbeResult{Reason: reason} }

// Identity es lo que necesita un refresh.
type Identity struct {
	UserID       string
	Platform     repository.Platform
	RefreshToken string
}

// Token es el resultado de un refresh exitoso. RefreshToken vacío significa "sin rotación".
// Expiry cero significa que el proveedor no informó vencimiento.
type Token struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// ProbeFunc hace una llamada read-only con el access token. Un error significa que el probe
// no pudo completarse (red, proveedor caído), no que el token sea inválido.
type ProbeFunc func(ctx context.Context, accessToken string) (ProbeResult, error)

// RefreshFunc intercambia el refresh token por un access token nuevo.
type RefreshFunc func(ctx context.Context, id Identity) (*Token, error)

// Entry es una fila del registry. Refresh nil = refresh no soportado.
type Entry struct {
	Platform repository.Platform
	Category string
	Probe    ProbeFunc
	Refresh  RefreshFunc
}

// Registry es la tabla de proveedores.
type Registry struct {
	mu      sync.RWMutex
	entries map[repository.Platform]Entry
}

// NewRegistry crea un registry con las entradas dadas. Panic si alguna es inválida.
func NewRegistry(entries ...Entry) *Registry {
	r := &Registry{entries: make(map[repository.Platform]Entry, len(entries))}
	for _, e := range entries {
		if err := r.Register(e); err != nil {
			panic(err)
		}
	}
	return r
}

// Register agrega un proveedor.
func (r *Registry) Register(e Entry) error {
	if !e.Platform.Valid() {
		return fmt.Errorf("%w: %q", repository.ErrPlatformUnsupported, e.Platform)
	}
	if e.Probe == nil {
		return fmt.Errorf("%w: %s without probe", repository.ErrInvalidInput, e.Platform)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[e.Platform]; exists {
		return fmt.Errorf("%w: platform %s", repository.ErrAlreadyExists, e.Platform)
	}
	r.entries[e.Platform] = e
	return nil
}

// Lookup retorna la entrada de una plataforma.
func (r *Registry) Lookup(p repository.Platform) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[p]
	return e, ok
}

// Supports indica si la plataforma está registrada.
func (r *Registry) Supports(p repository.Platform) bool {
	_, ok := r.Lookup(p)
	return ok
}

// CanRefresh indica si la plataforma soporta refresh.
func (r *Registry) CanRefresh(p repository.Platform) bool {
	e, ok := r.Lookup(p)
	return ok && e.Refresh != nil
}

// Platforms retorna las plataformas registradas, ordenadas.
func (r *Registry) Platforms() []repository.Platform {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]repository.Platform, 0, len(r.entries))
	for p := range r.entries {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Probe ejecuta el probe de la plataforma. Un error siempre envuelve ErrPlatformUnsupported
// o ErrProbeFailed.
func (r *Registry) Probe(ctx context.Context, p repository.Platform, accessToken string) (ProbeResult, error) {
	e, ok := r.Lookup(p)
	if !ok {
		return ProbeResult{}, fmt.Errorf("%w: %q", repository.ErrPlatformUnsupported, p)
	}

	start := time.Now()
	res, err := e.Probe(ctx, accessToken)
	metrics.ProbeDuration.WithLabelValues(string(p)).Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		metrics.ProbeTotal.WithLabelValues(string(p), "error").Inc()
		return ProbeResult{}, fmt.Errorf("%w: %s: %w", repository.ErrProbeFailed, p, err)
	case res.Valid:
		metrics.ProbeTotal.WithLabelValues(string(p), "valid").Inc()
	default:
		metrics.ProbeTotal.WithLabelValues(string(p), "invalid").Inc()
	}
	return res, nil
}

// Refresh ejecuta el refresh de la plataforma. Un error siempre envuelve
// ErrPlatformUnsupported, ErrNoRefreshToken o ErrRefreshFailed.
func (r *Registry) Refresh(ctx context.Context, p repository.Platform, id Identity) (*Token, error) {
	e, ok := r.Lookup(p)
	if !ok {
		return nil, fmt.Errorf("%w: %q", repository.ErrPlatformUnsupported, p)
	}
	if e.Refresh == nil {
		return nil, fmt.Errorf("%w: unsupported", repository.ErrRefreshFailed)
	}
	if id.RefreshToken == "" {
		return nil, fmt.Errorf("%w: %s", repository.ErrNoRefreshToken, p)
	}
	tok, err := e.Refresh(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", repository.ErrRefreshFailed, p, err)
	}
	if tok == nil || tok.AccessToken == "" {
		return nil, fmt.Errorf("%w: %s: provider returned no access token", repository.ErrRefreshFailed, p)
	}
	return tok, nil
}
