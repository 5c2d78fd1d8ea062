package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/dropDatabas3/connkeeper/internal/domain/repository"
)

// StorePinger es lo que /readyz necesita de los stores.
type StorePinger interface {
	Ping(ctx context.Context) map[repository.StoreTag]error
}

// CachePinger es opcional.
type CachePinger interface {
	Ping(ctx context.Context) error
}

// RouterDeps agrupa dependencias del router.
type RouterDeps struct {
	Stores StorePinger
	Cache  CachePinger
	// Registerer/Gatherer de Prometheus. nil => default.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
	Logger     *zap.Logger
	// ReadyTimeout acota los pings de /readyz. Default 2s.
	ReadyTimeout time.Duration
}

type readyResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
}

// NewRouter arma la superficie operativa: /livez, /readyz y /metrics.
func NewRouter(deps RouterDeps) (http.Handler, error) {
	if deps.Registerer == nil {
		deps.Registerer = prometheus.DefaultRegisterer
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.ReadyTimeout <= 0 {
		deps.ReadyTimeout = 2 * time.Second
	}

	m, err := newHTTPMetrics(deps.Registerer)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(WithRecover, WithRequestID, WithLogging(deps.Logger), m.instrument)

	r.Get("/livez", func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "alive"})
	})
	r.Get("/readyz", readyz(deps))
	r.Method(http.MethodGet, "/metrics", metricsHandler(deps.Gatherer))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		WriteError(w, http.StatusNotFound, "not_found", "ruta inexistente")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "método no permitido")
	})
	return r, nil
}

// readyz: "ready" con todo arriba, "degraded" si cae un store o el cache (la resolución sigue
// por fallback), "unavailable" (503) si no responde ningún store.
func readyz(deps RouterDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), deps.ReadyTimeout)
		defer cancel()

		resp := readyResponse{Status: "ready", Components: map[string]string{}}
		failed := deps.Stores.Ping(ctx)
		for _, tag := range []repository.StoreTag{repository.StorePrimary, repository.StoreSecondary} {
			if err, ok := failed[tag]; ok {
				resp.Components["store_"+string(tag)] = "down: " + err.Error()
				continue
			}
			resp.Components["store_"+string(tag)] = "ok"
		}
		if deps.Cache != nil {
			if err := deps.Cache.Ping(ctx); err != nil {
				resp.Components["cache"] = "down: " + err.Error()
			} else {
				resp.Components["cache"] = "ok"
			}
		}

		status := http.StatusOK
		switch {
		case len(failed) >= 2:
			resp.Status = "unavailable"
			status = http.StatusServiceUnavailable
		case len(failed) == 1 || resp.Components["cache"] != "" && resp.Components["cache"] != "ok":
			resp.Status = "degraded"
		}
		WriteJSON(w, status, resp)
	}
}
