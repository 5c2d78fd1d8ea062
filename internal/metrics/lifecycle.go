package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Métricas del engine de credenciales. Viven en un paquete propio para que store, platforms
// y lifecycle puedan usarlas sin ciclos de import.

var (
	ProbeTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "connkeeper_probe_total",
		Help: "Probes contra proveedores por resultado (valid|invalid|error)",
	}, []string{"platform", "result"})

	ProbeDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "connkeeper_probe_duration_seconds",
		Help:    "Latencia de los probes por plataforma",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"platform"})

	ClassificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "connkeeper_classifications_total",
		Help: "Clasificaciones de salud por plataforma y estado",
	}, []string{"platform", "status"})

	RefreshTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "connkeeper_refresh_total",
		Help: "Refresh de tokens por resultado (success|failed|persist_failed)",
	}, []string{"platform", "result"})

	RefreshShared = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "connkeeper_refresh_shared_total",
		Help: "Llamadas que se unieron a un refresh en vuelo en lugar de emitir otro",
	}, []string{"platform"})

	StoreLookupFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "connkeeper_store_lookup_failures_total",
		Help: "Fallas de I/O de un store durante la resolución de usuarios",
	}, []string{"store"})

	StoreWriteFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "connkeeper_store_write_failures_total",
		Help: "Escrituras de conexiones no confirmadas por el store",
	}, []string{"store"})

	HealthScore = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "connkeeper_health_score",
		Help:    "Distribución del score agregado de salud por usuario",
		Buckets: prometheus.LinearBuckets(0, 10, 11),
	})
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		ProbeTotal,
		ProbeDuration,
		ClassificationsTotal,
		RefreshTotal,
		RefreshShared,
		StoreLookupFailures,
		StoreWriteFailures,
		HealthScore,
	}
}

// Register registra las métricas en el registry dado (o el default si es nil).
// Registrar dos veces no es error.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range collectors() {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
