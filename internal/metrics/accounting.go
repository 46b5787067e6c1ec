package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Accounting and job-queue Prometheus metrics. Defined in a standalone
// package to avoid import cycles between the resolver, the runner and the
// HTTP layer.

var (
	ResolveLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "accounting_resolve_latency_ms",
		Help:    "Latencia de la resolución completa de un evento en milisegundos",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})

	JobsEnqueued = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "jobs_enqueued_total",
		Help: "Jobs encolados",
	})

	JobsProcessed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "jobs_processed_total",
		Help: "Jobs procesados con éxito",
	})

	JobsFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "jobs_failed_total",
		Help: "Jobs movidos al archivo de fallidos",
	})

	RunnerTakeovers = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "runner_takeovers_total",
		Help: "Veces que un runner reemplazó un estado de coordinación stale",
	})

	RunnerYields = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "runner_yields_total",
		Help: "Invocaciones del runner que cedieron ante otro runner activo",
	})

	RunnerBackoff = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "runner_backoff_seconds",
		Help: "Pausa actual del runner cuando la cola está vacía",
	})
)

// Register registers all metrics on the given registry (or default if nil).
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{
		ResolveLatency, JobsEnqueued, JobsProcessed, JobsFailed,
		RunnerTakeovers, RunnerYields, RunnerBackoff,
	} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
