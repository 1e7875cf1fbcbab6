package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for dataset
// loading, index reduction and export.
type Metrics struct {
	DatasetLoads     prometheus.Counter
	LoadDuration     prometheus.Histogram
	DatasetTimeSteps prometheus.Gauge

	Reductions        *prometheus.CounterVec // labels: region
	ReductionDuration prometheus.Histogram
	MapRenders        prometheus.Counter

	RecordsExported *prometheus.CounterVec // labels: sink
	ExportErrors    *prometheus.CounterVec // labels: sink
}

// NewMetrics creates and registers all metrics with the default Prometheus
// registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.DatasetLoads,
		m.LoadDuration,
		m.DatasetTimeSteps,
		m.Reductions,
		m.ReductionDuration,
		m.MapRenders,
		m.RecordsExported,
		m.ExportErrors,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid "already
// registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		DatasetLoads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nino34",
			Name:      "dataset_loads_total",
			Help:      "Total datasets loaded from NetCDF files.",
		}),
		LoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "nino34",
			Name:      "dataset_load_duration_seconds",
			Help:      "Duration of reading a dataset into memory.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		DatasetTimeSteps: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "nino34",
			Name:      "dataset_time_steps",
			Help:      "Number of time steps in the loaded dataset.",
		}),
		Reductions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nino34",
			Name:      "area_means_total",
			Help:      "Area-mean reductions by region.",
		}, []string{"region"}),
		ReductionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "nino34",
			Name:      "area_mean_duration_seconds",
			Help:      "Duration of one area-mean reduction over all time steps.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		MapRenders: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nino34",
			Name:      "map_renders_total",
			Help:      "Temperature maps rendered.",
		}),
		RecordsExported: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nino34",
			Name:      "records_exported_total",
			Help:      "Index records written to a sink.",
		}, []string{"sink"}),
		ExportErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nino34",
			Name:      "export_errors_total",
			Help:      "Index records that failed to be written to a sink.",
		}, []string{"sink"}),
	}
}
