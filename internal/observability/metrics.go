package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// seasonal analysis pipeline.
type Metrics struct {
	ObservationsParsed prometheus.Counter
	ParseErrors        prometheus.Counter
	RowsNormalized     prometheus.Counter
	MergedRows         prometheus.Gauge
	PipelineRunning    prometheus.Gauge

	// Fetch metrics; outcome is one of fetched, cached, failed.
	FetchOutcomes *prometheus.CounterVec
	FetchDuration prometheus.Histogram

	StageDuration *prometheus.HistogramVec // label: stage
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.ObservationsParsed,
		m.ParseErrors,
		m.RowsNormalized,
		m.MergedRows,
		m.PipelineRunning,
		m.FetchOutcomes,
		m.FetchDuration,
		m.StageDuration,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics across tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ObservationsParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "swd_etl",
			Name:      "trap_observations_parsed_total",
			Help:      "Trap observations decoded from the raw count grid.",
		}),
		ParseErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "swd_etl",
			Name:      "parse_errors_total",
			Help:      "Malformed cells and rows collected across all sources.",
		}),
		RowsNormalized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "swd_etl",
			Name:      "weather_rows_normalized_total",
			Help:      "Daily weather rows written to normalized station tables.",
		}),
		MergedRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "swd_etl",
			Name:      "merged_rows",
			Help:      "Rows in the final analysis table of the last run.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "swd_etl",
			Name:      "pipeline_running",
			Help:      "1 while a batch run is active, 0 otherwise.",
		}),
		FetchOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "swd_etl",
			Name:      "station_fetches_total",
			Help:      "Archive fetch attempts per station by outcome.",
		}, []string{"outcome"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "swd_etl",
			Name:      "station_fetch_duration_seconds",
			Help:      "Duration of one station file retrieval.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "swd_etl",
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		}, []string{"stage"}),
	}
}
