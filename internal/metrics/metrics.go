package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Row outcomes reported by ingestion runs.
const (
	OutcomeInserted  = "inserted"
	OutcomeDuplicate = "duplicate"
	OutcomeInvalid   = "invalid"
	OutcomeFailed    = "failed"
)

// Registry owns the service's collectors on a private prometheus registry.
type Registry struct {
	reg            *prometheus.Registry
	Runs           *prometheus.CounterVec
	Rows           *prometheus.CounterVec
	ChunkFallbacks *prometheus.CounterVec
	Duration       *prometheus.HistogramVec
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "roster_ingest_runs_total",
		Help: "Completed CSV ingestion runs.",
	}, []string{"kind"})
	rows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "roster_ingest_rows_total",
		Help: "Ingested CSV rows by outcome.",
	}, []string{"kind", "outcome"})
	fallbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "roster_ingest_chunk_fallbacks_total",
		Help: "Chunk inserts that failed and were retried row by row.",
	}, []string{"kind"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "roster_ingest_duration_seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	r.MustRegister(runs, rows, fallbacks, duration)
	return &Registry{
		reg:            r,
		Runs:           runs,
		Rows:           rows,
		ChunkFallbacks: fallbacks,
		Duration:       duration,
	}
}

// ObserveRun records the counts of one finished run. A nil registry is a no-op.
func (r *Registry) ObserveRun(kind string, inserted, duplicates, invalid, failed int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.Runs.WithLabelValues(kind).Inc()
	r.Rows.WithLabelValues(kind, OutcomeInserted).Add(float64(inserted))
	r.Rows.WithLabelValues(kind, OutcomeDuplicate).Add(float64(duplicates))
	r.Rows.WithLabelValues(kind, OutcomeInvalid).Add(float64(invalid))
	r.Rows.WithLabelValues(kind, OutcomeFailed).Add(float64(failed))
	r.Duration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// ChunkFallback counts one chunk that fell back to row-by-row inserts.
func (r *Registry) ChunkFallback(kind string) {
	if r == nil {
		return
	}
	r.ChunkFallbacks.WithLabelValues(kind).Inc()
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
