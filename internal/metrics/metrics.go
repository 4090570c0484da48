// Package metrics exposes ingestion run metrics to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Recorder receives the outcome of every ingestion run.
type Recorder interface {
	RecordRun(outcome string, duration time.Duration)
	RecordSnapshots(candidates, accepted int)
	RecordRejection(reason string, count int)
	RecordIndexSize(size int)
	RecordIndexDegraded()
}

// PrometheusRecorder is the Prometheus implementation of Recorder.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	runDurationSeconds *prometheus.HistogramVec
	runTotal           *prometheus.CounterVec
	candidatesTotal    prometheus.Counter
	acceptedTotal      prometheus.Counter
	rejectedTotal      *prometheus.CounterVec
	indexSize          prometheus.Gauge
	indexDegradedTotal prometheus.Counter
	lastSuccess        prometheus.Gauge
}

// NewPrometheusRecorder creates a recorder on its own registry, with Go and
// process collectors registered.
func NewPrometheusRecorder() *PrometheusRecorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &PrometheusRecorder{
		registry: registry,
		runDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "skywatch_run_duration_seconds",
			Help:    "Duration of ingestion runs.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
		}, []string{"outcome"}),
		runTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "skywatch_runs_total",
			Help: "Total ingestion runs by outcome.",
		}, []string{"outcome"}),
		candidatesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "skywatch_snapshots_total",
			Help: "Total snapshots evaluated.",
		}),
		acceptedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "skywatch_movements_recorded_total",
			Help: "Total movements appended to the store.",
		}),
		rejectedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "skywatch_snapshots_rejected_total",
			Help: "Total snapshots rejected by reason.",
		}, []string{"reason"}),
		indexSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "skywatch_signature_index_size",
			Help: "Signatures loaded by the last run.",
		}),
		indexDegradedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "skywatch_signature_index_degraded_total",
			Help: "Runs that continued with an empty signature index after a failed read.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "skywatch_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run.",
		}),
	}

	registry.MustRegister(
		r.runDurationSeconds,
		r.runTotal,
		r.candidatesTotal,
		r.acceptedTotal,
		r.rejectedTotal,
		r.indexSize,
		r.indexDegradedTotal,
		r.lastSuccess,
	)
	return r
}

// GetRegistry returns the Prometheus registry.
func (r *PrometheusRecorder) GetRegistry() *prometheus.Registry {
	return r.registry
}

func (r *PrometheusRecorder) RecordRun(outcome string, duration time.Duration) {
	r.runTotal.WithLabelValues(outcome).Inc()
	r.runDurationSeconds.WithLabelValues(outcome).Observe(duration.Seconds())
	if outcome == OutcomeSuccess {
		r.lastSuccess.SetToCurrentTime()
	}
}

func (r *PrometheusRecorder) RecordSnapshots(candidates, accepted int) {
	r.candidatesTotal.Add(float64(candidates))
	r.acceptedTotal.Add(float64(accepted))
}

func (r *PrometheusRecorder) RecordRejection(reason string, count int) {
	r.rejectedTotal.WithLabelValues(reason).Add(float64(count))
}

func (r *PrometheusRecorder) RecordIndexSize(size int) {
	r.indexSize.Set(float64(size))
}

func (r *PrometheusRecorder) RecordIndexDegraded() {
	r.indexDegradedTotal.Inc()
}

// Run outcomes.
const (
	OutcomeSuccess          = "success"
	OutcomeBusy             = "busy"
	OutcomeStoreUnavailable = "store_unavailable"
	OutcomeSourceFailed     = "source_unavailable"
	OutcomeWriteFailed      = "write_failed"
	OutcomeCancelled        = "cancelled"
)

// Nop discards everything.
type Nop struct{}

func (Nop) RecordRun(string, time.Duration) {}
func (Nop) RecordSnapshots(int, int)        {}
func (Nop) RecordRejection(string, int)     {}
func (Nop) RecordIndexSize(int)             {}
func (Nop) RecordIndexDegraded()            {}
