// Package metrics exposes Prometheus collectors for a run's progress and
// stage timings: namespaced counter/gauge/histogram construction plus a
// Register/collector split.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wyfcoding/ore/internal/obslog"
)

// Metrics is the run's full collector set.
type Metrics struct {
	RunsTotal         prometheus.Counter
	RunDuration       prometheus.Histogram
	StageDuration     *prometheus.HistogramVec
	SamplesProcessed  prometheus.Counter
	SampleProgress    prometheus.Gauge
	TradesFailed      prometheus.Counter
	CubeWriteDuration prometheus.Histogram
	XVADuration       *prometheus.HistogramVec
}

// New builds the run's metrics, namespaced "ore" with the given subsystem
// (typically the run or service name).
func New(subsystem string) *Metrics {
	return &Metrics{
		RunsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ore",
			Subsystem: subsystem,
			Name:      "runs_total",
			Help:      "Total completed valuation runs",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ore",
			Subsystem: subsystem,
			Name:      "run_duration_seconds",
			Help:      "End-to-end run duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ore",
			Subsystem: subsystem,
			Name:      "stage_duration_seconds",
			Help:      "Duration of one run stage (NPV, Cashflow, Simulation, XVA, Sensitivity) in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		SamplesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ore",
			Subsystem: subsystem,
			Name:      "samples_processed_total",
			Help:      "Total Monte-Carlo samples valued across all trades",
		}),
		SampleProgress: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ore",
			Subsystem: subsystem,
			Name:      "sample_progress_ratio",
			Help:      "Fraction of the current run's trades completed, updated by the driver's single progress reducer",
		}),
		TradesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ore",
			Subsystem: subsystem,
			Name:      "trades_failed_total",
			Help:      "Trades whose calculator raised and were zeroed (per-trade failure handling)",
		}),
		CubeWriteDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ore",
			Subsystem: subsystem,
			Name:      "cube_write_duration_seconds",
			Help:      "Time spent serializing the NPV cube to disk",
			Buckets:   prometheus.DefBuckets,
		}),
		XVADuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ore",
			Subsystem: subsystem,
			Name:      "xva_duration_seconds",
			Help:      "Time spent computing XVA for one netting set",
			Buckets:   prometheus.DefBuckets,
		}, []string{"netting_set_id"}),
	}
}

// Register registers every collector with the default registerer.
func (m *Metrics) Register() error {
	collectors := []prometheus.Collector{
		m.RunsTotal, m.RunDuration, m.StageDuration, m.SamplesProcessed,
		m.SampleProgress, m.TradesFailed, m.CubeWriteDuration, m.XVADuration,
	}
	for _, c := range collectors {
		if err := prometheus.DefaultRegisterer.Register(c); err != nil {
			obslog.Get().Error(context.Background(), "failed to register metric", "error", err)
			return err
		}
	}
	return nil
}

// StartHTTPServer serves /metrics on addr in the background.
func StartHTTPServer(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			obslog.Get().Error(context.Background(), "metrics HTTP server stopped", "error", err)
		}
	}()
}

// RunCollector narrows Metrics to what valuation.Driver's progress reducer
// needs, so the driver package does not import prometheus directly.
type RunCollector interface {
	RecordSample()
	SetProgress(ratio float64)
	RecordTradeFailure()
}

func (m *Metrics) RecordSample()         { m.SamplesProcessed.Inc() }
func (m *Metrics) SetProgress(r float64) { m.SampleProgress.Set(r) }
func (m *Metrics) RecordTradeFailure()   { m.TradesFailed.Inc() }
