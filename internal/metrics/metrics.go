// Package metrics exposes simulation measurements to Prometheus.
package metrics

import (
	"net/http"

	"github.com/aristath/tradepath/internal/modules/simulation"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tradepath"

// Registry holds every tradepath metric on a dedicated registry
type Registry struct {
	registry *prometheus.Registry

	Frames               *prometheus.CounterVec
	NodesExpanded        prometheus.Counter
	ConstraintViolations prometheus.Counter
	ActionsApplied       prometheus.Counter
	SearchPops           prometheus.Histogram
	Runs                 *prometheus.CounterVec
	RunReturn            prometheus.Histogram
}

// NewRegistry creates and registers all metrics
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),

		Frames: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "frames_total",
				Help:      "Simulated frames by outcome (processed or skipped)",
			},
			[]string{"outcome"},
		),

		NodesExpanded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "graph_nodes_total",
				Help:      "Decision graph nodes built across all frames",
			},
		),

		ConstraintViolations: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "constraint_violations_total",
				Help:      "Ledger actions rejected while applying a path",
			},
		),

		ActionsApplied: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "actions_applied_total",
				Help:      "Buy and sell actions applied to ledgers",
			},
		),

		SearchPops: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_pops",
				Help:      "Queue pops per frame search",
				Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
			},
		),

		Runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Finished simulation runs by status",
			},
			[]string{"status"},
		),

		RunReturn: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_return_ratio",
				Help:      "Fractional return of completed runs",
				Buckets:   []float64{-0.5, -0.25, -0.1, -0.05, 0, 0.05, 0.1, 0.25, 0.5, 1},
			},
		),
	}

	r.registry.MustRegister(
		r.Frames,
		r.NodesExpanded,
		r.ConstraintViolations,
		r.ActionsApplied,
		r.SearchPops,
		r.Runs,
		r.RunReturn,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

// Registerer exposes the registry for additional collectors
func (r *Registry) Registerer() prometheus.Registerer {
	return r.registry
}

// Handler serves the registry in the Prometheus text format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ObserveFrame implements simulation.Recorder
func (r *Registry) ObserveFrame(report simulation.FrameReport) {
	if report.Found {
		r.Frames.WithLabelValues("processed").Inc()
	} else {
		r.Frames.WithLabelValues("skipped").Inc()
	}
	r.NodesExpanded.Add(float64(report.Nodes))
	r.ConstraintViolations.Add(float64(report.Rejected))
	r.ActionsApplied.Add(float64(report.Applied))
	r.SearchPops.Observe(float64(report.Pops))
}

// ObserveRun implements simulation.Recorder
func (r *Registry) ObserveRun(result *simulation.Result, err error) {
	if err != nil || result == nil {
		r.Runs.WithLabelValues("failed").Inc()
		return
	}
	r.Runs.WithLabelValues("completed").Inc()
	r.RunReturn.Observe(result.Return())
}
