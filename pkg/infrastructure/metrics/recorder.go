// Package metrics exposes planning runs as prometheus metrics. A CLI run
// is short-lived, so the registry is usually dumped with WriteTextfile for
// the node exporter textfile collector rather than scraped.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vsinha/blendplan/pkg/optimization/model"
)

const namespace = "blendplan"

// Recorder records model sizes and solve outcomes. It is safe for
// concurrent use.
type Recorder struct {
	solveDuration prometheus.Histogram
	solves        *prometheus.CounterVec
	variables     prometheus.Gauge
	binaries      prometheus.Gauge
	constraints   *prometheus.GaugeVec
	objective     prometheus.Gauge
}

// NewRecorder creates the planning metrics and registers them with reg
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	if reg == nil {
		return nil, fmt.Errorf("registerer cannot be nil")
	}

	r := &Recorder{
		solveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "solve_duration_seconds",
			Help:      "Wall time spent in the solver.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		solves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "solves_total",
			Help:      "Solver runs by terminal status.",
		}, []string{"status"}),
		variables: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_variables",
			Help:      "Decision variables of the last model.",
		}),
		binaries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_binary_variables",
			Help:      "Binary decision variables of the last model.",
		}),
		constraints: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_constraints",
			Help:      "Constraints of the last model by rule.",
		}, []string{"rule"}),
		objective: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "objective_value",
			Help:      "Objective of the last optimal plan.",
		}),
	}

	for _, c := range []prometheus.Collector{
		r.solveDuration, r.solves, r.variables, r.binaries, r.constraints, r.objective,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}
	return r, nil
}

// ObserveModel records the size of a built model
func (r *Recorder) ObserveModel(stats model.Stats) {
	r.variables.Set(float64(stats.Variables))
	r.binaries.Set(float64(stats.Binaries))
	r.constraints.Reset()
	for _, rc := range stats.Rules {
		r.constraints.WithLabelValues(rc.Rule).Set(float64(rc.Constraints))
	}
}

// ObserveSolve records one solver run
func (r *Recorder) ObserveSolve(status model.Status, elapsed time.Duration) {
	r.solveDuration.Observe(elapsed.Seconds())
	r.solves.WithLabelValues(status.String()).Inc()
}

// ObserveObjective records the objective of an optimal plan
func (r *Recorder) ObserveObjective(value float64) {
	r.objective.Set(value)
}

// WriteTextfile writes everything g gathers to path in the text
// exposition format.
func WriteTextfile(g prometheus.Gatherer, path string) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
