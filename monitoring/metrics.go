package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sarchlab/gutsim/compartment"
	"github.com/sarchlab/gutsim/hooking"
	"github.com/sarchlab/gutsim/timing"
)

// Metrics turns hook events into Prometheus metrics. It can be attached to
// compartments, their aggregators and the clock.
type Metrics struct {
	registry *prometheus.Registry

	hour        prometheus.Gauge
	transitions *prometheus.CounterVec
	growth      *prometheus.GaugeVec
	cells       *prometheus.GaugeVec
	species     *prometheus.GaugeVec
	metabolites *prometheus.GaugeVec
	tasks       *prometheus.CounterVec
	moved       *prometheus.CounterVec
}

// NewMetrics creates the collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		hour: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gutsim",
			Name:      "simulated_hour",
			Help:      "Current simulated hour.",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gutsim",
			Name:      "transitions_total",
			Help:      "Fired transitions.",
		}, []string{"transition"}),
		growth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "gutsim",
			Name:      "community_growth_rate",
			Help:      "Growth rate of the host model after the last step.",
		}, []string{"compartment"}),
		cells: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "gutsim",
			Name:      "population_cells",
			Help:      "Total number of microbial cells.",
		}, []string{"compartment"}),
		species: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "gutsim",
			Name:      "population_species",
			Help:      "Number of species with at least one cell.",
		}, []string{"compartment"}),
		metabolites: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "gutsim",
			Name:      "pool_metabolites",
			Help:      "Number of metabolites in the pool.",
		}, []string{"compartment"}),
		tasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gutsim",
			Name:      "species_tasks_total",
			Help:      "Finished species optimisations by outcome.",
		}, []string{"outcome"}),
		moved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gutsim",
			Name:      "transferred_cells_total",
			Help:      "Cells that left a compartment.",
		}, []string{"from", "to"}),
	}

	m.registry.MustRegister(
		m.hour, m.transitions, m.growth, m.cells,
		m.species, m.metabolites, m.tasks, m.moved)

	return m
}

// Registry returns the registry that holds the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Func updates the metrics from a hook event.
func (m *Metrics) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case compartment.HookPosAfterMetabolise:
		m.observeSnapshot(ctx.Item)
	case compartment.HookPosAfterTransfer:
		m.observeTransfer(ctx.Item)
	case hooking.HookPosTaskEnd:
		m.observeTask(ctx.Item)
	case timing.HookPosAfterTransition:
		m.observeTransition(ctx.Item)
	}
}

func (m *Metrics) observeSnapshot(item any) {
	s, ok := item.(compartment.Snapshot)
	if !ok {
		return
	}

	m.growth.WithLabelValues(s.Name).Set(s.GrowthRate)
	m.cells.WithLabelValues(s.Name).Set(float64(s.Population.Total()))
	m.species.WithLabelValues(s.Name).Set(float64(len(s.Population.Keys())))
	m.metabolites.WithLabelValues(s.Name).Set(float64(len(s.Pool)))
}

func (m *Metrics) observeTransfer(item any) {
	r, ok := item.(compartment.TransferReport)
	if !ok {
		return
	}

	to := r.To
	if to == "" {
		to = "out"
	}

	m.moved.WithLabelValues(r.From, to).Add(float64(r.Moved))
}

func (m *Metrics) observeTask(item any) {
	t, ok := item.(hooking.TaskEnd)
	if !ok {
		return
	}

	outcome := "ok"
	if !t.OK {
		outcome = "failed"
	}

	m.tasks.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeTransition(item any) {
	t, ok := item.(timing.TransitionFired)
	if !ok {
		return
	}

	m.hour.Set(float64(t.Now))

	if t.Err == nil {
		m.transitions.WithLabelValues(t.Name).Inc()
	}
}
