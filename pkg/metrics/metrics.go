// Package metrics exposes Prometheus counters for the assignment engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records engine events as Prometheus metrics. It satisfies the
// scheduler's Recorder interface.
type Collector struct {
	planRuns           *prometheus.CounterVec
	assignmentsCreated prometheus.Counter
	assignmentsReset   prometheus.Counter
	underfilledShifts  prometheus.Counter
}

// NewCollector creates a Collector and registers its metrics.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		planRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "planner_plan_runs_total",
			Help: "Completed plan generation runs by mode.",
		}, []string{"mode"}),
		assignmentsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "planner_assignments_created_total",
			Help: "Assignment records written by the engine.",
		}),
		assignmentsReset: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "planner_assignments_reset_total",
			Help: "Assignment records removed by full resets.",
		}),
		underfilledShifts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "planner_underfilled_shifts_total",
			Help: "Shifts left below capacity at the end of a run.",
		}),
	}

	reg.MustRegister(
		c.planRuns,
		c.assignmentsCreated,
		c.assignmentsReset,
		c.underfilledShifts,
	)

	return c
}

// RecordPlanRun counts one completed run, labeled clearing or incremental.
func (c *Collector) RecordPlanRun(cleared bool) {
	mode := "incremental"
	if cleared {
		mode = "clearing"
	}
	c.planRuns.WithLabelValues(mode).Inc()
}

// RecordAssignments counts assignment records written by a run.
func (c *Collector) RecordAssignments(n int) {
	c.assignmentsCreated.Add(float64(n))
}

// RecordReset counts assignment records removed by a reset.
func (c *Collector) RecordReset(n int64) {
	c.assignmentsReset.Add(float64(n))
}

// RecordUnderfilled counts shifts reported under capacity after a run.
func (c *Collector) RecordUnderfilled(n int) {
	c.underfilledShifts.Add(float64(n))
}

// Handler returns the scrape endpoint for the given gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
