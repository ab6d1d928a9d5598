// Package metrics provides Prometheus-based recording and querying of
// conversation engine activity.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder records per-turn engine metrics. A nil *Recorder is a no-op, so
// hosts that do not scrape can pass nil without guarding every call site.
type Recorder struct {
	turnsTotal        *prometheus.CounterVec
	turnDuration      *prometheus.HistogramVec
	taskOutcomes      *prometheus.CounterVec
	adjustmentsFired  *prometheus.CounterVec
	extractionsTotal  *prometheus.CounterVec
	silentPassesTotal prometheus.Counter
}

// NewRecorder registers the engine metrics with the default registry.
func NewRecorder() *Recorder {
	return &Recorder{
		turnsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatguide_turns_total",
				Help: "Total conversation turns by model and status",
			},
			[]string{"model", "status"},
		),
		turnDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chatguide_turn_duration_seconds",
				Help:    "Duration of conversation turns in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"model"},
		),
		taskOutcomes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatguide_task_outcomes_total",
				Help: "Terminal task outcomes by task id and outcome",
			},
			[]string{"task", "outcome"},
		),
		adjustmentsFired: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatguide_adjustments_fired_total",
				Help: "Adjustment rules fired by name",
			},
			[]string{"name"},
		),
		extractionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatguide_extractions_total",
				Help: "Extracted task results by acceptance status",
			},
			[]string{"status"},
		),
		silentPassesTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "chatguide_silent_passes_total",
				Help: "Extra reasoning passes triggered by silent tasks",
			},
		),
	}
}

// ObserveTurn records one completed (or failed) turn.
func (r *Recorder) ObserveTurn(model string, success bool, duration time.Duration) {
	if r == nil {
		return
	}
	status := "success"
	if !success {
		status = "error"
	}
	r.turnsTotal.WithLabelValues(model, status).Inc()
	r.turnDuration.WithLabelValues(model).Observe(duration.Seconds())
}

// ObserveTaskOutcome records a task reaching a terminal status.
func (r *Recorder) ObserveTaskOutcome(task, outcome string) {
	if r == nil {
		return
	}
	r.taskOutcomes.WithLabelValues(task, outcome).Inc()
}

// ObserveAdjustment records a fired adjustment rule.
func (r *Recorder) ObserveAdjustment(name string) {
	if r == nil {
		return
	}
	r.adjustmentsFired.WithLabelValues(name).Inc()
}

// ObserveExtraction records an accepted or rejected task result.
func (r *Recorder) ObserveExtraction(accepted bool) {
	if r == nil {
		return
	}
	status := "accepted"
	if !accepted {
		status = "rejected"
	}
	r.extractionsTotal.WithLabelValues(status).Inc()
}

// ObserveSilentPass records a silent-task reasoning pass.
func (r *Recorder) ObserveSilentPass() {
	if r == nil {
		return
	}
	r.silentPassesTotal.Inc()
}
