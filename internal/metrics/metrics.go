// Package metrics exposes Prometheus counters for audit runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gwaudit"

// Run outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
	OutcomePartial = "partial"
)

// Metrics holds the collectors for both audits. A nil *Metrics is valid and
// records nothing, so components can be built without a registry in tests.
type Metrics struct {
	registry        *prometheus.Registry
	runs            *prometheus.CounterVec
	usersClassified *prometheus.CounterVec
	actions         *prometheus.CounterVec
	groupsChecked   prometheus.Counter
	groupsFlagged   prometheus.Counter
	checkpointIndex *prometheus.GaugeVec
	lastRun         *prometheus.GaugeVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Audit invocations by audit name and outcome.",
		}, []string{"audit", "outcome"}),
		usersClassified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "users_classified_total",
			Help:      "Directory users classified, by activity status.",
		}, []string{"status"}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Per-user actions by mode and terminal state.",
		}, []string{"mode", "state"}),
		groupsChecked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "groups_checked_total",
			Help:      "Groups whose owners were checked.",
		}),
		groupsFlagged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "groups_flagged_total",
			Help:      "Groups flagged by the groups audit.",
		}),
		checkpointIndex: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "checkpoint_next_index",
			Help:      "Persisted next index of a batch audit cycle.",
		}, []string{"audit"}),
		lastRun: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last finished run.",
		}, []string{"audit"}),
	}
	reg.MustRegister(
		m.runs, m.usersClassified, m.actions,
		m.groupsChecked, m.groupsFlagged, m.checkpointIndex, m.lastRun,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RunFinished counts a finished invocation.
func (m *Metrics) RunFinished(audit, outcome string, at time.Time) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(audit, outcome).Inc()
	m.lastRun.WithLabelValues(audit).Set(float64(at.Unix()))
}

// UserClassified counts one classification result.
func (m *Metrics) UserClassified(status string) {
	if m == nil {
		return
	}
	m.usersClassified.WithLabelValues(status).Inc()
}

// ActionFinished counts one action record.
func (m *Metrics) ActionFinished(mode, state string) {
	if m == nil {
		return
	}
	m.actions.WithLabelValues(mode, state).Inc()
}

// GroupChecked counts one owner check and whether it produced a finding.
func (m *Metrics) GroupChecked(flagged bool) {
	if m == nil {
		return
	}
	m.groupsChecked.Inc()
	if flagged {
		m.groupsFlagged.Inc()
	}
}

// CheckpointIndex records the persisted cursor of a batch audit.
func (m *Metrics) CheckpointIndex(audit string, next int) {
	if m == nil {
		return
	}
	m.checkpointIndex.WithLabelValues(audit).Set(float64(next))
}
