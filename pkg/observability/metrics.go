package observability

import (
	"context"

	"github.com/aretw0/tessera/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records engine activity as Prometheus collectors.
type Metrics struct {
	phases       *prometheus.CounterVec
	statuses     *prometheus.CounterVec
	scriptLoads  *prometheus.HistogramVec
	stateChanges *prometheus.HistogramVec
	dropped      prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		phases: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tessera_lifecycle_phases_total",
				Help: "Total number of lifecycle phase entries",
			},
			[]string{"fragment", "phase"},
		),
		statuses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tessera_slot_status_total",
				Help: "Total number of slot status broadcasts",
			},
			[]string{"slot", "status"},
		),
		scriptLoads: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "tessera_script_load_duration_seconds",
				Help: "Duration of fragment script loads",
			},
			[]string{"fragment", "result"},
		),
		stateChanges: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "tessera_state_change_duration_seconds",
				Help: "Duration of applied state changes",
			},
			[]string{"route", "result"},
		),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tessera_state_changes_dropped_total",
			Help: "Total number of queued state changes superseded before running",
		}),
	}
	reg.MustRegister(m.phases, m.statuses, m.scriptLoads, m.stateChanges, m.dropped)
	return m
}

// Hooks returns lifecycle hooks feeding the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnPhase: func(_ context.Context, e *domain.PhaseEvent) {
			m.phases.WithLabelValues(e.Fragment, e.Phase).Inc()
		},
		OnStatus: func(_ context.Context, e *domain.SlotStatusEvent) {
			m.statuses.WithLabelValues(e.Slot, string(e.Details.Status)).Inc()
		},
		OnScriptLoad: func(_ context.Context, e *domain.ScriptLoadEvent) {
			m.scriptLoads.WithLabelValues(e.Fragment, result(e.Err)).Observe(e.Duration.Seconds())
		},
		OnStateChange: func(_ context.Context, e *domain.StateChangeEvent) {
			route := ""
			if e.State != nil {
				route = e.State.Route
			}
			m.stateChanges.WithLabelValues(route, result(e.Err)).Observe(e.Duration.Seconds())
		},
		OnStateDropped: func(context.Context, domain.Change) {
			m.dropped.Inc()
		},
	}
}

// Dropped returns the counter of superseded state changes.
func (m *Metrics) Dropped() prometheus.Counter { return m.dropped }

func result(err error) string {
	if err != nil {
		if code := domain.CodeOf(err); code != "" {
			return string(code)
		}
		return "error"
	}
	return "ok"
}
