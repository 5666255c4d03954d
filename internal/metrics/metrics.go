// Package metrics exposes Prometheus collectors for the session lifecycle.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "healping"

// Metrics holds the counters observed by the synchronizer, guards and data helpers.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	sessionEvents  *prometheus.CounterVec
	profileFetches *prometheus.CounterVec
	guardDecisions *prometheus.CounterVec
	remoteCalls    *prometheus.CounterVec
	changes        *prometheus.CounterVec
}

// New creates and registers the collectors. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		sessionEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "session_events_total",
			Help:      "Session change events handled by the synchronizer",
		}, []string{"event", "outcome"}),
		profileFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "profile_fetches_total",
			Help:      "Profile fetch results by outcome",
		}, []string{"result"}),
		guardDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "guard",
			Name:      "decisions_total",
			Help:      "Route guard decisions by outcome",
		}, []string{"outcome"}),
		remoteCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "remote_calls_total",
			Help:      "Remote data calls by kind and result",
		}, []string{"kind", "result"}),
		changes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "changes_total",
			Help:      "Change feed notifications by table",
		}, []string{"table"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.sessionEvents, m.profileFetches, m.guardDecisions, m.remoteCalls, m.changes)
	return m
}

// ObserveSessionEvent counts an event and what the synchronizer did with it.
func (m *Metrics) ObserveSessionEvent(event, outcome string) {
	if m == nil {
		return
	}
	m.sessionEvents.WithLabelValues(event, outcome).Inc()
}

// ObserveProfileFetch counts a profile fetch result: found, not_found, error, discarded, coalesced.
func (m *Metrics) ObserveProfileFetch(result string) {
	if m == nil {
		return
	}
	m.profileFetches.WithLabelValues(result).Inc()
}

// ObserveGuardDecision counts a guard outcome.
func (m *Metrics) ObserveGuardDecision(outcome string) {
	if m == nil {
		return
	}
	m.guardDecisions.WithLabelValues(outcome).Inc()
}

// ObserveRemoteCall counts a wrapped remote call.
func (m *Metrics) ObserveRemoteCall(kind, result string) {
	if m == nil {
		return
	}
	m.remoteCalls.WithLabelValues(kind, result).Inc()
}

// ObserveChange counts a change feed notification.
func (m *Metrics) ObserveChange(table string) {
	if m == nil {
		return
	}
	m.changes.WithLabelValues(table).Inc()
}
