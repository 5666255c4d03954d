package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Observe(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveSessionEvent("SIGNED_IN", "fetch")
	m.ObserveSessionEvent("SIGNED_IN", "fetch")
	m.ObserveProfileFetch("not_found")
	m.ObserveGuardDecision("redirect")
	m.ObserveRemoteCall("query", "fallback")
	m.ObserveChange("appointments")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.sessionEvents.WithLabelValues("SIGNED_IN", "fetch")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.profileFetches.WithLabelValues("not_found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.guardDecisions.WithLabelValues("redirect")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.remoteCalls.WithLabelValues("query", "fallback")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.changes.WithLabelValues("appointments")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 5)
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveSessionEvent("SIGNED_OUT", "cleared")
		m.ObserveProfileFetch("error")
		m.ObserveGuardDecision("render")
		m.ObserveRemoteCall("mutate", "error")
		m.ObserveChange("reminders")
	})
}
