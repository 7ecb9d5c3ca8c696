package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_RegistersAndCounts(t *testing.T) {
	m, reg := NewTestManagerAndRegistry()

	m.CounterRecommendations.WithLabelValues("target_met").Add(2)
	m.CounterRecommendations.WithLabelValues("target_failed").Inc()
	m.CounterSetsLogged.Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CounterRecommendations.WithLabelValues("target_met")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CounterSetsLogged))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["liftlog_test_recommendations_total"])
	assert.True(t, names["liftlog_test_sets_logged_total"])
}

func TestNewRegistry_RuntimeCollectors(t *testing.T) {
	reg := NewRegistry()
	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
