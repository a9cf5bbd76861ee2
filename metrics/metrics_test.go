package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRegistered(t *testing.T) {
	NavigationAttempts.WithLabelValues(ResultSuccess).Add(0)
	Items.WithLabelValues(OutcomePartial).Add(0)
	Runs.WithLabelValues(RunCompleted).Add(0)
	RunDuration.Observe(3)

	for _, name := range []string{
		"langtable_navigation_attempts_total",
		"langtable_items_total",
		"langtable_runs_total",
		"langtable_run_duration_seconds",
	} {
		n, err := testutil.GatherAndCount(prometheus.DefaultGatherer, name)
		require.NoError(t, err)
		assert.Positive(t, n, name)
	}
}

func TestItemsByOutcome(t *testing.T) {
	before := testutil.ToFloat64(Items.WithLabelValues(OutcomeFailed))
	Items.WithLabelValues(OutcomeFailed).Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(Items.WithLabelValues(OutcomeFailed)))
}
