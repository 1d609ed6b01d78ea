package observability

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_RegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("marketsync", reg)

	m.GatewayAttempts.WithLabelValues("ebay", "POST", "ok").Inc()
	m.PublishJobs.WithLabelValues("succeeded").Add(2)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.GatewayAttempts.WithLabelValues("ebay", "POST", "ok")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.PublishJobs.WithLabelValues("succeeded")))
}

func TestNewMetrics_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics("marketsync", reg)

	assert.Panics(t, func() { NewMetrics("marketsync", reg) })
}

func TestResult(t *testing.T) {
	assert.Equal(t, "success", Result(nil))
	assert.Equal(t, "failure", Result(errors.New("boom")))
}
