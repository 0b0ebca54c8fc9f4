package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func count(t *testing.T, c prometheus.Metric) float64 {
	t.Helper()

	var d dto.Metric
	require.NoError(t, c.Write(&d))

	return d.GetCounter().GetValue()
}

func TestPayment(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Payment(Completed, decimal.RequireFromString("2.5"))
	m.Payment(Completed, decimal.NewFromInt(1))
	m.Payment(Rejected, decimal.NewFromInt(100))

	assert.Equal(t, 2.0, count(t, m.payments.WithLabelValues(Completed)))
	assert.Equal(t, 1.0, count(t, m.payments.WithLabelValues(Rejected)))

	var d dto.Metric
	require.NoError(t, m.amount.Write(&d))
	assert.Equal(t, uint64(2), d.GetHistogram().GetSampleCount())
	assert.Equal(t, 3.5, d.GetHistogram().GetSampleSum())
}

func TestTracker(t *testing.T) {
	m := New(prometheus.NewRegistry())

	require.NoError(t, m.Track().End(0, nil))

	boom := errors.New("boom")
	assert.ErrorIs(t, m.Track().End(2, boom), boom)

	assert.Equal(t, 1.0, count(t, m.sweeps.WithLabelValues("success")))
	assert.Equal(t, 1.0, count(t, m.sweeps.WithLabelValues("failure")))
	assert.Equal(t, 2.0, count(t, m.failures))
}

func TestNil(t *testing.T) {
	var m *Metrics

	m.Payment(Completed, decimal.NewFromInt(1))
	m.Mismatch("missing")
	assert.NoError(t, m.Track().End(1, nil))
}
