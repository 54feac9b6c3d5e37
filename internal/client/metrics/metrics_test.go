package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_AndRecord(t *testing.T) {
	m := New()
	reg := prometheus.NewRegistry()
	require.NoError(t, m.Register(reg))

	m.ObservePush(100*time.Millisecond, nil)
	m.ObservePush(time.Second, errors.New("offline"))
	m.ObservePush(time.Second, errors.New("offline"))
	m.IncSuppressed()
	m.IncTransfer(DirectionUpload, nil)
	m.IncTransfer(DirectionDownload, errors.New("404"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.pushes.WithLabelValues(ResultSuccess)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.pushes.WithLabelValues(ResultFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.suppressed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transfers.WithLabelValues(DirectionUpload, ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transfers.WithLabelValues(DirectionDownload, ResultFailure)))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, n := range []string{MetricPushesTotal, MetricPushSuppressedTotal, MetricPushDuration, MetricAttachmentTransfers} {
		assert.True(t, names[n], n)
	}
}

func TestRegister_Twice(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, New().Register(reg))
	require.Error(t, New().Register(reg))
}

func TestNilMetrics_NoPanic(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObservePush(time.Second, nil)
		m.IncSuppressed()
		m.IncTransfer(DirectionUpload, nil)
	})
}
