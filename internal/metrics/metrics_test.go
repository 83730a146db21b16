package metrics

import (
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func gaugeValue(t *testing.T, g interface{ Write(*dto.Metric) error }) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, g.Write(&m))
	return m.GetGauge().GetValue()
}

func TestSetTracksActiveRecordsValue(t *testing.T) {
	m := New()
	m.SetTracksActive(3)
	require.Equal(t, 3.0, gaugeValue(t, m.tracksActive))
}

func TestRenderStartedAndFinishedToggleActiveGauge(t *testing.T) {
	m := New()
	m.RenderStarted(4)
	require.Equal(t, 1.0, gaugeValue(t, m.renderActive))
	m.RenderFinished(1.5)
	require.Equal(t, 0.0, gaugeValue(t, m.renderActive))
}

func TestIncStftUnderrunIncrementsLabeledCounter(t *testing.T) {
	m := New()
	m.IncStftUnderrun("0")
	m.IncStftUnderrun("0")
	var metric dto.Metric
	require.NoError(t, m.stftUnderrunsTotal.WithLabelValues("0").Write(&metric))
	require.Equal(t, 2.0, metric.GetCounter().GetValue())
}
