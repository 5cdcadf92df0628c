package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"yieldplus/core/events"
	"yieldplus/core/types"
)

func TestActionsObserve(t *testing.T) {
	m := Actions()
	before := testutil.ToFloat64(m.requests.WithLabelValues("oracle.yield", "updateall", "error"))
	m.Observe("oracle.yield", "updateall", "state", 5*time.Millisecond)
	require.Equal(t, before+1, testutil.ToFloat64(m.requests.WithLabelValues("oracle.yield", "updateall", "error")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.errors.WithLabelValues("oracle.yield", "updateall", "state")))

	var nilMetrics *actionMetrics
	nilMetrics.Observe("x", "y", "", time.Second)
	nilMetrics.RecordThrottle("x", "rate_limit")
}

func TestActionLatencyHistogram(t *testing.T) {
	Actions().Observe("latency.test", "update", "", 250*time.Millisecond)
	Actions().Observe("latency.test", "update", "", 750*time.Millisecond)

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	var hist *dto.Histogram
	for _, family := range families {
		if family.GetName() != "yieldplus_action_duration_seconds" {
			continue
		}
		for _, metric := range family.GetMetric() {
			if labelsOf(metric)["contract"] == "latency.test" {
				hist = metric.GetHistogram()
			}
		}
	}
	require.NotNil(t, hist)
	require.Equal(t, uint64(2), hist.GetSampleCount())
	require.InDelta(t, 1.0, hist.GetSampleSum(), 1e-9)
}

func labelsOf(metric *dto.Metric) map[string]string {
	out := make(map[string]string, len(metric.GetLabel()))
	for _, pair := range metric.GetLabel() {
		out[pair.GetName()] = pair.GetValue()
	}
	return out
}

func TestMetricsEmitterFeedsYieldMetrics(t *testing.T) {
	emitter := MetricsEmitter{}
	emitter.Emit(events.ProtocolRewards{
		Protocol: "metricsproto",
		PeriodAt: 1_700_000_000,
		TVL:      "6000000.0000 EOS",
		USD:      "7200000.0000 USD",
		Reward:   "5.7077 EOS",
		Balance:  "5.7077 EOS",
	})
	emitter.Emit(events.Generic{Event: &types.Event{Type: events.TypeOracleClaimed}})

	y := Yield()
	require.InDelta(t, 5.7077, testutil.ToFloat64(y.rewards.WithLabelValues("metricsproto")), 1e-9)
	require.Equal(t, 6_000_000.0, testutil.ToFloat64(y.tvl.WithLabelValues("metricsproto", "rewards")))
	require.Equal(t, 1_700_000_000.0, testutil.ToFloat64(y.lastUpdated.WithLabelValues("metricsproto")))
	require.GreaterOrEqual(t, testutil.ToFloat64(y.claims.WithLabelValues("oracle")), 1.0)
}

func TestAssetValue(t *testing.T) {
	v, ok := assetValue("0.0200 EOS")
	require.True(t, ok)
	require.InDelta(t, 0.02, v, 1e-12)
	_, ok = assetValue("garbage")
	require.False(t, ok)
}
