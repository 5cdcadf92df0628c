package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"yieldplus/core/events"
	"yieldplus/core/types"
)

type eventMetrics struct {
	emitted *prometheus.CounterVec
}

var (
	eventMetricsOnce sync.Once
	eventRegistry    *eventMetrics
)

// Events returns the metrics registry tracking emitted ledger events.
func Events() *eventMetrics {
	eventMetricsOnce.Do(func() {
		eventRegistry = &eventMetrics{
			emitted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "yieldplus",
				Subsystem: "events",
				Name:      "emitted_total",
				Help:      "Count of ledger events segmented by type.",
			}, []string{"type"}),
		}
		prometheus.MustRegister(eventRegistry.emitted)
	})
	return eventRegistry
}

// Record counts evt and feeds the reward engine metrics it carries.
func (m *eventMetrics) Record(evt *types.Event) {
	if m == nil || evt == nil {
		return
	}
	m.emitted.WithLabelValues(orUnknown(evt.Type)).Inc()
	attrs := evt.Attributes
	y := Yield()
	switch evt.Type {
	case events.TypeProtocolRewards:
		y.RecordRewards(attrs["protocol"], attrs["reward"], attrs["tvl"], attrs["usd"], attrs["period_at"])
	case events.TypeOracleUpdated:
		y.RecordUpdate(attrs["oracle"], attrs["protocol"], attrs["periods"])
	case events.TypeProtocolClaimed:
		y.RecordClaim("protocol")
	case events.TypeOracleClaimed:
		y.RecordClaim("oracle")
	case events.TypeProtocolStatus:
		y.RecordStatus("protocol", attrs["status"])
	case events.TypeOracleStatus:
		y.RecordStatus("oracle", attrs["status"])
	}
}

// MetricsEmitter is an events.Emitter that records every event it sees.
type MetricsEmitter struct{}

// Emit implements events.Emitter.
func (MetricsEmitter) Emit(evt events.Event) {
	switch e := evt.(type) {
	case events.Generic:
		Events().Record(e.Event)
	case events.Payload:
		Events().Record(e.Event())
	}
}
