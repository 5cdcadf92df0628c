package observability

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type actionMetrics struct {
	requests  *prometheus.CounterVec
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttles *prometheus.CounterVec
}

var (
	actionMetricsOnce sync.Once
	actionRegistry    *actionMetrics

	yieldMetricsOnce sync.Once
	yieldRegistry    *YieldMetrics
)

// Actions returns the lazily-initialised registry recording contract action
// execution.
func Actions() *actionMetrics {
	actionMetricsOnce.Do(func() {
		actionRegistry = &actionMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "yieldplus",
				Subsystem: "action",
				Name:      "requests_total",
				Help:      "Total contract actions segmented by contract, action and outcome.",
			}, []string{"contract", "action", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "yieldplus",
				Subsystem: "action",
				Name:      "errors_total",
				Help:      "Total failed contract actions segmented by error kind.",
			}, []string{"contract", "action", "kind"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "yieldplus",
				Subsystem: "action",
				Name:      "duration_seconds",
				Help:      "Latency distribution for contract actions.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"contract", "action"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "yieldplus",
				Subsystem: "action",
				Name:      "throttles_total",
				Help:      "Count of actions rejected by rate limits or quotas.",
			}, []string{"contract", "reason"}),
		}
		prometheus.MustRegister(
			actionRegistry.requests,
			actionRegistry.errors,
			actionRegistry.latency,
			actionRegistry.throttles,
		)
	})
	return actionRegistry
}

// Observe records the outcome of one action. kind is empty on success.
func (m *actionMetrics) Observe(contract, action, kind string, duration time.Duration) {
	if m == nil {
		return
	}
	contract = orUnknown(contract)
	action = orUnknown(action)
	outcome := "success"
	if kind != "" {
		outcome = "error"
		m.errors.WithLabelValues(contract, action, kind).Inc()
	}
	m.requests.WithLabelValues(contract, action, outcome).Inc()
	m.latency.WithLabelValues(contract, action).Observe(duration.Seconds())
}

// RecordThrottle increments the throttle counter. Reasons should be stable
// strings such as "rate_limit" or "quota_exceeded".
func (m *actionMetrics) RecordThrottle(contract, reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.throttles.WithLabelValues(orUnknown(contract), reason).Inc()
}

// YieldMetrics tracks reward engine activity.
type YieldMetrics struct {
	updates     *prometheus.CounterVec
	rewards     *prometheus.CounterVec
	tvl         *prometheus.GaugeVec
	claims      *prometheus.CounterVec
	statuses    *prometheus.CounterVec
	lastUpdated *prometheus.GaugeVec
	periods     *prometheus.GaugeVec
}

// Yield exposes the reward engine metrics registry.
func Yield() *YieldMetrics {
	yieldMetricsOnce.Do(func() {
		yieldRegistry = &YieldMetrics{
			updates: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "yieldplus",
				Subsystem: "oracle",
				Name:      "updates_total",
				Help:      "Protocol updates recorded, segmented by oracle.",
			}, []string{"oracle"}),
			rewards: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "yieldplus",
				Subsystem: "yield",
				Name:      "rewards_accrued",
				Help:      "Rewards accrued per protocol in whole reward currency units.",
			}, []string{"protocol"}),
			tvl: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "yieldplus",
				Subsystem: "yield",
				Name:      "protocol_tvl",
				Help:      "Last reported TVL per protocol and denomination.",
			}, []string{"protocol", "denomination"}),
			claims: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "yieldplus",
				Subsystem: "yield",
				Name:      "claims_total",
				Help:      "Settled claims segmented by claimant kind.",
			}, []string{"kind"}),
			statuses: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "yieldplus",
				Subsystem: "yield",
				Name:      "status_changes_total",
				Help:      "Lifecycle transitions segmented by record kind and target status.",
			}, []string{"kind", "status"}),
			lastUpdated: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "yieldplus",
				Subsystem: "yield",
				Name:      "protocol_period_timestamp",
				Help:      "Unix timestamp of the last recorded period per protocol.",
			}, []string{"protocol"}),
			periods: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "yieldplus",
				Subsystem: "oracle",
				Name:      "periods_retained",
				Help:      "Period snapshots retained per protocol.",
			}, []string{"protocol"}),
		}
		prometheus.MustRegister(
			yieldRegistry.periods,
			yieldRegistry.updates,
			yieldRegistry.rewards,
			yieldRegistry.tvl,
			yieldRegistry.claims,
			yieldRegistry.statuses,
			yieldRegistry.lastUpdated,
		)
	})
	return yieldRegistry
}

// RecordUpdate counts an oracle update and the protocol's retained history.
func (m *YieldMetrics) RecordUpdate(oracle, protocol, retained string) {
	if m == nil {
		return
	}
	m.updates.WithLabelValues(orUnknown(oracle)).Inc()
	if n, err := strconv.ParseUint(retained, 10, 64); err == nil {
		m.periods.WithLabelValues(orUnknown(protocol)).Set(float64(n))
	}
}

// RecordRewards records an accrual. Amounts are asset strings such as
// "5.7077 EOS"; unparsable values are ignored.
func (m *YieldMetrics) RecordRewards(protocol, reward, tvl, usd, periodAt string) {
	if m == nil {
		return
	}
	protocol = orUnknown(protocol)
	if v, ok := assetValue(reward); ok {
		m.rewards.WithLabelValues(protocol).Add(v)
	}
	if v, ok := assetValue(tvl); ok {
		m.tvl.WithLabelValues(protocol, "rewards").Set(v)
	}
	if v, ok := assetValue(usd); ok {
		m.tvl.WithLabelValues(protocol, "usd").Set(v)
	}
	if ts, err := strconv.ParseUint(periodAt, 10, 64); err == nil {
		m.lastUpdated.WithLabelValues(protocol).Set(float64(ts))
	}
}

// RecordClaim counts a settlement by a protocol or an oracle.
func (m *YieldMetrics) RecordClaim(kind string) {
	if m == nil {
		return
	}
	m.claims.WithLabelValues(orUnknown(kind)).Inc()
}

// RecordStatus counts a lifecycle transition.
func (m *YieldMetrics) RecordStatus(kind, status string) {
	if m == nil {
		return
	}
	m.statuses.WithLabelValues(orUnknown(kind), orUnknown(status)).Inc()
}

func assetValue(raw string) (float64, bool) {
	amount, _, ok := strings.Cut(strings.TrimSpace(raw), " ")
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(amount, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func orUnknown(v string) string {
	if v = strings.TrimSpace(v); v == "" {
		return "unknown"
	}
	return v
}
