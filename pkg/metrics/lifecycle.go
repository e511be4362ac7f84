package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// LifecycleMetrics records assignment lifecycle activity.
type LifecycleMetrics struct {
	refetches    *prometheus.CounterVec
	staleFetches prometheus.Counter
	mutations    *prometheus.CounterVec
	feedEvents   prometheus.Counter
	feedDrops    prometheus.Counter
}

// NewLifecycleMetrics registers the lifecycle metrics on the provided registerer.
func NewLifecycleMetrics(reg prometheus.Registerer) *LifecycleMetrics {
	if reg == nil {
		return &LifecycleMetrics{}
	}
	refetches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "assignment_refetches_total",
		Help: "Assignment list refetches by trigger.",
	}, []string{"trigger"})
	staleFetches := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "assignment_stale_fetches_total",
		Help: "Fetch responses discarded because a later-issued fetch already applied.",
	})
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "assignment_mutations_total",
		Help: "Extension and completion requests by outcome.",
	}, []string{"op", "outcome"})
	feedEvents := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "changefeed_events_total",
		Help: "Change feed notifications received.",
	})
	feedDrops := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "changefeed_drops_total",
		Help: "Change feed channel drops.",
	})
	reg.MustRegister(refetches, staleFetches, mutations, feedEvents, feedDrops)
	return &LifecycleMetrics{
		refetches:    refetches,
		staleFetches: staleFetches,
		mutations:    mutations,
		feedEvents:   feedEvents,
		feedDrops:    feedDrops,
	}
}

// IncRefetch increments the refetch counter for the given trigger.
func (m *LifecycleMetrics) IncRefetch(trigger string) {
	if m == nil || m.refetches == nil {
		return
	}
	m.refetches.WithLabelValues(normalizeLabel(trigger)).Inc()
}

// IncStaleFetch counts a discarded stale fetch response.
func (m *LifecycleMetrics) IncStaleFetch() {
	if m == nil || m.staleFetches == nil {
		return
	}
	m.staleFetches.Inc()
}

// IncMutation counts an extend/complete call with its outcome.
func (m *LifecycleMetrics) IncMutation(op, outcome string) {
	if m == nil || m.mutations == nil {
		return
	}
	m.mutations.WithLabelValues(normalizeLabel(op), normalizeLabel(outcome)).Inc()
}

// IncFeedEvent counts a received change feed notification.
func (m *LifecycleMetrics) IncFeedEvent() {
	if m == nil || m.feedEvents == nil {
		return
	}
	m.feedEvents.Inc()
}

// IncFeedDrop counts a change feed channel drop.
func (m *LifecycleMetrics) IncFeedDrop() {
	if m == nil || m.feedDrops == nil {
		return
	}
	m.feedDrops.Inc()
}

func normalizeLabel(value string) string {
	trimmed := strings.TrimSpace(strings.ToLower(value))
	if trimmed == "" {
		return "unknown"
	}
	return strings.ReplaceAll(trimmed, " ", "_")
}
