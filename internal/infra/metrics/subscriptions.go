package metrics

import (
	"subscription-engine/internal/domain/model"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		subscriptionsTotal,
		subscriptionTransitionsTotal,
		subscriptionConflictsTotal,
	)
}

var (
	subscriptionsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "subscriptions_total",
			Help: "Current number of subscriptions by status.",
		},
		[]string{"status"}, // 'active', 'paused', 'canceled', 'completed'
	)

	subscriptionTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_transitions_total",
			Help: "Lifecycle actions applied to subscriptions, by action and outcome.",
		},
		[]string{"action", "outcome"}, // outcome: 'ok', 'rejected', 'conflict'
	)

	subscriptionConflictsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "subscription_write_conflicts_total",
			Help: "Optimistic concurrency conflicts detected on subscription writes.",
		},
	)
)

func SetSubscriptionsTotal(counts map[model.SubscriptionStatus]int) {
	for _, status := range []model.SubscriptionStatus{
		model.SubscriptionStatusActive,
		model.SubscriptionStatusPaused,
		model.SubscriptionStatusCanceled,
		model.SubscriptionStatusCompleted,
	} {
		if count, ok := counts[status]; ok {
			subscriptionsTotal.WithLabelValues(string(status)).Set(float64(count))
		}
	}
}

func IncTransition(action model.Action, outcome string) {
	subscriptionTransitionsTotal.WithLabelValues(string(action), norm(outcome)).Inc()
}

func IncWriteConflict() {
	subscriptionConflictsTotal.Inc()
}
