package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(adminOverridesTotal) }

var adminOverridesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "admin_overrides_total",
		Help: "Tracks admin override operations on subscriptions.",
	},
	[]string{"operation", "status"}, // status: 'ok', 'rejected', 'unauthorized'
)

func IncAdminOverride(operation, status string) {
	adminOverridesTotal.WithLabelValues(norm(operation), norm(status)).Inc()
}
