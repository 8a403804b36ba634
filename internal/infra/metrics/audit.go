package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(auditEventsTotal) }

var auditEventsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "audit_events_total",
		Help: "Audit events emitted, by action.",
	},
	[]string{"action"},
)

func IncAuditEvent(action string) {
	auditEventsTotal.WithLabelValues(norm(action)).Inc()
}
