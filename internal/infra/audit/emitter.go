// File: internal/infra/audit/emitter.go
package audit

import (
	"context"

	"subscription-engine/internal/domain/model"
	"subscription-engine/internal/domain/ports/adapter"
	"subscription-engine/internal/infra/metrics"

	"github.com/rs/zerolog"
)

var _ adapter.AuditRecorder = (*LogRecorder)(nil)

// LogRecorder emits audit events as structured log lines. Downstream
// collectors key on the "audit" marker field to separate the trail from
// application logs.
type LogRecorder struct {
	logger *zerolog.Logger
}

func NewLogRecorder(logger *zerolog.Logger) *LogRecorder {
	return &LogRecorder{logger: logger}
}

func (r *LogRecorder) Record(ctx context.Context, event *model.AuditEvent) {
	if event == nil {
		return
	}
	r.logger.Info().
		Bool("audit", true).
		Str("event_id", event.ID).
		Str("actor_id", event.ActorID).
		Str("action", string(event.Action)).
		Str("subscription_id", event.SubscriptionID).
		Interface("before", event.Before).
		Interface("after", event.After).
		Time("timestamp", event.Timestamp).
		Msg("subscription audit event")
	metrics.IncAuditEvent(string(event.Action))
}
