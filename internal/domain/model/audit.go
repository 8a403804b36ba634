package model

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// AuditEvent is the immutable record produced by every successful mutation.
// Storage is an external collaborator; the engine only emits.
type AuditEvent struct {
	ID             string         `json:"id"` // ULID, sortable by emission time
	ActorID        string         `json:"actor_id"`
	Action         Action         `json:"action"`
	SubscriptionID string         `json:"subscription_id"`
	Before         map[string]any `json:"before,omitempty"`
	After          map[string]any `json:"after,omitempty"`
	Timestamp      time.Time      `json:"timestamp"`
}

func NewAuditEvent(actorID string, action Action, subscriptionID string, before, after map[string]any) *AuditEvent {
	return &AuditEvent{
		ID:             ulid.Make().String(),
		ActorID:        actorID,
		Action:         action,
		SubscriptionID: subscriptionID,
		Before:         before,
		After:          after,
		Timestamp:      time.Now().UTC(),
	}
}

const dateLayout = "2006-01-02"

func fmtDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(dateLayout)
}

// Snapshot renders the mutable fields of a subscription for audit payloads.
func Snapshot(s *Subscription) map[string]any {
	if s == nil {
		return nil
	}
	out := map[string]any{
		"status":             string(s.Status),
		"frequency":          string(s.Frequency),
		"quantity":           s.Quantity,
		"amount":             s.Amount.StringFixed(2),
		"next_delivery_date": fmtDate(s.NextDeliveryDate),
	}
	if s.CustomInterval != nil {
		out["custom_interval"] = s.CustomInterval.String()
	}
	return out
}

// Diff returns before/after maps restricted to the fields that changed.
func Diff(before, after *Subscription) (map[string]any, map[string]any) {
	prev, cur := Snapshot(before), Snapshot(after)
	if prev == nil || cur == nil {
		return prev, cur
	}
	changedPrev := map[string]any{}
	changedCur := map[string]any{}
	for k, cv := range cur {
		if pv, ok := prev[k]; !ok || pv != cv {
			changedPrev[k] = prev[k]
			changedCur[k] = cv
		}
	}
	for k, pv := range prev {
		if _, ok := cur[k]; !ok {
			changedPrev[k] = pv
			changedCur[k] = nil
		}
	}
	return changedPrev, changedCur
}
