package adapter

import (
	"context"

	"subscription-engine/internal/domain/model"
)

// AuditRecorder is the external audit collaborator. The engine calls Record
// exactly once per successful mutation, after the write is durably
// committed, never before. Emission is fire-and-forget: implementations
// must not fail the mutation that triggered them.
type AuditRecorder interface {
	Record(ctx context.Context, event *model.AuditEvent)
}
