package ports

import (
	"context"

	"github.com/avatarctic/petportrait/internal/core/domain/audit"
)

// GenerationAuditRepository persists generation records.
type GenerationAuditRepository interface {
	Create(ctx context.Context, rec *audit.GenerationRecord) error
	List(ctx context.Context, filter *audit.RecordFilter) ([]*audit.GenerationRecord, error)
	Count(ctx context.Context, filter *audit.RecordFilter) (int, error)
}

// AuditService records generation outcomes. Recording is best-effort and never
// fails a request.
type AuditService interface {
	RecordGeneration(ctx context.Context, rec *audit.GenerationRecord)
	ListGenerations(ctx context.Context, filter *audit.RecordFilter) ([]*audit.GenerationRecord, int, error)
	// Enabled reports whether records are persisted and can be listed.
	Enabled() bool
}
