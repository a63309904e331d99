package repositories

import (
	"context"

	"github.com/openclaims/expense_claims_app/internal/core/domain"
)

// AuditRepository defines persistence for the append-only audit log.
type AuditRepository interface {
	SaveAuditEvent(ctx context.Context, event domain.AuditEvent) error

	ListAuditEventsByClaim(ctx context.Context, claimID string) ([]domain.AuditEvent, error)
}
