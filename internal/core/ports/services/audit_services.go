package services

import (
	"context"

	"github.com/openclaims/expense_claims_app/internal/core/domain"
)

// AuditRecorderSvc records state-changing claim actions. Recording is
// fire-and-forget: a failure must never roll back or block a transition.
type AuditRecorderSvc interface {
	Record(ctx context.Context, actorID string, action string, claimID string, organizationID string, details map[string]any)
}

// AuditReaderSvc exposes the audit trail for compliance reads.
type AuditReaderSvc interface {
	ListAuditEventsByClaim(ctx context.Context, claimID string) ([]domain.AuditEvent, error)
}

// AuditSvcFacade combines audit recording and reading.
type AuditSvcFacade interface {
	AuditRecorderSvc
	AuditReaderSvc
}
