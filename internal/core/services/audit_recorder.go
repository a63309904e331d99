package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	portsrepo "github.com/openclaims/expense_claims_app/internal/core/ports/repositories"
	portssvc "github.com/openclaims/expense_claims_app/internal/core/ports/services"
	"github.com/openclaims/expense_claims_app/internal/core/domain"
	"github.com/openclaims/expense_claims_app/internal/middleware"
)

type auditService struct {
	auditRepo portsrepo.AuditRepository
	newID     func() string
}

// NewAuditService creates the audit trail service.
func NewAuditService(auditRepo portsrepo.AuditRepository) portssvc.AuditSvcFacade {
	return &auditService{
		auditRepo: auditRepo,
		newID:     uuid.NewString,
	}
}

// Ensure auditService implements the portssvc.AuditSvcFacade interface
var _ portssvc.AuditSvcFacade = (*auditService)(nil)

// Record appends one audit event. The claim transition that triggered it has
// already committed, so a persistence failure here is logged and swallowed
// rather than surfaced to the caller.
func (s *auditService) Record(ctx context.Context, actorID string, action string, claimID string, organizationID string, details map[string]any) {
	logger := middleware.GetLoggerFromCtx(ctx)

	event := domain.AuditEvent{
		AuditEventID:   s.newID(),
		OrganizationID: organizationID,
		ClaimID:        claimID,
		ActorID:        actorID,
		Action:         action,
		Details:        details,
		RecordedAt:     time.Now().UTC(),
	}

	if err := s.auditRepo.SaveAuditEvent(ctx, event); err != nil {
		logger.Error("Failed to record audit event",
			slog.String("error", err.Error()),
			slog.String("action", action),
			slog.String("claim_id", claimID))
	}
}

// ListAuditEventsByClaim returns the recorded trail for one claim, oldest first.
func (s *auditService) ListAuditEventsByClaim(ctx context.Context, claimID string) ([]domain.AuditEvent, error) {
	return s.auditRepo.ListAuditEventsByClaim(ctx, claimID)
}
