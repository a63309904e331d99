package dto

import (
	"time"

	"github.com/openclaims/expense_claims_app/internal/core/domain"
)

// AuditEventResponse defines the data returned for one audit event.
type AuditEventResponse struct {
	AuditEventID string         `json:"auditEventID"`
	ClaimID      string         `json:"claimID"`
	ActorID      string         `json:"actorID"`
	Action       string         `json:"action"`
	Details      map[string]any `json:"details,omitempty"`
	RecordedAt   time.Time      `json:"recordedAt"`
}

// ListAuditEventsResponse wraps a claim's audit trail.
type ListAuditEventsResponse struct {
	Events []AuditEventResponse `json:"events"`
}

// ToAuditEventResponses converts domain audit events to DTOs.
func ToAuditEventResponses(events []domain.AuditEvent) []AuditEventResponse {
	responses := make([]AuditEventResponse, len(events))
	for i, e := range events {
		responses[i] = AuditEventResponse{
			AuditEventID: e.AuditEventID,
			ClaimID:      e.ClaimID,
			ActorID:      e.ActorID,
			Action:       e.Action,
			Details:      e.Details,
			RecordedAt:   e.RecordedAt,
		}
	}
	return responses
}
