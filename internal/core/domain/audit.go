package domain

import "time"

// Audit action names, one per state-changing claim operation.
const (
	ActionClaimCreated   = "claim.created"
	ActionClaimUpdated   = "claim.updated"
	ActionClaimSubmitted = "claim.submitted"
	ActionLevelApproved  = "claim.level_approved"
	ActionLevelRejected  = "claim.level_rejected"
	ActionLevelForwarded = "claim.level_forwarded"
	ActionClaimReimbursed = "claim.reimbursed"
	ActionClaimCancelled  = "claim.cancelled"
)

// AuditEvent is one append-only record of who did what to a claim and when.
// Recording is best-effort relative to the authoritative claim state.
type AuditEvent struct {
	AuditEventID   string         `json:"auditEventID"` // Primary Key (UUID)
	OrganizationID string         `json:"organizationID"`
	ClaimID        string         `json:"claimID"`
	ActorID        string         `json:"actorID"`
	Action         string         `json:"action"`
	Details        map[string]any `json:"details,omitempty"` // Stored as jsonb
	RecordedAt     time.Time      `json:"recordedAt"`
}
