package services

import (
	"context"

	"github.com/openclaims/expense_claims_app/internal/core/domain"
	"github.com/openclaims/expense_claims_app/internal/dto"
)

// ClaimReaderSvc defines read operations for claim data
type ClaimReaderSvc interface {
	// GetClaim retrieves a full claim aggregate by its ID.
	GetClaim(ctx context.Context, organizationID string, claimID string, requestingUserID string) (*domain.Claim, error)

	// ListClaims retrieves claims in an organization matching the filters.
	ListClaims(ctx context.Context, organizationID string, requestingUserID string, params dto.ListClaimsParams) (*dto.ListClaimsResponse, error)
}

// ClaimWriterSvc defines the lifecycle transitions of a claim. Every method
// either applies the full transition or leaves the claim untouched.
type ClaimWriterSvc interface {
	// CreateClaim creates a new claim in Draft.
	CreateClaim(ctx context.Context, organizationID string, req dto.CreateClaimRequest, creatorUserID string) (*domain.Claim, error)

	// UpdateDraft replaces the editable fields of a Draft claim.
	UpdateDraft(ctx context.Context, organizationID string, claimID string, req dto.UpdateClaimRequest, requestingUserID string) (*domain.Claim, error)

	// SubmitClaim validates the claim against the active policy, builds the
	// approval ledger and moves the claim out of Draft.
	SubmitClaim(ctx context.Context, organizationID string, claimID string, actorID string) (*domain.Claim, error)

	// ApproveLevel marks the current pending level approved by the actor.
	ApproveLevel(ctx context.Context, organizationID string, claimID string, level int, actorID string, comment string) (*domain.Claim, error)

	// RejectLevel rejects the current pending level and terminates the claim.
	RejectLevel(ctx context.Context, organizationID string, claimID string, level int, actorID string, reason string) (*domain.Claim, error)

	// ForwardLevel reassigns the current pending level to another approver role.
	ForwardLevel(ctx context.Context, organizationID string, claimID string, level int, actorID string, newApproverRole string, reason string) (*domain.Claim, error)

	// Reimburse records payment of an approved claim. Idempotent.
	Reimburse(ctx context.Context, organizationID string, claimID string, actorID string, method string, reference string) (*domain.Claim, error)

	// CancelClaim cancels a claim that has not reached a terminal state.
	CancelClaim(ctx context.Context, organizationID string, claimID string, actorID string, reason string) (*domain.Claim, error)
}

// ClaimSvcFacade combines all claim-related service interfaces
type ClaimSvcFacade interface {
	ClaimReaderSvc
	ClaimWriterSvc
}
