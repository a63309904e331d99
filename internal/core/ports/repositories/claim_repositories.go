package repositories

import (
	"context"

	"github.com/openclaims/expense_claims_app/internal/core/domain"
)

// ListClaimsFilters narrows a claim listing. Nil fields are ignored.
type ListClaimsFilters struct {
	Status     *domain.ClaimStatus
	EmployeeID *string
	Limit      int
	Offset     int
}

// ClaimRepository defines the persistence operations for Claims. A claim is
// always read and written as a whole aggregate: line items and approval ledger
// travel with it, atomically.
type ClaimRepository interface {
	// SaveClaim inserts a new claim with its line items. Drafts have no ledger.
	SaveClaim(ctx context.Context, claim domain.Claim) error

	// UpdateClaim replaces the claim row, its line items and its ledger in one
	// database transaction, guarded by the expected version. It returns
	// apperrors.ErrConflict when the stored version differs, so racing
	// transitions resolve to exactly one winner.
	UpdateClaim(ctx context.Context, claim domain.Claim, expectedVersion int64) error

	// FindClaimByID loads the full aggregate (line items and ledger included).
	FindClaimByID(ctx context.Context, claimID string) (*domain.Claim, error)

	ListClaims(ctx context.Context, organizationID string, filters ListClaimsFilters) ([]domain.Claim, error)
}

// ClaimRepositoryWithTx combines claim persistence with transaction management.
type ClaimRepositoryWithTx interface {
	ClaimRepository
	TransactionManager
}
