package repositories

import (
	"context"
	"time"

	"github.com/openclaims/expense_claims_app/internal/core/domain"
)

// PolicyRepository defines persistence operations for policy documents.
// Policies are immutable once saved; an edit is a new version.
type PolicyRepository interface {
	SavePolicy(ctx context.Context, policy domain.Policy) error

	FindPolicyByID(ctx context.Context, policyID string) (*domain.Policy, error)

	// FindActivePolicy returns the highest-version policy of the organization
	// whose effective window covers asOf.
	FindActivePolicy(ctx context.Context, organizationID string, asOf time.Time) (*domain.Policy, error)

	ListPolicies(ctx context.Context, organizationID string) ([]domain.Policy, error)
}
