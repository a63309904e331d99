package repositories

import (
	"context"

	"github.com/openclaims/expense_claims_app/internal/core/domain"
)

// UserRepository defines persistence operations for the employee/approver directory.
type UserRepository interface {
	SaveUser(ctx context.Context, user domain.User) error

	FindUserByID(ctx context.Context, userID string) (*domain.User, error)

	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)

	// FindUsersByRole returns the members of an organization holding the given
	// role, used to resolve and notify approvers.
	FindUsersByRole(ctx context.Context, organizationID string, role string) ([]domain.User, error)
}
