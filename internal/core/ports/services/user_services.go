package services

import (
	"context"

	"github.com/openclaims/expense_claims_app/internal/core/domain"
	"github.com/openclaims/expense_claims_app/internal/dto"
)

// UserReaderSvc defines read operations for directory data
type UserReaderSvc interface {
	GetUserByID(ctx context.Context, userID string) (*domain.User, error)
}

// UserWriterSvc defines write operations for directory data
type UserWriterSvc interface {
	CreateUser(ctx context.Context, req dto.CreateUserRequest, creatorUserID string) (*domain.User, error)
}

// DirectoryResolverSvc resolves approver roles to concrete users.
type DirectoryResolverSvc interface {
	// ResolveApprovers returns the users of an organization holding a role.
	ResolveApprovers(ctx context.Context, organizationID string, role string) ([]domain.User, error)
}

// AuthenticatorSvc verifies user credentials.
type AuthenticatorSvc interface {
	// AuthenticateUser checks email/password and returns the user on success.
	AuthenticateUser(ctx context.Context, email string, password string) (*domain.User, error)
}

// UserSvcFacade combines all user-related service interfaces
type UserSvcFacade interface {
	UserReaderSvc
	UserWriterSvc
	DirectoryResolverSvc
	AuthenticatorSvc
}
