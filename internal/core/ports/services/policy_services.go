package services

import (
	"context"
	"time"

	"github.com/openclaims/expense_claims_app/internal/core/domain"
	"github.com/openclaims/expense_claims_app/internal/dto"
)

// PolicyReaderSvc defines read operations for policy documents
type PolicyReaderSvc interface {
	GetPolicyByID(ctx context.Context, policyID string) (*domain.Policy, error)

	// GetActivePolicy returns the organization's policy snapshot effective at asOf.
	GetActivePolicy(ctx context.Context, organizationID string, asOf time.Time) (*domain.Policy, error)

	ListPolicies(ctx context.Context, organizationID string) ([]domain.Policy, error)
}

// PolicyWriterSvc defines write operations for policy documents
type PolicyWriterSvc interface {
	// CreatePolicy validates and stores a new policy version.
	CreatePolicy(ctx context.Context, organizationID string, req dto.CreatePolicyRequest, creatorUserID string) (*domain.Policy, error)
}

// PolicySvcFacade combines all policy-related service interfaces
type PolicySvcFacade interface {
	PolicyReaderSvc
	PolicyWriterSvc
}
