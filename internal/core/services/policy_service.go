package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/openclaims/expense_claims_app/internal/apperrors"
	"github.com/openclaims/expense_claims_app/internal/core/domain"
	portsrepo "github.com/openclaims/expense_claims_app/internal/core/ports/repositories"
	portssvc "github.com/openclaims/expense_claims_app/internal/core/ports/services"
	"github.com/openclaims/expense_claims_app/internal/dto"
	"github.com/openclaims/expense_claims_app/internal/middleware"
)

type policyService struct {
	policyRepo portsrepo.PolicyRepository
	evaluator  *PolicyEvaluator
	newID      func() string
}

// NewPolicyService creates the policy management service.
func NewPolicyService(policyRepo portsrepo.PolicyRepository) portssvc.PolicySvcFacade {
	return &policyService{
		policyRepo: policyRepo,
		evaluator:  NewPolicyEvaluator(),
		newID:      uuid.NewString,
	}
}

// Ensure policyService implements the portssvc.PolicySvcFacade interface
var _ portssvc.PolicySvcFacade = (*policyService)(nil)

// CreatePolicy validates and stores a new policy version for the organization.
// Versions are never edited in place; each create bumps the version number so
// claims submitted under an older version keep their snapshot semantics.
func (s *policyService) CreatePolicy(ctx context.Context, organizationID string, req dto.CreatePolicyRequest, creatorUserID string) (*domain.Policy, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if req.EffectiveUntil != nil && !req.EffectiveUntil.After(req.EffectiveFrom) {
		return nil, fmt.Errorf("%w: effectiveUntil must be after effectiveFrom", apperrors.ErrConfiguration)
	}

	existing, err := s.policyRepo.ListPolicies(ctx, organizationID)
	if err != nil {
		logger.Error("Failed to list policies for versioning", slog.String("error", err.Error()), slog.String("organization_id", organizationID))
		return nil, fmt.Errorf("failed to list policies: %w", err)
	}
	version := 1
	for _, p := range existing {
		if p.Version >= version {
			version = p.Version + 1
		}
	}

	categoryRules := make([]domain.CategoryRule, len(req.CategoryRules))
	for i, r := range req.CategoryRules {
		categoryRules[i] = domain.CategoryRule{
			Category:                r.Category,
			DailyLimit:              r.DailyLimit,
			MonthlyLimit:            r.MonthlyLimit,
			AnnualLimit:             r.AnnualLimit,
			ReceiptRequiredAbove:    r.ReceiptRequiredAbove,
			DisallowedSubCategories: r.DisallowedSubCategories,
		}
	}
	approvalLevels := make([]domain.ApprovalLevelRule, len(req.ApprovalLevels))
	for i, l := range req.ApprovalLevels {
		approvalLevels[i] = domain.ApprovalLevelRule{
			Level:           l.Level,
			ApproverRole:    l.ApproverRole,
			AmountThreshold: l.AmountThreshold,
			IsRequired:      l.IsRequired,
		}
	}

	now := time.Now().UTC()
	policy := domain.Policy{
		PolicyID:       s.newID(),
		OrganizationID: organizationID,
		Name:           req.Name,
		Version:        version,
		EffectiveFrom:  req.EffectiveFrom,
		EffectiveUntil: req.EffectiveUntil,
		GeneralRules: domain.GeneralRules{
			AllowNonCompliantSubmission: req.AllowNonCompliantSubmission,
			ReceiptRequiredAbove:        req.ReceiptRequiredAbove,
		},
		CategoryRules:  categoryRules,
		ApprovalLevels: approvalLevels,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     creatorUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: creatorUserID,
		},
	}

	if err := s.evaluator.ValidatePolicy(policy); err != nil {
		return nil, err
	}

	if err := s.policyRepo.SavePolicy(ctx, policy); err != nil {
		logger.Error("Failed to save policy", slog.String("error", err.Error()), slog.String("organization_id", organizationID))
		return nil, fmt.Errorf("failed to save policy: %w", err)
	}

	logger.Info("Policy created", slog.String("policy_id", policy.PolicyID), slog.Int("version", policy.Version))
	return &policy, nil
}

// GetPolicyByID retrieves one policy version.
func (s *policyService) GetPolicyByID(ctx context.Context, policyID string) (*domain.Policy, error) {
	policy, err := s.policyRepo.FindPolicyByID(ctx, policyID)
	if err != nil {
		return nil, fmt.Errorf("failed to find policy %s: %w", policyID, err)
	}
	return policy, nil
}

// GetActivePolicy returns the policy governing submissions at asOf.
func (s *policyService) GetActivePolicy(ctx context.Context, organizationID string, asOf time.Time) (*domain.Policy, error) {
	policy, err := s.policyRepo.FindActivePolicy(ctx, organizationID, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to find active policy for organization %s: %w", organizationID, err)
	}
	return policy, nil
}

// ListPolicies returns all policy versions of the organization.
func (s *policyService) ListPolicies(ctx context.Context, organizationID string) ([]domain.Policy, error) {
	return s.policyRepo.ListPolicies(ctx, organizationID)
}
