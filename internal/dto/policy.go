package dto

import (
	"time"

	"github.com/openclaims/expense_claims_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CategoryRuleRequest defines one category's limits in a create-policy payload.
type CategoryRuleRequest struct {
	Category                string           `json:"category" binding:"required"`
	DailyLimit              *decimal.Decimal `json:"dailyLimit"`
	MonthlyLimit            *decimal.Decimal `json:"monthlyLimit"`
	AnnualLimit             *decimal.Decimal `json:"annualLimit"`
	ReceiptRequiredAbove    *decimal.Decimal `json:"receiptRequiredAbove"`
	DisallowedSubCategories []string         `json:"disallowedSubCategories"`
}

// ApprovalLevelRequest defines one approval level in a create-policy payload.
type ApprovalLevelRequest struct {
	Level           int             `json:"level" binding:"required,gte=1"`
	ApproverRole    string          `json:"approverRole" binding:"required"`
	AmountThreshold decimal.Decimal `json:"amountThreshold"`
	IsRequired      bool            `json:"isRequired"`
}

// CreatePolicyRequest defines the payload to create a new policy version.
type CreatePolicyRequest struct {
	Name                        string                 `json:"name" binding:"required"`
	EffectiveFrom               time.Time              `json:"effectiveFrom" binding:"required"`
	EffectiveUntil              *time.Time             `json:"effectiveUntil"`
	AllowNonCompliantSubmission bool                   `json:"allowNonCompliantSubmission"`
	ReceiptRequiredAbove        *decimal.Decimal       `json:"receiptRequiredAbove"`
	CategoryRules               []CategoryRuleRequest  `json:"categoryRules" binding:"dive"`
	ApprovalLevels              []ApprovalLevelRequest `json:"approvalLevels" binding:"dive"`
}

// PolicyResponse defines the data returned for a policy document.
type PolicyResponse struct {
	PolicyID       string                     `json:"policyID"`
	OrganizationID string                     `json:"organizationID"`
	Name           string                     `json:"name"`
	Version        int                        `json:"version"`
	EffectiveFrom  time.Time                  `json:"effectiveFrom"`
	EffectiveUntil *time.Time                 `json:"effectiveUntil,omitempty"`
	GeneralRules   domain.GeneralRules        `json:"generalRules"`
	CategoryRules  []domain.CategoryRule      `json:"categoryRules"`
	ApprovalLevels []domain.ApprovalLevelRule `json:"approvalLevels"`
	CreatedAt      time.Time                  `json:"createdAt"`
	CreatedBy      string                     `json:"createdBy"`
}

// ToPolicyResponse converts a domain.Policy to PolicyResponse DTO.
func ToPolicyResponse(p *domain.Policy) PolicyResponse {
	return PolicyResponse{
		PolicyID:       p.PolicyID,
		OrganizationID: p.OrganizationID,
		Name:           p.Name,
		Version:        p.Version,
		EffectiveFrom:  p.EffectiveFrom,
		EffectiveUntil: p.EffectiveUntil,
		GeneralRules:   p.GeneralRules,
		CategoryRules:  p.CategoryRules,
		ApprovalLevels: p.ApprovalLevels,
		CreatedAt:      p.CreatedAt,
		CreatedBy:      p.CreatedBy,
	}
}

// ToPolicyResponses converts a slice of domain.Policy to []PolicyResponse.
func ToPolicyResponses(policies []domain.Policy) []PolicyResponse {
	responses := make([]PolicyResponse, len(policies))
	for i := range policies {
		responses[i] = ToPolicyResponse(&policies[i])
	}
	return responses
}
