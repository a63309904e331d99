package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Policy is an organization-scoped, versioned ruleset: per-category spending
// limits, receipt requirements, and the approval-level hierarchy. The claim
// workflow treats a policy as an immutable snapshot fetched at submission time.
type Policy struct {
	PolicyID       string     `json:"policyID"` // Primary Key (UUID)
	OrganizationID string     `json:"organizationID"`
	Name           string     `json:"name"`
	Version        int        `json:"version"`
	EffectiveFrom  time.Time  `json:"effectiveFrom"`
	EffectiveUntil *time.Time `json:"effectiveUntil,omitempty"` // Nil means open-ended

	GeneralRules   GeneralRules        `json:"generalRules"`
	CategoryRules  []CategoryRule      `json:"categoryRules" validate:"dive"`
	ApprovalLevels []ApprovalLevelRule `json:"approvalLevels" validate:"dive"`

	AuditFields
}

// GeneralRules hold policy-wide switches that are not tied to a category.
type GeneralRules struct {
	// AllowNonCompliantSubmission lets employees submit claims that carry
	// violations; the violations still travel with the claim for approvers.
	AllowNonCompliantSubmission bool `json:"allowNonCompliantSubmission"`
	// ReceiptRequiredAbove is the default receipt threshold; a category rule
	// may override it. Nil disables the policy-wide requirement.
	ReceiptRequiredAbove *decimal.Decimal `json:"receiptRequiredAbove,omitempty"`
}

// CategoryRule constrains spending for one expense category.
type CategoryRule struct {
	Category                string           `json:"category" validate:"required"`
	DailyLimit              *decimal.Decimal `json:"dailyLimit,omitempty"`
	MonthlyLimit            *decimal.Decimal `json:"monthlyLimit,omitempty"`
	AnnualLimit             *decimal.Decimal `json:"annualLimit,omitempty"`
	ReceiptRequiredAbove    *decimal.Decimal `json:"receiptRequiredAbove,omitempty"`
	DisallowedSubCategories []string         `json:"disallowedSubCategories,omitempty"`
}

// ApprovalLevelRule maps an amount threshold to a required approver role.
// Levels are evaluated in ascending declared level number.
type ApprovalLevelRule struct {
	Level           int             `json:"level" validate:"gte=1"`
	ApproverRole    string          `json:"approverRole" validate:"required"`
	AmountThreshold decimal.Decimal `json:"amountThreshold"`
	// IsRequired forces the level into the ledger regardless of the claim amount.
	IsRequired bool `json:"isRequired"`
}

// ApproverRoles returns every role named in the approval hierarchy.
func (p *Policy) ApproverRoles() []string {
	seen := make(map[string]struct{}, len(p.ApprovalLevels))
	roles := make([]string, 0, len(p.ApprovalLevels))
	for _, lvl := range p.ApprovalLevels {
		if _, ok := seen[lvl.ApproverRole]; !ok {
			seen[lvl.ApproverRole] = struct{}{}
			roles = append(roles, lvl.ApproverRole)
		}
	}
	return roles
}

// Violation rule codes produced by policy evaluation.
const (
	RuleDailyLimit            = "DAILY_LIMIT_EXCEEDED"
	RuleMonthlyLimit          = "MONTHLY_LIMIT_EXCEEDED"
	RuleAnnualLimit           = "ANNUAL_LIMIT_EXCEEDED"
	RuleReceiptRequired       = "RECEIPT_REQUIRED"
	RuleDisallowedSubCategory = "DISALLOWED_SUBCATEGORY"
)

// Violation records one policy breach found on a claim's line items.
type Violation struct {
	LineItemID string `json:"lineItemID"`
	Category   string `json:"category"`
	Rule       string `json:"rule"`
	Message    string `json:"message"`
}
