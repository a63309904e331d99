package services

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/openclaims/expense_claims_app/internal/apperrors"
	"github.com/openclaims/expense_claims_app/internal/core/domain"
)

// EvaluationResult is the outcome of checking a claim's line items against a policy.
type EvaluationResult struct {
	IsCompliant bool
	Violations  []domain.Violation
	// RequiredLevels is the number of approval levels the router will put in
	// the ledger for this claim total. Informational here.
	RequiredLevels int
}

// PolicyEvaluator checks line items against an organization's policy snapshot.
// Evaluate is a pure function: no side effects, no I/O; receipt presence is
// read off the line item metadata supplied by the caller.
type PolicyEvaluator struct {
	validate *validator.Validate
	router   ApprovalRouter
}

// NewPolicyEvaluator creates a new PolicyEvaluator.
func NewPolicyEvaluator() *PolicyEvaluator {
	return &PolicyEvaluator{
		validate: validator.New(),
	}
}

// ValidatePolicy checks that a policy document is structurally sound enough to
// evaluate. Malformed policy input is a configuration error, never a claim
// validation error.
func (e *PolicyEvaluator) ValidatePolicy(policy domain.Policy) error {
	if err := e.validate.Struct(policy); err != nil {
		return fmt.Errorf("%w: %s", apperrors.ErrConfiguration, err.Error())
	}

	seenLevels := make(map[int]struct{}, len(policy.ApprovalLevels))
	for _, lvl := range policy.ApprovalLevels {
		if _, dup := seenLevels[lvl.Level]; dup {
			return fmt.Errorf("%w: duplicate approval level %d", apperrors.ErrConfiguration, lvl.Level)
		}
		seenLevels[lvl.Level] = struct{}{}
		if lvl.AmountThreshold.IsNegative() {
			return fmt.Errorf("%w: approval level %d has a negative amount threshold", apperrors.ErrConfiguration, lvl.Level)
		}
	}

	seenCategories := make(map[string]struct{}, len(policy.CategoryRules))
	for _, rule := range policy.CategoryRules {
		if _, dup := seenCategories[rule.Category]; dup {
			return fmt.Errorf("%w: duplicate category rule for %q", apperrors.ErrConfiguration, rule.Category)
		}
		seenCategories[rule.Category] = struct{}{}
		for _, limit := range []*decimal.Decimal{rule.DailyLimit, rule.MonthlyLimit, rule.AnnualLimit, rule.ReceiptRequiredAbove} {
			if limit != nil && limit.IsNegative() {
				return fmt.Errorf("%w: category %q has a negative limit", apperrors.ErrConfiguration, rule.Category)
			}
		}
	}

	return nil
}

// Evaluate computes per-category compliance violations for the line items and
// the minimum number of approval levels the claim total requires.
func (e *PolicyEvaluator) Evaluate(policy domain.Policy, items []domain.LineItem) (*EvaluationResult, error) {
	if err := e.ValidatePolicy(policy); err != nil {
		return nil, err
	}

	rulesByCategory := make(map[string]domain.CategoryRule, len(policy.CategoryRules))
	for _, rule := range policy.CategoryRules {
		rulesByCategory[rule.Category] = rule
	}

	var violations []domain.Violation
	violations = append(violations, e.checkPeriodLimits(rulesByCategory, items)...)
	violations = append(violations, e.checkReceipts(policy, rulesByCategory, items)...)
	violations = append(violations, e.checkSubCategories(rulesByCategory, items)...)

	total := domain.SumConvertedAmounts(items)
	required := 0
	for _, lvl := range policy.ApprovalLevels {
		if e.router.levelApplies(lvl, total) {
			required++
		}
	}

	return &EvaluationResult{
		IsCompliant:    len(violations) == 0,
		Violations:     violations,
		RequiredLevels: required,
	}, nil
}

// periodKey buckets a line item for one of the period limits.
type periodKey struct {
	category string
	period   string
}

// checkPeriodLimits enforces daily/monthly/annual category limits. Amounts are
// summed per category and period; when a bucket exceeds its limit, every item
// in the bucket is flagged so the employee can see which expenses contributed.
func (e *PolicyEvaluator) checkPeriodLimits(rules map[string]domain.CategoryRule, items []domain.LineItem) []domain.Violation {
	type bucket struct {
		sum   decimal.Decimal
		items []*domain.LineItem
	}

	limits := []struct {
		rule   string
		format string
		limit  func(domain.CategoryRule) *decimal.Decimal
		name   string
	}{
		{domain.RuleDailyLimit, "2006-01-02", func(r domain.CategoryRule) *decimal.Decimal { return r.DailyLimit }, "daily"},
		{domain.RuleMonthlyLimit, "2006-01", func(r domain.CategoryRule) *decimal.Decimal { return r.MonthlyLimit }, "monthly"},
		{domain.RuleAnnualLimit, "2006", func(r domain.CategoryRule) *decimal.Decimal { return r.AnnualLimit }, "annual"},
	}

	var violations []domain.Violation
	for _, lim := range limits {
		buckets := make(map[periodKey]*bucket)
		for i := range items {
			item := &items[i]
			rule, ok := rules[item.Category]
			if !ok || lim.limit(rule) == nil {
				continue
			}
			key := periodKey{category: item.Category, period: item.ExpenseDate.Format(lim.format)}
			b, ok := buckets[key]
			if !ok {
				b = &bucket{sum: decimal.Zero}
				buckets[key] = b
			}
			b.sum = b.sum.Add(item.ConvertedAmount)
			b.items = append(b.items, item)
		}

		for key, b := range buckets {
			limit := *lim.limit(rules[key.category])
			if b.sum.LessThanOrEqual(limit) {
				continue
			}
			for _, item := range b.items {
				violations = append(violations, domain.Violation{
					LineItemID: item.LineItemID,
					Category:   item.Category,
					Rule:       lim.rule,
					Message:    fmt.Sprintf("%s spend of %s in category %q exceeds the %s limit of %s", lim.name, b.sum.String(), key.category, lim.name, limit.String()),
				})
			}
		}
	}
	return violations
}

// checkReceipts flags items at or above the receipt threshold that carry no
// receipt reference. A category threshold overrides the policy-wide one.
func (e *PolicyEvaluator) checkReceipts(policy domain.Policy, rules map[string]domain.CategoryRule, items []domain.LineItem) []domain.Violation {
	var violations []domain.Violation
	for i := range items {
		item := &items[i]
		threshold := policy.GeneralRules.ReceiptRequiredAbove
		if rule, ok := rules[item.Category]; ok && rule.ReceiptRequiredAbove != nil {
			threshold = rule.ReceiptRequiredAbove
		}
		if threshold == nil {
			continue
		}
		if item.ConvertedAmount.GreaterThanOrEqual(*threshold) && item.ReceiptID == nil {
			violations = append(violations, domain.Violation{
				LineItemID: item.LineItemID,
				Category:   item.Category,
				Rule:       domain.RuleReceiptRequired,
				Message:    fmt.Sprintf("amount %s requires a receipt (threshold %s)", item.ConvertedAmount.String(), threshold.String()),
			})
		}
	}
	return violations
}

func (e *PolicyEvaluator) checkSubCategories(rules map[string]domain.CategoryRule, items []domain.LineItem) []domain.Violation {
	var violations []domain.Violation
	for i := range items {
		item := &items[i]
		rule, ok := rules[item.Category]
		if !ok || item.SubCategory == "" {
			continue
		}
		for _, disallowed := range rule.DisallowedSubCategories {
			if disallowed == item.SubCategory {
				violations = append(violations, domain.Violation{
					LineItemID: item.LineItemID,
					Category:   item.Category,
					Rule:       domain.RuleDisallowedSubCategory,
					Message:    fmt.Sprintf("sub-category %q is not reimbursable under category %q", item.SubCategory, item.Category),
				})
				break
			}
		}
	}
	return violations
}
