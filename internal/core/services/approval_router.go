package services

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/openclaims/expense_claims_app/internal/apperrors"
	"github.com/openclaims/expense_claims_app/internal/core/domain"
)

// ApprovalRouter turns a policy's approval-level rules into a claim's approval
// ledger and resolves who acts next. It is stateless; all state lives on the
// claim aggregate.
type ApprovalRouter struct{}

// levelApplies reports whether a level rule belongs in the ledger for a claim total.
func (ApprovalRouter) levelApplies(rule domain.ApprovalLevelRule, claimAmount decimal.Decimal) bool {
	return rule.IsRequired || claimAmount.GreaterThanOrEqual(rule.AmountThreshold)
}

// BuildLedger produces the ordered list of approval entries required for the
// claim amount. Levels are evaluated in ascending declared level number; ties
// on threshold keep source order. An empty ledger is a valid outcome and means
// the claim auto-approves on submission.
func (r ApprovalRouter) BuildLedger(policy domain.Policy, claimAmount decimal.Decimal) []domain.ApprovalLedgerEntry {
	rules := make([]domain.ApprovalLevelRule, len(policy.ApprovalLevels))
	copy(rules, policy.ApprovalLevels)
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Level < rules[j].Level
	})

	ledger := make([]domain.ApprovalLedgerEntry, 0, len(rules))
	for _, rule := range rules {
		if !r.levelApplies(rule, claimAmount) {
			continue
		}
		ledger = append(ledger, domain.ApprovalLedgerEntry{
			Level:        rule.Level,
			ApproverRole: rule.ApproverRole,
			Status:       domain.EntryPending,
		})
	}
	return ledger
}

// ResolveCurrentApprover returns the level and role of the first entry still
// pending. ok is false when every entry is terminal, i.e. the claim is fully
// approved.
func (ApprovalRouter) ResolveCurrentApprover(ledger []domain.ApprovalLedgerEntry) (level int, approverRole string, ok bool) {
	for i := range ledger {
		if ledger[i].Status == domain.EntryPending {
			return ledger[i].Level, ledger[i].ApproverRole, true
		}
	}
	return 0, "", false
}

// Forward reassigns the current pending level to another approver role. The
// original entry is kept as FORWARDED history and a pending replacement is
// inserted directly after it at the same level, so level ordering never skips.
// The target role must exist in the policy's approval hierarchy.
func (r ApprovalRouter) Forward(policy domain.Policy, ledger []domain.ApprovalLedgerEntry, fromLevel int, toRole string) ([]domain.ApprovalLedgerEntry, error) {
	currentLevel, _, ok := r.ResolveCurrentApprover(ledger)
	if !ok {
		return nil, fmt.Errorf("%w: no pending approval level to forward", apperrors.ErrConflict)
	}
	if currentLevel != fromLevel {
		return nil, fmt.Errorf("%w: level %d is not the current pending level (current is %d)", apperrors.ErrConflict, fromLevel, currentLevel)
	}

	known := false
	for _, role := range policy.ApproverRoles() {
		if role == toRole {
			known = true
			break
		}
	}
	if !known {
		return nil, fmt.Errorf("%w: role %q is not part of the policy's approval hierarchy", apperrors.ErrValidation, toRole)
	}

	updated := make([]domain.ApprovalLedgerEntry, 0, len(ledger)+1)
	for i := range ledger {
		entry := ledger[i]
		if entry.Level == fromLevel && entry.Status == domain.EntryPending {
			entry.Status = domain.EntryForwarded
			updated = append(updated, entry)
			updated = append(updated, domain.ApprovalLedgerEntry{
				Level:        fromLevel,
				ApproverRole: toRole,
				Status:       domain.EntryPending,
			})
			continue
		}
		updated = append(updated, entry)
	}
	return updated, nil
}
