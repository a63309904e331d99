package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/openclaims/expense_claims_app/internal/apperrors"
	"github.com/openclaims/expense_claims_app/internal/core/domain"
	portsrepo "github.com/openclaims/expense_claims_app/internal/core/ports/repositories"
	portssvc "github.com/openclaims/expense_claims_app/internal/core/ports/services"
	"github.com/openclaims/expense_claims_app/internal/dto"
	"github.com/openclaims/expense_claims_app/internal/middleware"
)

var (
	ErrClaimEmpty       = errors.New("claim must have at least one line item")
	ErrClaimNonPositive = errors.New("claim total amount must be positive")
	ErrNotUnderReview   = errors.New("claim is not under review")
	ErrLevelNotCurrent  = errors.New("level is not the current pending approval level")
	ErrRoleMismatch     = errors.New("actor role does not match the current approver role")
	ErrNotDraft         = errors.New("claim is not in draft")
	ErrOutOfPolicy      = errors.New("claim violates policy and the policy forbids non-compliant submission")
	ErrNotApproved      = errors.New("claim must be approved before reimbursement")
)

// claimService owns the claim lifecycle: it is the only code allowed to mutate
// a claim's status, line items or approval ledger. Every transition is applied
// to the whole aggregate under an optimistic version check, so two racing
// actions on the same claim resolve to exactly one winner.
type claimService struct {
	claimRepo    portsrepo.ClaimRepositoryWithTx
	policySvc    portssvc.PolicyReaderSvc
	userSvc      portssvc.UserReaderSvc
	receiptStore portsrepo.ReceiptStore
	audit        portssvc.AuditRecorderSvc
	evaluator    *PolicyEvaluator
	router       ApprovalRouter
	newID        func() string
}

// ClaimServiceOption customises claim service construction.
type ClaimServiceOption func(*claimService)

// WithIDGenerator replaces the claim/line-item ID source. The generator must
// be safe for concurrent use; it is never a shared counter.
func WithIDGenerator(gen func() string) ClaimServiceOption {
	return func(s *claimService) {
		s.newID = gen
	}
}

// WithReceiptStore wires the external receipt metadata store. When present,
// receipt references on submitted line items are verified against it.
func WithReceiptStore(store portsrepo.ReceiptStore) ClaimServiceOption {
	return func(s *claimService) {
		s.receiptStore = store
	}
}

// NewClaimService creates the claim lifecycle service.
func NewClaimService(
	claimRepo portsrepo.ClaimRepositoryWithTx,
	policySvc portssvc.PolicyReaderSvc,
	userSvc portssvc.UserReaderSvc,
	audit portssvc.AuditRecorderSvc,
	opts ...ClaimServiceOption,
) portssvc.ClaimSvcFacade {
	s := &claimService{
		claimRepo: claimRepo,
		policySvc: policySvc,
		userSvc:   userSvc,
		audit:     audit,
		evaluator: NewPolicyEvaluator(),
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ensure claimService implements the portssvc.ClaimSvcFacade interface
var _ portssvc.ClaimSvcFacade = (*claimService)(nil)

// buildLineItems converts request line items into domain line items, computing
// converted amounts in the claim currency.
func (s *claimService) buildLineItems(claimID, currencyCode string, reqs []dto.CreateLineItemRequest) ([]domain.LineItem, error) {
	items := make([]domain.LineItem, len(reqs))
	for i, req := range reqs {
		if req.Amount.LessThanOrEqual(decimal.Zero) {
			return nil, fmt.Errorf("%w: line item amount must be positive", apperrors.ErrValidation)
		}
		if req.ExchangeRate.LessThanOrEqual(decimal.Zero) {
			return nil, fmt.Errorf("%w: line item exchange rate must be positive", apperrors.ErrValidation)
		}
		items[i] = domain.LineItem{
			LineItemID:      s.newID(),
			ClaimID:         claimID,
			ExpenseDate:     req.ExpenseDate,
			Category:        req.Category,
			SubCategory:     req.SubCategory,
			Description:     req.Description,
			Amount:          req.Amount,
			CurrencyCode:    req.CurrencyCode,
			ExchangeRate:    req.ExchangeRate,
			ConvertedAmount: domain.ConvertAmount(req.Amount, req.ExchangeRate, currencyCode),
			ReceiptID:       req.ReceiptID,
			Reimbursable:    true,
		}
	}
	return items, nil
}

// CreateClaim creates a new claim in Draft for the acting employee.
func (s *claimService) CreateClaim(ctx context.Context, organizationID string, req dto.CreateClaimRequest, creatorUserID string) (*domain.Claim, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	now := time.Now().UTC()
	claimID := s.newID()

	items, err := s.buildLineItems(claimID, req.CurrencyCode, req.LineItems)
	if err != nil {
		return nil, err
	}

	claim := domain.Claim{
		ClaimID:        claimID,
		OrganizationID: organizationID,
		EmployeeID:     creatorUserID,
		Title:          req.Title,
		Description:    req.Description,
		CurrencyCode:   req.CurrencyCode,
		TotalAmount:    domain.SumConvertedAmounts(items),
		Status:         domain.StatusDraft,
		LineItems:      items,
		Version:        1,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     creatorUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: creatorUserID,
		},
	}

	if err := s.claimRepo.SaveClaim(ctx, claim); err != nil {
		logger.Error("Failed to save claim", slog.String("error", err.Error()), slog.String("organization_id", organizationID))
		return nil, fmt.Errorf("failed to save claim: %w", err)
	}

	s.audit.Record(ctx, creatorUserID, domain.ActionClaimCreated, claim.ClaimID, organizationID, map[string]any{
		"totalAmount": claim.TotalAmount.String(),
		"lineItems":   len(claim.LineItems),
	})

	logger.Info("Claim created", slog.String("claim_id", claim.ClaimID))
	return &claim, nil
}

// loadClaim fetches the aggregate and hides cross-organization claims.
func (s *claimService) loadClaim(ctx context.Context, organizationID, claimID string) (*domain.Claim, error) {
	claim, err := s.claimRepo.FindClaimByID(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("failed to find claim %s: %w", claimID, err)
	}
	if claim.OrganizationID != organizationID {
		// Obscure existence across organizations
		return nil, apperrors.ErrNotFound
	}
	return claim, nil
}

// UpdateDraft replaces the editable fields of a Draft claim.
func (s *claimService) UpdateDraft(ctx context.Context, organizationID string, claimID string, req dto.UpdateClaimRequest, requestingUserID string) (*domain.Claim, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	claim, err := s.loadClaim(ctx, organizationID, claimID)
	if err != nil {
		return nil, err
	}
	if claim.EmployeeID != requestingUserID {
		return nil, fmt.Errorf("%w: only the claim owner may edit a draft", apperrors.ErrForbidden)
	}
	if claim.Status != domain.StatusDraft {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrConflict, ErrNotDraft)
	}

	if req.Title != nil {
		claim.Title = *req.Title
	}
	if req.Description != nil {
		claim.Description = *req.Description
	}
	if req.LineItems != nil {
		items, err := s.buildLineItems(claim.ClaimID, claim.CurrencyCode, *req.LineItems)
		if err != nil {
			return nil, err
		}
		claim.LineItems = items
		claim.TotalAmount = domain.SumConvertedAmounts(items)
	}

	if err := s.persist(ctx, claim, requestingUserID); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, requestingUserID, domain.ActionClaimUpdated, claim.ClaimID, organizationID, nil)
	logger.Debug("Draft claim updated", slog.String("claim_id", claim.ClaimID))
	return claim, nil
}

// verifyReceipts cross-checks line item receipt references against the receipt
// store. Unknown references are treated as absent so the evaluator flags them.
func (s *claimService) verifyReceipts(ctx context.Context, claim *domain.Claim) error {
	if s.receiptStore == nil {
		return nil
	}
	for i := range claim.LineItems {
		item := &claim.LineItems[i]
		if item.ReceiptID == nil {
			continue
		}
		found, err := s.receiptStore.HasReceipt(ctx, *item.ReceiptID)
		if err != nil {
			return fmt.Errorf("failed to check receipt %s: %w", *item.ReceiptID, err)
		}
		if !found {
			item.ReceiptID = nil
		}
	}
	return nil
}

// SubmitClaim validates a draft against the organization's active policy,
// freezes the policy snapshot on the claim, builds the approval ledger and
// moves the claim under review. A claim whose amount requires no approval
// level at all goes straight to Approved.
func (s *claimService) SubmitClaim(ctx context.Context, organizationID string, claimID string, actorID string) (*domain.Claim, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	claim, err := s.loadClaim(ctx, organizationID, claimID)
	if err != nil {
		return nil, err
	}
	if claim.EmployeeID != actorID {
		return nil, fmt.Errorf("%w: only the claim owner may submit", apperrors.ErrForbidden)
	}
	if claim.Status != domain.StatusDraft {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrConflict, ErrNotDraft)
	}
	if len(claim.LineItems) == 0 {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrValidation, ErrClaimEmpty)
	}
	if claim.TotalAmount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrValidation, ErrClaimNonPositive)
	}

	now := time.Now().UTC()

	policy, err := s.policySvc.GetActivePolicy(ctx, organizationID, now)
	if err != nil {
		logger.Error("Failed to fetch active policy for submission", slog.String("error", err.Error()), slog.String("organization_id", organizationID))
		return nil, fmt.Errorf("failed to fetch active policy: %w", err)
	}

	if err := s.verifyReceipts(ctx, claim); err != nil {
		return nil, err
	}

	result, err := s.evaluator.Evaluate(*policy, claim.LineItems)
	if err != nil {
		return nil, err
	}

	claim.IsCompliant = result.IsCompliant
	claim.Violations = result.Violations
	claim.PolicyID = &policy.PolicyID
	claim.PolicyVersion = &policy.Version

	if !result.IsCompliant && !policy.GeneralRules.AllowNonCompliantSubmission {
		return nil, fmt.Errorf("%w: %s (%d violations)", apperrors.ErrValidation, ErrOutOfPolicy, len(result.Violations))
	}

	claim.Ledger = s.router.BuildLedger(*policy, claim.TotalAmount)
	claim.SubmittedAt = &now
	if len(claim.Ledger) == 0 {
		// Auto-approval is a valid, policy-expressible outcome.
		claim.Status = domain.StatusApproved
		claim.ApprovedAt = &now
	} else {
		claim.Status = domain.StatusUnderReview
	}

	if err := s.persist(ctx, claim, actorID); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actorID, domain.ActionClaimSubmitted, claim.ClaimID, organizationID, map[string]any{
		"totalAmount":    claim.TotalAmount.String(),
		"policyID":       policy.PolicyID,
		"policyVersion":  policy.Version,
		"isCompliant":    claim.IsCompliant,
		"requiredLevels": len(claim.Ledger),
	})

	logger.Info("Claim submitted", slog.String("claim_id", claim.ClaimID), slog.String("status", string(claim.Status)), slog.Int("levels", len(claim.Ledger)))
	return claim, nil
}

// requireCurrentLevel checks that the claim is under review, that the given
// level is the current pending one, and that the actor holds the role the
// level requires. It returns the current pending entry.
func (s *claimService) requireCurrentLevel(ctx context.Context, claim *domain.Claim, level int, actorID string) (*domain.ApprovalLedgerEntry, error) {
	if claim.Status != domain.StatusUnderReview {
		return nil, fmt.Errorf("%w: %s (status %s)", apperrors.ErrConflict, ErrNotUnderReview, claim.Status)
	}

	entry, ok := claim.CurrentLevel()
	if !ok {
		return nil, fmt.Errorf("%w: no pending approval level", apperrors.ErrConflict)
	}
	if entry.Level != level {
		return nil, fmt.Errorf("%w: %s (current is %d)", apperrors.ErrConflict, ErrLevelNotCurrent, entry.Level)
	}

	actor, err := s.userSvc.GetUserByID(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve actor %s: %w", actorID, err)
	}
	if actor.OrganizationID != claim.OrganizationID || actor.Role != entry.ApproverRole {
		return nil, fmt.Errorf("%w: %s (requires %s)", apperrors.ErrForbidden, ErrRoleMismatch, entry.ApproverRole)
	}
	return entry, nil
}

// ApproveLevel marks the current pending level approved. If it was the last
// pending level the claim moves to Approved, otherwise review continues with
// the next level's approver.
func (s *claimService) ApproveLevel(ctx context.Context, organizationID string, claimID string, level int, actorID string, comment string) (*domain.Claim, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	claim, err := s.loadClaim(ctx, organizationID, claimID)
	if err != nil {
		return nil, err
	}
	entry, err := s.requireCurrentLevel(ctx, claim, level, actorID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	entry.Status = domain.EntryApproved
	entry.ApproverID = &actorID
	entry.Comment = comment
	entry.ActionedAt = &now

	if _, _, pending := s.router.ResolveCurrentApprover(claim.Ledger); !pending {
		claim.Status = domain.StatusApproved
		claim.ApprovedAt = &now
	}

	if err := s.persist(ctx, claim, actorID); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actorID, domain.ActionLevelApproved, claim.ClaimID, organizationID, map[string]any{
		"level":  level,
		"status": string(claim.Status),
	})

	logger.Info("Approval level resolved", slog.String("claim_id", claim.ClaimID), slog.Int("level", level), slog.String("status", string(claim.Status)))
	return claim, nil
}

// RejectLevel rejects the current pending level. Rejection at any level
// terminates the whole claim; all remaining pending levels become Skipped.
func (s *claimService) RejectLevel(ctx context.Context, organizationID string, claimID string, level int, actorID string, reason string) (*domain.Claim, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if reason == "" {
		return nil, fmt.Errorf("%w: rejection reason is required", apperrors.ErrValidation)
	}

	claim, err := s.loadClaim(ctx, organizationID, claimID)
	if err != nil {
		return nil, err
	}
	entry, err := s.requireCurrentLevel(ctx, claim, level, actorID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	entry.Status = domain.EntryRejected
	entry.ApproverID = &actorID
	entry.Comment = reason
	entry.ActionedAt = &now

	for i := range claim.Ledger {
		if claim.Ledger[i].Status == domain.EntryPending {
			claim.Ledger[i].Status = domain.EntrySkipped
		}
	}

	claim.Status = domain.StatusRejected
	claim.RejectionReason = reason
	claim.RejectedAt = &now

	if err := s.persist(ctx, claim, actorID); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actorID, domain.ActionLevelRejected, claim.ClaimID, organizationID, map[string]any{
		"level":  level,
		"reason": reason,
	})

	logger.Info("Claim rejected", slog.String("claim_id", claim.ClaimID), slog.Int("level", level))
	return claim, nil
}

// ForwardLevel reassigns the current pending level to another approver role.
// The claim stays under review; the forwarded entry remains in the ledger as
// history.
func (s *claimService) ForwardLevel(ctx context.Context, organizationID string, claimID string, level int, actorID string, newApproverRole string, reason string) (*domain.Claim, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	claim, err := s.loadClaim(ctx, organizationID, claimID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireCurrentLevel(ctx, claim, level, actorID); err != nil {
		return nil, err
	}
	if claim.PolicyID == nil {
		return nil, fmt.Errorf("%w: claim has no policy snapshot", apperrors.ErrConflict)
	}

	policy, err := s.policySvc.GetPolicyByID(ctx, *claim.PolicyID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch policy snapshot: %w", err)
	}

	updated, err := s.router.Forward(*policy, claim.Ledger, level, newApproverRole)
	if err != nil {
		return nil, err
	}
	claim.Ledger = updated

	// Stamp the freshly forwarded entry with the actor's details.
	now := time.Now().UTC()
	for i := range claim.Ledger {
		e := &claim.Ledger[i]
		if e.Level == level && e.Status == domain.EntryForwarded && e.ActionedAt == nil {
			e.ApproverID = &actorID
			e.Comment = reason
			e.ActionedAt = &now
		}
	}

	if err := s.persist(ctx, claim, actorID); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actorID, domain.ActionLevelForwarded, claim.ClaimID, organizationID, map[string]any{
		"level":   level,
		"newRole": newApproverRole,
	})

	logger.Info("Approval level forwarded", slog.String("claim_id", claim.ClaimID), slog.Int("level", level), slog.String("new_role", newApproverRole))
	return claim, nil
}

// Reimburse records payment of an approved claim. Calling it again on an
// already reimbursed claim returns the existing record unchanged so retries
// are safe.
func (s *claimService) Reimburse(ctx context.Context, organizationID string, claimID string, actorID string, method string, reference string) (*domain.Claim, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	claim, err := s.loadClaim(ctx, organizationID, claimID)
	if err != nil {
		return nil, err
	}
	if claim.Status == domain.StatusReimbursed {
		logger.Debug("Claim already reimbursed, returning existing record", slog.String("claim_id", claim.ClaimID))
		return claim, nil
	}
	if claim.Status != domain.StatusApproved {
		return nil, fmt.Errorf("%w: %s (status %s)", apperrors.ErrConflict, ErrNotApproved, claim.Status)
	}

	now := time.Now().UTC()
	claim.Status = domain.StatusReimbursed
	claim.PaymentMethod = method
	claim.PaymentReference = reference
	claim.ReimbursedAt = &now

	if err := s.persist(ctx, claim, actorID); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actorID, domain.ActionClaimReimbursed, claim.ClaimID, organizationID, map[string]any{
		"method":    method,
		"reference": reference,
	})

	logger.Info("Claim reimbursed", slog.String("claim_id", claim.ClaimID), slog.String("reference", reference))
	return claim, nil
}

// CancelClaim cancels a claim that has not yet reached a terminal state and
// has not been approved for payment.
func (s *claimService) CancelClaim(ctx context.Context, organizationID string, claimID string, actorID string, reason string) (*domain.Claim, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	claim, err := s.loadClaim(ctx, organizationID, claimID)
	if err != nil {
		return nil, err
	}
	if claim.EmployeeID != actorID {
		return nil, fmt.Errorf("%w: only the claim owner may cancel", apperrors.ErrForbidden)
	}

	switch claim.Status {
	case domain.StatusDraft, domain.StatusSubmitted, domain.StatusUnderReview:
		// cancellable
	default:
		return nil, fmt.Errorf("%w: cannot cancel claim in status %s", apperrors.ErrConflict, claim.Status)
	}

	now := time.Now().UTC()
	for i := range claim.Ledger {
		if claim.Ledger[i].Status == domain.EntryPending {
			claim.Ledger[i].Status = domain.EntrySkipped
		}
	}
	claim.Status = domain.StatusCancelled
	claim.CancellationReason = reason
	claim.CancelledAt = &now

	if err := s.persist(ctx, claim, actorID); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actorID, domain.ActionClaimCancelled, claim.ClaimID, organizationID, map[string]any{
		"reason": reason,
	})

	logger.Info("Claim cancelled", slog.String("claim_id", claim.ClaimID))
	return claim, nil
}

// GetClaim retrieves a full claim aggregate.
func (s *claimService) GetClaim(ctx context.Context, organizationID string, claimID string, requestingUserID string) (*domain.Claim, error) {
	claim, err := s.loadClaim(ctx, organizationID, claimID)
	if err != nil {
		return nil, err
	}
	return claim, nil
}

// ListClaims retrieves claims in an organization matching the filters.
func (s *claimService) ListClaims(ctx context.Context, organizationID string, requestingUserID string, params dto.ListClaimsParams) (*dto.ListClaimsResponse, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	filters := portsrepo.ListClaimsFilters{
		EmployeeID: params.EmployeeID,
		Limit:      params.Limit,
		Offset:     params.Offset,
	}
	if filters.Limit <= 0 {
		filters.Limit = 20
	}
	if params.Status != nil {
		status := domain.ClaimStatus(*params.Status)
		switch status {
		case domain.StatusDraft, domain.StatusSubmitted, domain.StatusUnderReview,
			domain.StatusApproved, domain.StatusRejected, domain.StatusReimbursed, domain.StatusCancelled:
			filters.Status = &status
		default:
			return nil, fmt.Errorf("%w: unknown claim status %q", apperrors.ErrValidation, *params.Status)
		}
	}

	claims, err := s.claimRepo.ListClaims(ctx, organizationID, filters)
	if err != nil {
		logger.Error("Failed to list claims", slog.String("error", err.Error()), slog.String("organization_id", organizationID))
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}

	return &dto.ListClaimsResponse{Claims: dto.ToClaimResponses(claims)}, nil
}

// persist writes the mutated aggregate under the optimistic version check and
// stamps the audit fields. A version conflict surfaces as apperrors.ErrConflict
// and the caller is expected to retry from a fresh read.
func (s *claimService) persist(ctx context.Context, claim *domain.Claim, actorID string) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	expected := claim.Version
	now := time.Now().UTC()
	claim.Version = expected + 1
	claim.LastUpdatedAt = now
	claim.LastUpdatedBy = actorID

	if err := s.claimRepo.UpdateClaim(ctx, *claim, expected); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			logger.Warn("Claim update lost optimistic concurrency race", slog.String("claim_id", claim.ClaimID), slog.Int64("expected_version", expected))
			return fmt.Errorf("%w: claim %s was modified concurrently", apperrors.ErrConflict, claim.ClaimID)
		}
		logger.Error("Failed to update claim", slog.String("error", err.Error()), slog.String("claim_id", claim.ClaimID))
		return fmt.Errorf("failed to update claim %s: %w", claim.ClaimID, err)
	}
	return nil
}
