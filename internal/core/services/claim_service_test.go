package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/openclaims/expense_claims_app/internal/apperrors"
	"github.com/openclaims/expense_claims_app/internal/core/domain"
	portssvc "github.com/openclaims/expense_claims_app/internal/core/ports/services"
	"github.com/openclaims/expense_claims_app/internal/core/services"
	"github.com/openclaims/expense_claims_app/internal/dto"
)

type ClaimServiceTestSuite struct {
	suite.Suite
	mockClaimRepo    *MockClaimRepository
	mockPolicyRepo   *MockPolicyRepository
	mockUserRepo     *MockUserRepository
	mockReceiptStore *MockReceiptStore
	audit            *recordingAuditSvc
	service          portssvc.ClaimSvcFacade

	orgID      string
	employeeID string
	managerID  string
	directorID string
}

func (suite *ClaimServiceTestSuite) SetupTest() {
	suite.mockClaimRepo = new(MockClaimRepository)
	suite.mockPolicyRepo = new(MockPolicyRepository)
	suite.mockUserRepo = new(MockUserRepository)
	suite.mockReceiptStore = new(MockReceiptStore)
	suite.audit = &recordingAuditSvc{}

	suite.service = services.NewClaimService(
		suite.mockClaimRepo,
		services.NewPolicyService(suite.mockPolicyRepo),
		services.NewUserService(suite.mockUserRepo),
		suite.audit,
		services.WithReceiptStore(suite.mockReceiptStore),
	)

	suite.orgID = uuid.NewString()
	suite.employeeID = uuid.NewString()
	suite.managerID = uuid.NewString()
	suite.directorID = uuid.NewString()
}

func (suite *ClaimServiceTestSuite) policy() *domain.Policy {
	return &domain.Policy{
		PolicyID:       uuid.NewString(),
		OrganizationID: suite.orgID,
		Name:           "Default Policy",
		Version:        3,
		EffectiveFrom:  time.Now().AddDate(0, -6, 0),
		GeneralRules: domain.GeneralRules{
			AllowNonCompliantSubmission: false,
		},
		ApprovalLevels: []domain.ApprovalLevelRule{
			{Level: 1, ApproverRole: domain.RoleManager, AmountThreshold: decimal.Zero, IsRequired: true},
			{Level: 2, ApproverRole: domain.RoleDirector, AmountThreshold: dec("1000")},
		},
	}
}

func (suite *ClaimServiceTestSuite) draftClaim(amount string) *domain.Claim {
	a := dec(amount)
	claimID := uuid.NewString()
	return &domain.Claim{
		ClaimID:        claimID,
		OrganizationID: suite.orgID,
		EmployeeID:     suite.employeeID,
		Title:          "Conference trip",
		CurrencyCode:   "USD",
		TotalAmount:    a,
		Status:         domain.StatusDraft,
		LineItems: []domain.LineItem{
			{
				LineItemID:      uuid.NewString(),
				ClaimID:         claimID,
				ExpenseDate:     time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
				Category:        "Travel",
				Amount:          a,
				CurrencyCode:    "USD",
				ExchangeRate:    decimal.NewFromInt(1),
				ConvertedAmount: a,
				Reimbursable:    true,
			},
		},
		Version: 1,
	}
}

func (suite *ClaimServiceTestSuite) underReviewClaim(amount string, policy *domain.Policy, ledger []domain.ApprovalLedgerEntry) *domain.Claim {
	claim := suite.draftClaim(amount)
	now := time.Now().UTC()
	claim.Status = domain.StatusUnderReview
	claim.Ledger = ledger
	claim.PolicyID = &policy.PolicyID
	claim.PolicyVersion = &policy.Version
	claim.IsCompliant = true
	claim.SubmittedAt = &now
	claim.Version = 2
	return claim
}

func (suite *ClaimServiceTestSuite) user(userID, role string) *domain.User {
	return &domain.User{UserID: userID, OrganizationID: suite.orgID, Role: role}
}

func twoLevelLedger() []domain.ApprovalLedgerEntry {
	return []domain.ApprovalLedgerEntry{
		{Level: 1, ApproverRole: domain.RoleManager, Status: domain.EntryPending},
		{Level: 2, ApproverRole: domain.RoleDirector, Status: domain.EntryPending},
	}
}

// --- CreateClaim ---

func (suite *ClaimServiceTestSuite) TestCreateClaim_Success() {
	ctx := context.Background()
	req := dto.CreateClaimRequest{
		Title:        "Client dinner",
		CurrencyCode: "USD",
		LineItems: []dto.CreateLineItemRequest{
			{ExpenseDate: time.Now(), Category: "Meals", Amount: dec("45.50"), CurrencyCode: "USD", ExchangeRate: decimal.NewFromInt(1)},
			{ExpenseDate: time.Now(), Category: "Transport", Amount: dec("12"), CurrencyCode: "USD", ExchangeRate: decimal.NewFromInt(1)},
		},
	}

	suite.mockClaimRepo.On("SaveClaim", ctx, mock.MatchedBy(func(c domain.Claim) bool {
		return c.Status == domain.StatusDraft && c.Version == 1 && len(c.LineItems) == 2
	})).Return(nil).Once()

	claim, err := suite.service.CreateClaim(ctx, suite.orgID, req, suite.employeeID)

	suite.Require().NoError(err)
	suite.Equal(domain.StatusDraft, claim.Status)
	suite.True(claim.TotalAmount.Equal(dec("57.50")))
	suite.Equal(suite.employeeID, claim.EmployeeID)
	suite.Equal([]string{domain.ActionClaimCreated}, suite.audit.actions)
	suite.mockClaimRepo.AssertExpectations(suite.T())
}

func (suite *ClaimServiceTestSuite) TestCreateClaim_ConvertsForeignCurrency() {
	ctx := context.Background()
	req := dto.CreateClaimRequest{
		Title:        "Tokyo trip",
		CurrencyCode: "JPY",
		LineItems: []dto.CreateLineItemRequest{
			// 10.50 USD at 150.123 JPY/USD rounds to whole yen.
			{ExpenseDate: time.Now(), Category: "Meals", Amount: dec("10.50"), CurrencyCode: "USD", ExchangeRate: dec("150.123")},
		},
	}

	suite.mockClaimRepo.On("SaveClaim", ctx, mock.AnythingOfType("domain.Claim")).Return(nil).Once()

	claim, err := suite.service.CreateClaim(ctx, suite.orgID, req, suite.employeeID)

	suite.Require().NoError(err)
	suite.True(claim.LineItems[0].ConvertedAmount.Equal(dec("1576")),
		"got %s", claim.LineItems[0].ConvertedAmount)
	suite.True(claim.TotalAmount.Equal(dec("1576")))
}

func (suite *ClaimServiceTestSuite) TestCreateClaim_RejectsNonPositiveAmount() {
	ctx := context.Background()
	req := dto.CreateClaimRequest{
		Title:        "Broken",
		CurrencyCode: "USD",
		LineItems: []dto.CreateLineItemRequest{
			{ExpenseDate: time.Now(), Category: "Meals", Amount: decimal.Zero, CurrencyCode: "USD", ExchangeRate: decimal.NewFromInt(1)},
		},
	}

	_, err := suite.service.CreateClaim(ctx, suite.orgID, req, suite.employeeID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.mockClaimRepo.AssertNotCalled(suite.T(), "SaveClaim", mock.Anything, mock.Anything)
}

// --- SubmitClaim ---

func (suite *ClaimServiceTestSuite) TestSubmitClaim_SmallAmountRoutesManagerOnly() {
	ctx := context.Background()
	claim := suite.draftClaim("500")

	suite.mockClaimRepo.On("FindClaimByID", ctx, claim.ClaimID).Return(claim, nil).Once()
	suite.mockPolicyRepo.On("FindActivePolicy", ctx, suite.orgID, mock.AnythingOfType("time.Time")).Return(suite.policy(), nil).Once()
	suite.mockClaimRepo.On("UpdateClaim", ctx, mock.AnythingOfType("domain.Claim"), int64(1)).Return(nil).Once()

	updated, err := suite.service.SubmitClaim(ctx, suite.orgID, claim.ClaimID, suite.employeeID)

	suite.Require().NoError(err)
	suite.Equal(domain.StatusUnderReview, updated.Status)
	suite.Require().Len(updated.Ledger, 1)
	suite.Equal(domain.RoleManager, updated.Ledger[0].ApproverRole)
	suite.NotNil(updated.PolicyID)
	suite.NotNil(updated.SubmittedAt)
	suite.Equal(int64(2), updated.Version)
	suite.Equal([]string{domain.ActionClaimSubmitted}, suite.audit.actions)
}

func (suite *ClaimServiceTestSuite) TestSubmitClaim_LargeAmountRoutesTwoLevels() {
	ctx := context.Background()
	claim := suite.draftClaim("5000")

	suite.mockClaimRepo.On("FindClaimByID", ctx, claim.ClaimID).Return(claim, nil).Once()
	suite.mockPolicyRepo.On("FindActivePolicy", ctx, suite.orgID, mock.AnythingOfType("time.Time")).Return(suite.policy(), nil).Once()
	suite.mockClaimRepo.On("UpdateClaim", ctx, mock.AnythingOfType("domain.Claim"), int64(1)).Return(nil).Once()

	updated, err := suite.service.SubmitClaim(ctx, suite.orgID, claim.ClaimID, suite.employeeID)

	suite.Require().NoError(err)
	suite.Require().Len(updated.Ledger, 2)
	suite.Equal(domain.RoleManager, updated.Ledger[0].ApproverRole)
	suite.Equal(domain.RoleDirector, updated.Ledger[1].ApproverRole)
}

func (suite *ClaimServiceTestSuite) TestSubmitClaim_EmptyLedgerAutoApproves() {
	ctx := context.Background()
	claim := suite.draftClaim("50")
	policy := suite.policy()
	policy.ApprovalLevels = []domain.ApprovalLevelRule{
		{Level: 1, ApproverRole: domain.RoleManager, AmountThreshold: dec("100")},
	}

	suite.mockClaimRepo.On("FindClaimByID", ctx, claim.ClaimID).Return(claim, nil).Once()
	suite.mockPolicyRepo.On("FindActivePolicy", ctx, suite.orgID, mock.AnythingOfType("time.Time")).Return(policy, nil).Once()
	suite.mockClaimRepo.On("UpdateClaim", ctx, mock.AnythingOfType("domain.Claim"), int64(1)).Return(nil).Once()

	updated, err := suite.service.SubmitClaim(ctx, suite.orgID, claim.ClaimID, suite.employeeID)

	suite.Require().NoError(err)
	suite.Equal(domain.StatusApproved, updated.Status)
	suite.Empty(updated.Ledger)
	suite.NotNil(updated.ApprovedAt)
}

func (suite *ClaimServiceTestSuite) TestSubmitClaim_ViolationsBlockWhenPolicyForbids() {
	ctx := context.Background()
	claim := suite.draftClaim("500")
	policy := suite.policy()
	policy.GeneralRules.ReceiptRequiredAbove = decPtr("100") // claim item has no receipt

	suite.mockClaimRepo.On("FindClaimByID", ctx, claim.ClaimID).Return(claim, nil).Once()
	suite.mockPolicyRepo.On("FindActivePolicy", ctx, suite.orgID, mock.AnythingOfType("time.Time")).Return(policy, nil).Once()

	_, err := suite.service.SubmitClaim(ctx, suite.orgID, claim.ClaimID, suite.employeeID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.mockClaimRepo.AssertNotCalled(suite.T(), "UpdateClaim", mock.Anything, mock.Anything, mock.Anything)
	suite.Empty(suite.audit.actions)
}

func (suite *ClaimServiceTestSuite) TestSubmitClaim_ViolationsTravelWhenPolicyAllows() {
	ctx := context.Background()
	claim := suite.draftClaim("500")
	policy := suite.policy()
	policy.GeneralRules.AllowNonCompliantSubmission = true
	policy.GeneralRules.ReceiptRequiredAbove = decPtr("100")

	suite.mockClaimRepo.On("FindClaimByID", ctx, claim.ClaimID).Return(claim, nil).Once()
	suite.mockPolicyRepo.On("FindActivePolicy", ctx, suite.orgID, mock.AnythingOfType("time.Time")).Return(policy, nil).Once()
	suite.mockClaimRepo.On("UpdateClaim", ctx, mock.AnythingOfType("domain.Claim"), int64(1)).Return(nil).Once()

	updated, err := suite.service.SubmitClaim(ctx, suite.orgID, claim.ClaimID, suite.employeeID)

	suite.Require().NoError(err)
	suite.Equal(domain.StatusUnderReview, updated.Status)
	suite.False(updated.IsCompliant)
	suite.Require().Len(updated.Violations, 1)
	suite.Equal(domain.RuleReceiptRequired, updated.Violations[0].Rule)
}

func (suite *ClaimServiceTestSuite) TestSubmitClaim_UnknownReceiptTreatedAsMissing() {
	ctx := context.Background()
	claim := suite.draftClaim("500")
	receiptID := uuid.NewString()
	claim.LineItems[0].ReceiptID = &receiptID
	policy := suite.policy()
	policy.GeneralRules.ReceiptRequiredAbove = decPtr("100")

	suite.mockClaimRepo.On("FindClaimByID", ctx, claim.ClaimID).Return(claim, nil).Once()
	suite.mockPolicyRepo.On("FindActivePolicy", ctx, suite.orgID, mock.AnythingOfType("time.Time")).Return(policy, nil).Once()
	suite.mockReceiptStore.On("HasReceipt", ctx, receiptID).Return(false, nil).Once()

	_, err := suite.service.SubmitClaim(ctx, suite.orgID, claim.ClaimID, suite.employeeID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.mockReceiptStore.AssertExpectations(suite.T())
}

func (suite *ClaimServiceTestSuite) TestSubmitClaim_OnlyOwnerMaySubmit() {
	ctx := context.Background()
	claim := suite.draftClaim("500")

	suite.mockClaimRepo.On("FindClaimByID", ctx, claim.ClaimID).Return(claim, nil).Once()

	_, err := suite.service.SubmitClaim(ctx, suite.orgID, claim.ClaimID, suite.managerID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrForbidden)
}

func (suite *ClaimServiceTestSuite) TestSubmitClaim_CrossOrganizationLooksMissing() {
	ctx := context.Background()
	claim := suite.draftClaim("500")

	suite.mockClaimRepo.On("FindClaimByID", ctx, claim.ClaimID).Return(claim, nil).Once()

	_, err := suite.service.SubmitClaim(ctx, uuid.NewString(), claim.ClaimID, suite.employeeID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

// --- ApproveLevel / RejectLevel ---

func (suite *ClaimServiceTestSuite) TestApproveLevel_IntermediateLevelStaysUnderReview() {
	ctx := context.Background()
	policy := suite.policy()
	claim := suite.underReviewClaim("5000", policy, twoLevelLedger())

	suite.mockClaimRepo.On("FindClaimByID", ctx, claim.ClaimID).Return(claim, nil).Once()
	suite.mockUserRepo.On("FindUserByID", ctx, suite.managerID).Return(suite.user(suite.managerID, domain.RoleManager), nil).Once()
	suite.mockClaimRepo.On("UpdateClaim", ctx, mock.AnythingOfType("domain.Claim"), int64(2)).Return(nil).Once()

	updated, err := suite.service.ApproveLevel(ctx, suite.orgID, claim.ClaimID, 1, suite.managerID, "looks fine")

	suite.Require().NoError(err)
	suite.Equal(domain.StatusUnderReview, updated.Status)
	suite.Equal(domain.EntryApproved, updated.Ledger[0].Status)
	suite.Equal(&suite.managerID, updated.Ledger[0].ApproverID)
	suite.Equal(domain.EntryPending, updated.Ledger[1].Status)
	suite.Equal([]string{domain.ActionLevelApproved}, suite.audit.actions)
}

func (suite *ClaimServiceTestSuite) TestApproveLevel_FinalLevelApprovesClaim() {
	ctx := context.Background()
	policy := suite.policy()
	ledger := twoLevelLedger()
	ledger[0].Status = domain.EntryApproved
	claim := suite.underReviewClaim("5000", policy, ledger)

	suite.mockClaimRepo.On("FindClaimByID", ctx, claim.ClaimID).Return(claim, nil).Once()
	suite.mockUserRepo.On("FindUserByID", ctx, suite.directorID).Return(suite.user(suite.directorID, domain.RoleDirector), nil).Once()
	suite.mockClaimRepo.On("UpdateClaim", ctx, mock.AnythingOfType("domain.Claim"), int64(2)).Return(nil).Once()

	updated, err := suite.service.ApproveLevel(ctx, suite.orgID, claim.ClaimID, 2, suite.directorID, "")

	suite.Require().NoError(err)
	suite.Equal(domain.StatusApproved, updated.Status)
	suite.NotNil(updated.ApprovedAt)
}

func (suite *ClaimServiceTestSuite) TestApproveLevel_WrongRoleForbidden() {
	ctx := context.Background()
	policy := suite.policy()
	claim := suite.underReviewClaim("5000", policy, twoLevelLedger())

	suite.mockClaimRepo.On("FindClaimByID", ctx, claim.ClaimID).Return(claim, nil).Once()
	suite.mockUserRepo.On("FindUserByID", ctx, suite.directorID).Return(suite.user(suite.directorID, domain.RoleDirector), nil).Once()

	// Level 1 requires a Manager; a Director cannot act on it.
	_, err := suite.service.ApproveLevel(ctx, suite.orgID, claim.ClaimID, 1, suite.directorID, "")

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrForbidden)
	suite.mockClaimRepo.AssertNotCalled(suite.T(), "UpdateClaim", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *ClaimServiceTestSuite) TestApproveLevel_NonCurrentLevelConflicts() {
	ctx := context.Background()
	policy := suite.policy()
	claim := suite.underReviewClaim("5000", policy, twoLevelLedger())

	suite.mockClaimRepo.On("FindClaimByID", ctx, claim.ClaimID).Return(claim, nil).Once()

	// Level 2 cannot act while level 1 is pending.
	_, err := suite.service.ApproveLevel(ctx, suite.orgID, claim.ClaimID, 2, suite.directorID, "")

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrConflict)
}

func (suite *ClaimServiceTestSuite) TestRejectLevel_TerminatesClaimAndSkipsRemaining() {
	ctx := context.Background()
	policy := suite.policy()
	claim := suite.underReviewClaim("5000", policy, twoLevelLedger())

	suite.mockClaimRepo.On("FindClaimByID", ctx, claim.ClaimID).Return(claim, nil).Once()
	suite.mockUserRepo.On("FindUserByID", ctx, suite.managerID).Return(suite.user(suite.managerID, domain.RoleManager), nil).Once()
	suite.mockClaimRepo.On("UpdateClaim", ctx, mock.AnythingOfType("domain.Claim"), int64(2)).Return(nil).Once()

	updated, err := suite.service.RejectLevel(ctx, suite.orgID, claim.ClaimID, 1, suite.managerID, "no receipts attached")

	suite.Require().NoError(err)
	suite.Equal(domain.StatusRejected, updated.Status)
	suite.Equal("no receipts attached", updated.RejectionReason)
	suite.Equal(domain.EntryRejected, updated.Ledger[0].Status)
	suite.Equal(domain.EntrySkipped, updated.Ledger[1].Status)
	suite.NotNil(updated.RejectedAt)
}

func (suite *ClaimServiceTestSuite) TestRejectLevel_RequiresReason() {
	ctx := context.Background()

	_, err := suite.service.RejectLevel(ctx, suite.orgID, uuid.NewString(), 1, suite.managerID, "")

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

// --- ForwardLevel ---

func (suite *ClaimServiceTestSuite) TestForwardLevel_ReassignsCurrentLevel() {
	ctx := context.Background()
	policy := suite.policy()
	claim := suite.underReviewClaim("5000", policy, twoLevelLedger())

	suite.mockClaimRepo.On("FindClaimByID", ctx, claim.ClaimID).Return(claim, nil).Once()
	suite.mockUserRepo.On("FindUserByID", ctx, suite.managerID).Return(suite.user(suite.managerID, domain.RoleManager), nil).Once()
	suite.mockPolicyRepo.On("FindPolicyByID", ctx, policy.PolicyID).Return(policy, nil).Once()
	suite.mockClaimRepo.On("UpdateClaim", ctx, mock.AnythingOfType("domain.Claim"), int64(2)).Return(nil).Once()

	updated, err := suite.service.ForwardLevel(ctx, suite.orgID, claim.ClaimID, 1, suite.managerID, domain.RoleDirector, "out of office")

	suite.Require().NoError(err)
	suite.Equal(domain.StatusUnderReview, updated.Status)
	suite.Require().Len(updated.Ledger, 3)
	suite.Equal(domain.EntryForwarded, updated.Ledger[0].Status)
	suite.Equal(&suite.managerID, updated.Ledger[0].ApproverID)
	suite.Equal("out of office", updated.Ledger[0].Comment)
	suite.Equal(domain.RoleDirector, updated.Ledger[1].ApproverRole)
	suite.Equal(domain.EntryPending, updated.Ledger[1].Status)
	suite.Equal([]string{domain.ActionLevelForwarded}, suite.audit.actions)
}

func (suite *ClaimServiceTestSuite) TestForwardLevel_UnknownRoleRejected() {
	ctx := context.Background()
	policy := suite.policy()
	claim := suite.underReviewClaim("5000", policy, twoLevelLedger())

	suite.mockClaimRepo.On("FindClaimByID", ctx, claim.ClaimID).Return(claim, nil).Once()
	suite.mockUserRepo.On("FindUserByID", ctx, suite.managerID).Return(suite.user(suite.managerID, domain.RoleManager), nil).Once()
	suite.mockPolicyRepo.On("FindPolicyByID", ctx, policy.PolicyID).Return(policy, nil).Once()

	_, err := suite.service.ForwardLevel(ctx, suite.orgID, claim.ClaimID, 1, suite.managerID, "Intern", "try someone else")

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

// --- Reimburse ---

func (suite *ClaimServiceTestSuite) TestReimburse_ApprovedClaim() {
	ctx := context.Background()
	claim := suite.draftClaim("500")
	now := time.Now().UTC()
	claim.Status = domain.StatusApproved
	claim.ApprovedAt = &now
	claim.Version = 3

	suite.mockClaimRepo.On("FindClaimByID", ctx, claim.ClaimID).Return(claim, nil).Once()
	suite.mockClaimRepo.On("UpdateClaim", ctx, mock.MatchedBy(func(c domain.Claim) bool {
		return c.Status == domain.StatusReimbursed && c.PaymentReference == "PAY-42"
	}), int64(3)).Return(nil).Once()

	updated, err := suite.service.Reimburse(ctx, suite.orgID, claim.ClaimID, suite.directorID, "BANK_TRANSFER", "PAY-42")

	suite.Require().NoError(err)
	suite.Equal(domain.StatusReimbursed, updated.Status)
	suite.NotNil(updated.ReimbursedAt)
	suite.Equal([]string{domain.ActionClaimReimbursed}, suite.audit.actions)
}

func (suite *ClaimServiceTestSuite) TestReimburse_IdempotentOnRepeat() {
	ctx := context.Background()
	claim := suite.draftClaim("500")
	now := time.Now().UTC()
	claim.Status = domain.StatusReimbursed
	claim.PaymentReference = "PAY-42"
	claim.ReimbursedAt = &now
	claim.Version = 4

	suite.mockClaimRepo.On("FindClaimByID", ctx, claim.ClaimID).Return(claim, nil).Once()

	updated, err := suite.service.Reimburse(ctx, suite.orgID, claim.ClaimID, suite.directorID, "BANK_TRANSFER", "PAY-43")

	suite.Require().NoError(err)
	suite.Equal(domain.StatusReimbursed, updated.Status)
	// Original payment reference is untouched and no write happens.
	suite.Equal("PAY-42", updated.PaymentReference)
	suite.Equal(int64(4), updated.Version)
	suite.mockClaimRepo.AssertNotCalled(suite.T(), "UpdateClaim", mock.Anything, mock.Anything, mock.Anything)
	suite.Empty(suite.audit.actions)
}

func (suite *ClaimServiceTestSuite) TestReimburse_RequiresApprovedStatus() {
	ctx := context.Background()
	policy := suite.policy()
	claim := suite.underReviewClaim("500", policy, twoLevelLedger())

	suite.mockClaimRepo.On("FindClaimByID", ctx, claim.ClaimID).Return(claim, nil).Once()

	_, err := suite.service.Reimburse(ctx, suite.orgID, claim.ClaimID, suite.directorID, "BANK_TRANSFER", "PAY-1")

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrConflict)
}

// --- Optimistic concurrency ---

func (suite *ClaimServiceTestSuite) TestApproveLevel_VersionRaceSurfacesConflict() {
	ctx := context.Background()
	policy := suite.policy()
	claim := suite.underReviewClaim("500", policy, []domain.ApprovalLedgerEntry{
		{Level: 1, ApproverRole: domain.RoleManager, Status: domain.EntryPending},
	})

	suite.mockClaimRepo.On("FindClaimByID", ctx, claim.ClaimID).Return(claim, nil).Once()
	suite.mockUserRepo.On("FindUserByID", ctx, suite.managerID).Return(suite.user(suite.managerID, domain.RoleManager), nil).Once()
	// Another transition won the race; the repo reports a version mismatch.
	suite.mockClaimRepo.On("UpdateClaim", ctx, mock.AnythingOfType("domain.Claim"), int64(2)).Return(apperrors.ErrConflict).Once()

	_, err := suite.service.ApproveLevel(ctx, suite.orgID, claim.ClaimID, 1, suite.managerID, "")

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrConflict)
	suite.Empty(suite.audit.actions)
}

// --- UpdateDraft / CancelClaim ---

func (suite *ClaimServiceTestSuite) TestUpdateDraft_ReplacesLineItems() {
	ctx := context.Background()
	claim := suite.draftClaim("500")
	newTitle := "Updated trip"
	newItems := []dto.CreateLineItemRequest{
		{ExpenseDate: time.Now(), Category: "Lodging", Amount: dec("300"), CurrencyCode: "USD", ExchangeRate: decimal.NewFromInt(1)},
	}

	suite.mockClaimRepo.On("FindClaimByID", ctx, claim.ClaimID).Return(claim, nil).Once()
	suite.mockClaimRepo.On("UpdateClaim", ctx, mock.AnythingOfType("domain.Claim"), int64(1)).Return(nil).Once()

	updated, err := suite.service.UpdateDraft(ctx, suite.orgID, claim.ClaimID, dto.UpdateClaimRequest{
		Title:     &newTitle,
		LineItems: &newItems,
	}, suite.employeeID)

	suite.Require().NoError(err)
	suite.Equal("Updated trip", updated.Title)
	suite.Require().Len(updated.LineItems, 1)
	suite.True(updated.TotalAmount.Equal(dec("300")))
}

func (suite *ClaimServiceTestSuite) TestUpdateDraft_RejectsSubmittedClaim() {
	ctx := context.Background()
	policy := suite.policy()
	claim := suite.underReviewClaim("500", policy, twoLevelLedger())

	suite.mockClaimRepo.On("FindClaimByID", ctx, claim.ClaimID).Return(claim, nil).Once()

	_, err := suite.service.UpdateDraft(ctx, suite.orgID, claim.ClaimID, dto.UpdateClaimRequest{}, suite.employeeID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrConflict)
}

func (suite *ClaimServiceTestSuite) TestCancelClaim_UnderReviewSkipsPendingLevels() {
	ctx := context.Background()
	policy := suite.policy()
	claim := suite.underReviewClaim("500", policy, twoLevelLedger())

	suite.mockClaimRepo.On("FindClaimByID", ctx, claim.ClaimID).Return(claim, nil).Once()
	suite.mockClaimRepo.On("UpdateClaim", ctx, mock.AnythingOfType("domain.Claim"), int64(2)).Return(nil).Once()

	updated, err := suite.service.CancelClaim(ctx, suite.orgID, claim.ClaimID, suite.employeeID, "duplicate entry")

	suite.Require().NoError(err)
	suite.Equal(domain.StatusCancelled, updated.Status)
	suite.Equal(domain.EntrySkipped, updated.Ledger[0].Status)
	suite.Equal(domain.EntrySkipped, updated.Ledger[1].Status)
	suite.NotNil(updated.CancelledAt)
}

func (suite *ClaimServiceTestSuite) TestCancelClaim_TerminalStatusConflicts() {
	ctx := context.Background()
	claim := suite.draftClaim("500")
	claim.Status = domain.StatusReimbursed

	suite.mockClaimRepo.On("FindClaimByID", ctx, claim.ClaimID).Return(claim, nil).Once()

	_, err := suite.service.CancelClaim(ctx, suite.orgID, claim.ClaimID, suite.employeeID, "too late")

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrConflict)
}

// --- ListClaims ---

func (suite *ClaimServiceTestSuite) TestListClaims_RejectsUnknownStatus() {
	ctx := context.Background()
	bogus := "PAID"

	_, err := suite.service.ListClaims(ctx, suite.orgID, suite.employeeID, dto.ListClaimsParams{Status: &bogus})

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func TestClaimServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ClaimServiceTestSuite))
}
