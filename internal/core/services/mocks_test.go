package services_test

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"

	"github.com/openclaims/expense_claims_app/internal/core/domain"
	portsrepo "github.com/openclaims/expense_claims_app/internal/core/ports/repositories"
)

// --- Mock ClaimRepository ---
type MockClaimRepository struct {
	mock.Mock
}

func (m *MockClaimRepository) SaveClaim(ctx context.Context, claim domain.Claim) error {
	args := m.Called(ctx, claim)
	return args.Error(0)
}

func (m *MockClaimRepository) UpdateClaim(ctx context.Context, claim domain.Claim, expectedVersion int64) error {
	args := m.Called(ctx, claim, expectedVersion)
	return args.Error(0)
}

func (m *MockClaimRepository) FindClaimByID(ctx context.Context, claimID string) (*domain.Claim, error) {
	args := m.Called(ctx, claimID)
	var claim *domain.Claim
	if args.Get(0) != nil {
		claim = args.Get(0).(*domain.Claim)
	}
	return claim, args.Error(1)
}

func (m *MockClaimRepository) ListClaims(ctx context.Context, organizationID string, filters portsrepo.ListClaimsFilters) ([]domain.Claim, error) {
	args := m.Called(ctx, organizationID, filters)
	var claims []domain.Claim
	if args.Get(0) != nil {
		claims = args.Get(0).([]domain.Claim)
	}
	return claims, args.Error(1)
}

func (m *MockClaimRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	var tx pgx.Tx
	if args.Get(0) != nil {
		tx = args.Get(0).(pgx.Tx)
	}
	return tx, args.Error(1)
}

func (m *MockClaimRepository) Commit(ctx context.Context, tx pgx.Tx) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockClaimRepository) Rollback(ctx context.Context, tx pgx.Tx) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

// --- Mock PolicyRepository ---
type MockPolicyRepository struct {
	mock.Mock
}

func (m *MockPolicyRepository) SavePolicy(ctx context.Context, policy domain.Policy) error {
	args := m.Called(ctx, policy)
	return args.Error(0)
}

func (m *MockPolicyRepository) FindPolicyByID(ctx context.Context, policyID string) (*domain.Policy, error) {
	args := m.Called(ctx, policyID)
	var policy *domain.Policy
	if args.Get(0) != nil {
		policy = args.Get(0).(*domain.Policy)
	}
	return policy, args.Error(1)
}

func (m *MockPolicyRepository) FindActivePolicy(ctx context.Context, organizationID string, asOf time.Time) (*domain.Policy, error) {
	args := m.Called(ctx, organizationID, asOf)
	var policy *domain.Policy
	if args.Get(0) != nil {
		policy = args.Get(0).(*domain.Policy)
	}
	return policy, args.Error(1)
}

func (m *MockPolicyRepository) ListPolicies(ctx context.Context, organizationID string) ([]domain.Policy, error) {
	args := m.Called(ctx, organizationID)
	var policies []domain.Policy
	if args.Get(0) != nil {
		policies = args.Get(0).([]domain.Policy)
	}
	return policies, args.Error(1)
}

// --- Mock UserRepository ---
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) SaveUser(ctx context.Context, user domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindUserByID(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	var user *domain.User
	if args.Get(0) != nil {
		user = args.Get(0).(*domain.User)
	}
	return user, args.Error(1)
}

func (m *MockUserRepository) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	var user *domain.User
	if args.Get(0) != nil {
		user = args.Get(0).(*domain.User)
	}
	return user, args.Error(1)
}

func (m *MockUserRepository) FindUsersByRole(ctx context.Context, organizationID string, role string) ([]domain.User, error) {
	args := m.Called(ctx, organizationID, role)
	var users []domain.User
	if args.Get(0) != nil {
		users = args.Get(0).([]domain.User)
	}
	return users, args.Error(1)
}

// --- Mock AuditRepository ---
type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) SaveAuditEvent(ctx context.Context, event domain.AuditEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockAuditRepository) ListAuditEventsByClaim(ctx context.Context, claimID string) ([]domain.AuditEvent, error) {
	args := m.Called(ctx, claimID)
	var events []domain.AuditEvent
	if args.Get(0) != nil {
		events = args.Get(0).([]domain.AuditEvent)
	}
	return events, args.Error(1)
}

// --- Mock ReceiptStore ---
type MockReceiptStore struct {
	mock.Mock
}

func (m *MockReceiptStore) HasReceipt(ctx context.Context, receiptID string) (bool, error) {
	args := m.Called(ctx, receiptID)
	return args.Bool(0), args.Error(1)
}

// recordingAuditSvc captures audit actions without the ceremony of mock
// expectations; claim tests only assert which actions were recorded.
type recordingAuditSvc struct {
	actions []string
}

func (r *recordingAuditSvc) Record(ctx context.Context, actorID string, action string, claimID string, organizationID string, details map[string]any) {
	r.actions = append(r.actions, action)
}
