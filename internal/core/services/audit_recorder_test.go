package services_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/openclaims/expense_claims_app/internal/core/domain"
	portssvc "github.com/openclaims/expense_claims_app/internal/core/ports/services"
	"github.com/openclaims/expense_claims_app/internal/core/services"
)

type AuditServiceTestSuite struct {
	suite.Suite
	mockAuditRepo *MockAuditRepository
	service       portssvc.AuditSvcFacade
}

func (suite *AuditServiceTestSuite) SetupTest() {
	suite.mockAuditRepo = new(MockAuditRepository)
	suite.service = services.NewAuditService(suite.mockAuditRepo)
}

func (suite *AuditServiceTestSuite) TestRecord_PersistsEvent() {
	ctx := context.Background()
	actorID := uuid.NewString()
	claimID := uuid.NewString()
	orgID := uuid.NewString()

	suite.mockAuditRepo.On("SaveAuditEvent", ctx, mock.MatchedBy(func(e domain.AuditEvent) bool {
		return e.Action == domain.ActionClaimSubmitted &&
			e.ClaimID == claimID &&
			e.ActorID == actorID &&
			e.AuditEventID != "" &&
			!e.RecordedAt.IsZero()
	})).Return(nil).Once()

	suite.service.Record(ctx, actorID, domain.ActionClaimSubmitted, claimID, orgID, map[string]any{"level": 1})

	suite.mockAuditRepo.AssertExpectations(suite.T())
}

func (suite *AuditServiceTestSuite) TestRecord_SwallowsPersistenceFailure() {
	ctx := context.Background()

	suite.mockAuditRepo.On("SaveAuditEvent", ctx, mock.AnythingOfType("domain.AuditEvent")).Return(assert.AnError).Once()

	// Must not panic and has no error to return; the transition already happened.
	suite.service.Record(ctx, uuid.NewString(), domain.ActionClaimCreated, uuid.NewString(), uuid.NewString(), nil)

	suite.mockAuditRepo.AssertExpectations(suite.T())
}

func (suite *AuditServiceTestSuite) TestListAuditEventsByClaim() {
	ctx := context.Background()
	claimID := uuid.NewString()
	expected := []domain.AuditEvent{
		{AuditEventID: uuid.NewString(), ClaimID: claimID, Action: domain.ActionClaimCreated},
		{AuditEventID: uuid.NewString(), ClaimID: claimID, Action: domain.ActionClaimSubmitted},
	}

	suite.mockAuditRepo.On("ListAuditEventsByClaim", ctx, claimID).Return(expected, nil).Once()

	events, err := suite.service.ListAuditEventsByClaim(ctx, claimID)

	suite.Require().NoError(err)
	suite.Equal(expected, events)
}

func TestAuditServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AuditServiceTestSuite))
}
