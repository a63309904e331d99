package services

import (
	portsrepo "github.com/openclaims/expense_claims_app/internal/core/ports/repositories"
	portssvc "github.com/openclaims/expense_claims_app/internal/core/ports/services"
	"github.com/openclaims/expense_claims_app/internal/platform/config"
)

// NewServiceContainer wires every service with its repositories and returns
// the container the handlers consume.
func NewServiceContainer(repos portsrepo.RepositoryProvider, cfg *config.Config) *portssvc.ServiceContainer {
	policySvc := NewPolicyService(repos.PolicyRepo)
	userSvc := NewUserService(repos.UserRepo)
	auditSvc := NewAuditService(repos.AuditRepo)
	tokenSvc := NewTokenService(cfg.JWTSecret, cfg.JWTExpiryDuration, cfg.JWTIssuer)

	claimOpts := []ClaimServiceOption{}
	if repos.ReceiptRepo != nil {
		claimOpts = append(claimOpts, WithReceiptStore(repos.ReceiptRepo))
	}
	claimSvc := NewClaimService(repos.ClaimRepo, policySvc, userSvc, auditSvc, claimOpts...)

	return &portssvc.ServiceContainer{
		Claim:  claimSvc,
		Policy: policySvc,
		User:   userSvc,
		Audit:  auditSvc,
		Token:  tokenSvc,
	}
}
