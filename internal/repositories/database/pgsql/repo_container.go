package pgsql

import (
	"github.com/jackc/pgx/v5/pgxpool"

	portsrepo "github.com/openclaims/expense_claims_app/internal/core/ports/repositories"
)

func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	claimRepo := newPgxClaimRepository(dbPool)
	policyRepo := newPgxPolicyRepository(dbPool)
	auditRepo := newPgxAuditRepository(dbPool)
	userRepo := newPgxUserRepository(dbPool)
	receiptRepo := newPgxReceiptStore(dbPool)

	return portsrepo.RepositoryProvider{
		ClaimRepo:   claimRepo,
		PolicyRepo:  policyRepo,
		AuditRepo:   auditRepo,
		UserRepo:    userRepo,
		ReceiptRepo: receiptRepo,
	}
}
