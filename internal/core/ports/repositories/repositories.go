package repositories

// RepositoryProvider bundles every repository implementation handed to the
// service layer at startup.
type RepositoryProvider struct {
	ClaimRepo   ClaimRepositoryWithTx
	PolicyRepo  PolicyRepository
	AuditRepo   AuditRepository
	UserRepo    UserRepository
	ReceiptRepo ReceiptStore
}
