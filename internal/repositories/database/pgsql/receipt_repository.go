package pgsql

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	portsrepo "github.com/openclaims/expense_claims_app/internal/core/ports/repositories"
)

// PgxReceiptStore answers receipt existence checks against the receipts table
// maintained by the upload pipeline.
type PgxReceiptStore struct {
	db *pgxpool.Pool
}

func newPgxReceiptStore(db *pgxpool.Pool) portsrepo.ReceiptStore {
	return &PgxReceiptStore{db: db}
}

// Ensure PgxReceiptStore implements portsrepo.ReceiptStore
var _ portsrepo.ReceiptStore = (*PgxReceiptStore)(nil)

func (r *PgxReceiptStore) HasReceipt(ctx context.Context, receiptID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM receipts WHERE receipt_id = $1)`, receiptID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check receipt %s: %w", receiptID, err)
	}
	return exists, nil
}
