package repositories

import "context"

// ReceiptStore exposes receipt metadata maintained by the ingestion subsystem.
// The claim workflow only ever asks whether a referenced receipt exists.
type ReceiptStore interface {
	HasReceipt(ctx context.Context, receiptID string) (bool, error)
}
