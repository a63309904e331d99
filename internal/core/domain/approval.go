package domain

import "time"

// EntryStatus indicates the resolution state of one approval ledger entry.
type EntryStatus string

const (
	EntryPending   EntryStatus = "PENDING"
	EntryApproved  EntryStatus = "APPROVED"
	EntryRejected  EntryStatus = "REJECTED"
	EntryForwarded EntryStatus = "FORWARDED"
	EntrySkipped   EntryStatus = "SKIPPED"
)

// IsTerminal reports whether the entry can no longer change.
func (s EntryStatus) IsTerminal() bool {
	return s != EntryPending
}

// ApprovalLedgerEntry is one row of a claim's approval ledger: a required
// approval level and its resolution. Entries resolve strictly in ascending
// level order; an entry only ever transitions out of PENDING.
//
// A forward leaves the original entry as FORWARDED and appends a PENDING
// replacement at the same level, so the full routing history stays visible.
type ApprovalLedgerEntry struct {
	Level        int         `json:"level"`
	ApproverRole string      `json:"approverRole"`
	ApproverID   *string     `json:"approverID,omitempty"` // Resolved lazily when the level is actioned
	Status       EntryStatus `json:"status"`
	Comment      string      `json:"comment,omitempty"`
	ActionedAt   *time.Time  `json:"actionedAt,omitempty"`
}
