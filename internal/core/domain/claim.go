package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ClaimStatus indicates where a claim sits in its lifecycle.
type ClaimStatus string

const (
	StatusDraft       ClaimStatus = "DRAFT"
	StatusSubmitted   ClaimStatus = "SUBMITTED"
	StatusUnderReview ClaimStatus = "UNDER_REVIEW"
	StatusApproved    ClaimStatus = "APPROVED"
	StatusRejected    ClaimStatus = "REJECTED"
	StatusReimbursed  ClaimStatus = "REIMBURSED"
	StatusCancelled   ClaimStatus = "CANCELLED"
)

// IsTerminal reports whether no further transitions are permitted from this status.
func (s ClaimStatus) IsTerminal() bool {
	return s == StatusReimbursed || s == StatusRejected || s == StatusCancelled
}

// Claim represents one reimbursement request for one employee within one organization.
// It owns its line items and approval ledger; both share the claim's lifetime and are
// only mutated through the claim service.
type Claim struct {
	ClaimID        string      `json:"claimID"`        // Primary Key (UUID)
	OrganizationID string      `json:"organizationID"` // FK -> Organization (Not Null)
	EmployeeID     string      `json:"employeeID"`     // FK -> User (Not Null)
	Title          string      `json:"title"`
	Description    string      `json:"description"` // Nullable user description
	CurrencyCode   string      `json:"currencyCode"`
	// TotalAmount always equals the sum of the line items' converted amounts.
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Status      ClaimStatus     `json:"status"`

	LineItems []LineItem            `json:"lineItems"`
	Ledger    []ApprovalLedgerEntry `json:"ledger"`

	// Policy snapshot references frozen at submission time. Later policy edits
	// never affect a claim already in flight.
	PolicyID      *string `json:"policyID,omitempty"`
	PolicyVersion *int    `json:"policyVersion,omitempty"`

	IsCompliant bool        `json:"isCompliant"`
	Violations  []Violation `json:"violations,omitempty"`

	SubmittedAt  *time.Time `json:"submittedAt,omitempty"`
	ApprovedAt   *time.Time `json:"approvedAt,omitempty"`
	RejectedAt   *time.Time `json:"rejectedAt,omitempty"`
	ReimbursedAt *time.Time `json:"reimbursedAt,omitempty"`
	CancelledAt  *time.Time `json:"cancelledAt,omitempty"`

	RejectionReason    string `json:"rejectionReason,omitempty"`
	CancellationReason string `json:"cancellationReason,omitempty"`

	PaymentMethod    string `json:"paymentMethod,omitempty"`
	PaymentReference string `json:"paymentReference,omitempty"`

	// Version is compared and incremented on every write for optimistic
	// concurrency; at most one of two racing transitions wins.
	Version int64 `json:"version"`

	AuditFields
}

// CurrentLevel returns the lowest-numbered ledger entry still pending, or false
// when every entry is terminal (the claim is fully approved).
func (c *Claim) CurrentLevel() (*ApprovalLedgerEntry, bool) {
	for i := range c.Ledger {
		if c.Ledger[i].Status == EntryPending {
			return &c.Ledger[i], true
		}
	}
	return nil, false
}
