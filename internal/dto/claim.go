package dto

import (
	"time"

	"github.com/openclaims/expense_claims_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateLineItemRequest is one expense line in a create/update claim request.
type CreateLineItemRequest struct {
	ExpenseDate  time.Time       `json:"expenseDate" binding:"required"`
	Category     string          `json:"category" binding:"required"`
	SubCategory  string          `json:"subCategory"`
	Description  string          `json:"description"`
	Amount       decimal.Decimal `json:"amount" binding:"required"`
	CurrencyCode string          `json:"currencyCode" binding:"required,len=3"`
	// ExchangeRate converts the item currency into the claim currency. Use 1
	// when they match; rate lookup is the caller's concern.
	ExchangeRate decimal.Decimal `json:"exchangeRate" binding:"required"`
	ReceiptID    *string         `json:"receiptID"`
}

// CreateClaimRequest defines the payload to create a draft claim.
type CreateClaimRequest struct {
	Title        string                  `json:"title" binding:"required"`
	Description  string                  `json:"description"`
	CurrencyCode string                  `json:"currencyCode" binding:"required,len=3"`
	LineItems    []CreateLineItemRequest `json:"lineItems" binding:"required,dive"`
}

// UpdateClaimRequest defines the payload to edit a draft claim. Nil fields are
// left unchanged; a non-nil LineItems replaces the whole list.
type UpdateClaimRequest struct {
	Title       *string                  `json:"title"`
	Description *string                  `json:"description"`
	LineItems   *[]CreateLineItemRequest `json:"lineItems" binding:"omitempty,dive"`
}

// ApproveLevelRequest defines the payload for approving the current level.
type ApproveLevelRequest struct {
	Level   int    `json:"level" binding:"required,gte=1"`
	Comment string `json:"comment"`
}

// RejectLevelRequest defines the payload for rejecting the current level.
type RejectLevelRequest struct {
	Level  int    `json:"level" binding:"required,gte=1"`
	Reason string `json:"reason" binding:"required"`
}

// ForwardLevelRequest defines the payload for forwarding the current level.
type ForwardLevelRequest struct {
	Level           int    `json:"level" binding:"required,gte=1"`
	NewApproverRole string `json:"newApproverRole" binding:"required"`
	Reason          string `json:"reason"`
}

// ReimburseRequest defines the payload recording payment of an approved claim.
type ReimburseRequest struct {
	Method    string `json:"method" binding:"required"`
	Reference string `json:"reference" binding:"required"`
}

// CancelClaimRequest defines the payload for cancelling a claim.
type CancelClaimRequest struct {
	Reason string `json:"reason"`
}

// ListClaimsParams holds the filters for listing claims.
type ListClaimsParams struct {
	Status     *string `form:"status"`
	EmployeeID *string `form:"employeeID"`
	Limit      int     `form:"limit"`
	Offset     int     `form:"offset"`
}

// LineItemResponse defines the data returned for a line item.
type LineItemResponse struct {
	LineItemID      string          `json:"lineItemID"`
	ExpenseDate     time.Time       `json:"expenseDate"`
	Category        string          `json:"category"`
	SubCategory     string          `json:"subCategory,omitempty"`
	Description     string          `json:"description,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	CurrencyCode    string          `json:"currencyCode"`
	ExchangeRate    decimal.Decimal `json:"exchangeRate"`
	ConvertedAmount decimal.Decimal `json:"convertedAmount"`
	ReceiptID       *string         `json:"receiptID,omitempty"`
	Reimbursable    bool            `json:"reimbursable"`
}

// LedgerEntryResponse defines the data returned for one approval ledger entry.
type LedgerEntryResponse struct {
	Level        int        `json:"level"`
	ApproverRole string     `json:"approverRole"`
	ApproverID   *string    `json:"approverID,omitempty"`
	Status       string     `json:"status"`
	Comment      string     `json:"comment,omitempty"`
	ActionedAt   *time.Time `json:"actionedAt,omitempty"`
}

// ViolationResponse defines the data returned for one policy violation.
type ViolationResponse struct {
	LineItemID string `json:"lineItemID"`
	Category   string `json:"category"`
	Rule       string `json:"rule"`
	Message    string `json:"message"`
}

// ClaimResponse defines the data returned for a claim aggregate.
type ClaimResponse struct {
	ClaimID            string                `json:"claimID"`
	OrganizationID     string                `json:"organizationID"`
	EmployeeID         string                `json:"employeeID"`
	Title              string                `json:"title"`
	Description        string                `json:"description,omitempty"`
	CurrencyCode       string                `json:"currencyCode"`
	TotalAmount        decimal.Decimal       `json:"totalAmount"`
	Status             string                `json:"status"`
	LineItems          []LineItemResponse    `json:"lineItems"`
	Ledger             []LedgerEntryResponse `json:"ledger,omitempty"`
	PolicyID           *string               `json:"policyID,omitempty"`
	PolicyVersion      *int                  `json:"policyVersion,omitempty"`
	IsCompliant        bool                  `json:"isCompliant"`
	Violations         []ViolationResponse   `json:"violations,omitempty"`
	SubmittedAt        *time.Time            `json:"submittedAt,omitempty"`
	ApprovedAt         *time.Time            `json:"approvedAt,omitempty"`
	RejectedAt         *time.Time            `json:"rejectedAt,omitempty"`
	ReimbursedAt       *time.Time            `json:"reimbursedAt,omitempty"`
	CancelledAt        *time.Time            `json:"cancelledAt,omitempty"`
	RejectionReason    string                `json:"rejectionReason,omitempty"`
	CancellationReason string                `json:"cancellationReason,omitempty"`
	PaymentMethod      string                `json:"paymentMethod,omitempty"`
	PaymentReference   string                `json:"paymentReference,omitempty"`
	Version            int64                 `json:"version"`
	CreatedAt          time.Time             `json:"createdAt"`
}

// ListClaimsResponse wraps a page of claims.
type ListClaimsResponse struct {
	Claims []ClaimResponse `json:"claims"`
}

// ToClaimResponse converts a domain.Claim to ClaimResponse DTO.
func ToClaimResponse(c *domain.Claim) ClaimResponse {
	items := make([]LineItemResponse, len(c.LineItems))
	for i, item := range c.LineItems {
		items[i] = LineItemResponse{
			LineItemID:      item.LineItemID,
			ExpenseDate:     item.ExpenseDate,
			Category:        item.Category,
			SubCategory:     item.SubCategory,
			Description:     item.Description,
			Amount:          item.Amount,
			CurrencyCode:    item.CurrencyCode,
			ExchangeRate:    item.ExchangeRate,
			ConvertedAmount: item.ConvertedAmount,
			ReceiptID:       item.ReceiptID,
			Reimbursable:    item.Reimbursable,
		}
	}

	ledger := make([]LedgerEntryResponse, len(c.Ledger))
	for i, entry := range c.Ledger {
		ledger[i] = LedgerEntryResponse{
			Level:        entry.Level,
			ApproverRole: entry.ApproverRole,
			ApproverID:   entry.ApproverID,
			Status:       string(entry.Status),
			Comment:      entry.Comment,
			ActionedAt:   entry.ActionedAt,
		}
	}

	violations := make([]ViolationResponse, len(c.Violations))
	for i, v := range c.Violations {
		violations[i] = ViolationResponse{
			LineItemID: v.LineItemID,
			Category:   v.Category,
			Rule:       v.Rule,
			Message:    v.Message,
		}
	}

	return ClaimResponse{
		ClaimID:            c.ClaimID,
		OrganizationID:     c.OrganizationID,
		EmployeeID:         c.EmployeeID,
		Title:              c.Title,
		Description:        c.Description,
		CurrencyCode:       c.CurrencyCode,
		TotalAmount:        c.TotalAmount,
		Status:             string(c.Status),
		LineItems:          items,
		Ledger:             ledger,
		PolicyID:           c.PolicyID,
		PolicyVersion:      c.PolicyVersion,
		IsCompliant:        c.IsCompliant,
		Violations:         violations,
		SubmittedAt:        c.SubmittedAt,
		ApprovedAt:         c.ApprovedAt,
		RejectedAt:         c.RejectedAt,
		ReimbursedAt:       c.ReimbursedAt,
		CancelledAt:        c.CancelledAt,
		RejectionReason:    c.RejectionReason,
		CancellationReason: c.CancellationReason,
		PaymentMethod:      c.PaymentMethod,
		PaymentReference:   c.PaymentReference,
		Version:            c.Version,
		CreatedAt:          c.CreatedAt,
	}
}

// ToClaimResponses converts a slice of domain.Claim to []ClaimResponse.
func ToClaimResponses(claims []domain.Claim) []ClaimResponse {
	responses := make([]ClaimResponse, len(claims))
	for i := range claims {
		responses[i] = ToClaimResponse(&claims[i])
	}
	return responses
}
