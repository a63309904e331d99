package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineItem is one discrete, dated expense within a claim.
type LineItem struct {
	LineItemID  string    `json:"lineItemID"` // Primary Key (UUID)
	ClaimID     string    `json:"claimID"`    // FK -> Claim.claimID (Not Null)
	ExpenseDate time.Time `json:"expenseDate"`
	Category    string    `json:"category"`
	SubCategory string    `json:"subCategory,omitempty"`
	Description string    `json:"description,omitempty"`
	// Amount is expressed in the item's own currency; ConvertedAmount is the
	// amount in the claim currency, rounded to that currency's precision.
	Amount          decimal.Decimal `json:"amount"`
	CurrencyCode    string          `json:"currencyCode"`
	ExchangeRate    decimal.Decimal `json:"exchangeRate"`
	ConvertedAmount decimal.Decimal `json:"convertedAmount"`
	ReceiptID       *string         `json:"receiptID,omitempty"` // Reference into the receipt store
	Reimbursable    bool            `json:"reimbursable"`
}

// ConvertAmount computes amount * exchangeRate rounded to the precision of the
// claim currency. Rounding happens per item, not on the claim total, so the
// total invariant holds exactly.
func ConvertAmount(amount, exchangeRate decimal.Decimal, claimCurrencyCode string) decimal.Decimal {
	return amount.Mul(exchangeRate).Round(CurrencyPrecision(claimCurrencyCode))
}

// SumConvertedAmounts returns the claim total implied by a set of line items.
func SumConvertedAmounts(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.ConvertedAmount)
	}
	return total
}
