package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is an immutable record of one balance movement.
// A nil SenderID means the funds came from outside the ledger,
// a nil RecipientID means they left it.
type Transaction struct {
	ID          int64           `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Timestamp   time.Time       `json:"timestamp"`
	Description *string         `json:"description"`
	SenderID    *int64          `json:"sender"`
	RecipientID *int64          `json:"recipient"`
}

// Involves reports whether the customer is on either side of the transaction.
func (t Transaction) Involves(customerID int64) bool {
	return (t.SenderID != nil && *t.SenderID == customerID) ||
		(t.RecipientID != nil && *t.RecipientID == customerID)
}
