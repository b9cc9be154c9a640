package events

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	KindCredit   = "credit"
	KindDebit    = "debit"
	KindTransfer = "transfer"
)

// TransactionRecorded is emitted once a balance mutation has been committed.
type TransactionRecorded struct {
	EventID       string          `json:"event_id"`
	TransactionID int64           `json:"transaction_id"`
	Kind          string          `json:"kind"`
	Sender        *int64          `json:"sender"`
	Recipient     *int64          `json:"recipient"`
	Amount        decimal.Decimal `json:"amount"`
	Description   *string         `json:"description,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
}
