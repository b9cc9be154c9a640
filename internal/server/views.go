package server

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/balance-ledger/internal/models"
)

// customerView is the customer as served: balance is a fixed 2-place string
// and valute labels the currency it is expressed in.
type customerView struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Balance string `json:"balance"`
	Valute  string `json:"valute"`
}

func newCustomerView(id int64, name string, balance decimal.Decimal, currency string) customerView {
	return customerView{
		ID:      id,
		Name:    name,
		Balance: balance.StringFixed(2),
		Valute:  currency,
	}
}

type transactionView struct {
	ID          int64     `json:"id"`
	Amount      string    `json:"amount"`
	Timestamp   time.Time `json:"timestamp"`
	Description *string   `json:"description"`
	Sender      *int64    `json:"sender"`
	Recipient   *int64    `json:"recipient"`
}

func newTransactionView(t models.Transaction) transactionView {
	return transactionView{
		ID:          t.ID,
		Amount:      t.Amount.StringFixed(2),
		Timestamp:   t.Timestamp,
		Description: t.Description,
		Sender:      t.SenderID,
		Recipient:   t.RecipientID,
	}
}
