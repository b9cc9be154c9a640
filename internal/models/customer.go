package models

import "github.com/shopspring/decimal"

// Customer holds a balance in the ledger's home currency.
type Customer struct {
	ID      int64           `json:"id"`
	Name    string          `json:"name"`
	Balance decimal.Decimal `json:"balance"`
}
