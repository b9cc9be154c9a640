package models

import (
	"sort"
	"strings"
)

// TransactionOrder selects how a transaction listing is sorted.
// Ties are always broken by id ascending.
type TransactionOrder int

const (
	OrderByID TransactionOrder = iota
	OrderByTimestamp
	OrderByAmount
	OrderByTimestampDesc
	OrderByAmountDesc
)

// ParseTransactionOrder reads an order field name with an optional leading
// "-" for descending. Anything unrecognised falls back to id order.
func ParseTransactionOrder(s string) TransactionOrder {
	desc := strings.HasPrefix(s, "-")
	switch strings.TrimPrefix(s, "-") {
	case "timestamp":
		if desc {
			return OrderByTimestampDesc
		}
		return OrderByTimestamp
	case "amount":
		if desc {
			return OrderByAmountDesc
		}
		return OrderByAmount
	}
	return OrderByID
}

func (o TransactionOrder) String() string {
	switch o {
	case OrderByTimestamp:
		return "timestamp"
	case OrderByAmount:
		return "amount"
	case OrderByTimestampDesc:
		return "-timestamp"
	case OrderByAmountDesc:
		return "-amount"
	}
	return "id"
}

// SortTransactions orders a listing in place; ties fall back to id ascending.
func SortTransactions(txs []Transaction, order TransactionOrder) {
	sort.SliceStable(txs, func(i, j int) bool {
		a, b := txs[i], txs[j]
		switch order {
		case OrderByTimestamp:
			if !a.Timestamp.Equal(b.Timestamp) {
				return a.Timestamp.Before(b.Timestamp)
			}
		case OrderByTimestampDesc:
			if !a.Timestamp.Equal(b.Timestamp) {
				return a.Timestamp.After(b.Timestamp)
			}
		case OrderByAmount:
			if c := a.Amount.Cmp(b.Amount); c != 0 {
				return c < 0
			}
		case OrderByAmountDesc:
			if c := a.Amount.Cmp(b.Amount); c != 0 {
				return c > 0
			}
		}
		return a.ID < b.ID
	})
}
