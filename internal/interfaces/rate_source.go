package interfaces

import (
	"context"

	"github.com/shopspring/decimal"
)

// RateSource returns how many home-currency units one unit of code is worth.
// A code the source does not offer is reported with found == false and a nil error.
type RateSource interface {
	LookupRate(ctx context.Context, code string) (rate decimal.Decimal, found bool, err error)
}
