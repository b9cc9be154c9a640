package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sheikh-saqib/balance-ledger/internal/models"
)

// HomeCurrency labels balances that were not converted.
const HomeCurrency = "RUB"

// Balance is a customer's balance expressed in Currency.
type Balance struct {
	Customer models.Customer
	Amount   decimal.Decimal
	Currency string
}

// GetCustomerInCurrency reads the customer once and, when currency is set,
// divides the balance by the rate for that code, rounded to 2 places.
// It never mutates the balance.
func (l *Ledger) GetCustomerInCurrency(ctx context.Context, id int64, currency string) (Balance, error) {
	customer, err := l.GetCustomer(ctx, id)
	if err != nil {
		return Balance{}, err
	}
	if currency == "" {
		return Balance{Customer: customer, Amount: customer.Balance, Currency: HomeCurrency}, nil
	}

	code := strings.ToUpper(strings.TrimSpace(currency))
	if !isCurrencyCode(code) {
		return Balance{}, fmt.Errorf("%w: %q", ErrUnknownCurrency, currency)
	}
	if l.rates == nil {
		return Balance{}, fmt.Errorf("%w: no rate source configured", ErrRateServiceUnavailable)
	}

	rate, found, err := l.rates.LookupRate(ctx, code)
	if err != nil {
		l.logger.Warn("rate lookup failed", zap.String("currency", code), zap.Error(err))
		return Balance{}, fmt.Errorf("%w: %w", ErrRateServiceUnavailable, err)
	}
	if !found {
		return Balance{}, fmt.Errorf("%w: %s", ErrUnknownCurrency, code)
	}
	if !rate.IsPositive() {
		return Balance{}, fmt.Errorf("%w: non-positive rate %s for %s", ErrRateServiceUnavailable, rate, code)
	}

	return Balance{
		Customer: customer,
		Amount:   customer.Balance.Div(rate).Round(2),
		Currency: code,
	}, nil
}

func isCurrencyCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
