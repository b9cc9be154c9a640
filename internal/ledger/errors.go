package ledger

import "errors"

// Every operation reports at most one of these, wrapped with detail.
var (
	ErrMissingField           = errors.New("required field is missing")
	ErrInvalidAmount          = errors.New("the amount must be positive number")
	ErrNotFound               = errors.New("customer not found")
	ErrInsufficientFunds      = errors.New("there are not enough funds in the account")
	ErrInvalidOperationKind   = errors.New("the field 'operation' is specified incorrectly, you must specify either 'withdraw' or 'deposit'")
	ErrUnknownCurrency        = errors.New("the currency was not found")
	ErrRateServiceUnavailable = errors.New("currency rate service unavailable")
	ErrInvalidField           = errors.New("invalid field value")
)
