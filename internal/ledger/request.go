package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Wire values of OperationRequest.Operation. The names are inverted with
// respect to banking usage and kept for compatibility: "withdraw" credits
// the customer, "deposit" debits it.
const (
	OperationWithdraw = "withdraw"
	OperationDeposit  = "deposit"
)

const (
	amountScale       = 2
	maxIntegerDigits  = 97 // NUMERIC(99,2)
	maxNameLen        = 100
	maxDescriptionLen = 150
)

// amountLimit is the smallest balance with too many integer digits.
var amountLimit = decimal.New(1, maxIntegerDigits)

// Request bodies keep every field raw so a value of the wrong JSON type is
// reported as a field error at its place in the validation order.

// OperationRequest is the loosely typed body of a credit/debit call.
type OperationRequest struct {
	Amount      json.RawMessage `json:"amount"`
	Operation   json.RawMessage `json:"operation"`
	Description json.RawMessage `json:"description"`
}

// TransferRequest is the loosely typed body of a transfer call.
type TransferRequest struct {
	Amount      json.RawMessage `json:"amount"`
	Sender      json.RawMessage `json:"sender"`
	Recipient   json.RawMessage `json:"recipient"`
	Description json.RawMessage `json:"description"`
}

// CustomerRequest is the body of create and rename calls.
type CustomerRequest struct {
	Name json.RawMessage `json:"name"`
}

// ParseName returns the trimmed name, or MissingField when it is absent and
// InvalidField when it is not a string or is too long.
func (r CustomerRequest) ParseName() (string, error) {
	if absent(r.Name) {
		return "", fmt.Errorf("%w: name is required", ErrMissingField)
	}
	name, ok := stringValue(r.Name)
	if !ok {
		return "", fmt.Errorf("%w: name must be a string", ErrInvalidField)
	}
	return validateName(name)
}

type operation struct {
	credit      bool
	amount      decimal.Decimal
	description *string
}

type transfer struct {
	senderRaw    json.RawMessage
	recipientRaw json.RawMessage
	amount       decimal.Decimal
	description  *string
}

func (r OperationRequest) parse() (operation, error) {
	if absent(r.Amount) {
		return operation{}, fmt.Errorf("%w: amount and operation are required", ErrMissingField)
	}
	if absent(r.Operation) {
		return operation{}, fmt.Errorf("%w: amount and operation are required", ErrMissingField)
	}

	amount, err := parseAmount(r.Amount)
	if err != nil {
		return operation{}, err
	}

	kind, _ := stringValue(r.Operation)
	var credit bool
	switch kind {
	case OperationWithdraw:
		credit = true
	case OperationDeposit:
		credit = false
	default:
		return operation{}, fmt.Errorf("%w: got %s", ErrInvalidOperationKind, bytes.TrimSpace(r.Operation))
	}

	description, err := parseDescription(r.Description)
	if err != nil {
		return operation{}, err
	}
	return operation{credit: credit, amount: amount, description: description}, nil
}

func (r TransferRequest) parse() (transfer, error) {
	if absent(r.Amount) || absent(r.Sender) || absent(r.Recipient) {
		return transfer{}, fmt.Errorf("%w: amount, sender and recipient are required", ErrMissingField)
	}

	amount, err := parseAmount(r.Amount)
	if err != nil {
		return transfer{}, err
	}
	description, err := parseDescription(r.Description)
	if err != nil {
		return transfer{}, err
	}
	return transfer{
		senderRaw:    r.Sender,
		recipientRaw: r.Recipient,
		amount:       amount,
		description:  description,
	}, nil
}

func absent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte(`""`))
}

// parseAmount accepts only a JSON number that is positive and has at most
// two fractional digits. Strings are rejected even when numeric.
func parseAmount(raw json.RawMessage) (decimal.Decimal, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || !isNumberStart(trimmed[0]) {
		return decimal.Zero, fmt.Errorf("%w: not a number", ErrInvalidAmount)
	}
	var num json.Number
	if err := json.Unmarshal(trimmed, &num); err != nil {
		return decimal.Zero, fmt.Errorf("%w: not a number", ErrInvalidAmount)
	}
	amount, err := decimal.NewFromString(num.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: not a number", ErrInvalidAmount)
	}
	if err := checkAmount(amount); err != nil {
		return decimal.Zero, err
	}
	return amount, nil
}

// stringValue decodes raw when it is a JSON string.
func stringValue(raw json.RawMessage) (string, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return "", false
	}
	return s, true
}

func isNumberStart(b byte) bool {
	return b == '-' || (b >= '0' && b <= '9')
}

// parseCustomerID accepts a JSON integer or a string holding one.
func parseCustomerID(raw json.RawMessage) (int64, bool) {
	s, ok := stringValue(raw)
	if !ok {
		s = string(bytes.TrimSpace(raw))
	}
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// parseDescription treats a missing or null description as none.
func parseDescription(raw json.RawMessage) (*string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	d, ok := stringValue(trimmed)
	if !ok {
		return nil, fmt.Errorf("%w: description must be a string", ErrInvalidField)
	}
	if len([]rune(d)) > maxDescriptionLen {
		return nil, fmt.Errorf("%w: description longer than %d characters", ErrInvalidField, maxDescriptionLen)
	}
	return &d, nil
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: name is required", ErrMissingField)
	}
	if len([]rune(name)) > maxNameLen {
		return "", fmt.Errorf("%w: name longer than %d characters", ErrInvalidField, maxNameLen)
	}
	return name, nil
}
