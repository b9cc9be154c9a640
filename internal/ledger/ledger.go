package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	interfaces "github.com/sheikh-saqib/balance-ledger/internal/interfaces"
	"github.com/sheikh-saqib/balance-ledger/internal/models"
	"github.com/sheikh-saqib/balance-ledger/internal/models/events"
)

// Ledger applies money movements to the store. Each mutation runs in one
// store scope that locks the customers involved, so balances and the
// transaction log change together or not at all.
type Ledger struct {
	store     interfaces.LedgerStore
	publisher interfaces.EventPublisher
	rates     interfaces.RateSource
	logger    *zap.Logger
}

type Option func(*Ledger)

// WithPublisher sets where TransactionRecorded events go after each commit.
func WithPublisher(p interfaces.EventPublisher) Option {
	return func(l *Ledger) { l.publisher = p }
}

// WithRateSource sets the exchange rate collaborator used for converted reads.
func WithRateSource(r interfaces.RateSource) Option {
	return func(l *Ledger) { l.rates = r }
}

func WithLogger(logger *zap.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

func NewLedger(store interfaces.LedgerStore, opts ...Option) *Ledger {
	l := &Ledger{
		store:  store,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CreateCustomer opens a customer with a zero balance.
func (l *Ledger) CreateCustomer(ctx context.Context, name string) (models.Customer, error) {
	name, err := validateName(name)
	if err != nil {
		return models.Customer{}, err
	}
	customer, err := l.store.CreateCustomer(ctx, name)
	if err != nil {
		return models.Customer{}, err
	}
	l.logger.Info("customer created", zap.Int64("customer_id", customer.ID))
	return customer, nil
}

func (l *Ledger) GetCustomer(ctx context.Context, id int64) (models.Customer, error) {
	customer, err := l.store.GetCustomer(ctx, id)
	if err != nil {
		return models.Customer{}, notFound(err, id)
	}
	return customer, nil
}

func (l *Ledger) ListCustomers(ctx context.Context) ([]models.Customer, error) {
	return l.store.ListCustomers(ctx)
}

func (l *Ledger) RenameCustomer(ctx context.Context, id int64, name string) (models.Customer, error) {
	name, err := validateName(name)
	if err != nil {
		return models.Customer{}, err
	}
	customer, err := l.store.RenameCustomer(ctx, id, name)
	if err != nil {
		return models.Customer{}, notFound(err, id)
	}
	return customer, nil
}

func (l *Ledger) DeleteCustomer(ctx context.Context, id int64) error {
	if err := l.store.DeleteCustomer(ctx, id); err != nil {
		return notFound(err, id)
	}
	l.logger.Info("customer deleted", zap.Int64("customer_id", id))
	return nil
}

// ListTransactions returns every transaction the customer sent or received.
// An unknown customer simply has no transactions.
func (l *Ledger) ListTransactions(ctx context.Context, customerID int64, order models.TransactionOrder) ([]models.Transaction, error) {
	return l.store.ListTransactions(ctx, customerID, order)
}

// PostOperation parses a loosely typed credit/debit request and applies it.
// Kind "withdraw" credits the customer and "deposit" debits it.
func (l *Ledger) PostOperation(ctx context.Context, customerID int64, req OperationRequest) (models.Transaction, error) {
	op, err := req.parse()
	if err != nil {
		return models.Transaction{}, err
	}
	if op.credit {
		return l.credit(ctx, customerID, op.amount, op.description)
	}
	return l.debit(ctx, customerID, op.amount, op.description)
}

// Credit adds funds from outside the ledger to the customer.
func (l *Ledger) Credit(ctx context.Context, customerID int64, amount decimal.Decimal, description *string) (models.Transaction, error) {
	if err := checkAmount(amount); err != nil {
		return models.Transaction{}, err
	}
	return l.credit(ctx, customerID, amount, description)
}

// Debit takes funds out of the ledger from the customer.
func (l *Ledger) Debit(ctx context.Context, customerID int64, amount decimal.Decimal, description *string) (models.Transaction, error) {
	if err := checkAmount(amount); err != nil {
		return models.Transaction{}, err
	}
	return l.debit(ctx, customerID, amount, description)
}

func (l *Ledger) credit(ctx context.Context, customerID int64, amount decimal.Decimal, description *string) (models.Transaction, error) {
	var recorded models.Transaction
	err := l.store.WithCustomersLocked(ctx, []int64{customerID}, func(tx interfaces.LedgerTx) error {
		customer, err := tx.GetCustomer(ctx, customerID)
		if err != nil {
			return notFound(err, customerID)
		}

		customer.Balance = customer.Balance.Add(amount)
		if err := checkBalance(customer); err != nil {
			return err
		}
		if err := tx.UpdateCustomer(ctx, customer); err != nil {
			return err
		}

		recorded, err = tx.CreateTransaction(ctx, models.Transaction{
			Amount:      amount,
			Description: description,
			RecipientID: &customerID,
		})
		return err
	})
	if err != nil {
		return models.Transaction{}, err
	}

	l.logger.Info("customer credited",
		zap.Int64("customer_id", customerID),
		zap.Int64("transaction_id", recorded.ID),
		zap.String("amount", amount.String()),
	)
	l.publish(ctx, events.KindCredit, recorded)
	return recorded, nil
}

func (l *Ledger) debit(ctx context.Context, customerID int64, amount decimal.Decimal, description *string) (models.Transaction, error) {
	var recorded models.Transaction
	err := l.store.WithCustomersLocked(ctx, []int64{customerID}, func(tx interfaces.LedgerTx) error {
		customer, err := tx.GetCustomer(ctx, customerID)
		if err != nil {
			return notFound(err, customerID)
		}
		if customer.Balance.LessThan(amount) {
			return fmt.Errorf("%w: customer %d", ErrInsufficientFunds, customerID)
		}

		customer.Balance = customer.Balance.Sub(amount)
		if err := tx.UpdateCustomer(ctx, customer); err != nil {
			return err
		}

		recorded, err = tx.CreateTransaction(ctx, models.Transaction{
			Amount:      amount,
			Description: description,
			SenderID:    &customerID,
		})
		return err
	})
	if err != nil {
		return models.Transaction{}, err
	}

	l.logger.Info("customer debited",
		zap.Int64("customer_id", customerID),
		zap.Int64("transaction_id", recorded.ID),
		zap.String("amount", amount.String()),
	)
	l.publish(ctx, events.KindDebit, recorded)
	return recorded, nil
}

// Transfer parses a loosely typed transfer request and applies it.
func (l *Ledger) Transfer(ctx context.Context, req TransferRequest) (models.Transaction, error) {
	t, err := req.parse()
	if err != nil {
		return models.Transaction{}, err
	}
	senderID, ok := parseCustomerID(t.senderRaw)
	if !ok {
		return models.Transaction{}, fmt.Errorf("%w: sender %s", ErrNotFound, t.senderRaw)
	}
	recipientID, ok := parseCustomerID(t.recipientRaw)
	if !ok {
		return models.Transaction{}, fmt.Errorf("%w: recipient %s", ErrNotFound, t.recipientRaw)
	}
	return l.transfer(ctx, senderID, recipientID, t.amount, t.description)
}

// TransferFunds moves amount from sender to recipient in one atomic step.
func (l *Ledger) TransferFunds(ctx context.Context, senderID, recipientID int64, amount decimal.Decimal, description *string) (models.Transaction, error) {
	if err := checkAmount(amount); err != nil {
		return models.Transaction{}, err
	}
	return l.transfer(ctx, senderID, recipientID, amount, description)
}

func (l *Ledger) transfer(ctx context.Context, senderID, recipientID int64, amount decimal.Decimal, description *string) (models.Transaction, error) {
	var recorded models.Transaction
	err := l.store.WithCustomersLocked(ctx, []int64{senderID, recipientID}, func(tx interfaces.LedgerTx) error {
		sender, err := tx.GetCustomer(ctx, senderID)
		if err != nil {
			return notFound(err, senderID)
		}
		recipient, err := tx.GetCustomer(ctx, recipientID)
		if err != nil {
			return notFound(err, recipientID)
		}
		if sender.Balance.LessThan(amount) {
			return fmt.Errorf("%w: customer %d", ErrInsufficientFunds, senderID)
		}

		sender.Balance = sender.Balance.Sub(amount)
		if err := tx.UpdateCustomer(ctx, sender); err != nil {
			return err
		}
		// re-read so a self transfer sees the debit it just made
		if recipient, err = tx.GetCustomer(ctx, recipientID); err != nil {
			return notFound(err, recipientID)
		}
		recipient.Balance = recipient.Balance.Add(amount)
		if err := checkBalance(recipient); err != nil {
			return err
		}
		if err := tx.UpdateCustomer(ctx, recipient); err != nil {
			return err
		}

		recorded, err = tx.CreateTransaction(ctx, models.Transaction{
			Amount:      amount,
			Description: description,
			SenderID:    &senderID,
			RecipientID: &recipientID,
		})
		return err
	})
	if err != nil {
		return models.Transaction{}, err
	}

	l.logger.Info("transfer completed",
		zap.Int64("sender_id", senderID),
		zap.Int64("recipient_id", recipientID),
		zap.Int64("transaction_id", recorded.ID),
		zap.String("amount", amount.String()),
	)
	l.publish(ctx, events.KindTransfer, recorded)
	return recorded, nil
}

// publish runs after commit; a failure cannot undo the mutation, so it is only logged.
func (l *Ledger) publish(ctx context.Context, kind string, t models.Transaction) {
	if l.publisher == nil {
		return
	}
	event := events.TransactionRecorded{
		EventID:       uuid.New().String(),
		TransactionID: t.ID,
		Kind:          kind,
		Sender:        t.SenderID,
		Recipient:     t.RecipientID,
		Amount:        t.Amount,
		Description:   t.Description,
		OccurredAt:    t.Timestamp,
	}
	if err := l.publisher.Publish(ctx, strconv.FormatInt(t.ID, 10), event); err != nil {
		l.logger.Warn("failed to publish transaction event",
			zap.Int64("transaction_id", t.ID),
			zap.Error(err),
		)
	}
}

func checkAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: got %s", ErrInvalidAmount, amount)
	}
	// digit counts first: comparing against an extreme exponent rescales
	exp := int64(amount.Exponent())
	if int64(amount.NumDigits())+exp > maxIntegerDigits {
		return fmt.Errorf("%w: at most %d integer digits", ErrInvalidAmount, maxIntegerDigits)
	}
	if exp < -(maxIntegerDigits+amountScale) || !amount.Equal(amount.Truncate(amountScale)) {
		return fmt.Errorf("%w: at most %d decimal places", ErrInvalidAmount, amountScale)
	}
	return nil
}

// checkBalance rejects a credit that would leave more integer digits than a
// balance can hold.
func checkBalance(c models.Customer) error {
	if c.Balance.GreaterThanOrEqual(amountLimit) {
		return fmt.Errorf("%w: balance of customer %d would exceed %d integer digits", ErrInvalidAmount, c.ID, maxIntegerDigits)
	}
	return nil
}

func notFound(err error, id int64) error {
	if errors.Is(err, interfaces.ErrCustomerNotFound) {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return err
}
