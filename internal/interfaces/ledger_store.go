package interfaces

import (
	"context"
	"errors"

	"github.com/sheikh-saqib/balance-ledger/internal/models"
)

// ErrCustomerNotFound is returned by stores when a customer id does not resolve.
var ErrCustomerNotFound = errors.New("customer not found")

type LedgerStore interface {
	CreateCustomer(ctx context.Context, name string) (models.Customer, error)
	GetCustomer(ctx context.Context, id int64) (models.Customer, error)
	ListCustomers(ctx context.Context) ([]models.Customer, error)
	RenameCustomer(ctx context.Context, id int64, name string) (models.Customer, error)
	DeleteCustomer(ctx context.Context, id int64) error
	ListTransactions(ctx context.Context, customerID int64, order models.TransactionOrder) ([]models.Transaction, error)

	// WithCustomersLocked locks the given customers in ascending id order and
	// runs fn. Writes made through the LedgerTx are committed only if fn
	// returns nil; otherwise nothing is applied.
	WithCustomersLocked(ctx context.Context, ids []int64, fn func(tx LedgerTx) error) error
}

// LedgerTx is the view of the store inside an atomic scope.
type LedgerTx interface {
	GetCustomer(ctx context.Context, id int64) (models.Customer, error)
	UpdateCustomer(ctx context.Context, customer models.Customer) error
	// CreateTransaction assigns the id and timestamp.
	CreateTransaction(ctx context.Context, tx models.Transaction) (models.Transaction, error)
}
