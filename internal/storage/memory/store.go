package memory

import (
	"context" // standard Go package for request-scoped context (timeouts, cancellation)
	"sort"
	"sync" // standard Go package for concurrency primitives like Mutex
	"time"

	interfaces "github.com/sheikh-saqib/balance-ledger/internal/interfaces" // interface LedgerStore
	"github.com/sheikh-saqib/balance-ledger/internal/models"                // domain models: Customer, Transaction
	"github.com/shopspring/decimal"
)

// MemoryLedgerStore is an in-memory implementation of interfaces.LedgerStore.
// Customers are locked individually for mutations; mu only guards the maps
// and is held while a finished atomic scope is applied, so readers never see
// half of a transfer.
type MemoryLedgerStore struct {
	mu           sync.RWMutex                // protects customers, transactions and the id counters
	customers    map[int64]models.Customer   // customers by id
	transactions []models.Transaction        // append-only, in insertion (= id) order
	nextCustomer int64
	nextTx       int64

	muMap map[int64]*customerLock // per-customer lock used by atomic scopes
	mapMu sync.Mutex              // protects the muMap itself

	now func() time.Time
}

// NewMemoryLedgerStore creates and returns a new MemoryLedgerStore instance
func NewMemoryLedgerStore() *MemoryLedgerStore {
	return &MemoryLedgerStore{
		customers: make(map[int64]models.Customer),
		muMap:     make(map[int64]*customerLock),
		now:       time.Now,
	}
}

// customerLock is dropped from muMap once nobody holds or waits on it, so
// ids that never existed do not leave locks behind.
type customerLock struct {
	mu   sync.Mutex
	refs int
}

func (m *MemoryLedgerStore) getCustomerLock(id int64) *customerLock {
	m.mapMu.Lock()
	defer m.mapMu.Unlock()

	l, exists := m.muMap[id]
	if !exists {
		l = &customerLock{}
		m.muMap[id] = l
	}
	l.refs++
	return l
}

func (m *MemoryLedgerStore) releaseCustomerLock(id int64, l *customerLock) {
	l.mu.Unlock()

	m.mapMu.Lock()
	defer m.mapMu.Unlock()

	l.refs--
	if l.refs == 0 {
		delete(m.muMap, id)
	}
}

// lockCustomers locks every id once, in ascending order, and returns the unlock func.
func (m *MemoryLedgerStore) lockCustomers(ids []int64) func() {
	ordered := sortedUnique(ids)
	locks := make([]*customerLock, 0, len(ordered))
	for _, id := range ordered {
		l := m.getCustomerLock(id)
		l.mu.Lock()
		locks = append(locks, l)
	}
	return func() {
		for i := len(locks) - 1; i >= 0; i-- {
			m.releaseCustomerLock(ordered[i], locks[i])
		}
	}
}

func (m *MemoryLedgerStore) CreateCustomer(ctx context.Context, name string) (models.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextCustomer++
	c := models.Customer{ID: m.nextCustomer, Name: name, Balance: decimal.Zero}
	m.customers[c.ID] = c
	return c, nil
}

func (m *MemoryLedgerStore) GetCustomer(ctx context.Context, id int64) (models.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.customers[id]
	if !ok {
		return models.Customer{}, interfaces.ErrCustomerNotFound
	}
	return c, nil
}

func (m *MemoryLedgerStore) ListCustomers(ctx context.Context) ([]models.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Customer, 0, len(m.customers))
	for _, c := range m.customers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// RenameCustomer changes the name under the customer lock so it cannot
// overwrite a balance written by a concurrent scope.
func (m *MemoryLedgerStore) RenameCustomer(ctx context.Context, id int64, name string) (models.Customer, error) {
	unlock := m.lockCustomers([]int64{id})
	defer unlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.customers[id]
	if !ok {
		return models.Customer{}, interfaces.ErrCustomerNotFound
	}
	c.Name = name
	m.customers[id] = c
	return c, nil
}

// DeleteCustomer removes the customer; its transactions stay in the log.
func (m *MemoryLedgerStore) DeleteCustomer(ctx context.Context, id int64) error {
	unlock := m.lockCustomers([]int64{id})
	defer unlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.customers[id]; !ok {
		return interfaces.ErrCustomerNotFound
	}
	delete(m.customers, id)
	return nil
}

func (m *MemoryLedgerStore) ListTransactions(ctx context.Context, customerID int64, order models.TransactionOrder) ([]models.Transaction, error) {
	m.mu.RLock()
	result := make([]models.Transaction, 0)
	for _, t := range m.transactions {
		if t.Involves(customerID) {
			result = append(result, t)
		}
	}
	m.mu.RUnlock()

	models.SortTransactions(result, order)
	return result, nil
}

func (m *MemoryLedgerStore) WithCustomersLocked(ctx context.Context, ids []int64, fn func(tx interfaces.LedgerTx) error) error {
	unlock := m.lockCustomers(ids)
	defer unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &memoryTx{store: m, staged: make(map[int64]models.Customer)}
	if err := fn(tx); err != nil {
		return err // staged writes are dropped
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for id, c := range tx.staged {
		m.customers[id] = c
	}
	m.transactions = append(m.transactions, tx.created...)
	return nil
}

// memoryTx buffers writes until the scope commits.
type memoryTx struct {
	store   *MemoryLedgerStore
	staged  map[int64]models.Customer
	created []models.Transaction
}

func (t *memoryTx) GetCustomer(ctx context.Context, id int64) (models.Customer, error) {
	if c, ok := t.staged[id]; ok {
		return c, nil
	}
	return t.store.GetCustomer(ctx, id)
}

func (t *memoryTx) UpdateCustomer(ctx context.Context, customer models.Customer) error {
	if _, err := t.GetCustomer(ctx, customer.ID); err != nil {
		return err
	}
	t.staged[customer.ID] = customer
	return nil
}

// CreateTransaction reserves the id right away so concurrent scopes never
// share one; ids left unused by a rolled back scope are simply skipped.
func (t *memoryTx) CreateTransaction(ctx context.Context, tx models.Transaction) (models.Transaction, error) {
	t.store.mu.Lock()
	t.store.nextTx++
	tx.ID = t.store.nextTx
	t.store.mu.Unlock()

	tx.Timestamp = t.store.now()
	t.created = append(t.created, tx)
	return tx, nil
}

func sortedUnique(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Compile-time check: ensure MemoryLedgerStore implements LedgerStore interface
var _ interfaces.LedgerStore = (*MemoryLedgerStore)(nil)
