// Package gormstore keeps the ledger in MySQL or SQLite through GORM.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"

	interfaces "github.com/sheikh-saqib/balance-ledger/internal/interfaces"
	"github.com/sheikh-saqib/balance-ledger/internal/models"
)

// money keeps decimals exact in every dialect. SQLite's NUMERIC affinity
// turns long values into REAL, and MySQL caps DECIMAL at 65 digits, so both
// store the decimal's text form instead of a 99-digit numeric.
type money struct {
	decimal.Decimal
}

func (money) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	switch db.Dialector.Name() {
	case "sqlite":
		return "TEXT"
	case "mysql":
		return "varchar(101)"
	}
	return "decimal(99,2)"
}

// sqlCustomer maps the customers table.
type sqlCustomer struct {
	ID      int64  `gorm:"primaryKey;autoIncrement"`
	Name    string `gorm:"size:100;not null"`
	Balance money  `gorm:"not null"`
}

func (*sqlCustomer) TableName() string {
	return "customers"
}

// sqlTransaction maps the transactions table.
type sqlTransaction struct {
	ID          int64           `gorm:"primaryKey;autoIncrement"`
	Amount      money     `gorm:"not null"`
	Timestamp   time.Time `gorm:"not null"`
	Description *string   `gorm:"size:150"`
	SenderID    *int64    `gorm:"index"`
	RecipientID *int64    `gorm:"index"`
}

func (*sqlTransaction) TableName() string {
	return "transactions"
}

type GormLedgerStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormLedgerStore(db *gorm.DB) *GormLedgerStore {
	return &GormLedgerStore{db: db, now: time.Now}
}

// Migrate creates or updates both tables.
func (s *GormLedgerStore) Migrate() error {
	if err := s.db.AutoMigrate(&sqlCustomer{}, &sqlTransaction{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

func (s *GormLedgerStore) CreateCustomer(ctx context.Context, name string) (models.Customer, error) {
	row := sqlCustomer{Name: name, Balance: money{decimal.Zero}}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return models.Customer{}, fmt.Errorf("create customer: %w", err)
	}
	return row.toModel(), nil
}

func (s *GormLedgerStore) GetCustomer(ctx context.Context, id int64) (models.Customer, error) {
	return getCustomer(s.db.WithContext(ctx), id)
}

func getCustomer(db *gorm.DB, id int64) (models.Customer, error) {
	var row sqlCustomer
	err := db.Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Customer{}, interfaces.ErrCustomerNotFound
	}
	if err != nil {
		return models.Customer{}, fmt.Errorf("get customer %d: %w", id, err)
	}
	return row.toModel(), nil
}

func (s *GormLedgerStore) ListCustomers(ctx context.Context) ([]models.Customer, error) {
	var rows []sqlCustomer
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	out := make([]models.Customer, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

func (s *GormLedgerStore) RenameCustomer(ctx context.Context, id int64, name string) (models.Customer, error) {
	res := s.db.WithContext(ctx).Model(&sqlCustomer{}).Where("id = ?", id).Update("name", name)
	if res.Error != nil {
		return models.Customer{}, fmt.Errorf("rename customer %d: %w", id, res.Error)
	}
	// RowsAffected is not checked: MySQL reports 0 when the name is unchanged.
	return s.GetCustomer(ctx, id)
}

func (s *GormLedgerStore) DeleteCustomer(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Delete(&sqlCustomer{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete customer %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return interfaces.ErrCustomerNotFound
	}
	return nil
}

// ListTransactions sorts in Go: amounts are stored as text, which the
// database would order lexically.
func (s *GormLedgerStore) ListTransactions(ctx context.Context, customerID int64, order models.TransactionOrder) ([]models.Transaction, error) {
	var rows []sqlTransaction
	err := s.db.WithContext(ctx).
		Where("sender_id = ? OR recipient_id = ?", customerID, customerID).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]models.Transaction, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	models.SortTransactions(out, order)
	return out, nil
}

// WithCustomersLocked takes pessimistic row locks ordered by id. SQLite has
// no row locks; its write transactions are serialized by the database itself.
func (s *GormLedgerStore) WithCustomersLocked(ctx context.Context, ids []int64, fn func(tx interfaces.LedgerTx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&sqlCustomer{}).Where("id IN ?", ids).Order("id")
		if tx.Dialector.Name() != "sqlite" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var locked []sqlCustomer
		if err := q.Find(&locked).Error; err != nil {
			return fmt.Errorf("lock customers: %w", err)
		}
		return fn(&gormTx{db: tx, now: s.now})
	})
}

type gormTx struct {
	db  *gorm.DB
	now func() time.Time
}

func (t *gormTx) GetCustomer(ctx context.Context, id int64) (models.Customer, error) {
	return getCustomer(t.db, id)
}

func (t *gormTx) UpdateCustomer(ctx context.Context, c models.Customer) error {
	res := t.db.Model(&sqlCustomer{}).Where("id = ?", c.ID).Updates(map[string]any{
		"name":    c.Name,
		"balance": money{c.Balance},
	})
	if res.Error != nil {
		return fmt.Errorf("update customer %d: %w", c.ID, res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}
	// MySQL reports 0 rows for an unchanged row, so confirm the row is gone
	var n int64
	if err := t.db.Model(&sqlCustomer{}).Where("id = ?", c.ID).Count(&n).Error; err != nil {
		return fmt.Errorf("update customer %d: %w", c.ID, err)
	}
	if n == 0 {
		return interfaces.ErrCustomerNotFound
	}
	return nil
}

func (t *gormTx) CreateTransaction(ctx context.Context, tx models.Transaction) (models.Transaction, error) {
	row := sqlTransaction{
		Amount:      money{tx.Amount},
		Timestamp:   t.now().UTC(),
		Description: tx.Description,
		SenderID:    tx.SenderID,
		RecipientID: tx.RecipientID,
	}
	if err := t.db.Create(&row).Error; err != nil {
		return models.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	return row.toModel(), nil
}

func (r sqlCustomer) toModel() models.Customer {
	return models.Customer{ID: r.ID, Name: r.Name, Balance: r.Balance.Decimal}
}

func (r sqlTransaction) toModel() models.Transaction {
	return models.Transaction{
		ID:          r.ID,
		Amount:      r.Amount.Decimal,
		Timestamp:   r.Timestamp,
		Description: r.Description,
		SenderID:    r.SenderID,
		RecipientID: r.RecipientID,
	}
}

var _ interfaces.LedgerStore = (*GormLedgerStore)(nil)
