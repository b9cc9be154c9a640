package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	interfaces "github.com/sheikh-saqib/balance-ledger/internal/interfaces" // interface LedgerStore
	"github.com/sheikh-saqib/balance-ledger/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS customers (
	id      BIGSERIAL PRIMARY KEY,
	name    VARCHAR(100) NOT NULL,
	balance NUMERIC(99,2) NOT NULL DEFAULT 0 CHECK (balance >= 0)
);
CREATE TABLE IF NOT EXISTS transactions (
	id           BIGSERIAL PRIMARY KEY,
	amount       NUMERIC(99,2) NOT NULL CHECK (amount > 0),
	timestamp    TIMESTAMPTZ NOT NULL DEFAULT now(),
	description  VARCHAR(150),
	sender_id    BIGINT,
	recipient_id BIGINT
);
CREATE INDEX IF NOT EXISTS transactions_sender_idx ON transactions (sender_id);
CREATE INDEX IF NOT EXISTS transactions_recipient_idx ON transactions (recipient_id);
`

// orderClauses is the whitelist of ORDER BY expressions for ListTransactions.
var orderClauses = map[models.TransactionOrder]string{
	models.OrderByID:            "id",
	models.OrderByTimestamp:     "timestamp, id",
	models.OrderByAmount:        "amount, id",
	models.OrderByTimestampDesc: "timestamp DESC, id",
	models.OrderByAmountDesc:    "amount DESC, id",
}

// queryer is the part of *sql.DB and *sql.Tx the store reads through.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type PostgresLedgerStore struct {
	db *sql.DB
}

func NewPostgresLedgerStore(db *sql.DB) *PostgresLedgerStore {
	return &PostgresLedgerStore{
		db: db,
	}
}

// Open connects with the lib/pq driver and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Migrate creates the tables if they do not exist yet.
func (p *PostgresLedgerStore) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (p *PostgresLedgerStore) CreateCustomer(ctx context.Context, name string) (models.Customer, error) {
	const query = `INSERT INTO customers (name) VALUES ($1) RETURNING id, name, balance`

	var c models.Customer
	if err := p.db.QueryRowContext(ctx, query, name).Scan(&c.ID, &c.Name, &c.Balance); err != nil {
		return models.Customer{}, fmt.Errorf("create customer: %w", err)
	}
	return c, nil
}

func (p *PostgresLedgerStore) GetCustomer(ctx context.Context, id int64) (models.Customer, error) {
	return getCustomer(ctx, p.db, id)
}

func getCustomer(ctx context.Context, q queryer, id int64) (models.Customer, error) {
	const query = `SELECT id, name, balance FROM customers WHERE id = $1`

	var c models.Customer
	err := q.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.Name, &c.Balance)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Customer{}, interfaces.ErrCustomerNotFound
	}
	if err != nil {
		return models.Customer{}, fmt.Errorf("get customer %d: %w", id, err)
	}
	return c, nil
}

func (p *PostgresLedgerStore) ListCustomers(ctx context.Context) ([]models.Customer, error) {
	const query = `SELECT id, name, balance FROM customers ORDER BY id`

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	customers := make([]models.Customer, 0)
	for rows.Next() {
		var c models.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Balance); err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}

// RenameCustomer only touches the name column, so it never races a balance update.
func (p *PostgresLedgerStore) RenameCustomer(ctx context.Context, id int64, name string) (models.Customer, error) {
	const query = `UPDATE customers SET name = $2 WHERE id = $1 RETURNING id, name, balance`

	var c models.Customer
	err := p.db.QueryRowContext(ctx, query, id, name).Scan(&c.ID, &c.Name, &c.Balance)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Customer{}, interfaces.ErrCustomerNotFound
	}
	if err != nil {
		return models.Customer{}, fmt.Errorf("rename customer %d: %w", id, err)
	}
	return c, nil
}

func (p *PostgresLedgerStore) DeleteCustomer(ctx context.Context, id int64) error {
	const query = `DELETE FROM customers WHERE id = $1`

	res, err := p.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete customer %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return interfaces.ErrCustomerNotFound
	}
	return nil
}

func (p *PostgresLedgerStore) ListTransactions(ctx context.Context, customerID int64, order models.TransactionOrder) ([]models.Transaction, error) {
	orderBy, ok := orderClauses[order]
	if !ok {
		orderBy = orderClauses[models.OrderByID]
	}
	query := `SELECT id, amount, timestamp, description, sender_id, recipient_id
	FROM transactions WHERE sender_id = $1 OR recipient_id = $1 ORDER BY ` + orderBy

	rows, err := p.db.QueryContext(ctx, query, customerID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	txs := make([]models.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return txs, nil
}

// WithCustomersLocked runs fn inside a database transaction after taking row
// locks on the customers in id order. The deferred Rollback also releases the
// locks when fn panics; after Commit it is a no-op.
func (p *PostgresLedgerStore) WithCustomersLocked(ctx context.Context, ids []int64, fn func(tx interfaces.LedgerTx) error) error {
	dbTx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer dbTx.Rollback()

	const lockQuery = `SELECT id FROM customers WHERE id = ANY($1) ORDER BY id FOR UPDATE`
	rows, err := dbTx.QueryContext(ctx, lockQuery, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("lock customers: %w", err)
	}
	rows.Close()

	if err := fn(&postgresTx{tx: dbTx}); err != nil {
		return err
	}
	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type postgresTx struct {
	tx *sql.Tx
}

func (t *postgresTx) GetCustomer(ctx context.Context, id int64) (models.Customer, error) {
	return getCustomer(ctx, t.tx, id)
}

func (t *postgresTx) UpdateCustomer(ctx context.Context, c models.Customer) error {
	const query = `UPDATE customers SET name = $2, balance = $3 WHERE id = $1`

	res, err := t.tx.ExecContext(ctx, query, c.ID, c.Name, c.Balance)
	if err != nil {
		return fmt.Errorf("update customer %d: %w", c.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return interfaces.ErrCustomerNotFound
	}
	return nil
}

func (t *postgresTx) CreateTransaction(ctx context.Context, tx models.Transaction) (models.Transaction, error) {
	const query = `INSERT INTO transactions (amount, description, sender_id, recipient_id)
	VALUES ($1, $2, $3, $4) RETURNING id, timestamp`

	err := t.tx.QueryRowContext(ctx, query,
		tx.Amount, nullString(tx.Description), nullInt64(tx.SenderID), nullInt64(tx.RecipientID),
	).Scan(&tx.ID, &tx.Timestamp)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	return tx, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s scanner) (models.Transaction, error) {
	var (
		t           models.Transaction
		description sql.NullString
		sender      sql.NullInt64
		recipient   sql.NullInt64
	)
	if err := s.Scan(&t.ID, &t.Amount, &t.Timestamp, &description, &sender, &recipient); err != nil {
		return models.Transaction{}, err
	}
	if description.Valid {
		t.Description = &description.String
	}
	if sender.Valid {
		t.SenderID = &sender.Int64
	}
	if recipient.Valid {
		t.RecipientID = &recipient.Int64
	}
	return t, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

var _ interfaces.LedgerStore = (*PostgresLedgerStore)(nil)
