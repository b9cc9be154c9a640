package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/sheikh-saqib/balance-ledger/internal/storage/gormstore"
	"github.com/sheikh-saqib/balance-ledger/internal/storage/memory"
)

func TestOpenMemoryByDefault(t *testing.T) {
	store, closeFn, err := Open(context.Background(), Config{}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.IsType(t, &memory.MemoryLedgerStore{}, store)
	assert.NoError(t, closeFn())
}

func TestOpenSQLiteMigrates(t *testing.T) {
	ctx := context.Background()
	store, closeFn, err := Open(ctx, Config{
		Driver:  DriverSQLite,
		DSN:     "file:open_test?mode=memory&cache=shared",
		Migrate: true,
		Gorm:    gormstore.Config{LogLevel: "silent"},
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer closeFn()

	c, err := store.CreateCustomer(ctx, "Den")
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.ID)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, _, err := Open(context.Background(), Config{Driver: "oracle"}, zaptest.NewLogger(t))
	assert.ErrorContains(t, err, `unknown store driver "oracle"`)
}
