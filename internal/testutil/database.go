// Package testutil provides test helpers for storage-backed tests: an
// in-memory database with migrations applied and seed helpers for accounts
// and obligations.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tallyhq/tally/internal/model"
	"github.com/tallyhq/tally/internal/storage"
)

// TestDB wraps an in-memory storage instance for tests.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
}

// SetupTestDB creates a new in-memory test database with migrations applied
// and cleanup registered.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{Storage: store, t: t}
}

// SeedAccount inserts an account with the given balance and returns it.
func (db *TestDB) SeedAccount(name string, balance decimal.Decimal) *model.Account {
	db.t.Helper()

	account := &model.Account{
		Name:           name,
		Institution:    "Test Bank",
		Type:           model.AccountChecking,
		OpeningBalance: balance,
		Balance:        balance,
	}
	if err := db.Storage.CreateAccount(context.Background(), account); err != nil {
		db.t.Fatalf("failed to seed account %q: %v", name, err)
	}
	return account
}

// SeedObligation inserts a pending obligation due in the future and returns
// it. Callers mutate the returned value before insertion via the configure
// callback.
func (db *TestDB) SeedObligation(kind model.ObligationKind, amount decimal.Decimal, configure func(*model.Obligation)) *model.Obligation {
	db.t.Helper()

	obligation := &model.Obligation{
		Kind:        kind,
		Description: "seeded obligation",
		Amount:      amount,
		DueDate:     time.Now().AddDate(0, 0, 7),
	}
	if configure != nil {
		configure(obligation)
	}
	if err := db.Storage.CreateObligation(context.Background(), obligation); err != nil {
		db.t.Fatalf("failed to seed obligation: %v", err)
	}
	return obligation
}
