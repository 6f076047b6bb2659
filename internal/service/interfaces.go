// Package service defines the interfaces and shared contract types for the
// application's services.
package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tallyhq/tally/internal/model"
)

// ObligationFilter defines filtering options for obligation queries.
type ObligationFilter struct {
	Kind      *model.ObligationKind
	Status    *model.ObligationStatus
	DueAfter  *time.Time
	DueBefore *time.Time
	AccountID string
	Limit     int
}

// Storage defines the contract for the persistence layer.
type Storage interface {
	// Account operations. AdjustBalance is the only entry point that
	// mutates a stored balance; it applies the signed delta atomically and
	// returns the new balance.
	CreateAccount(ctx context.Context, account *model.Account) error
	GetAccount(ctx context.Context, id string) (*model.Account, error)
	ListAccounts(ctx context.Context) ([]model.Account, error)
	AdjustBalance(ctx context.Context, accountID string, delta decimal.Decimal) (decimal.Decimal, error)
	RecomputeBalance(ctx context.Context, accountID string, repair bool) (*ReconciliationReport, error)

	// Obligation operations. SettleObligation and ReopenObligation are
	// conditional writes: they succeed only when the stored status matches
	// the expected starting state, so concurrent settles of the same
	// obligation cannot both pass.
	CreateObligation(ctx context.Context, obligation *model.Obligation) error
	GetObligation(ctx context.Context, id string) (*model.Obligation, error)
	ListObligations(ctx context.Context, filter ObligationFilter) ([]model.Obligation, error)
	DeleteObligation(ctx context.Context, id string) error
	SettleObligation(ctx context.Context, id, accountID, transactionID string, settledAt time.Time) error
	ReopenObligation(ctx context.Context, id string) error

	// Transaction (ledger entry) operations.
	CreateTransaction(ctx context.Context, txn *model.Transaction) error
	GetTransaction(ctx context.Context, id string) (*model.Transaction, error)
	ListTransactions(ctx context.Context, accountID string) ([]model.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) error

	// Database management.
	Migrate(ctx context.Context) error
	Close() error
}

// SettlementResult reports the outcome of a settle or unsettle operation.
// Callers use it to decide whether derived views (balances, transaction
// lists, obligation lists) need refreshing.
type SettlementResult struct {
	Status           model.ObligationStatus
	TransactionID    string
	NextOccurrenceID string
	Message          string
	Warning          string // set when recurrence planning failed after a successful settlement
}

// ReconciliationReport compares a stored account balance against the
// balance recomputed from the opening balance plus transaction sums.
type ReconciliationReport struct {
	AccountID       string
	StoredBalance   decimal.Decimal
	ComputedBalance decimal.Decimal
	Drift           decimal.Decimal
	Repaired        bool
}

// InDrift reports whether the stored and computed balances disagree.
func (r *ReconciliationReport) InDrift() bool {
	return !r.Drift.IsZero()
}
