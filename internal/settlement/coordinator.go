// Package settlement implements the obligation settlement engine: the state
// machine that moves a scheduled debt or receivable between pending and
// settled while keeping the ledger, the account balance and the obligation
// row in agreement.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tallyhq/tally/internal/common"
	"github.com/tallyhq/tally/internal/model"
	"github.com/tallyhq/tally/internal/service"
)

// Coordinator orchestrates settle and unsettle requests. Each operation is
// a compensated sequence: a ledger entry, a balance adjustment and a status
// write either all land or are all rolled back.
type Coordinator struct {
	storage service.Storage
	now     func() time.Time
	locks   *obligationLocks
	retry   common.RetryOptions
}

// Config holds configuration options for the coordinator.
type Config struct {
	// Now supplies the current time; tests inject a fixed clock.
	Now func() time.Time
	// Retry configures the deferred persist of spawned recurrences.
	Retry common.RetryOptions
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Now: time.Now,
		Retry: common.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 50 * time.Millisecond,
			MaxDelay:     time.Second,
		},
	}
}

// New creates a coordinator with the default configuration.
func New(storage service.Storage) *Coordinator {
	return NewWithConfig(storage, DefaultConfig())
}

// NewWithConfig creates a coordinator with custom configuration.
func NewWithConfig(storage service.Storage, config Config) *Coordinator {
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Coordinator{
		storage: storage,
		now:     config.Now,
		locks:   newObligationLocks(),
		retry:   config.Retry,
	}
}

// Settle marks a pending obligation as paid (debt) or received
// (receivable): it writes the ledger entry, adjusts the account balance,
// flips the obligation to settled and, for recurring obligations, spawns
// the next occurrence.
//
// accountID may be empty when the obligation already carries a linked
// account. If neither is present, Settle returns common.ErrAccountRequired,
// which is recoverable: supply an account and retry.
func (c *Coordinator) Settle(ctx context.Context, obligationID, accountID string) (*service.SettlementResult, error) {
	release := c.locks.acquire(obligationID)
	defer release()

	obligation, err := c.storage.GetObligation(ctx, obligationID)
	if err != nil {
		return nil, err
	}
	if obligation.Status != model.StatusPending {
		return nil, fmt.Errorf("%w: obligation %s is %s, expected %s",
			common.ErrInvalidStateTransition, obligationID, obligation.Status, model.StatusPending)
	}

	resolvedAccount := obligation.AccountID
	if accountID != "" {
		resolvedAccount = accountID
	}
	if resolvedAccount == "" {
		return nil, fmt.Errorf("%w: obligation %s", common.ErrAccountRequired, obligationID)
	}
	// Fail on a missing account before any write happens.
	if _, err := c.storage.GetAccount(ctx, resolvedAccount); err != nil {
		return nil, err
	}

	var comp compensation

	txn := &model.Transaction{
		Type:         obligation.TransactionType(),
		Amount:       obligation.Amount,
		Date:         obligation.DueDate,
		Description:  settlementDescription(obligation),
		AccountID:    resolvedAccount,
		ObligationID: obligation.ID,
		CategoryID:   obligation.CategoryID,
	}
	if err := c.storage.CreateTransaction(ctx, txn); err != nil {
		return nil, err
	}
	comp.push("delete settlement transaction", func() error {
		return c.storage.DeleteTransaction(ctx, txn.ID)
	})

	delta := obligation.BalanceDelta()
	if _, err := c.storage.AdjustBalance(ctx, resolvedAccount, delta); err != nil {
		return nil, comp.unwind(err)
	}
	comp.push("reverse balance adjustment", func() error {
		_, undoErr := c.storage.AdjustBalance(ctx, resolvedAccount, delta.Neg())
		return undoErr
	})

	settledAt := c.now()
	if err := c.storage.SettleObligation(ctx, obligation.ID, resolvedAccount, txn.ID, settledAt); err != nil {
		return nil, comp.unwind(err)
	}

	slog.Info("Obligation settled",
		"obligation_id", obligation.ID,
		"kind", obligation.Kind,
		"amount", obligation.Amount,
		"account_id", resolvedAccount,
		"transaction_id", txn.ID)

	result := &service.SettlementResult{
		Status:        model.StatusSettled,
		TransactionID: txn.ID,
		Message:       fmt.Sprintf("%s %q settled for %s", obligation.Kind, obligation.Description, obligation.Amount),
	}

	// The settlement's own invariants are satisfied at this point, so a
	// recurrence failure is reported as a warning, never rolled back.
	if obligation.Recurring {
		c.spawnNextOccurrence(ctx, obligation, result)
	}
	return result, nil
}

// Unsettle reverts a settled obligation to pending: it reverses the balance
// delta, reopens the obligation and removes the linked ledger entry.
//
// The transaction is deleted last so that a failure partway through can be
// compensated without having to recreate it; the visible outcome stays
// all-or-nothing. A recurrence instance already spawned by the prior settle
// is left alone and becomes an independent obligation.
func (c *Coordinator) Unsettle(ctx context.Context, obligationID string) (*service.SettlementResult, error) {
	release := c.locks.acquire(obligationID)
	defer release()

	obligation, err := c.storage.GetObligation(ctx, obligationID)
	if err != nil {
		return nil, err
	}
	if obligation.Status != model.StatusSettled {
		return nil, fmt.Errorf("%w: obligation %s is %s, expected %s",
			common.ErrInvalidStateTransition, obligationID, obligation.Status, model.StatusSettled)
	}
	if obligation.TransactionID == "" || obligation.AccountID == "" {
		return nil, fmt.Errorf("%w: obligation %s is settled without a linked transaction",
			common.ErrPersistenceFailure, obligationID)
	}

	var comp compensation

	delta := obligation.BalanceDelta()
	if _, err := c.storage.AdjustBalance(ctx, obligation.AccountID, delta.Neg()); err != nil {
		return nil, err
	}
	comp.push("re-apply balance adjustment", func() error {
		_, undoErr := c.storage.AdjustBalance(ctx, obligation.AccountID, delta)
		return undoErr
	})

	if err := c.storage.ReopenObligation(ctx, obligation.ID); err != nil {
		return nil, comp.unwind(err)
	}
	settledAt := obligation.SettledAt
	comp.push("re-settle obligation", func() error {
		at := c.now()
		if settledAt != nil {
			at = *settledAt
		}
		return c.storage.SettleObligation(ctx, obligation.ID, obligation.AccountID, obligation.TransactionID, at)
	})

	if err := c.storage.DeleteTransaction(ctx, obligation.TransactionID); err != nil {
		// A vanished transaction means the invariant was already broken
		// before this call; reopening is still the right outcome.
		if errors.Is(err, common.ErrTransactionNotFound) {
			common.LogWarn("Settled obligation had no ledger entry to delete",
				common.Fields{"obligation_id": obligation.ID, "transaction_id": obligation.TransactionID})
		} else {
			return nil, comp.unwind(err)
		}
	}

	slog.Info("Obligation unsettled",
		"obligation_id", obligation.ID,
		"kind", obligation.Kind,
		"amount", obligation.Amount,
		"account_id", obligation.AccountID)

	return &service.SettlementResult{
		Status:  model.StatusPending,
		Message: fmt.Sprintf("%s %q reverted to pending", obligation.Kind, obligation.Description),
	}, nil
}

// spawnNextOccurrence plans and persists the next occurrence of a recurring
// obligation. The write is independent of the settlement's invariants, so
// it is retried with backoff and reported as a warning on failure.
func (c *Coordinator) spawnNextOccurrence(ctx context.Context, obligation *model.Obligation, result *service.SettlementResult) {
	next := PlanNext(obligation)
	if next == nil {
		return
	}

	err := common.WithRetry(ctx, func() error {
		return c.storage.CreateObligation(ctx, next)
	}, c.retry)
	if err != nil {
		common.LogError(err, "Failed to create next recurrence occurrence",
			common.Fields{"obligation_id": obligation.ID, "due_date": next.DueDate})
		result.Warning = fmt.Sprintf("settled, but the next occurrence could not be created: %v", err)
		return
	}

	slog.Info("Spawned next recurrence occurrence",
		"obligation_id", obligation.ID,
		"next_id", next.ID,
		"due_date", next.DueDate,
		"occurrence", next.OccurrenceCount)
	result.NextOccurrenceID = next.ID
}

func settlementDescription(o *model.Obligation) string {
	if o.Kind == model.KindReceivable {
		return fmt.Sprintf("Received: %s", o.Description)
	}
	return fmt.Sprintf("Payment: %s", o.Description)
}
