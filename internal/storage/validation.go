package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tallyhq/tally/internal/common"
	"github.com/tallyhq/tally/internal/model"
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("context cannot be nil")
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("parameter %s cannot be empty", paramName)
	}
	return nil
}

// validateAccount validates an account prior to insertion.
func validateAccount(account *model.Account) error {
	if account == nil {
		return fmt.Errorf("%w: account is nil", common.ErrInvalidAccount)
	}
	if strings.TrimSpace(account.Name) == "" {
		return fmt.Errorf("%w: missing name", common.ErrInvalidAccount)
	}
	switch account.Type {
	case model.AccountChecking, model.AccountSavings, model.AccountCash, model.AccountCredit:
	default:
		return fmt.Errorf("%w: unknown type %q", common.ErrInvalidAccount, account.Type)
	}
	return nil
}

// validateObligation enforces the creation-time rules: required description,
// positive amount, due date not in the past, and a stop condition for
// recurring obligations. Rejection happens before any write.
func validateObligation(obligation *model.Obligation, now time.Time) error {
	if obligation == nil {
		return fmt.Errorf("%w: obligation is nil", common.ErrInvalidObligation)
	}
	if strings.TrimSpace(obligation.Description) == "" {
		return fmt.Errorf("%w: missing description", common.ErrInvalidObligation)
	}
	switch obligation.Kind {
	case model.KindDebt, model.KindReceivable:
	default:
		return fmt.Errorf("%w: unknown kind %q", common.ErrInvalidObligation, obligation.Kind)
	}
	if !obligation.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive, got %s", common.ErrInvalidObligation, obligation.Amount)
	}
	if obligation.DueDate.IsZero() {
		return fmt.Errorf("%w: missing due date", common.ErrInvalidObligation)
	}
	// Date-only comparison: an obligation due today is still valid.
	if dateOnly(obligation.DueDate).Before(dateOnly(now)) && obligation.PredecessorID == "" {
		return fmt.Errorf("%w: due date %s is in the past", common.ErrInvalidObligation, obligation.DueDate.Format("2006-01-02"))
	}
	if obligation.Recurring {
		switch obligation.RecurrencePeriod {
		case model.PeriodWeekly, model.PeriodMonthly, model.PeriodYearly:
		default:
			return fmt.Errorf("%w: unknown recurrence period %q", common.ErrInvalidObligation, obligation.RecurrencePeriod)
		}
		if obligation.MaxOccurrences <= 0 && obligation.RecurrenceEndDate == nil {
			return fmt.Errorf("%w: recurring obligation needs max occurrences or an end date", common.ErrInvalidObligation)
		}
	}
	return nil
}

// validateTransaction validates a ledger entry prior to insertion.
func validateTransaction(txn *model.Transaction) error {
	if txn == nil {
		return fmt.Errorf("invalid transaction: transaction is nil")
	}
	if txn.ID == "" {
		return fmt.Errorf("invalid transaction: missing ID")
	}
	if txn.Date.IsZero() {
		return fmt.Errorf("invalid transaction: missing date")
	}
	if txn.AccountID == "" {
		return fmt.Errorf("invalid transaction: missing account ID")
	}
	if !txn.Amount.IsPositive() {
		return fmt.Errorf("invalid transaction: amount must be positive, got %s", txn.Amount)
	}
	switch txn.Type {
	case model.TypeIncome, model.TypeExpense:
	default:
		return fmt.Errorf("invalid transaction: unknown type %q", txn.Type)
	}
	return nil
}

// dateOnly truncates a timestamp to its calendar date in its own location.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
