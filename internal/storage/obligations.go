package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tallyhq/tally/internal/common"
	"github.com/tallyhq/tally/internal/model"
	"github.com/tallyhq/tally/internal/service"
)

const obligationColumns = `id, kind, description, amount, due_date, status,
	account_id, category_id, transaction_id, predecessor_id,
	recurring, recurrence_period, max_occurrences, recurrence_end_date,
	occurrence_count, settled_at, created_at`

// CreateObligation validates and inserts a new obligation. Obligations
// spawned by the recurrence planner carry a predecessor ID and skip the
// past-due-date check.
func (s *SQLiteStorage) CreateObligation(ctx context.Context, obligation *model.Obligation) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateObligation(obligation, time.Now()); err != nil {
		return err
	}

	if obligation.ID == "" {
		obligation.ID = uuid.NewString()
	}
	if obligation.Status == "" {
		obligation.Status = model.StatusPending
	}
	if obligation.OccurrenceCount == 0 {
		obligation.OccurrenceCount = 1
	}
	if obligation.CreatedAt.IsZero() {
		obligation.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO obligations (`+obligationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		obligation.ID,
		string(obligation.Kind),
		obligation.Description,
		obligation.Amount.String(),
		obligation.DueDate,
		string(obligation.Status),
		nullString(obligation.AccountID),
		nullString(obligation.CategoryID),
		nullString(obligation.TransactionID),
		nullString(obligation.PredecessorID),
		obligation.Recurring,
		nullString(string(obligation.RecurrencePeriod)),
		obligation.MaxOccurrences,
		nullTime(obligation.RecurrenceEndDate),
		obligation.OccurrenceCount,
		nullTime(obligation.SettledAt),
		obligation.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert obligation %s: %w", obligation.ID, err)
	}
	return nil
}

// GetObligation retrieves an obligation by ID.
func (s *SQLiteStorage) GetObligation(ctx context.Context, id string) (*model.Obligation, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+obligationColumns+` FROM obligations WHERE id = ?`, id)
	obligation, err := scanObligation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", common.ErrObligationNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get obligation %s: %w", id, err)
	}
	return obligation, nil
}

// ListObligations returns obligations matching the filter, ordered by due
// date.
func (s *SQLiteStorage) ListObligations(ctx context.Context, filter service.ObligationFilter) ([]model.Obligation, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT ` + obligationColumns + ` FROM obligations WHERE 1=1`
	args := []any{}

	if filter.Kind != nil {
		query += ` AND kind = ?`
		args = append(args, string(*filter.Kind))
	}
	if filter.Status != nil {
		query += ` AND status = ?`
		args = append(args, string(*filter.Status))
	}
	if filter.DueAfter != nil {
		query += ` AND due_date >= ?`
		args = append(args, *filter.DueAfter)
	}
	if filter.DueBefore != nil {
		query += ` AND due_date <= ?`
		args = append(args, *filter.DueBefore)
	}
	if filter.AccountID != "" {
		query += ` AND account_id = ?`
		args = append(args, filter.AccountID)
	}
	query += ` ORDER BY due_date ASC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query obligations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var obligations []model.Obligation
	for rows.Next() {
		obligation, scanErr := scanObligation(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan obligation: %w", scanErr)
		}
		obligations = append(obligations, *obligation)
	}
	return obligations, rows.Err()
}

// DeleteObligation removes an obligation at any status. The linked
// transaction, if any, is left in place; unsettle first to remove it.
func (s *SQLiteStorage) DeleteObligation(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM obligations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete obligation %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", common.ErrObligationNotFound, id)
	}
	return nil
}

// SettleObligation marks an obligation settled, recording the resolved
// account, the linked transaction and the settlement time. The write is
// conditional on the stored status still being pending, so of two racing
// settles exactly one can pass.
func (s *SQLiteStorage) SettleObligation(ctx context.Context, id, accountID, transactionID string, settledAt time.Time) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE obligations
		SET status = ?, account_id = ?, transaction_id = ?, settled_at = ?
		WHERE id = ? AND status = ?
	`, string(model.StatusSettled), accountID, transactionID, settledAt, id, string(model.StatusPending))
	if err != nil {
		return fmt.Errorf("%w: failed to settle obligation %s: %v", common.ErrPersistenceFailure, id, err)
	}
	return s.checkConditionalWrite(ctx, res, id)
}

// ReopenObligation reverts a settled obligation to pending, clearing the
// transaction link and settlement time. Conditional on status == settled.
func (s *SQLiteStorage) ReopenObligation(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE obligations
		SET status = ?, transaction_id = NULL, settled_at = NULL
		WHERE id = ? AND status = ?
	`, string(model.StatusPending), id, string(model.StatusSettled))
	if err != nil {
		return fmt.Errorf("%w: failed to reopen obligation %s: %v", common.ErrPersistenceFailure, id, err)
	}
	return s.checkConditionalWrite(ctx, res, id)
}

// checkConditionalWrite distinguishes "row missing" from "row in the wrong
// state" when a guarded status update touched nothing.
func (s *SQLiteStorage) checkConditionalWrite(ctx context.Context, res sql.Result, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 1 {
		return nil
	}

	var exists int
	err = s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM obligations WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check obligation %s: %w", id, err)
	}
	if exists == 0 {
		return fmt.Errorf("%w: %s", common.ErrObligationNotFound, id)
	}
	return fmt.Errorf("%w: obligation %s", common.ErrInvalidStateTransition, id)
}

func scanObligation(row rowScanner) (*model.Obligation, error) {
	var (
		o                 model.Obligation
		kind, status      string
		amount            string
		accountID         sql.NullString
		categoryID        sql.NullString
		transactionID     sql.NullString
		predecessorID     sql.NullString
		recurrencePeriod  sql.NullString
		recurrenceEndDate sql.NullTime
		settledAt         sql.NullTime
	)
	err := row.Scan(
		&o.ID, &kind, &o.Description, &amount, &o.DueDate, &status,
		&accountID, &categoryID, &transactionID, &predecessorID,
		&o.Recurring, &recurrencePeriod, &o.MaxOccurrences, &recurrenceEndDate,
		&o.OccurrenceCount, &settledAt, &o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	o.Kind = model.ObligationKind(kind)
	o.Status = model.ObligationStatus(status)
	o.AccountID = accountID.String
	o.CategoryID = categoryID.String
	o.TransactionID = transactionID.String
	o.PredecessorID = predecessorID.String
	o.RecurrencePeriod = model.RecurrencePeriod(recurrencePeriod.String)
	if recurrenceEndDate.Valid {
		end := recurrenceEndDate.Time
		o.RecurrenceEndDate = &end
	}
	if settledAt.Valid {
		at := settledAt.Time
		o.SettledAt = &at
	}

	if o.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("corrupt amount %q: %w", amount, err)
	}
	return &o, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
