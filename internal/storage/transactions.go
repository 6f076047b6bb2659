package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tallyhq/tally/internal/common"
	"github.com/tallyhq/tally/internal/model"
)

// CreateTransaction inserts a single ledger entry.
func (s *SQLiteStorage) CreateTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if txn != nil && txn.ID == "" {
		txn.ID = uuid.NewString()
	}
	if err := validateTransaction(txn); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (id, type, amount, date, description, account_id, obligation_id, category_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		txn.ID,
		string(txn.Type),
		txn.Amount.String(),
		txn.Date,
		txn.Description,
		txn.AccountID,
		nullString(txn.ObligationID),
		nullString(txn.CategoryID),
	)
	if err != nil {
		return fmt.Errorf("%w: failed to insert transaction %s: %v", common.ErrPersistenceFailure, txn.ID, err)
	}
	return nil
}

// GetTransaction retrieves a ledger entry by ID.
func (s *SQLiteStorage) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, type, amount, date, description, account_id, obligation_id, category_id
		FROM transactions WHERE id = ?
	`, id)

	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", common.ErrTransactionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction %s: %w", id, err)
	}
	return txn, nil
}

// ListTransactions returns all ledger entries for one account, oldest first.
func (s *SQLiteStorage) ListTransactions(ctx context.Context, accountID string) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(accountID, "accountID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, amount, date, description, account_id, obligation_id, category_id
		FROM transactions WHERE account_id = ? ORDER BY date ASC, created_at ASC
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var txns []model.Transaction
	for rows.Next() {
		txn, scanErr := scanTransaction(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", scanErr)
		}
		txns = append(txns, *txn)
	}
	return txns, rows.Err()
}

// DeleteTransaction removes a ledger entry. Deleting a missing entry is an
// error so compensation code can tell a no-op from success.
func (s *SQLiteStorage) DeleteTransaction(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%w: failed to delete transaction %s: %v", common.ErrPersistenceFailure, id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", common.ErrTransactionNotFound, id)
	}
	return nil
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var (
		txn          model.Transaction
		txnType      string
		amount       string
		description  sql.NullString
		obligationID sql.NullString
		categoryID   sql.NullString
	)
	err := row.Scan(&txn.ID, &txnType, &amount, &txn.Date, &description, &txn.AccountID, &obligationID, &categoryID)
	if err != nil {
		return nil, err
	}
	txn.Type = model.TransactionType(txnType)
	txn.Description = description.String
	txn.ObligationID = obligationID.String
	txn.CategoryID = categoryID.String

	if txn.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("corrupt amount %q: %w", amount, err)
	}
	return &txn, nil
}
