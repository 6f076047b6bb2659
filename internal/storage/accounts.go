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

// CreateAccount inserts a new account. The balance starts at the opening
// balance; a missing ID is filled in.
func (s *SQLiteStorage) CreateAccount(ctx context.Context, account *model.Account) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateAccount(account); err != nil {
		return err
	}

	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	if account.Balance.IsZero() && !account.OpeningBalance.IsZero() {
		account.Balance = account.OpeningBalance
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, name, institution, type, opening_balance, balance, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		account.ID,
		account.Name,
		account.Institution,
		string(account.Type),
		account.OpeningBalance.String(),
		account.Balance.String(),
		account.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert account %s: %w", account.ID, err)
	}
	return nil
}

// GetAccount retrieves an account by ID.
func (s *SQLiteStorage) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return s.getAccountTx(ctx, s.db, id)
}

func (s *SQLiteStorage) getAccountTx(ctx context.Context, q queryable, id string) (*model.Account, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, name, institution, type, opening_balance, balance, created_at
		FROM accounts WHERE id = ?
	`, id)

	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", common.ErrAccountNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account %s: %w", id, err)
	}
	return account, nil
}

// ListAccounts returns all accounts ordered by name.
func (s *SQLiteStorage) ListAccounts(ctx context.Context) ([]model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, institution, type, opening_balance, balance, created_at
		FROM accounts ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var accounts []model.Account
	for rows.Next() {
		account, scanErr := scanAccount(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan account: %w", scanErr)
		}
		accounts = append(accounts, *account)
	}
	return accounts, rows.Err()
}

// AdjustBalance applies a signed delta to one account's stored balance and
// returns the new value. The read and write happen inside a single database
// transaction on a single-connection pool, so two concurrent adjustments of
// the same account cannot interleave and lose an update.
func (s *SQLiteStorage) AdjustBalance(ctx context.Context, accountID string, delta decimal.Decimal) (decimal.Decimal, error) {
	if err := validateContext(ctx); err != nil {
		return decimal.Zero, err
	}
	if err := validateString(accountID, "accountID"); err != nil {
		return decimal.Zero, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var raw string
	err = tx.QueryRowContext(ctx, `SELECT balance FROM accounts WHERE id = ?`, accountID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("%w: %s", common.ErrAccountNotFound, accountID)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read balance for account %s: %w", accountID, err)
	}

	balance, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("corrupt balance %q for account %s: %w", raw, accountID, err)
	}

	newBalance := balance.Add(delta)
	if _, err := tx.ExecContext(ctx, `UPDATE accounts SET balance = ? WHERE id = ?`, newBalance.String(), accountID); err != nil {
		return decimal.Zero, fmt.Errorf("failed to write balance for account %s: %w", accountID, err)
	}

	if err := tx.Commit(); err != nil {
		return decimal.Zero, fmt.Errorf("failed to commit balance adjustment: %w", err)
	}
	return newBalance, nil
}

// RecomputeBalance recomputes an account's balance from its opening balance
// plus the signed sum of its transactions, and compares it with the stored
// value. With repair set, the stored balance is overwritten with the
// computed one. This is the supported drift-repair operation.
func (s *SQLiteStorage) RecomputeBalance(ctx context.Context, accountID string, repair bool) (*service.ReconciliationReport, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(accountID, "accountID"); err != nil {
		return nil, err
	}

	account, err := s.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	txns, err := s.ListTransactions(ctx, accountID)
	if err != nil {
		return nil, err
	}

	computed := account.OpeningBalance
	for i := range txns {
		computed = computed.Add(txns[i].SignedAmount())
	}

	report := &service.ReconciliationReport{
		AccountID:       accountID,
		StoredBalance:   account.Balance,
		ComputedBalance: computed,
		Drift:           account.Balance.Sub(computed),
	}

	if repair && report.InDrift() {
		if _, err := s.db.ExecContext(ctx, `UPDATE accounts SET balance = ? WHERE id = ?`, computed.String(), accountID); err != nil {
			return nil, fmt.Errorf("failed to repair balance for account %s: %w", accountID, err)
		}
		report.Repaired = true
	}
	return report, nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*model.Account, error) {
	var (
		account     model.Account
		accountType string
		opening     string
		balance     string
		institution sql.NullString
	)
	if err := row.Scan(&account.ID, &account.Name, &institution, &accountType, &opening, &balance, &account.CreatedAt); err != nil {
		return nil, err
	}
	account.Institution = institution.String
	account.Type = model.AccountType(accountType)

	var err error
	if account.OpeningBalance, err = decimal.NewFromString(opening); err != nil {
		return nil, fmt.Errorf("corrupt opening balance %q: %w", opening, err)
	}
	if account.Balance, err = decimal.NewFromString(balance); err != nil {
		return nil, fmt.Errorf("corrupt balance %q: %w", balance, err)
	}
	return &account, nil
}
