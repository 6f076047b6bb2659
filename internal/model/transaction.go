package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType distinguishes money flowing in from money flowing out.
type TransactionType string

// Transaction types.
const (
	TypeIncome  TransactionType = "income"
	TypeExpense TransactionType = "expense"
)

// Transaction represents a single ledger entry against an account.
//
// Within the settlement engine transactions are created only as a side
// effect of settling an obligation; ObligationID links the entry back to
// the obligation that produced it.
type Transaction struct {
	Date         time.Time
	ID           string
	Description  string
	AccountID    string
	ObligationID string
	CategoryID   string
	Type         TransactionType
	Amount       decimal.Decimal // always positive; Type carries the sign
}

// SignedAmount returns the amount with the sign implied by the transaction
// type: positive for income, negative for expense.
func (t *Transaction) SignedAmount() decimal.Decimal {
	if t.Type == TypeExpense {
		return t.Amount.Neg()
	}
	return t.Amount
}
