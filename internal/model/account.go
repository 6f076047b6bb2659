// Package model defines the core domain types shared across the application.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType identifies the kind of account.
type AccountType string

// Supported account types.
const (
	AccountChecking AccountType = "checking"
	AccountSavings  AccountType = "savings"
	AccountCash     AccountType = "cash"
	AccountCredit   AccountType = "credit"
)

// Account represents a single financial account owned by the user.
//
// Balance is a cached projection: it must always equal OpeningBalance plus
// the signed sum of all settled transactions referencing the account. Only
// the storage layer's AdjustBalance entry point may mutate it.
type Account struct {
	CreatedAt      time.Time
	ID             string
	Name           string
	Institution    string
	Type           AccountType
	OpeningBalance decimal.Decimal
	Balance        decimal.Decimal
}
