package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ObligationKind tags an obligation as a debt (money owed by the user) or a
// receivable (money owed to the user). The two are structurally identical;
// the kind determines the sign of the balance delta and the ledger entry
// type produced on settlement.
type ObligationKind string

// Obligation kinds.
const (
	KindDebt       ObligationKind = "debt"
	KindReceivable ObligationKind = "receivable"
)

// ObligationStatus is the stored lifecycle state of an obligation.
//
// Overdue is never stored: it is derived at read time from the due date and
// is a label over pending. Only pending and settled are reachable by the
// settlement state machine.
type ObligationStatus string

// Obligation statuses.
const (
	StatusPending ObligationStatus = "pending"
	StatusSettled ObligationStatus = "settled"
	StatusOverdue ObligationStatus = "overdue"
)

// RecurrencePeriod is the interval between occurrences of a recurring
// obligation.
type RecurrencePeriod string

// Recurrence periods.
const (
	PeriodWeekly  RecurrencePeriod = "weekly"
	PeriodMonthly RecurrencePeriod = "monthly"
	PeriodYearly  RecurrencePeriod = "yearly"
)

// Obligation represents a scheduled debt or receivable.
type Obligation struct {
	DueDate           time.Time
	CreatedAt         time.Time
	SettledAt         *time.Time
	RecurrenceEndDate *time.Time
	ID                string
	Description       string
	AccountID         string // optional; may be supplied at settlement time
	CategoryID        string
	TransactionID     string // set while settled, cleared on unsettle
	PredecessorID     string // occurrence this one was spawned from
	Kind              ObligationKind
	Status            ObligationStatus
	RecurrencePeriod  RecurrencePeriod
	Amount            decimal.Decimal // always positive
	MaxOccurrences    int             // 0 = unbounded by count
	OccurrenceCount   int
	Recurring         bool
}

// TransactionType returns the ledger entry type a settlement of this
// obligation produces: settling a debt records an expense, settling a
// receivable records income.
func (o *Obligation) TransactionType() TransactionType {
	if o.Kind == KindReceivable {
		return TypeIncome
	}
	return TypeExpense
}

// BalanceDelta returns the signed change to the linked account's balance
// when this obligation is settled.
func (o *Obligation) BalanceDelta() decimal.Decimal {
	if o.Kind == KindReceivable {
		return o.Amount
	}
	return o.Amount.Neg()
}
