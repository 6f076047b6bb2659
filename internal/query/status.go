// Package query is the read side of the obligation engine: status
// derivation, period filtering and summary aggregation. Everything here is
// a pure function of stored state, safe to recompute on every read.
package query

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tallyhq/tally/internal/model"
)

// DeriveStatus returns overdue when a pending obligation's due date has
// passed as of the given date, and the stored status otherwise. The
// comparison is date-only: an obligation due today is not overdue, whatever
// the time of day.
func DeriveStatus(o *model.Obligation, asOf time.Time) model.ObligationStatus {
	if o.Status == model.StatusPending && dateOnly(o.DueDate).Before(dateOnly(asOf)) {
		return model.StatusOverdue
	}
	return o.Status
}

// FilterByPeriod returns the obligations whose due date falls within
// [start, end], inclusive on both ends, date-only.
func FilterByPeriod(obligations []model.Obligation, start, end time.Time) []model.Obligation {
	from, to := dateOnly(start), dateOnly(end)
	var out []model.Obligation
	for _, o := range obligations {
		due := dateOnly(o.DueDate)
		if due.Before(from) || due.After(to) {
			continue
		}
		out = append(out, o)
	}
	return out
}

// Totals aggregates obligation amounts partitioned by derived status.
type Totals struct {
	Pending      decimal.Decimal
	Settled      decimal.Decimal
	Overdue      decimal.Decimal
	PendingCount int
	SettledCount int
	OverdueCount int
}

// Total returns the sum over all statuses.
func (t Totals) Total() decimal.Decimal {
	return t.Pending.Add(t.Settled).Add(t.Overdue)
}

// AggregateTotals sums obligation amounts by status as derived at asOf.
func AggregateTotals(obligations []model.Obligation, asOf time.Time) Totals {
	var totals Totals
	for i := range obligations {
		switch DeriveStatus(&obligations[i], asOf) {
		case model.StatusOverdue:
			totals.Overdue = totals.Overdue.Add(obligations[i].Amount)
			totals.OverdueCount++
		case model.StatusSettled:
			totals.Settled = totals.Settled.Add(obligations[i].Amount)
			totals.SettledCount++
		case model.StatusPending:
			totals.Pending = totals.Pending.Add(obligations[i].Amount)
			totals.PendingCount++
		}
	}
	return totals
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
