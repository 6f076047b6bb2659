package settlement

import (
	"time"

	"github.com/tallyhq/tally/internal/model"
)

// PlanNext decides whether a just-settled recurring obligation should spawn
// another occurrence. It returns the new occurrence with status pending and
// the predecessor link set, or nil when a recurrence bound has been reached.
//
// Creation-time validation guarantees at least one bound (max occurrences or
// end date) exists; when both are set the recurrence stops at whichever is
// reached first.
func PlanNext(o *model.Obligation) *model.Obligation {
	if !o.Recurring {
		return nil
	}

	nextDue := nextDueDate(o.DueDate, o.RecurrencePeriod)
	nextCount := o.OccurrenceCount + 1

	if o.MaxOccurrences > 0 && nextCount > o.MaxOccurrences {
		return nil
	}
	if o.RecurrenceEndDate != nil && dateOnly(nextDue).After(dateOnly(*o.RecurrenceEndDate)) {
		return nil
	}

	return &model.Obligation{
		Kind:              o.Kind,
		Description:       o.Description,
		Amount:            o.Amount,
		DueDate:           nextDue,
		Status:            model.StatusPending,
		AccountID:         o.AccountID,
		CategoryID:        o.CategoryID,
		PredecessorID:     o.ID,
		Recurring:         true,
		RecurrencePeriod:  o.RecurrencePeriod,
		MaxOccurrences:    o.MaxOccurrences,
		RecurrenceEndDate: o.RecurrenceEndDate,
		OccurrenceCount:   nextCount,
	}
}

// nextDueDate advances a due date by one recurrence period. Monthly and
// yearly steps keep the day of month, clamped to the length of the target
// month (Jan 31 -> Feb 28, Feb 29 -> Feb 28 on non-leap years).
func nextDueDate(due time.Time, period model.RecurrencePeriod) time.Time {
	switch period {
	case model.PeriodWeekly:
		return due.AddDate(0, 0, 7)
	case model.PeriodMonthly:
		return addMonthClamped(due, 1)
	case model.PeriodYearly:
		return addMonthClamped(due, 12)
	default:
		return due
	}
}

func addMonthClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	// Normalize via the first of the target month; AddDate on the 31st
	// would overflow into the following month.
	first := time.Date(year, month+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := daysInMonth(first.Year(), first.Month()); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
