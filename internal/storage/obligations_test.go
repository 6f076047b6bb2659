package storage

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallyhq/tally/internal/common"
	"github.com/tallyhq/tally/internal/model"
	"github.com/tallyhq/tally/internal/service"
)

func seedObligation(t *testing.T, store *SQLiteStorage, configure func(*model.Obligation)) *model.Obligation {
	t.Helper()

	obligation := &model.Obligation{
		Kind:        model.KindDebt,
		Description: "test obligation",
		Amount:      decimal.RequireFromString("50.00"),
		DueDate:     time.Now().AddDate(0, 0, 14),
	}
	if configure != nil {
		configure(obligation)
	}
	require.NoError(t, store.CreateObligation(context.Background(), obligation))
	return obligation
}

func TestCreateObligation_Validation(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	future := time.Now().AddDate(0, 1, 0)

	tests := []struct {
		name       string
		obligation model.Obligation
	}{
		{
			name: "missing description",
			obligation: model.Obligation{
				Kind:    model.KindDebt,
				Amount:  decimal.NewFromInt(10),
				DueDate: future,
			},
		},
		{
			name: "non-positive amount",
			obligation: model.Obligation{
				Kind:        model.KindDebt,
				Description: "zero",
				Amount:      decimal.Zero,
				DueDate:     future,
			},
		},
		{
			name: "negative amount",
			obligation: model.Obligation{
				Kind:        model.KindReceivable,
				Description: "negative",
				Amount:      decimal.NewFromInt(-5),
				DueDate:     future,
			},
		},
		{
			name: "due date in the past",
			obligation: model.Obligation{
				Kind:        model.KindDebt,
				Description: "stale",
				Amount:      decimal.NewFromInt(10),
				DueDate:     time.Now().AddDate(0, 0, -2),
			},
		},
		{
			name: "unknown kind",
			obligation: model.Obligation{
				Kind:        "loan",
				Description: "mystery",
				Amount:      decimal.NewFromInt(10),
				DueDate:     future,
			},
		},
		{
			name: "recurring without a stop condition",
			obligation: model.Obligation{
				Kind:             model.KindDebt,
				Description:      "forever",
				Amount:           decimal.NewFromInt(10),
				DueDate:          future,
				Recurring:        true,
				RecurrencePeriod: model.PeriodMonthly,
			},
		},
		{
			name: "recurring with unknown period",
			obligation: model.Obligation{
				Kind:             model.KindDebt,
				Description:      "odd cadence",
				Amount:           decimal.NewFromInt(10),
				DueDate:          future,
				Recurring:        true,
				RecurrencePeriod: "fortnightly",
				MaxOccurrences:   2,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := tt.obligation
			err := store.CreateObligation(ctx, &o)
			require.ErrorIs(t, err, common.ErrInvalidObligation)
		})
	}

	t.Run("spawned occurrence may carry a past due date", func(t *testing.T) {
		o := model.Obligation{
			Kind:          model.KindDebt,
			Description:   "late occurrence",
			Amount:        decimal.NewFromInt(10),
			DueDate:       time.Now().AddDate(0, 0, -3),
			PredecessorID: "obl-prior",
		}
		require.NoError(t, store.CreateObligation(ctx, &o))
	})
}

func TestObligation_RoundTrip(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	end := time.Now().AddDate(1, 0, 0)
	obligation := seedObligation(t, store, func(o *model.Obligation) {
		o.Kind = model.KindReceivable
		o.CategoryID = "cat-1"
		o.Recurring = true
		o.RecurrencePeriod = model.PeriodMonthly
		o.MaxOccurrences = 6
		o.RecurrenceEndDate = &end
	})

	got, err := store.GetObligation(ctx, obligation.ID)
	require.NoError(t, err)
	assert.Equal(t, model.KindReceivable, got.Kind)
	assert.Equal(t, model.StatusPending, got.Status)
	assert.Equal(t, "cat-1", got.CategoryID)
	assert.True(t, got.Recurring)
	assert.Equal(t, model.PeriodMonthly, got.RecurrencePeriod)
	assert.Equal(t, 6, got.MaxOccurrences)
	require.NotNil(t, got.RecurrenceEndDate)
	assert.Equal(t, end.Format("2006-01-02"), got.RecurrenceEndDate.Format("2006-01-02"))
	assert.Equal(t, 1, got.OccurrenceCount)
	assert.True(t, got.Amount.Equal(obligation.Amount))
}

func TestListObligations_Filters(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	nearDue := time.Now().AddDate(0, 0, 3)
	farDue := time.Now().AddDate(0, 2, 0)

	debt := seedObligation(t, store, func(o *model.Obligation) {
		o.DueDate = nearDue
		o.AccountID = "acc-1"
	})
	receivable := seedObligation(t, store, func(o *model.Obligation) {
		o.Kind = model.KindReceivable
		o.DueDate = farDue
	})

	t.Run("by kind", func(t *testing.T) {
		kind := model.KindDebt
		got, err := store.ListObligations(ctx, service.ObligationFilter{Kind: &kind})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, debt.ID, got[0].ID)
	})

	t.Run("by due window", func(t *testing.T) {
		after := time.Now().AddDate(0, 1, 0)
		got, err := store.ListObligations(ctx, service.ObligationFilter{DueAfter: &after})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, receivable.ID, got[0].ID)
	})

	t.Run("by account", func(t *testing.T) {
		got, err := store.ListObligations(ctx, service.ObligationFilter{AccountID: "acc-1"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, debt.ID, got[0].ID)
	})

	t.Run("ordered by due date", func(t *testing.T) {
		got, err := store.ListObligations(ctx, service.ObligationFilter{})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, debt.ID, got[0].ID)
		assert.Equal(t, receivable.ID, got[1].ID)
	})
}

func TestSettleObligation_ConditionalWrite(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	obligation := seedObligation(t, store, nil)

	err := store.SettleObligation(ctx, obligation.ID, "acc-1", "txn-1", time.Now())
	require.NoError(t, err)

	got, err := store.GetObligation(ctx, obligation.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSettled, got.Status)
	assert.Equal(t, "acc-1", got.AccountID)
	assert.Equal(t, "txn-1", got.TransactionID)
	require.NotNil(t, got.SettledAt)

	// A second settle finds the row in the wrong state.
	err = store.SettleObligation(ctx, obligation.ID, "acc-1", "txn-2", time.Now())
	require.ErrorIs(t, err, common.ErrInvalidStateTransition)

	err = store.SettleObligation(ctx, "missing", "acc-1", "txn-1", time.Now())
	require.ErrorIs(t, err, common.ErrObligationNotFound)
}

func TestReopenObligation_ConditionalWrite(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	obligation := seedObligation(t, store, nil)

	// Reopening a pending obligation is a state error.
	err := store.ReopenObligation(ctx, obligation.ID)
	require.ErrorIs(t, err, common.ErrInvalidStateTransition)

	require.NoError(t, store.SettleObligation(ctx, obligation.ID, "acc-1", "txn-1", time.Now()))
	require.NoError(t, store.ReopenObligation(ctx, obligation.ID))

	got, err := store.GetObligation(ctx, obligation.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, got.Status)
	assert.Empty(t, got.TransactionID)
	assert.Nil(t, got.SettledAt)
}

func TestDeleteObligation(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	obligation := seedObligation(t, store, nil)

	require.NoError(t, store.DeleteObligation(ctx, obligation.ID))

	_, err := store.GetObligation(ctx, obligation.ID)
	require.ErrorIs(t, err, common.ErrObligationNotFound)

	err = store.DeleteObligation(ctx, obligation.ID)
	require.ErrorIs(t, err, common.ErrObligationNotFound)
}

func TestTransactions_RoundTrip(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	account := seedAccount(t, store, "0")

	txn := &model.Transaction{
		Type:         model.TypeExpense,
		Amount:       decimal.RequireFromString("19.99"),
		Date:         time.Now(),
		Description:  "Payment: water bill",
		AccountID:    account.ID,
		ObligationID: "obl-1",
	}
	require.NoError(t, store.CreateTransaction(ctx, txn))
	require.NotEmpty(t, txn.ID)

	got, err := store.GetTransaction(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TypeExpense, got.Type)
	assert.Equal(t, "obl-1", got.ObligationID)
	assert.True(t, got.Amount.Equal(txn.Amount))

	listed, err := store.ListTransactions(ctx, account.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	require.NoError(t, store.DeleteTransaction(ctx, txn.ID))
	err = store.DeleteTransaction(ctx, txn.ID)
	require.ErrorIs(t, err, common.ErrTransactionNotFound)
}
