package model

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestObligation_SettlementEffects(t *testing.T) {
	amount := decimal.RequireFromString("150.00")

	tests := []struct {
		name      string
		kind      ObligationKind
		wantType  TransactionType
		wantDelta decimal.Decimal
	}{
		{
			name:      "debt records an expense and decreases the balance",
			kind:      KindDebt,
			wantType:  TypeExpense,
			wantDelta: amount.Neg(),
		},
		{
			name:      "receivable records income and increases the balance",
			kind:      KindReceivable,
			wantType:  TypeIncome,
			wantDelta: amount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := &Obligation{Kind: tt.kind, Amount: amount}
			if got := o.TransactionType(); got != tt.wantType {
				t.Errorf("TransactionType() = %v, want %v", got, tt.wantType)
			}
			if got := o.BalanceDelta(); !got.Equal(tt.wantDelta) {
				t.Errorf("BalanceDelta() = %s, want %s", got, tt.wantDelta)
			}
		})
	}
}

func TestTransaction_SignedAmount(t *testing.T) {
	amount := decimal.RequireFromString("42.50")

	expense := &Transaction{Type: TypeExpense, Amount: amount}
	if got := expense.SignedAmount(); !got.Equal(amount.Neg()) {
		t.Errorf("expense SignedAmount() = %s, want %s", got, amount.Neg())
	}

	income := &Transaction{Type: TypeIncome, Amount: amount}
	if got := income.SignedAmount(); !got.Equal(amount) {
		t.Errorf("income SignedAmount() = %s, want %s", got, amount)
	}
}
