package repository

import (
	"errors"
	"testing"
	"time"
)

func TestSplitSpend(t *testing.T) {
	future := time.Now().Add(time.Hour)
	past := time.Now().Add(-time.Hour)

	cases := []struct {
		name      string
		balance   int64
		bonus     int64
		expiresAt *time.Time
		cost      int64
		bonusUsed int64
		cashUsed  int64
		err       error
	}{
		{name: "bonus covers all", balance: 0, bonus: 500_00, expiresAt: &future, cost: 300_00, bonusUsed: 300_00, cashUsed: 0},
		{name: "bonus then cash", balance: 800_00, bonus: 300_00, expiresAt: &future, cost: 1000_00, bonusUsed: 300_00, cashUsed: 700_00},
		{name: "exact fit", balance: 700_00, bonus: 300_00, expiresAt: &future, cost: 1000_00, bonusUsed: 300_00, cashUsed: 700_00},
		{name: "no bonus", balance: 1000_00, bonus: 0, cost: 400_00, bonusUsed: 0, cashUsed: 400_00},
		{name: "expired bonus ignored", balance: 1000_00, bonus: 900_00, expiresAt: &past, cost: 400_00, bonusUsed: 0, cashUsed: 400_00},
		{name: "no expiry means spendable", balance: 0, bonus: 500_00, cost: 400_00, bonusUsed: 400_00, cashUsed: 0},
		{name: "cash short", balance: 100_00, bonus: 300_00, expiresAt: &future, cost: 1000_00, err: ErrInsufficientFunds},
		{name: "expired bonus cannot save the spend", balance: 100_00, bonus: 900_00, expiresAt: &past, cost: 400_00, err: ErrInsufficientFunds},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			bonusUsed, cashUsed, err := splitSpend(tc.balance, tc.bonus, tc.expiresAt, tc.cost, time.Now())
			if tc.err != nil {
				if !errors.Is(err, tc.err) {
					t.Fatalf("expected %v, got %v", tc.err, err)
				}
				if bonusUsed != 0 || cashUsed != 0 {
					t.Errorf("failed spend must debit nothing, got bonus %d cash %d", bonusUsed, cashUsed)
				}
				return
			}
			if err != nil {
				t.Fatalf("splitSpend: %v", err)
			}
			if bonusUsed != tc.bonusUsed || cashUsed != tc.cashUsed {
				t.Errorf("split: got bonus %d cash %d, want bonus %d cash %d",
					bonusUsed, cashUsed, tc.bonusUsed, tc.cashUsed)
			}
		})
	}
}
