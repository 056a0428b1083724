package core

import (
	"math"
	"testing"
)

func tx(id int64, typ TxType, amount float64, cat string) Transaction {
	t := Transaction{ID: id, Type: typ, Amount: amount, Category: cat, Date: NewDate(2025, 1, 1)}
	if typ == Income {
		t.Description = IncomeDescription
	}
	return t
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	if s.TotalIncome != 0 || s.TotalExpenses != 0 || s.Balance != 0 {
		t.Fatalf("expected zero totals, got %+v", s)
	}
	if len(s.ByCategory) != 0 {
		t.Fatalf("expected empty breakdown, got %v", s.ByCategory)
	}
	if s.Mood().Tier != TierWarning {
		t.Fatalf("zero balance should be Warning, got %s", s.Mood().Tier)
	}
}

func TestSummarizeScenario(t *testing.T) {
	txs := []Transaction{
		tx(1, Income, 500, ""),
		tx(2, Expense, 120, "comida"),
		tx(3, Expense, 30, "transporte"),
	}
	s := Summarize(txs)
	if s.TotalIncome != 500 || s.TotalExpenses != 150 || s.Balance != 350 {
		t.Fatalf("unexpected totals %+v", s)
	}
	if len(s.ByCategory) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(s.ByCategory))
	}
	if s.ByCategory[0].ID != "comida" || s.ByCategory[0].Amount != 120 {
		t.Fatalf("first entry %+v", s.ByCategory[0])
	}
	if s.ByCategory[1].ID != "transporte" || s.ByCategory[1].Amount != 30 {
		t.Fatalf("second entry %+v", s.ByCategory[1])
	}
	if s.Mood().Tier != TierFlush {
		t.Fatalf("balance 350 should be Flush, got %s", s.Mood().Tier)
	}
}

func TestSummarizeBreakdownFollowsRegistryOrder(t *testing.T) {
	txs := []Transaction{
		tx(1, Expense, 5, "ocio"),
		tx(2, Expense, 7, "comida"),
		tx(3, Expense, 2, "ocio"),
	}
	s := Summarize(txs)
	if len(s.ByCategory) != 2 {
		t.Fatalf("expected 2 entries, got %v", s.ByCategory)
	}
	if s.ByCategory[0].ID != "comida" || s.ByCategory[1].ID != "ocio" {
		t.Fatalf("unexpected order %v", s.ByCategory)
	}
	if s.ByCategory[1].Amount != 7 {
		t.Fatalf("ocio total = %v", s.ByCategory[1].Amount)
	}
	if s.Balance != -14 {
		t.Fatalf("balance = %v", s.Balance)
	}
}

func TestSummarizeSumProperties(t *testing.T) {
	txs := []Transaction{
		tx(1, Income, 10.25, ""),
		tx(2, Expense, 1.1, "comida"),
		tx(3, Expense, 2.2, "transporte"),
		tx(4, Income, 3.3, ""),
		tx(5, Expense, 4.4, "ocio"),
		tx(6, Expense, 0.05, "comida"),
	}
	s := Summarize(txs)

	var catSum float64
	for _, c := range s.ByCategory {
		if c.Amount <= 0 {
			t.Fatalf("breakdown contains non-positive entry %+v", c)
		}
		catSum += c.Amount
	}
	if math.Abs(catSum-s.TotalExpenses) > 1e-9 {
		t.Fatalf("category sum %v != total expenses %v", catSum, s.TotalExpenses)
	}
	if math.Abs(s.Balance-(s.TotalIncome-s.TotalExpenses)) > 1e-9 {
		t.Fatalf("balance mismatch %+v", s)
	}
}

func TestClassifyBoundaries(t *testing.T) {
	cases := []struct {
		balance float64
		want    Tier
	}{
		{200.01, TierFlush},
		{200, TierStable},
		{0.01, TierStable},
		{0, TierWarning},
		{-99.99, TierWarning},
		{-100, TierCritical},
		{-5000, TierCritical},
	}
	for _, tc := range cases {
		if got := Classify(tc.balance).Tier; got != tc.want {
			t.Fatalf("Classify(%v) = %s, want %s", tc.balance, got, tc.want)
		}
	}
}

func TestMoodAttributes(t *testing.T) {
	m := Classify(1000)
	if m.Message != "RICH ZOMBIE!" || m.Color != "green" {
		t.Fatalf("unexpected flush mood %+v", m)
	}
	m = Classify(-1000)
	if m.Message != "ZOMBIE BROKE" || m.Color != "red" {
		t.Fatalf("unexpected critical mood %+v", m)
	}
}
