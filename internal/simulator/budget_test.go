package simulator

import "testing"

func TestBudgetDeductAndRefund(t *testing.T) {
	cfg := BudgetConfig{Budgets: []BudgetSpec{{Account: "w1", Asset: "usdc", Amount: "100"}}}
	store, err := NewBudgetStore(cfg)
	if err != nil {
		t.Fatalf("NewBudgetStore: %v", err)
	}

	amount := mustAmount("60")
	if err := store.Deduct("w1", "usdc", amount); err != nil {
		t.Fatalf("Deduct: %v", err)
	}
	if got := store.Remaining("w1", "usdc"); !got.Equal(mustAmount("40")) {
		t.Errorf("remaining = %s, want 40", got)
	}

	if err := store.Deduct("w1", "usdc", mustAmount("50")); err == nil {
		t.Error("expected deduct to fail once budget is exhausted")
	}

	store.Refund("w1", "usdc", amount)
	if got := store.Remaining("w1", "usdc"); !got.Equal(mustAmount("100")) {
		t.Errorf("remaining after refund = %s, want 100", got)
	}
}

func TestBudgetUnconfiguredPair(t *testing.T) {
	store, err := NewBudgetStore(BudgetConfig{})
	if err != nil {
		t.Fatalf("NewBudgetStore: %v", err)
	}
	if err := store.Deduct("unknown", "usdc", mustAmount("1")); err == nil {
		t.Error("expected deduct against an unconfigured pair to fail")
	}
}
