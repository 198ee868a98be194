package simulator

import (
	"testing"

	"github.com/google/uuid"
)

func testMarket() SyntheticMarket {
	return SyntheticMarket{
		MarketID: uuid.New().String(),
		BidAsset: uuid.New().String(),
		AskAsset: uuid.New().String(),
		MidPrice: mustAmount("10"),
	}
}

func testAccount() SimAccount {
	return SimAccount{WalletID: uuid.New().String(), Address: "0x0000000000000000000000000000000000000001"}
}

func TestGenerateOrderWithinAmountBounds(t *testing.T) {
	cfg := SchedulerConfig{MinAmount: "10", MaxAmount: "100", AlternateSides: true}
	gen := NewGenerator(1, []SimAccount{testAccount()}, []SyntheticMarket{testMarket()}, cfg)

	order, err := gen.GenerateOrder()
	if err != nil {
		t.Fatalf("GenerateOrder: %v", err)
	}
	min, max := mustAmount("10"), mustAmount("100")
	if order.BidAmount.LessThan(min) || order.BidAmount.GreaterThan(max) {
		t.Errorf("bid amount %s out of configured bounds [%s,%s]", order.BidAmount, min, max)
	}
}

func TestGenerateOrderNoAccountsOrMarkets(t *testing.T) {
	cfg := SchedulerConfig{MinAmount: "10", MaxAmount: "100"}
	gen := NewGenerator(1, nil, nil, cfg)
	if _, err := gen.GenerateOrder(); err == nil {
		t.Error("expected error with no accounts/markets configured")
	}
}

func TestGenerateBatchSize(t *testing.T) {
	cfg := SchedulerConfig{MinAmount: "10", MaxAmount: "100", AlternateSides: true}
	gen := NewGenerator(1, []SimAccount{testAccount()}, []SyntheticMarket{testMarket()}, cfg)

	batch := gen.GenerateBatch(5)
	if len(batch) != 5 {
		t.Errorf("batch size = %d, want 5", len(batch))
	}
}
