package orderbook

import (
	"testing"

	"github.com/cradle-exchange/cradle/internal/dec"
)

func TestWalkFillsFullMatch(t *testing.T) {
	incoming := Order{ID: dec.NewID(), BidAmount: dec.MustNew("100"), AskAmount: dec.MustNew("10")}
	maker := Order{ID: dec.NewID(), BidAmount: dec.MustNew("100"), AskAmount: dec.MustNew("10")}

	remBid, remAsk, fills, err := WalkFills(incoming, []Order{maker})
	if err != nil {
		t.Fatalf("WalkFills: %v", err)
	}
	if len(fills) != 1 {
		t.Fatalf("expected 1 fill, got %d", len(fills))
	}
	if !remBid.IsZero() || !remAsk.IsZero() {
		t.Errorf("expected full match, remaining bid=%s ask=%s", remBid, remAsk)
	}
	if !fills[0].MakerFilledAmount.Equal(dec.MustNew("100")) {
		t.Errorf("maker filled = %s, want 100", fills[0].MakerFilledAmount)
	}
	if !fills[0].TakerFilledAmount.Equal(dec.MustNew("10")) {
		t.Errorf("taker filled = %s, want 10", fills[0].TakerFilledAmount)
	}
}

func TestWalkFillsPartialAgainstSmallerMaker(t *testing.T) {
	incoming := Order{ID: dec.NewID(), BidAmount: dec.MustNew("100"), AskAmount: dec.MustNew("10")}
	maker := Order{ID: dec.NewID(), BidAmount: dec.MustNew("50"), AskAmount: dec.MustNew("5")}

	remBid, remAsk, fills, err := WalkFills(incoming, []Order{maker})
	if err != nil {
		t.Fatalf("WalkFills: %v", err)
	}
	if len(fills) != 1 {
		t.Fatalf("expected 1 fill, got %d", len(fills))
	}
	if remBid.IsZero() || remAsk.IsZero() {
		t.Error("expected the incoming order to still have a remainder")
	}
	if !fills[0].MakerFilledAmount.Equal(dec.MustNew("50")) {
		t.Errorf("maker filled = %s, want 50", fills[0].MakerFilledAmount)
	}
}

func TestWalkFillsSkipsDustCandidate(t *testing.T) {
	incoming := Order{ID: dec.NewID(), BidAmount: dec.MustNew("1"), AskAmount: dec.MustNew("1000000000000000000")}
	maker := Order{ID: dec.NewID(), BidAmount: dec.MustNew("1"), AskAmount: dec.MustNew("0.000000000000000001")}

	_, _, fills, err := WalkFills(incoming, []Order{maker})
	if err != nil {
		t.Fatalf("WalkFills: %v", err)
	}
	if len(fills) != 0 {
		t.Errorf("expected the dust candidate to be skipped, got %d fills", len(fills))
	}
}

func TestWalkFillsNoCandidates(t *testing.T) {
	incoming := Order{ID: dec.NewID(), BidAmount: dec.MustNew("100"), AskAmount: dec.MustNew("10")}

	remBid, remAsk, fills, err := WalkFills(incoming, nil)
	if err != nil {
		t.Fatalf("WalkFills: %v", err)
	}
	if len(fills) != 0 {
		t.Errorf("expected no fills with no candidates, got %d", len(fills))
	}
	if !remBid.Equal(dec.MustNew("100")) || !remAsk.Equal(dec.MustNew("10")) {
		t.Errorf("expected remainder unchanged, got bid=%s ask=%s", remBid, remAsk)
	}
}
