package market

import (
	"testing"

	"github.com/cradle-exchange/cradle/internal/cradleerr"
	"github.com/cradle-exchange/cradle/internal/dec"
)

func TestValidatePriceRegulatedBand(t *testing.T) {
	m := Market{
		ID: dec.NewID(), Status: Active, Regulation: Regulated,
		MinPrice: dec.MustNew("10"), MaxPrice: dec.MustNew("20"),
	}

	if err := m.ValidatePrice(dec.MustNew("15")); err != nil {
		t.Errorf("expected 15 to be within band, got %v", err)
	}
	if err := m.ValidatePrice(dec.MustNew("9")); err == nil {
		t.Error("expected price below band to be rejected")
	}
	if err := m.ValidatePrice(dec.MustNew("21")); err == nil {
		t.Error("expected price above band to be rejected")
	}
}

func TestValidatePriceUnregulatedIsUnbounded(t *testing.T) {
	m := Market{ID: dec.NewID(), Status: Active, Regulation: Unregulated}
	if err := m.ValidatePrice(dec.MustNew("999999")); err != nil {
		t.Errorf("unregulated market should accept any price, got %v", err)
	}
}

func TestValidatePriceRejectsNonActiveFirst(t *testing.T) {
	m := Market{
		ID: dec.NewID(), Status: Halted, Regulation: Regulated,
		MinPrice: dec.MustNew("10"), MaxPrice: dec.MustNew("20"),
	}
	err := m.ValidatePrice(dec.MustNew("15"))
	if err == nil {
		t.Fatal("expected halted market to reject unconditionally")
	}
	ce, ok := err.(*cradleerr.Error)
	if !ok {
		t.Fatalf("expected *cradleerr.Error, got %T", err)
	}
	if ce.Code == cradleerr.CodePriceOutOfBand {
		t.Error("halted market should reject before the price band is even consulted")
	}
}

func TestAssetPairEitherDirection(t *testing.T) {
	a, b := dec.NewID(), dec.NewID()
	m := Market{AssetOne: a, AssetTwo: b}

	if !m.AssetPair(a, b) {
		t.Error("expected (a,b) to match")
	}
	if !m.AssetPair(b, a) {
		t.Error("expected (b,a) to match in reverse direction")
	}
	if m.AssetPair(a, dec.NewID()) {
		t.Error("expected unrelated asset to not match")
	}
}
