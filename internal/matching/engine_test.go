package matching

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cradle-exchange/cradle/internal/dec"
)

func TestIsSerializationConflict(t *testing.T) {
	if isSerializationConflict(errors.New("some other failure")) {
		t.Error("expected a plain error to not be a serialization conflict")
	}
	pgErr := &pgconn.PgError{Code: "40001"}
	if !isSerializationConflict(pgErr) {
		t.Error("expected SQLSTATE 40001 to be a serialization conflict")
	}
	other := &pgconn.PgError{Code: "23505"}
	if isSerializationConflict(other) {
		t.Error("expected a different SQLSTATE to not be a serialization conflict")
	}
}

func TestValidatePriceConvention(t *testing.T) {
	price, err := validatePriceConvention(dec.MustNew("100"), dec.MustNew("10"))
	if err != nil {
		t.Fatalf("validatePriceConvention: %v", err)
	}
	if !price.Equal(dec.MustNew("10")) {
		t.Errorf("price = %s, want 10", price)
	}
}

func TestValidatePriceConventionRejectsZeroAsk(t *testing.T) {
	if _, err := validatePriceConvention(dec.MustNew("100"), dec.Zero); err == nil {
		t.Error("expected error dividing by a zero ask amount")
	}
}
