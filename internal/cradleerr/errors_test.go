package cradleerr

import (
	"errors"
	"testing"
)

func TestErrorMessage(t *testing.T) {
	cause := errors.New("underlying")
	err := Settlement("SubmitFailed", "on-chain submission failed", cause)

	if err.Kind != KindSettlement {
		t.Errorf("Kind = %s, want %s", err.Kind, KindSettlement)
	}
	if err.Code != "SubmitFailed" {
		t.Errorf("Code = %s, want SubmitFailed", err.Code)
	}
	if !errors.Is(err, cause) {
		t.Error("expected wrapped cause to be unwrappable via errors.Is")
	}
}

func TestLedgerHasNoCause(t *testing.T) {
	err := Ledger(CodeInsufficientBalance, "not enough balance")
	if err.Kind != KindLedger {
		t.Errorf("Kind = %s, want %s", err.Kind, KindLedger)
	}
	if err.Unwrap() != nil {
		t.Error("expected nil Unwrap for a cause-less ledger error")
	}
}

func TestValidationHasNoCause(t *testing.T) {
	err := Validation(CodeBadAmount, "bad amount")
	if err.Unwrap() != nil {
		t.Error("expected nil Unwrap for a cause-less error")
	}
	if err.Error() == "" {
		t.Error("expected non-empty error message")
	}
}
