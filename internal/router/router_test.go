package router

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/cradle-exchange/cradle/internal/cradleerr"
)

type stubProcessor struct {
	result any
	err    error
	gotOp  string
}

func (s *stubProcessor) Process(ctx context.Context, operation string, payload json.RawMessage) (any, error) {
	s.gotOp = operation
	return s.result, s.err
}

func TestDispatchRoutesToRegisteredDomain(t *testing.T) {
	stub := &stubProcessor{result: map[string]any{"orderId": "abc"}}
	r := New()
	r.Register(DomainOrderBook, stub)

	resp := r.Dispatch(context.Background(), []byte(`{"OrderBook":{"PlaceOrder":{"foo":"bar"}}}`))
	if !resp.Success {
		t.Fatalf("expected success, got error %q", resp.Error)
	}
	if stub.gotOp != "PlaceOrder" {
		t.Errorf("operation = %q, want PlaceOrder", stub.gotOp)
	}
}

func TestDispatchUnknownDomain(t *testing.T) {
	r := New()
	resp := r.Dispatch(context.Background(), []byte(`{"Nonsense":{"Op":{}}}`))
	if resp.Success {
		t.Fatal("expected failure for unknown domain")
	}
}

func TestDispatchRejectsMultipleDomains(t *testing.T) {
	r := New()
	r.Register(DomainOrderBook, &stubProcessor{})
	r.Register(DomainMarkets, &stubProcessor{})

	resp := r.Dispatch(context.Background(), []byte(`{"OrderBook":{"PlaceOrder":{}},"Markets":{"ListMarkets":{}}}`))
	if resp.Success {
		t.Fatal("expected failure for multi-domain envelope")
	}
}

func TestDispatchRejectsMultipleOperations(t *testing.T) {
	r := New()
	r.Register(DomainOrderBook, &stubProcessor{})

	resp := r.Dispatch(context.Background(), []byte(`{"OrderBook":{"PlaceOrder":{},"CancelOrder":{}}}`))
	if resp.Success {
		t.Fatal("expected failure for multi-operation domain")
	}
}

func TestDispatchMalformedEnvelope(t *testing.T) {
	r := New()
	resp := r.Dispatch(context.Background(), []byte(`not json`))
	if resp.Success {
		t.Fatal("expected failure for malformed JSON")
	}
}

func TestDispatchPropagatesTypedErrorMessage(t *testing.T) {
	stub := &stubProcessor{err: cradleerr.Validation("BadAmount", "amount must be positive")}
	r := New()
	r.Register(DomainOrderBook, stub)

	resp := r.Dispatch(context.Background(), []byte(`{"OrderBook":{"PlaceOrder":{}}}`))
	if resp.Success {
		t.Fatal("expected failure")
	}
	if resp.Error != "validation/BadAmount: amount must be positive" {
		t.Errorf("error = %q", resp.Error)
	}
}

func TestDispatchPropagatesPlainErrorMessage(t *testing.T) {
	stub := &stubProcessor{err: errors.New("boom")}
	r := New()
	r.Register(DomainOrderBook, stub)

	resp := r.Dispatch(context.Background(), []byte(`{"OrderBook":{"PlaceOrder":{}}}`))
	if resp.Success {
		t.Fatal("expected failure")
	}
	if resp.Error != "boom" {
		t.Errorf("error = %q, want boom", resp.Error)
	}
}
