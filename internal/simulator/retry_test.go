package simulator

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWithRetrySucceedsEventually(t *testing.T) {
	attempts := 0
	err := WithRetry(context.Background(), time.Millisecond, 3, func() error {
		attempts++
		if attempts < 2 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithRetry: %v", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestWithRetryExhausted(t *testing.T) {
	attempts := 0
	err := WithRetry(context.Background(), time.Millisecond, 2, func() error {
		attempts++
		return errors.New("always fails")
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if attempts != 3 { // initial attempt + 2 retries
		t.Errorf("attempts = %d, want 3", attempts)
	}
}
