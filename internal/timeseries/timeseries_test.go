package timeseries

import (
	"context"
	"testing"
	"time"

	"github.com/cradle-exchange/cradle/internal/dec"
)

func TestAggregateRejectsUnknownIntervalBeforeQuerying(t *testing.T) {
	svc := New(nil) // nil pool is safe: unknown interval must short-circuit before any query
	_, err := svc.Aggregate(context.Background(), dec.NewID(), dec.NewID(), Interval("2m"), time.Now())
	if err == nil {
		t.Fatal("expected error for unknown interval")
	}
}

func TestIntervalDurationCoversEveryDeclaredInterval(t *testing.T) {
	intervals := []Interval{Interval1m, Interval5m, Interval15m, Interval30m, Interval1h, Interval4h, Interval1d, Interval1w}
	for _, iv := range intervals {
		if _, ok := intervalDuration[iv]; !ok {
			t.Errorf("intervalDuration missing entry for %s", iv)
		}
	}
}
