package dec

import "testing"

func TestDivTrunc(t *testing.T) {
	a := MustNew("10")
	b := MustNew("3")

	got, err := DivTrunc(a, b)
	if err != nil {
		t.Fatalf("DivTrunc: %v", err)
	}
	want := MustNew("3.333333333333333333")
	if !got.Equal(want) {
		t.Errorf("DivTrunc(10,3) = %s, want %s", got, want)
	}
}

func TestDivTruncByZero(t *testing.T) {
	if _, err := DivTrunc(MustNew("1"), Zero); err == nil {
		t.Error("expected error dividing by zero")
	}
}

func TestIsDust(t *testing.T) {
	cases := []struct {
		v    D
		dust bool
	}{
		{MustNew("0"), true},
		{MustNew("-1"), true},
		{MustNew("0.000000000000000001"), false},
		{MustNew("5"), false},
	}
	for _, c := range cases {
		if got := IsDust(c.v); got != c.dust {
			t.Errorf("IsDust(%s) = %v, want %v", c.v, got, c.dust)
		}
	}
}

func TestToUint64(t *testing.T) {
	v, err := ToUint64(MustNew("42"))
	if err != nil || v != 42 {
		t.Errorf("ToUint64(42) = %d, %v, want 42, nil", v, err)
	}

	if _, err := ToUint64(MustNew("-1")); err == nil {
		t.Error("expected overflow error for negative value")
	}

	if _, err := ToUint64(MustNew("1.5")); err == nil {
		t.Error("expected overflow error for fractional value")
	}

	big := MustNew("99999999999999999999999999999999")
	if _, err := ToUint64(big); err == nil {
		t.Error("expected overflow error for value exceeding uint64 range")
	}
}

func TestParseID(t *testing.T) {
	id := NewID()
	parsed, err := ParseID(id.String())
	if err != nil {
		t.Fatalf("ParseID: %v", err)
	}
	if parsed != id {
		t.Errorf("round-tripped id = %s, want %s", parsed, id)
	}

	if _, err := ParseID("not-a-uuid"); err == nil {
		t.Error("expected error for malformed id")
	}
}
