package statestore

import (
	"testing"
)

func TestSaveLoadDeleteSlot(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	slot := Slot{ID: "slot-1", Domain: "OrderBook", Operation: "PlaceOrder", State: Pending}
	if err := store.SaveSlot(slot); err != nil {
		t.Fatalf("SaveSlot: %v", err)
	}

	slots, err := store.LoadSlots()
	if err != nil {
		t.Fatalf("LoadSlots: %v", err)
	}
	if len(slots) != 1 || slots[0].ID != "slot-1" {
		t.Fatalf("LoadSlots = %+v, want one slot with ID slot-1", slots)
	}

	if err := store.DeleteSlot("slot-1"); err != nil {
		t.Fatalf("DeleteSlot: %v", err)
	}
	slots, err = store.LoadSlots()
	if err != nil {
		t.Fatalf("LoadSlots after delete: %v", err)
	}
	if len(slots) != 0 {
		t.Errorf("expected no slots after delete, got %d", len(slots))
	}
}

func TestSlotResumable(t *testing.T) {
	cases := []struct {
		state     SlotState
		resumable bool
	}{
		{Pending, true},
		{InFlight, true},
		{Succeeded, false},
		{Failed, false},
		{Abandoned, false},
	}
	for _, c := range cases {
		slot := Slot{State: c.state}
		if got := slot.Resumable(); got != c.resumable {
			t.Errorf("Resumable(%s) = %v, want %v", c.state, got, c.resumable)
		}
	}
}
