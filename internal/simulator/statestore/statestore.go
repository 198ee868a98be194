// Package statestore persists the scheduler's action slots to a Pebble
// KV store so a crashed or restarted simulator run can resume instead
// of re-issuing work, grounded on the node's pkg/storage/pebble_store.go
// key-prefix and JSON-marshal conventions (spec §6).
package statestore

import (
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"
)

const prefixSlot = "slot:"

// Store wraps a Pebble instance scoped to one simulator run's state
// directory.
type Store struct {
	db *pebble.DB
}

func Open(dir string) (*Store, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open simulator state dir %s: %w", dir, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func slotKey(id string) []byte {
	return []byte(fmt.Sprintf("%s%s", prefixSlot, id))
}

func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}

// SaveSlot persists a slot's current state, overwriting any prior record
// for the same ID. The scheduler saves the Pending and InFlight states
// unconditionally and the terminal state only when
// ProcessorConfig.SaveAfterEachSlot is set.
func (s *Store) SaveSlot(slot Slot) error {
	data, err := json.Marshal(slot)
	if err != nil {
		return fmt.Errorf("marshal slot %s: %w", slot.ID, err)
	}
	if err := s.db.Set(slotKey(slot.ID), data, pebble.Sync); err != nil {
		return fmt.Errorf("save slot %s: %w", slot.ID, err)
	}
	return nil
}

// LoadSlots scans every persisted slot, used on scheduler startup to
// resume in-flight or pending work from a prior run.
func (s *Store) LoadSlots() ([]Slot, error) {
	prefix := []byte(prefixSlot)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("iterate slots: %w", err)
	}
	defer iter.Close()

	var slots []Slot
	for iter.First(); iter.Valid(); iter.Next() {
		var slot Slot
		if err := json.Unmarshal(iter.Value(), &slot); err != nil {
			continue
		}
		slots = append(slots, slot)
	}
	return slots, nil
}

func (s *Store) DeleteSlot(id string) error {
	if err := s.db.Delete(slotKey(id), pebble.Sync); err != nil {
		return fmt.Errorf("delete slot %s: %w", id, err)
	}
	return nil
}
