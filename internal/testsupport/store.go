package testsupport

import (
	"context"
	"testing"

	"packline/internal/config"
	"packline/internal/ledger"
)

// MustOpenStore opens a ledger.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *ledger.Store {
	t.Helper()

	store, err := ledger.Open(cfg)
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustStartShift opens a shift for the worker and returns its identifier.
func MustStartShift(t testing.TB, store *ledger.Store, workerID, workCenter string, ts float64) int64 {
	t.Helper()

	id, err := store.StartShift(context.Background(), workerID, workCenter, ts)
	if err != nil {
		t.Fatalf("store.StartShift: %v", err)
	}
	return id
}

// MustAppend appends an event and returns its identifier.
func MustAppend(t testing.TB, store *ledger.Store, ev ledger.Event) int64 {
	t.Helper()

	id, err := store.Append(context.Background(), ev)
	if err != nil {
		t.Fatalf("store.Append(%s): %v", ev.Type, err)
	}
	return id
}
