package ledger_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"packline/internal/ledger"
	"packline/internal/testsupport"
)

func TestOpenCreatesSchemaAndReopens(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	health, err := store.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth: %v", err)
	}
	if !health.DatabaseExists || !health.DatabaseReadable || !health.IntegrityCheck {
		t.Fatalf("unexpected health: %+v", health)
	}
	if health.SchemaVersion != 1 {
		t.Fatalf("expected schema version 1, got %d", health.SchemaVersion)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := ledger.OpenPath(cfg.LedgerPath())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	reopened.Close()
}

func TestAppendRejectsUnknownType(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	_, err := store.Append(context.Background(), ledger.Event{Type: "BOGUS", ShiftID: 1, Timestamp: 1})
	if !errors.Is(err, ledger.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestQueryOrdersByTimestampThenInsertion(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	first := testsupport.MustAppend(t, store, ledger.Event{Type: ledger.EventIdleStarted, ShiftID: 1, Timestamp: 20})
	tieA := testsupport.MustAppend(t, store, ledger.Event{Type: ledger.EventWorkStarted, ShiftID: 1, Timestamp: 10})
	tieB := testsupport.MustAppend(t, store, ledger.Event{Type: ledger.EventIdleStarted, ShiftID: 1, Timestamp: 10})
	testsupport.MustAppend(t, store, ledger.Event{Type: ledger.EventHeartbeat, ShiftID: 1, Timestamp: 15})
	testsupport.MustAppend(t, store, ledger.Event{Type: ledger.EventWorkStarted, ShiftID: 2, Timestamp: 5})

	events, err := store.Query(ctx, 1, ledger.EventWorkStarted, ledger.EventIdleStarted)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	want := []int64{tieA, tieB, first}
	if len(events) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(events))
	}
	for i, id := range want {
		if events[i].ID != id {
			t.Fatalf("position %d: expected id %d, got %d", i, id, events[i].ID)
		}
	}

	all, err := store.Query(ctx, 1)
	if err != nil {
		t.Fatalf("Query all: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 events for shift 1, got %d", len(all))
	}

	latest, err := store.Latest(ctx, 1, ledger.EventWorkStarted, ledger.EventIdleStarted)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest == nil || latest.ID != first {
		t.Fatalf("expected latest id %d, got %+v", first, latest)
	}

	none, err := store.Latest(ctx, 99, ledger.EventHeartbeat)
	if err != nil {
		t.Fatalf("Latest empty: %v", err)
	}
	if none != nil {
		t.Fatalf("expected nil for empty shift, got %+v", none)
	}
}

func TestAppendUnlessLatestIsIdempotent(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	timerTypes := []ledger.EventType{ledger.EventWorkStarted, ledger.EventIdleStarted}

	work := ledger.Event{Type: ledger.EventWorkStarted, ShiftID: 3, Timestamp: 1}
	if _, written, err := store.AppendUnlessLatest(ctx, work, timerTypes...); err != nil || !written {
		t.Fatalf("first append: written=%v err=%v", written, err)
	}
	work.Timestamp = 2
	if _, written, err := store.AppendUnlessLatest(ctx, work, timerTypes...); err != nil || written {
		t.Fatalf("duplicate append: written=%v err=%v", written, err)
	}
	idle := ledger.Event{Type: ledger.EventIdleStarted, ShiftID: 3, Timestamp: 3}
	if _, written, err := store.AppendUnlessLatest(ctx, idle, timerTypes...); err != nil || !written {
		t.Fatalf("state change append: written=%v err=%v", written, err)
	}

	events, err := store.Query(ctx, 3, timerTypes...)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 timer events, got %d", len(events))
	}
}

func TestAppendUnlessLatestConcurrentWriters(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ev := ledger.Event{Type: ledger.EventWorkStarted, ShiftID: 4, Timestamp: float64(100 + i)}
			if _, _, err := store.AppendUnlessLatest(ctx, ev, ledger.EventWorkStarted, ledger.EventIdleStarted); err != nil {
				t.Errorf("AppendUnlessLatest: %v", err)
			}
		}(i)
	}
	wg.Wait()

	events, err := store.Query(ctx, 4)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected exactly one WORK_STARTED, got %d", len(events))
	}
}

func TestShiftLifecycle(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	first := testsupport.MustStartShift(t, store, "W1", "PACKING", 100)
	second := testsupport.MustStartShift(t, store, "W1", "PACKING", 200)

	open, err := store.IsOpen(ctx, first)
	if err != nil {
		t.Fatalf("IsOpen: %v", err)
	}
	if open {
		t.Fatal("restarting a shift on the same centre should close the previous one")
	}
	end, err := store.EndTime(ctx, first)
	if err != nil || end == nil || *end != 200 {
		t.Fatalf("expected first shift to end at 200, got %v err=%v", end, err)
	}

	other := testsupport.MustStartShift(t, store, "W1", "ASSEMBLY", 250)
	latest, ok, err := store.LatestActiveShiftID(ctx, "W1")
	if err != nil || !ok || latest != other {
		t.Fatalf("expected latest active shift %d, got %d ok=%v err=%v", other, latest, ok, err)
	}

	active, err := store.ActiveShifts(ctx)
	if err != nil {
		t.Fatalf("ActiveShifts: %v", err)
	}
	if len(active) != 2 || active[0].ID != second || active[1].ID != other {
		t.Fatalf("unexpected active shifts: %+v", active)
	}

	closed, err := store.EndShift(ctx, "W1", []string{"ASSEMBLY"}, 300)
	if err != nil || closed != 1 {
		t.Fatalf("EndShift by centre: closed=%d err=%v", closed, err)
	}
	closed, err = store.EndShift(ctx, "W1", nil, 400)
	if err != nil || closed != 1 {
		t.Fatalf("EndShift all: closed=%d err=%v", closed, err)
	}
	if _, ok, _ := store.LatestActiveShiftID(ctx, "W1"); ok {
		t.Fatal("expected no active shift after ending all")
	}

	if open, err := store.IsOpen(ctx, 9999); err != nil || open {
		t.Fatalf("unknown shift should be closed without error, got open=%v err=%v", open, err)
	}
	if _, err := store.Shift(ctx, 9999); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.StartShift(ctx, " ", "PACKING", 1); !errors.Is(err, ledger.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for blank worker, got %v", err)
	}
}

func TestAttemptLifecycle(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	shift := testsupport.MustStartShift(t, store, "W1", "PACKING", 10)

	rec := ledger.AttemptRecord{
		UID: "a-1", ShiftID: &shift, WorkerID: "W1", SKU: "SKU-1",
		State: "STARTED", Phase: "LAYOUT", StepsInPhase: 2, StartTime: 20,
	}
	start := ledger.Event{Type: ledger.EventStart, ShiftID: shift, Timestamp: 20, WorkerID: "W1"}
	id, eventID, err := store.CreateAttempt(ctx, rec, start)
	if err != nil {
		t.Fatalf("CreateAttempt: %v", err)
	}

	rec.UID = "a-2"
	if _, _, err := store.CreateAttempt(ctx, rec, start); !errors.Is(err, ledger.ErrOpenAttempt) {
		t.Fatalf("expected ErrOpenAttempt, got %v", err)
	}

	rec.ID = id
	rec.UID = "a-1"
	rec.State = ledger.ClosedAttemptState
	endTime := 60.0
	rec.EndTime = &endTime
	rec.WorktimeSec = 30
	rec.DowntimeSec = 10
	rec.Status = "done"
	ids, err := store.UpdateAttempt(ctx, rec, ledger.Event{Type: ledger.EventTableEmpty, ShiftID: shift, Timestamp: 60})
	if err != nil || len(ids) != 1 {
		t.Fatalf("UpdateAttempt: ids=%v err=%v", ids, err)
	}

	loaded, err := store.Attempt(ctx, id)
	if err != nil {
		t.Fatalf("Attempt: %v", err)
	}
	if loaded.State != ledger.ClosedAttemptState || loaded.EndTime == nil || *loaded.EndTime != 60 || loaded.Status != "done" {
		t.Fatalf("unexpected attempt: %+v", loaded)
	}
	if loaded.ShiftID == nil || *loaded.ShiftID != shift {
		t.Fatalf("expected shift link %d, got %v", shift, loaded.ShiftID)
	}

	events, err := store.SessionEvents(ctx, id)
	if err != nil {
		t.Fatalf("SessionEvents: %v", err)
	}
	if len(events) != 2 || events[0].ID != eventID || events[1].Type != ledger.EventTableEmpty {
		t.Fatalf("unexpected session events: %+v", events)
	}

	open, err := store.OpenAttempts(ctx)
	if err != nil || len(open) != 0 {
		t.Fatalf("expected no open attempts, got %v err=%v", open, err)
	}

	rec.UID = "a-3"
	rec.State = "STARTED"
	rec.EndTime = nil
	if _, _, err := store.CreateAttempt(ctx, rec, start); err != nil {
		t.Fatalf("CreateAttempt after close: %v", err)
	}
	latest, err := store.LatestAttempt(ctx)
	if err != nil || latest == nil || latest.UID != "a-3" {
		t.Fatalf("LatestAttempt: %+v err=%v", latest, err)
	}
}

func TestSettingsAndPlans(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	audit := &ledger.Event{Type: ledger.EventSettingsChanged, Timestamp: 5, Payload: `{"keys":["a"]}`}
	if err := store.SetSettings(ctx, map[string]string{"a": "1", "b": "0"}, 5, audit); err != nil {
		t.Fatalf("SetSettings: %v", err)
	}
	if err := store.SetSettings(ctx, map[string]string{"a": "0"}, 6, nil); err != nil {
		t.Fatalf("SetSettings overwrite: %v", err)
	}
	values, err := store.Settings(ctx, "a", "b", "missing")
	if err != nil {
		t.Fatalf("Settings: %v", err)
	}
	if values["a"] != "0" || values["b"] != "0" {
		t.Fatalf("unexpected settings: %v", values)
	}
	if _, ok := values["missing"]; ok {
		t.Fatal("missing key should be absent")
	}
	if err := store.DeleteSettings(ctx, []string{"b"}, nil); err != nil {
		t.Fatalf("DeleteSettings: %v", err)
	}
	if _, ok, err := store.Setting(ctx, "b"); err != nil || ok {
		t.Fatalf("expected b deleted, ok=%v err=%v", ok, err)
	}
	count, err := store.CountSince(ctx, ledger.EventSettingsChanged, 0, "")
	if err != nil || count != 1 {
		t.Fatalf("expected one audit event, count=%d err=%v", count, err)
	}

	planID, err := store.CreatePlan(ctx, 7, " Morning ", []string{"SKU-1", "SKU-2"}, 10)
	if err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}
	plan, err := store.Plan(ctx, planID)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if plan.Name != "Morning" || len(plan.Items) != 2 || plan.ShiftID != 7 {
		t.Fatalf("unexpected plan: %+v", plan)
	}
	plans, err := store.Plans(ctx, 7)
	if err != nil || len(plans) != 1 {
		t.Fatalf("Plans: %v err=%v", plans, err)
	}
	if _, err := store.CreatePlan(ctx, 7, "empty", nil, 11); !errors.Is(err, ledger.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for empty plan, got %v", err)
	}
}

func TestParseEventTypeAndCategory(t *testing.T) {
	cases := map[string]ledger.Category{
		"work_started":     ledger.CategoryTimer,
		"HEARTBEAT":        ledger.CategoryLiveness,
		" box_closed ":     ledger.CategoryWorkflow,
		"PACKED_CONFIRMED": ledger.CategoryAudit,
	}
	for raw, want := range cases {
		typ, err := ledger.ParseEventType(raw)
		if err != nil {
			t.Fatalf("ParseEventType(%q): %v", raw, err)
		}
		if typ.Category() != want {
			t.Fatalf("%s: expected category %s, got %s", typ, want, typ.Category())
		}
	}
	if _, err := ledger.ParseEventType("nope"); err == nil {
		t.Fatal("expected error for unknown type")
	}
}

func TestOpenPathRecordsPath(t *testing.T) {
	dir := t.TempDir()
	store, err := ledger.OpenPath(filepath.Join(dir, "ledger.db"))
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	defer store.Close()
	if store.Path() != filepath.Join(dir, "ledger.db") {
		t.Fatalf("unexpected path %q", store.Path())
	}
}
