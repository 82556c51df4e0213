package storage

import (
	"context"
	"testing"

	"cellsim/internal/model"
)

func testRun(id, createdAt string) model.RunRecord {
	return model.RunRecord{
		VersionedRecord: model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion},
		ID:              id,
		CreatedAtUTC:    createdAt,
		Seed:            7,
		Frames:          3,
		StoppedBy:       "stop_at_frame",
		FinalCellCount:  1,
	}
}

func TestMemoryStoreRunRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	run := testRun("run-1", "2026-01-05T10:00:00Z")
	if err := store.SaveRun(ctx, run); err != nil {
		t.Fatalf("save run: %v", err)
	}

	loaded, ok, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted run")
	}
	if loaded.ID != run.ID || loaded.Seed != run.Seed || loaded.StoppedBy != run.StoppedBy {
		t.Fatalf("unexpected run: %+v", loaded)
	}

	_, ok, err = store.GetRun(ctx, "missing")
	if err != nil {
		t.Fatalf("get missing run: %v", err)
	}
	if ok {
		t.Fatal("expected missing run to report absent")
	}
}

func TestMemoryStoreListRunsOrdersByCreation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	for _, run := range []model.RunRecord{
		testRun("run-b", "2026-01-05T12:00:00Z"),
		testRun("run-a", "2026-01-05T10:00:00Z"),
		testRun("run-c", "2026-01-05T11:00:00Z"),
	} {
		if err := store.SaveRun(ctx, run); err != nil {
			t.Fatalf("save run %s: %v", run.ID, err)
		}
	}

	runs, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	want := []string{"run-a", "run-c", "run-b"}
	if len(runs) != len(want) {
		t.Fatalf("unexpected run count: %d", len(runs))
	}
	for i := range want {
		if runs[i].ID != want[i] {
			t.Fatalf("run order = %v, want %v", runs, want)
		}
	}
}

func TestMemoryStoreCellRecordsRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	input := []model.CellRecord{
		{Index: 0, ID: 1, Name: "1a-1", ColonyName: "1a", Fate: "none"},
		{Index: 1, ID: 1, Name: "1a-1", ColonyName: "1a", Fate: "division", SimulationFrames: 1},
	}
	if err := store.SaveCellRecords(ctx, "run-1", input); err != nil {
		t.Fatalf("save cells: %v", err)
	}

	output, ok, err := store.GetCellRecords(ctx, "run-1")
	if err != nil {
		t.Fatalf("get cells: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted cell records")
	}
	if len(output) != 2 || output[1].Fate != "division" {
		t.Fatalf("unexpected cells: %+v", output)
	}

	// The store hands back copies, not aliases of its internal slice.
	output[0].Name = "mutated"
	again, _, err := store.GetCellRecords(ctx, "run-1")
	if err != nil {
		t.Fatalf("get cells again: %v", err)
	}
	if again[0].Name != "1a-1" {
		t.Fatalf("store aliased its internal slice: %+v", again[0])
	}
}

func TestMemoryStoreColonyRecordsRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	input := []model.ColonyRecord{
		{Index: 0, Name: "1a", Size: 1},
		{Index: 1, Name: "1a", Size: 2, SimulationFrames: 1},
	}
	if err := store.SaveColonyRecords(ctx, "run-1", input); err != nil {
		t.Fatalf("save colonies: %v", err)
	}

	output, ok, err := store.GetColonyRecords(ctx, "run-1")
	if err != nil {
		t.Fatalf("get colonies: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted colony records")
	}
	if len(output) != 2 || output[1].Size != 2 {
		t.Fatalf("unexpected colonies: %+v", output)
	}
}

func TestMemoryStoreTreesRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	input := []model.TreeRecord{{
		VersionedRecord: model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion},
		ColonyName:      "1a",
		Newick:          "1a-1:0;",
	}}
	if err := store.SaveTrees(ctx, "run-1", input); err != nil {
		t.Fatalf("save trees: %v", err)
	}

	output, ok, err := store.GetTrees(ctx, "run-1")
	if err != nil {
		t.Fatalf("get trees: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted trees")
	}
	if len(output) != 1 || output[0].ColonyName != "1a" {
		t.Fatalf("unexpected trees: %+v", output)
	}
}

func TestMemoryStoreResetDropsAllRuns(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	for _, id := range []string{"run-1", "run-2"} {
		if err := store.SaveRun(ctx, testRun(id, "2026-01-05T10:00:00Z")); err != nil {
			t.Fatalf("save run %s: %v", id, err)
		}
	}
	if err := store.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}

	runs, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list after reset: %v", err)
	}
	if len(runs) != 0 {
		t.Fatalf("expected empty store after reset, got %d runs", len(runs))
	}

	// The store stays usable after a reset.
	if err := store.SaveRun(ctx, testRun("run-3", "2026-01-05T11:00:00Z")); err != nil {
		t.Fatalf("save after reset: %v", err)
	}
}

func TestMemoryStoreDeleteRun(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	if err := store.SaveRun(ctx, testRun("run-1", "2026-01-05T10:00:00Z")); err != nil {
		t.Fatalf("save run: %v", err)
	}
	if err := store.SaveCellRecords(ctx, "run-1", []model.CellRecord{{ID: 1}}); err != nil {
		t.Fatalf("save cells: %v", err)
	}
	if err := store.DeleteRun(ctx, "run-1"); err != nil {
		t.Fatalf("delete run: %v", err)
	}

	if _, ok, _ := store.GetRun(ctx, "run-1"); ok {
		t.Fatal("run survived delete")
	}
	if _, ok, _ := store.GetCellRecords(ctx, "run-1"); ok {
		t.Fatal("cell records survived delete")
	}
}
