package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"cellsim/internal/model"
)

func sampleOutputs() RunOutputs {
	return RunOutputs{
		Run: model.RunRecord{
			VersionedRecord: model.VersionedRecord{SchemaVersion: 1, CodecVersion: 1},
			ID:              "run-1",
			CreatedAtUTC:    "2026-01-05T10:00:00Z",
			Seed:            42,
			Frames:          2,
			StoppedBy:       "stop_at_frame",
			FinalCellCount:  2,
		},
		Cells: []model.CellRecord{
			{
				Index: 0, ID: 1, Name: "1a-1", BranchName: "1a-1", ColonyName: "1a",
				X: 1.5, Y: -0.5, Radius: 1, SignalValue: 0.25,
				Fate: "none", TreatmentName: "Control",
				DivisionThreshold: 24, DeathThreshold: 32, FitnessMemory: 0.5,
			},
			{
				Index: 1, ID: 1, Name: "1a-1", BranchName: "1a-1", ColonyName: "1a",
				Generation: 0, SecondsSinceBirth: 3600, Fate: "division",
				TreatmentName: "Control", SimulationFrames: 1, SimulationSeconds: 3600,
				SimulationHours: 1, SimulationDays: 1.0 / 24,
			},
		},
		Colonies: []model.ColonyRecord{
			{Index: 0, Name: "1a", Size: 1, SignalMean: 0.25},
			{Index: 1, Name: "1a", Size: 1, SecondsSinceBirth: 3600, SignalMean: 0.25, SimulationFrames: 1, SimulationSeconds: 3600, SimulationHours: 1},
		},
		Trees: []model.TreeRecord{
			{ColonyName: "1a", Newick: "(1a-1.1:0,1a-1.2:0)1a-1:1;\n"},
		},
	}
}

func TestWriteRunOutputsLayout(t *testing.T) {
	baseDir := t.TempDir()

	runDir, err := WriteRunOutputs(baseDir, sampleOutputs())
	if err != nil {
		t.Fatalf("write outputs: %v", err)
	}
	if runDir != filepath.Join(baseDir, "run-1") {
		t.Fatalf("unexpected run dir: %s", runDir)
	}

	for _, name := range []string{CellCSVFile, ColonyCSVFile, ParamsFile, "colony_1a.newick"} {
		if _, err := os.Stat(filepath.Join(runDir, name)); err != nil {
			t.Fatalf("expected artifact %s: %v", name, err)
		}
	}
}

func TestWriteRunOutputsRequiresRunID(t *testing.T) {
	outputs := sampleOutputs()
	outputs.Run.ID = ""
	if _, err := WriteRunOutputs(t.TempDir(), outputs); err == nil {
		t.Fatal("expected error for missing run id")
	}
}

func TestCellCSVRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), CellCSVFile)
	outputs := sampleOutputs()
	if err := WriteCellCSV(path, outputs.Cells); err != nil {
		t.Fatalf("write cells: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("row count = %d, want header + 2", len(rows))
	}
	header := rows[0]
	if header[0] != "index" || header[11] != "fate_at_next_frame" || header[13] != "death_threshold" {
		t.Fatalf("unexpected header: %v", header)
	}
	if len(rows[1]) != len(header) {
		t.Fatalf("row width %d != header width %d", len(rows[1]), len(header))
	}
	if rows[1][2] != "1a-1" || rows[1][11] != "none" {
		t.Fatalf("unexpected first row: %v", rows[1])
	}
	if rows[2][11] != "division" || rows[2][17] != "3600" {
		t.Fatalf("unexpected second row: %v", rows[2])
	}
}

func TestColonyCSVRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), ColonyCSVFile)
	outputs := sampleOutputs()
	if err := WriteColonyCSV(path, outputs.Colonies); err != nil {
		t.Fatalf("write colonies: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("row count = %d, want header + 2", len(rows))
	}
	if rows[0][1] != "name" || rows[0][4] != "signal_mean" {
		t.Fatalf("unexpected header: %v", rows[0])
	}
	if rows[1][1] != "1a" || rows[1][2] != "1" {
		t.Fatalf("unexpected first row: %v", rows[1])
	}
}

func TestParamsJSONRoundTrip(t *testing.T) {
	baseDir := t.TempDir()
	outputs := sampleOutputs()

	runDir, err := WriteRunOutputs(baseDir, outputs)
	if err != nil {
		t.Fatalf("write outputs: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(runDir, ParamsFile))
	if err != nil {
		t.Fatalf("read params: %v", err)
	}
	var run model.RunRecord
	if err := json.Unmarshal(data, &run); err != nil {
		t.Fatalf("unmarshal params: %v", err)
	}
	if run.ID != outputs.Run.ID || run.Seed != outputs.Run.Seed {
		t.Fatalf("unexpected params: %+v", run)
	}
}

func TestTreeFileContents(t *testing.T) {
	baseDir := t.TempDir()
	outputs := sampleOutputs()

	runDir, err := WriteRunOutputs(baseDir, outputs)
	if err != nil {
		t.Fatalf("write outputs: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(runDir, TreeFileName("1a")))
	if err != nil {
		t.Fatalf("read tree: %v", err)
	}
	if string(data) != outputs.Trees[0].Newick {
		t.Fatalf("unexpected tree contents: %q", data)
	}
}
