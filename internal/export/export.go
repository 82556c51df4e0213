// Package export writes the on-disk artifacts of a finished run: the cell
// and colony CSV tables, the run parameters JSON and one Newick file per
// colony lineage tree.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"cellsim/internal/model"
)

const (
	CellCSVFile   = "cells.csv"
	ColonyCSVFile = "colonies.csv"
	ParamsFile    = "params.json"
)

var cellCSVHeader = []string{
	"index",
	"id",
	"name",
	"branch_name",
	"colony_name",
	"generation",
	"x",
	"y",
	"radius",
	"signal_value",
	"seconds_since_birth",
	"fate_at_next_frame",
	"treatment_name",
	"death_threshold",
	"division_threshold",
	"fitness_memory",
	"simulation_frames",
	"simulation_seconds",
	"simulation_hours",
	"simulation_days",
}

var colonyCSVHeader = []string{
	"index",
	"name",
	"size",
	"seconds_since_birth",
	"signal_mean",
	"signal_std",
	"simulation_frames",
	"simulation_seconds",
	"simulation_hours",
	"simulation_days",
}

// RunOutputs bundles everything a run leaves behind.
type RunOutputs struct {
	Run      model.RunRecord
	Cells    []model.CellRecord
	Colonies []model.ColonyRecord
	Trees    []model.TreeRecord
}

// WriteRunOutputs writes all artifacts under baseDir/<run id> and returns
// the run directory path.
func WriteRunOutputs(baseDir string, outputs RunOutputs) (string, error) {
	if outputs.Run.ID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, outputs.Run.ID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := WriteCellCSV(filepath.Join(runDir, CellCSVFile), outputs.Cells); err != nil {
		return "", err
	}
	if err := WriteColonyCSV(filepath.Join(runDir, ColonyCSVFile), outputs.Colonies); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, ParamsFile), outputs.Run); err != nil {
		return "", err
	}
	for _, tree := range outputs.Trees {
		path := filepath.Join(runDir, TreeFileName(tree.ColonyName))
		if err := os.WriteFile(path, []byte(tree.Newick), 0o644); err != nil {
			return "", err
		}
	}
	return runDir, nil
}

// TreeFileName is the Newick file name for one colony's lineage trees.
func TreeFileName(colonyName string) string {
	return fmt.Sprintf("colony_%s.newick", colonyName)
}

func WriteCellCSV(path string, cells []model.CellRecord) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(cellCSVHeader); err != nil {
		return err
	}
	for _, cell := range cells {
		if err := writer.Write([]string{
			strconv.Itoa(cell.Index),
			strconv.Itoa(cell.ID),
			cell.Name,
			cell.BranchName,
			cell.ColonyName,
			strconv.Itoa(cell.Generation),
			formatFloat(cell.X),
			formatFloat(cell.Y),
			formatFloat(cell.Radius),
			formatFloat(cell.SignalValue),
			strconv.Itoa(cell.SecondsSinceBirth),
			cell.Fate,
			cell.TreatmentName,
			formatFloat(cell.DeathThreshold),
			formatFloat(cell.DivisionThreshold),
			formatFloat(cell.FitnessMemory),
			strconv.Itoa(cell.SimulationFrames),
			strconv.Itoa(cell.SimulationSeconds),
			formatFloat(cell.SimulationHours),
			formatFloat(cell.SimulationDays),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func WriteColonyCSV(path string, colonies []model.ColonyRecord) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(colonyCSVHeader); err != nil {
		return err
	}
	for _, colony := range colonies {
		if err := writer.Write([]string{
			strconv.Itoa(colony.Index),
			colony.Name,
			strconv.Itoa(colony.Size),
			strconv.Itoa(colony.SecondsSinceBirth),
			formatFloat(colony.SignalMean),
			formatFloat(colony.SignalStd),
			strconv.Itoa(colony.SimulationFrames),
			strconv.Itoa(colony.SimulationSeconds),
			formatFloat(colony.SimulationHours),
			formatFloat(colony.SimulationDays),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func writeJSON(path string, payload any) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	if !strings.HasSuffix(string(data), "\n") {
		data = append(data, '\n')
	}
	return os.WriteFile(path, data, 0o644)
}
