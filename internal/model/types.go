package model

import "cellsim/internal/treatment"

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// CellRecord is the per-frame snapshot of one cell, emitted for every node
// alive at the end of a frame and for nodes that turned terminal during it.
type CellRecord struct {
	Index             int     `json:"index"`
	ID                int     `json:"id"`
	Name              string  `json:"name"`
	BranchName        string  `json:"branch_name"`
	ColonyName        string  `json:"colony_name"`
	Generation        int     `json:"generation"`
	X                 float64 `json:"x"`
	Y                 float64 `json:"y"`
	Radius            float64 `json:"radius"`
	SignalValue       float64 `json:"signal_value"`
	SecondsSinceBirth int     `json:"seconds_since_birth"`
	Fate              string  `json:"fate"`
	TreatmentName     string  `json:"treatment_name"`
	DivisionThreshold float64 `json:"division_threshold"`
	DeathThreshold    float64 `json:"death_threshold"`
	FitnessMemory     float64 `json:"fitness_memory"`
	SimulationFrames  int     `json:"simulation_frames"`
	SimulationSeconds int     `json:"simulation_seconds"`
	SimulationHours   float64 `json:"simulation_hours"`
	SimulationDays    float64 `json:"simulation_days"`
}

// ColonyRecord is the per-frame aggregate snapshot of one colony.
type ColonyRecord struct {
	Index             int     `json:"index"`
	Name              string  `json:"name"`
	Size              int     `json:"size"`
	SecondsSinceBirth int     `json:"seconds_since_birth"`
	SignalMean        float64 `json:"signal_mean"`
	SignalStd         float64 `json:"signal_std"`
	SimulationFrames  int     `json:"simulation_frames"`
	SimulationSeconds int     `json:"simulation_seconds"`
	SimulationHours   float64 `json:"simulation_hours"`
	SimulationDays    float64 `json:"simulation_days"`
}

// TreeRecord is the Newick serialization of one colony's lineage trees.
type TreeRecord struct {
	VersionedRecord
	ColonyName string `json:"colony_name"`
	Newick     string `json:"newick"`
}

// RunRecord summarizes one completed simulation run.
type RunRecord struct {
	VersionedRecord
	ID                 string    `json:"id"`
	CreatedAtUTC       string    `json:"created_at_utc"`
	Seed               int64     `json:"seed"`
	Frames             int       `json:"frames"`
	StoppedBy          string    `json:"stopped_by"`
	FinalCellCount     int       `json:"final_cell_count"`
	PlacementFallbacks int       `json:"placement_fallbacks"`
	Config             RunConfig `json:"config"`
}

// TraitConfig parametrizes an inheritable trait: the bounded interval, the
// memory weight and an optional explicit initial value (drawn uniformly
// when omitted).
type TraitConfig struct {
	InitialValue *float64 `json:"initial_value,omitempty" yaml:"initial_value,omitempty"`
	Memory       float64  `json:"memory" yaml:"memory"`
	Min          float64  `json:"min" yaml:"min"`
	Max          float64  `json:"max" yaml:"max"`
}

// WellConfig is the bounding disc shared by every colony in a run.
type WellConfig struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Radius float64 `json:"radius" yaml:"radius"`
}

// ColonyConfig seeds one colony template; Copies instances are stamped out
// with letter suffixes on the colony name.
type ColonyConfig struct {
	Copies       int         `json:"copies" yaml:"copies"`
	InitialCells int         `json:"initial_cells" yaml:"initial_cells"`
	CellRadius   float64     `json:"cell_radius" yaml:"cell_radius"`
	Fitness      TraitConfig `json:"fitness" yaml:"fitness"`
	Signal       TraitConfig `json:"signal" yaml:"signal"`
}

// StopConditions end the frame loop; nil fields are ignored.
type StopConditions struct {
	StopAtFrame            *int `json:"stop_at_frame,omitempty" yaml:"stop_at_frame,omitempty"`
	StopAtSingleColonySize *int `json:"stop_at_single_colony_size,omitempty" yaml:"stop_at_single_colony_size,omitempty"`
	StopAtAllColoniesSize  *int `json:"stop_at_all_colonies_size,omitempty" yaml:"stop_at_all_colonies_size,omitempty"`
}

// RunConfig is the full configuration of one simulation run.
type RunConfig struct {
	Delta          int                      `json:"delta" yaml:"delta"`
	MaxFrames      int                      `json:"max_frames,omitempty" yaml:"max_frames,omitempty"`
	Well           WellConfig               `json:"well" yaml:"well"`
	Colonies       []ColonyConfig           `json:"colonies" yaml:"colonies"`
	Treatments     map[int]treatment.Config `json:"treatments" yaml:"treatments"`
	StopConditions StopConditions           `json:"stop_conditions" yaml:"stop_conditions"`
}
