package storage

import (
	"context"

	"cellsim/internal/model"
)

// Store defines persistence operations for simulation runs and their outputs.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, id string) (model.RunRecord, bool, error)
	ListRuns(ctx context.Context) ([]model.RunRecord, error)
	SaveCellRecords(ctx context.Context, runID string, cells []model.CellRecord) error
	GetCellRecords(ctx context.Context, runID string) ([]model.CellRecord, bool, error)
	SaveColonyRecords(ctx context.Context, runID string, colonies []model.ColonyRecord) error
	GetColonyRecords(ctx context.Context, runID string) ([]model.ColonyRecord, bool, error)
	SaveTrees(ctx context.Context, runID string, trees []model.TreeRecord) error
	GetTrees(ctx context.Context, runID string) ([]model.TreeRecord, bool, error)
	DeleteRun(ctx context.Context, id string) error
}

// Resetter is implemented by stores that can drop all persisted runs.
type Resetter interface {
	Reset(ctx context.Context) error
}
