// Package cellsim is the embedding API of the simulator: it wires a run
// from a config, drives the frame loop, persists the outputs and answers
// queries over stored runs.
package cellsim

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"cellsim/internal/export"
	"cellsim/internal/model"
	"cellsim/internal/sim"
	"cellsim/internal/storage"
)

const (
	defaultOutDir = "runs"
	defaultDBPath = "cellsim.db"
)

type Options struct {
	StoreKind string
	DBPath    string
	OutDir    string
}

type Client struct {
	store  storage.Store
	outDir string

	initialized bool
}

type RunRequest struct {
	Config model.RunConfig
	Seed   int64

	// SkipArtifacts suppresses the on-disk CSV/Newick output; the run is
	// still persisted in the store.
	SkipArtifacts bool
}

type RunSummary struct {
	RunID              string
	ArtifactsDir       string
	Frames             int
	StoppedBy          string
	FinalCellCount     int
	PlacementFallbacks int
}

type RunsRequest struct {
	Limit int
}

type RecordsRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type TreeRequest struct {
	RunID      string
	Latest     bool
	ColonyName string
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	outDir := opts.OutDir
	if outDir == "" {
		outDir = defaultOutDir
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{store: store, outDir: outDir}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	return c.ensureStore(ctx)
}

// Reset drops every persisted run and reinitializes the store. Stores that
// cannot reset in place are simply reinitialized.
func (c *Client) Reset(ctx context.Context) error {
	if err := c.ensureStore(ctx); err != nil {
		return err
	}
	if resetter, ok := c.store.(storage.Resetter); ok {
		return resetter.Reset(ctx)
	}
	return c.store.Init(ctx)
}

// DeleteRun removes one run and all of its records and trees.
func (c *Client) DeleteRun(ctx context.Context, runID string) error {
	if runID == "" {
		return errors.New("run id is required")
	}
	if err := c.ensureStore(ctx); err != nil {
		return err
	}
	return c.store.DeleteRun(ctx, runID)
}

// Run executes one simulation run to completion, persists the run header,
// the per-frame records and the lineage trees, and writes the artifact
// directory unless the request opts out.
func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	if len(req.Config.Colonies) == 0 {
		return RunSummary{}, errors.New("run config declares no colonies")
	}
	if err := c.ensureStore(ctx); err != nil {
		return RunSummary{}, err
	}

	rng := rand.New(rand.NewSource(req.Seed))
	sink := &sim.CollectSink{}
	runner, colonies, err := sim.FromConfig(req.Config, sink, rng)
	if err != nil {
		return RunSummary{}, err
	}

	result, err := runner.Run(ctx)
	if err != nil {
		return RunSummary{}, err
	}

	trees := make([]model.TreeRecord, 0, len(colonies))
	for _, colony := range colonies {
		newick, err := colony.Tree.NewickAll()
		if err != nil {
			return RunSummary{}, fmt.Errorf("serialize colony %s: %w", colony.Name, err)
		}
		trees = append(trees, model.TreeRecord{
			VersionedRecord: versioned(),
			ColonyName:      colony.Name,
			Newick:          newick,
		})
	}

	run := model.RunRecord{
		VersionedRecord:    versioned(),
		ID:                 uuid.NewString(),
		CreatedAtUTC:       time.Now().UTC().Format(time.RFC3339Nano),
		Seed:               req.Seed,
		Frames:             result.Frames,
		StoppedBy:          result.StoppedBy,
		FinalCellCount:     result.FinalCellCount,
		PlacementFallbacks: result.PlacementFallbacks,
		Config:             req.Config,
	}

	if err := c.store.SaveRun(ctx, run); err != nil {
		return RunSummary{}, err
	}
	if err := c.store.SaveCellRecords(ctx, run.ID, sink.Cells); err != nil {
		return RunSummary{}, err
	}
	if err := c.store.SaveColonyRecords(ctx, run.ID, sink.Colonies); err != nil {
		return RunSummary{}, err
	}
	if err := c.store.SaveTrees(ctx, run.ID, trees); err != nil {
		return RunSummary{}, err
	}

	summary := RunSummary{
		RunID:              run.ID,
		Frames:             result.Frames,
		StoppedBy:          result.StoppedBy,
		FinalCellCount:     result.FinalCellCount,
		PlacementFallbacks: result.PlacementFallbacks,
	}
	if !req.SkipArtifacts {
		runDir, err := export.WriteRunOutputs(c.outDir, export.RunOutputs{
			Run:      run,
			Cells:    sink.Cells,
			Colonies: sink.Colonies,
			Trees:    trees,
		})
		if err != nil {
			return RunSummary{}, err
		}
		summary.ArtifactsDir = filepath.Clean(runDir)
	}
	return summary, nil
}

func (c *Client) Runs(ctx context.Context, req RunsRequest) ([]model.RunRecord, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}
	if err := c.ensureStore(ctx); err != nil {
		return nil, err
	}

	runs, err := c.store.ListRuns(ctx)
	if err != nil {
		return nil, err
	}
	if len(runs) > req.Limit {
		runs = runs[len(runs)-req.Limit:]
	}
	return runs, nil
}

func (c *Client) Cells(ctx context.Context, req RecordsRequest) ([]model.CellRecord, error) {
	runID, err := c.resolveRunID(ctx, req.RunID, req.Latest)
	if err != nil {
		return nil, err
	}

	cells, ok, err := c.store.GetCellRecords(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("cell records not found for run id: %s", runID)
	}
	if req.Limit > 0 && len(cells) > req.Limit {
		cells = cells[:req.Limit]
	}
	return cells, nil
}

func (c *Client) Colonies(ctx context.Context, req RecordsRequest) ([]model.ColonyRecord, error) {
	runID, err := c.resolveRunID(ctx, req.RunID, req.Latest)
	if err != nil {
		return nil, err
	}

	colonies, ok, err := c.store.GetColonyRecords(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("colony records not found for run id: %s", runID)
	}
	if req.Limit > 0 && len(colonies) > req.Limit {
		colonies = colonies[:req.Limit]
	}
	return colonies, nil
}

// Tree returns one colony's Newick serialization, or every colony's when
// the request names none.
func (c *Client) Tree(ctx context.Context, req TreeRequest) ([]model.TreeRecord, error) {
	runID, err := c.resolveRunID(ctx, req.RunID, req.Latest)
	if err != nil {
		return nil, err
	}

	trees, ok, err := c.store.GetTrees(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("trees not found for run id: %s", runID)
	}
	if req.ColonyName == "" {
		return trees, nil
	}
	for _, tree := range trees {
		if tree.ColonyName == req.ColonyName {
			return []model.TreeRecord{tree}, nil
		}
	}
	return nil, fmt.Errorf("colony %s not found in run %s", req.ColonyName, runID)
}

func (c *Client) resolveRunID(ctx context.Context, runID string, latest bool) (string, error) {
	if runID != "" && latest {
		return "", errors.New("use either run id or latest")
	}
	if err := c.ensureStore(ctx); err != nil {
		return "", err
	}
	if latest {
		runs, err := c.store.ListRuns(ctx)
		if err != nil {
			return "", err
		}
		if len(runs) == 0 {
			return "", errors.New("no runs available")
		}
		return runs[len(runs)-1].ID, nil
	}
	if runID == "" {
		return "", errors.New("run id or latest is required")
	}
	return runID, nil
}

func (c *Client) ensureStore(ctx context.Context) error {
	if c.initialized {
		return nil
	}
	if err := c.store.Init(ctx); err != nil {
		return err
	}
	c.initialized = true
	return nil
}

func versioned() model.VersionedRecord {
	return model.VersionedRecord{
		SchemaVersion: storage.CurrentSchemaVersion,
		CodecVersion:  storage.CurrentCodecVersion,
	}
}
