package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"cellsim/internal/model"
	"cellsim/internal/storage"
	simapi "cellsim/pkg/cellsim"
)

const defaultOutDir = "runs"

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "init":
		return runInit(ctx, args[1:])
	case "reset":
		return runReset(ctx, args[1:])
	case "run":
		return runRun(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "cells":
		return runCells(ctx, args[1:])
	case "colonies":
		return runColonies(ctx, args[1:])
	case "tree":
		return runTree(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: cellsimctl <init|reset|run|runs|cells|colonies|tree> [flags]", msg)
}

func runInit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "cellsim.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := storage.NewStore(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = storage.CloseIfSupported(store)
	}()

	if err := store.Init(ctx); err != nil {
		return err
	}

	fmt.Printf("initialized store=%s\n", *storeKind)
	return nil
}

func runReset(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("reset", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "cellsim.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := simapi.New(simapi.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Reset(ctx); err != nil {
		return err
	}

	fmt.Printf("reset store=%s\n", *storeKind)
	return nil
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", "", "run config path (JSON or YAML)")
	seed := fs.Int64("seed", 1, "rng seed")
	outDir := fs.String("out", defaultOutDir, "artifacts output directory")
	noArtifacts := fs.Bool("no-artifacts", false, "skip writing CSV/Newick artifacts")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "cellsim.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *configPath == "" {
		return errors.New("run requires --config")
	}

	cfg, err := loadRunConfig(*configPath)
	if err != nil {
		return err
	}

	client, err := simapi.New(simapi.Options{
		StoreKind: *storeKind,
		DBPath:    *dbPath,
		OutDir:    *outDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Run(ctx, simapi.RunRequest{
		Config:        cfg,
		Seed:          *seed,
		SkipArtifacts: *noArtifacts,
	})
	if err != nil {
		return err
	}

	fmt.Printf("run completed run_id=%s seed=%d frames=%d stopped_by=%s final_cells=%d placement_fallbacks=%d\n",
		summary.RunID,
		*seed,
		summary.Frames,
		summary.StoppedBy,
		summary.FinalCellCount,
		summary.PlacementFallbacks,
	)
	if summary.ArtifactsDir != "" {
		fmt.Printf("artifacts_dir=%s\n", summary.ArtifactsDir)
	}
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "max runs to list")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "cellsim.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := simapi.New(simapi.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	runs, err := client.Runs(ctx, simapi.RunsRequest{Limit: *limit})
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	for _, r := range runs {
		fmt.Printf("run_id=%s created_at=%s seed=%d frames=%d stopped_by=%s final_cells=%d placement_fallbacks=%d\n",
			r.ID,
			r.CreatedAtUTC,
			r.Seed,
			r.Frames,
			r.StoppedBy,
			r.FinalCellCount,
			r.PlacementFallbacks,
		)
	}
	return nil
}

func runCells(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("cells", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show cell records for the most recent run")
	limit := fs.Int("limit", 50, "max records to print (<=0 for all)")
	jsonOut := fs.Bool("json", false, "emit cell records as JSON")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "cellsim.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("cells requires --run-id or --latest")
	}

	client, err := simapi.New(simapi.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	cells, err := client.Cells(ctx, simapi.RecordsRequest{
		RunID:  *runID,
		Latest: *latest,
		Limit:  *limit,
	})
	if err != nil {
		return err
	}
	if len(cells) == 0 {
		fmt.Println("no cell records")
		return nil
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(cells)
	}

	for _, c := range cells {
		fmt.Printf("frame=%d name=%s colony=%s gen=%d x=%.3f y=%.3f signal=%.4f fate=%s treatment=%s\n",
			c.SimulationFrames,
			c.Name,
			c.ColonyName,
			c.Generation,
			c.X,
			c.Y,
			c.SignalValue,
			c.Fate,
			c.TreatmentName,
		)
	}
	return nil
}

func runColonies(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("colonies", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show colony records for the most recent run")
	limit := fs.Int("limit", 50, "max records to print (<=0 for all)")
	jsonOut := fs.Bool("json", false, "emit colony records as JSON")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "cellsim.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("colonies requires --run-id or --latest")
	}

	client, err := simapi.New(simapi.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	colonies, err := client.Colonies(ctx, simapi.RecordsRequest{
		RunID:  *runID,
		Latest: *latest,
		Limit:  *limit,
	})
	if err != nil {
		return err
	}
	if len(colonies) == 0 {
		fmt.Println("no colony records")
		return nil
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(colonies)
	}

	for _, c := range colonies {
		fmt.Printf("frame=%d colony=%s size=%d signal_mean=%.4f signal_std=%.4f hours=%.2f\n",
			c.SimulationFrames,
			c.Name,
			c.Size,
			c.SignalMean,
			c.SignalStd,
			c.SimulationHours,
		)
	}
	return nil
}

func runTree(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("tree", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show trees for the most recent run")
	colonyName := fs.String("colony", "", "restrict to one colony name")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "cellsim.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("tree requires --run-id or --latest")
	}

	client, err := simapi.New(simapi.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	trees, err := client.Tree(ctx, simapi.TreeRequest{
		RunID:      *runID,
		Latest:     *latest,
		ColonyName: *colonyName,
	})
	if err != nil {
		return err
	}
	for _, tree := range trees {
		fmt.Printf("colony=%s\n%s", tree.ColonyName, tree.Newick)
		if !strings.HasSuffix(tree.Newick, "\n") {
			fmt.Println()
		}
	}
	return nil
}

// loadRunConfig reads a run config from JSON or YAML, picked by extension.
func loadRunConfig(path string) (model.RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.RunConfig{}, err
	}

	var cfg model.RunConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return model.RunConfig{}, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return model.RunConfig{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if len(cfg.Colonies) == 0 {
		return model.RunConfig{}, fmt.Errorf("%s declares no colonies", path)
	}
	return cfg, nil
}
