package sim

import (
	"context"
	"math/rand"
	"reflect"
	"testing"

	"cellsim/internal/curve"
	"cellsim/internal/geometry"
	"cellsim/internal/lineage"
	"cellsim/internal/model"
	"cellsim/internal/trait"
	"cellsim/internal/treatment"
)

func intPtr(v int) *int {
	return &v
}

// fixedCurve builds a degenerate gaussian so thresholds are exact hours.
func fixedCurve(hours float64) curve.Config {
	return curve.Config{Name: "Gaussian", Mean: hours, Std: 0}
}

func baseConfig(divisionHours, deathHours float64) model.RunConfig {
	return model.RunConfig{
		Delta: 3600,
		Well:  model.WellConfig{X: 0, Y: 0, Radius: 100},
		Colonies: []model.ColonyConfig{{
			Copies:       1,
			InitialCells: 1,
			CellRadius:   1,
			Fitness:      model.TraitConfig{Memory: 0.5, Min: 0, Max: 1},
			Signal:       model.TraitConfig{Memory: 0.9, Min: -1, Max: 1},
		}},
		Treatments: map[int]treatment.Config{
			0: {
				Name:          "Control",
				DivisionCurve: fixedCurve(divisionHours),
				DeathCurve:    fixedCurve(deathHours),
			},
		},
	}
}

func runConfig(t *testing.T, cfg model.RunConfig, seed int64) (Result, *CollectSink, []*Colony) {
	t.Helper()
	sink := &CollectSink{}
	runner, colonies, err := FromConfig(cfg, sink, rand.New(rand.NewSource(seed)))
	if err != nil {
		t.Fatalf("from config: %v", err)
	}
	result, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	return result, sink, colonies
}

func TestStopAtFrameProducesExactFrameCount(t *testing.T) {
	cfg := baseConfig(1e6, 1e6) // cells never divide nor die
	cfg.StopConditions.StopAtFrame = intPtr(5)

	result, sink, _ := runConfig(t, cfg, 1)
	if result.StoppedBy != StoppedByFrameLimit {
		t.Fatalf("stopped by %q, want %q", result.StoppedBy, StoppedByFrameLimit)
	}
	if result.Frames != 5 {
		t.Fatalf("frames = %d, want 5", result.Frames)
	}
	if len(sink.Cells) != 5 {
		t.Fatalf("cell records = %d, want 5 (one cell, five frames)", len(sink.Cells))
	}
	for i, rec := range sink.Cells {
		if rec.SimulationFrames != i {
			t.Fatalf("record %d at frame %d", i, rec.SimulationFrames)
		}
		if rec.Fate != "none" {
			t.Fatalf("record %d fate = %q, want none", i, rec.Fate)
		}
		if rec.SecondsSinceBirth != i*3600 {
			t.Fatalf("record %d seconds since birth = %d", i, rec.SecondsSinceBirth)
		}
	}
	if len(sink.Colonies) != 5 {
		t.Fatalf("colony records = %d, want 5", len(sink.Colonies))
	}
}

func TestDivisionGrowsColonyAndStopsAtSize(t *testing.T) {
	cfg := baseConfig(1, 1e6) // divide after one simulated hour
	cfg.StopConditions.StopAtSingleColonySize = intPtr(4)

	result, sink, colonies := runConfig(t, cfg, 2)
	if result.StoppedBy != StoppedBySingleColonySize {
		t.Fatalf("stopped by %q, want %q", result.StoppedBy, StoppedBySingleColonySize)
	}
	if result.FinalCellCount < 4 {
		t.Fatalf("final cell count = %d, want >= 4", result.FinalCellCount)
	}

	var divisions int
	for _, rec := range sink.Cells {
		if rec.Fate == "division" {
			divisions++
		}
	}
	if divisions == 0 {
		t.Fatal("expected division records")
	}

	tree := colonies[0].Tree
	for i := 0; i < tree.Len(); i++ {
		node, err := tree.Node(i)
		if err != nil {
			t.Fatalf("node %d: %v", i, err)
		}
		if len(node.Children) != 0 && len(node.Children) != 2 {
			t.Fatalf("node %d has %d children", i, len(node.Children))
		}
		for _, child := range node.Children {
			c, err := tree.Node(child)
			if err != nil {
				t.Fatalf("child %d: %v", child, err)
			}
			if c.Parent != i {
				t.Fatalf("child %d parent = %d, want %d", child, c.Parent, i)
			}
			if c.Generation != node.Generation+1 {
				t.Fatalf("child %d generation = %d, want %d", child, c.Generation, node.Generation+1)
			}
		}
	}
}

func TestStopAtAllColoniesSize(t *testing.T) {
	cfg := baseConfig(1, 1e6)
	cfg.Colonies[0].Copies = 2
	cfg.StopConditions.StopAtAllColoniesSize = intPtr(2)

	result, _, colonies := runConfig(t, cfg, 3)
	if result.StoppedBy != StoppedByAllColoniesSize {
		t.Fatalf("stopped by %q, want %q", result.StoppedBy, StoppedByAllColoniesSize)
	}
	for _, colony := range colonies {
		if colony.LiveCellCount() < 2 {
			t.Fatalf("colony %s size = %d, want >= 2", colony.Name, colony.LiveCellCount())
		}
	}
}

func TestMaxFramesCapsRunWithoutStopConditions(t *testing.T) {
	cfg := baseConfig(1e6, 1e6)
	cfg.MaxFrames = 7

	result, sink, _ := runConfig(t, cfg, 4)
	if result.StoppedBy != StoppedByMaxFrames {
		t.Fatalf("stopped by %q, want %q", result.StoppedBy, StoppedByMaxFrames)
	}
	if result.Frames != 7 || len(sink.Cells) != 7 {
		t.Fatalf("frames = %d, cell records = %d, want 7 each", result.Frames, len(sink.Cells))
	}
}

func TestDeathBeatsDivisionOnTie(t *testing.T) {
	cases := []struct {
		name     string
		division float64
		death    float64
		want     lineage.Fate
	}{
		{"death earlier", 5, 2, lineage.FateDeath},
		{"tie", 2, 2, lineage.FateDeath},
		{"division earlier", 2, 5, lineage.FateDivision},
		{"neither reached", 50, 60, lineage.FateNone},
		{"both crossed, death scheduled first", 2, 1, lineage.FateDeath},
	}
	for _, tc := range cases {
		node := &lineage.Node{
			DivisionThreshold: tc.division,
			DeathThreshold:    tc.death,
			SecondsSinceBirth: 3 * 3600, // 3 hours old
		}
		if got := resolveFate(node); got != tc.want {
			t.Fatalf("%s: fate = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestDeadCellEndsLineage(t *testing.T) {
	cfg := baseConfig(1e6, 1) // die after one simulated hour
	cfg.StopConditions.StopAtFrame = intPtr(4)

	result, sink, colonies := runConfig(t, cfg, 5)
	if result.FinalCellCount != 0 {
		t.Fatalf("final cell count = %d, want 0", result.FinalCellCount)
	}

	var deaths int
	for _, rec := range sink.Cells {
		if rec.Fate == "death" {
			deaths++
		}
	}
	if deaths != 1 {
		t.Fatalf("death records = %d, want 1", deaths)
	}

	root, err := colonies[0].Tree.Node(0)
	if err != nil {
		t.Fatalf("root: %v", err)
	}
	if root.Fate != lineage.FateDeath || len(root.Children) != 0 {
		t.Fatalf("root fate = %q with %d children", root.Fate, len(root.Children))
	}
}

func TestDeterminismAcrossIdenticalSeeds(t *testing.T) {
	cfg := baseConfig(1, 1e6)
	cfg.StopConditions.StopAtFrame = intPtr(8)

	_, first, _ := runConfig(t, cfg, 42)
	_, second, _ := runConfig(t, cfg, 42)

	if !reflect.DeepEqual(first.Cells, second.Cells) {
		t.Fatal("cell records diverged between identical seeds")
	}
	if !reflect.DeepEqual(first.Colonies, second.Colonies) {
		t.Fatal("colony records diverged between identical seeds")
	}

	_, other, _ := runConfig(t, cfg, 43)
	if reflect.DeepEqual(first.Cells, other.Cells) {
		t.Fatal("different seeds produced identical cell records")
	}
}

func TestScheduleSwitchGovernsNewThresholds(t *testing.T) {
	cfg := baseConfig(1, 1e6)
	cfg.Treatments[3] = treatment.Config{
		Name:          "TMZ",
		DivisionCurve: fixedCurve(500),
		DeathCurve:    fixedCurve(1e6),
	}
	cfg.StopConditions.StopAtFrame = intPtr(8)

	_, sink, _ := runConfig(t, cfg, 6)
	for _, rec := range sink.Cells {
		switch rec.TreatmentName {
		case "Control", "TMZ":
		default:
			t.Fatalf("unexpected treatment name %q", rec.TreatmentName)
		}
	}

	var sawTMZ bool
	for _, rec := range sink.Cells {
		if rec.TreatmentName == "TMZ" {
			sawTMZ = true
			if rec.DivisionThreshold != 500 {
				t.Fatalf("TMZ cell division threshold = %v, want 500", rec.DivisionThreshold)
			}
		}
	}
	if !sawTMZ {
		t.Fatal("expected cells born under the TMZ regimen")
	}
}

func TestFitnessMemoryDisturbanceAppliesOnActivation(t *testing.T) {
	disturbed := 0.9
	cfg := baseConfig(1e6, 1e6)
	cfg.Treatments[2] = treatment.Config{
		Name:                     "TMZ",
		DivisionCurve:            fixedCurve(1e6),
		DeathCurve:               fixedCurve(1e6),
		FitnessMemoryDisturbance: &disturbed,
	}
	cfg.StopConditions.StopAtFrame = intPtr(4)

	_, sink, _ := runConfig(t, cfg, 7)
	for _, rec := range sink.Cells {
		want := 0.5
		if rec.SimulationFrames >= 2 {
			want = 0.9
		}
		if rec.FitnessMemory != want {
			t.Fatalf("frame %d fitness memory = %v, want %v", rec.SimulationFrames, rec.FitnessMemory, want)
		}
	}
}

func TestPlacementFallbackIsCountedNotFatal(t *testing.T) {
	// A well far smaller than the dividing cell makes every candidate
	// placement invalid, forcing the deterministic center fallback.
	rng := rand.New(rand.NewSource(8))
	wellDisc, err := geometry.NewCircle(0, 0, 0.1)
	if err != nil {
		t.Fatalf("well disc: %v", err)
	}
	well := Well{Disc: wellDisc}

	schedule, err := treatment.NewScheduleFromConfig(map[int]treatment.Config{
		0: {Name: "Control", DivisionCurve: fixedCurve(1), DeathCurve: fixedCurve(1e6)},
	})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}

	disc, err := geometry.NewCircle(0, 0, 1)
	if err != nil {
		t.Fatalf("disc: %v", err)
	}
	fitness, err := trait.New(rng, 0.5, true, 0.5, 0, 1)
	if err != nil {
		t.Fatalf("fitness: %v", err)
	}
	signal, err := trait.New(rng, 0, true, 0.9, -1, 1)
	if err != nil {
		t.Fatalf("signal: %v", err)
	}
	colony := &Colony{Name: "1a", Tree: lineage.NewTree("1a")}
	colony.Tree.AddRoot(lineage.Node{
		ID:                0,
		Disc:              disc,
		Fitness:           fitness,
		Signal:            signal,
		DivisionThreshold: 1,
		DeathThreshold:    1e6,
		TreatmentName:     "Control",
	})

	sink := &CollectSink{}
	runner, err := NewRunner(Config{
		Well:     well,
		Colonies: []*Colony{colony},
		Schedule: schedule,
		Delta:    3600,
		Stop:     model.StopConditions{StopAtFrame: intPtr(3)},
		Sink:     sink,
		IDs:      &Sequence{next: 1},
		RNG:      rng,
	})
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	result, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.PlacementFallbacks != 2 {
		t.Fatalf("placement fallbacks = %d, want 2 (both daughters)", result.PlacementFallbacks)
	}

	root, _ := colony.Tree.Node(0)
	for _, child := range root.Children {
		node, err := colony.Tree.Node(child)
		if err != nil {
			t.Fatalf("child: %v", err)
		}
		if node.Disc.X != 0 || node.Disc.Y != 0 {
			t.Fatalf("fallback placement not at parent center: (%v, %v)", node.Disc.X, node.Disc.Y)
		}
	}
}

func TestDaughterDiscsStayInsideWell(t *testing.T) {
	cfg := baseConfig(1, 1e6)
	cfg.StopConditions.StopAtFrame = intPtr(10)

	_, sink, _ := runConfig(t, cfg, 9)
	wellDisc, err := geometry.NewCircle(cfg.Well.X, cfg.Well.Y, cfg.Well.Radius)
	if err != nil {
		t.Fatalf("well disc: %v", err)
	}
	for _, rec := range sink.Cells {
		disc, err := geometry.NewCircle(rec.X, rec.Y, rec.Radius)
		if err != nil {
			t.Fatalf("record disc: %v", err)
		}
		// Fallback placements may only coincide with a parent that fit.
		if !wellDisc.Contains(disc) {
			t.Fatalf("cell %s left the well: (%v, %v, r=%v)", rec.Name, rec.X, rec.Y, rec.Radius)
		}
	}
}

func TestCancelledContextStopsBeforeNextTick(t *testing.T) {
	cfg := baseConfig(1e6, 1e6)
	sink := &CollectSink{}
	runner, _, err := FromConfig(cfg, sink, rand.New(rand.NewSource(10)))
	if err != nil {
		t.Fatalf("from config: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := runner.Run(ctx); err == nil {
		t.Fatal("expected context error")
	}
	if len(sink.Cells) != 0 {
		t.Fatalf("expected no records after pre-run cancellation, got %d", len(sink.Cells))
	}
}

func TestRunnerValidatesConfig(t *testing.T) {
	if _, err := NewRunner(Config{Delta: 0}); err == nil {
		t.Fatal("expected error for non-positive delta")
	}
	if _, err := NewRunner(Config{Delta: 60}); err == nil {
		t.Fatal("expected error for missing random source")
	}
	if _, err := NewRunner(Config{Delta: 60, RNG: rand.New(rand.NewSource(1))}); err == nil {
		t.Fatal("expected error for missing colonies")
	}
}
