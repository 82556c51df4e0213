package sim

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"cellsim/internal/geometry"
	"cellsim/internal/lineage"
	"cellsim/internal/model"
	"cellsim/internal/treatment"
)

const (
	// DefaultMaxFrames caps the frame loop regardless of stop conditions.
	DefaultMaxFrames = 10_000
	// DefaultPlacementRetries bounds the search for a non-overlapping
	// daughter position before the fallback placement kicks in.
	DefaultPlacementRetries = 20
)

// Stop reasons reported in the run result.
const (
	StoppedByFrameLimit       = "stop_at_frame"
	StoppedBySingleColonySize = "stop_at_single_colony_size"
	StoppedByAllColoniesSize  = "stop_at_all_colonies_size"
	StoppedByMaxFrames        = "max_frames"
)

// Config wires a runner. RNG is the single seeded source every stochastic
// draw consumes from; the runner processes leaves in a fixed order so equal
// seeds replay identical runs.
type Config struct {
	Well             Well
	Colonies         []*Colony
	Schedule         treatment.Schedule
	Delta            int
	MaxFrames        int
	Stop             model.StopConditions
	Sink             RecordSink
	IDs              *Sequence
	RNG              *rand.Rand
	PlacementRetries int
}

// Result summarizes a finished run.
type Result struct {
	Frames             int
	StoppedBy          string
	FinalCellCount     int
	PlacementFallbacks int
}

// Runner drives the frame loop over all colonies.
type Runner struct {
	cfg   Config
	clock Clock

	framesEmitted      int
	placementFallbacks int
	cellRecordIndex    int
	colonyRecordIndex  int
}

func NewRunner(cfg Config) (*Runner, error) {
	clock, err := NewClock(cfg.Delta)
	if err != nil {
		return nil, err
	}
	if cfg.RNG == nil {
		return nil, fmt.Errorf("random source is required")
	}
	if len(cfg.Colonies) == 0 {
		return nil, fmt.Errorf("at least one colony is required")
	}
	if cfg.Sink == nil {
		cfg.Sink = NopSink{}
	}
	if cfg.IDs == nil {
		cfg.IDs = &Sequence{}
	}
	if cfg.MaxFrames <= 0 {
		cfg.MaxFrames = DefaultMaxFrames
	}
	if cfg.PlacementRetries <= 0 {
		cfg.PlacementRetries = DefaultPlacementRetries
	}
	return &Runner{cfg: cfg, clock: clock}, nil
}

type decision struct {
	leaf int
	fate lineage.Fate
}

// Run executes the frame loop until a stop condition fires, the frame cap
// is reached, or the context is cancelled between frames. A frame's
// transitions are decided in full before any of them is applied, so a run
// never leaves a frame half-stepped.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	for {
		if err := ctx.Err(); err != nil {
			return r.result(""), err
		}
		frame := r.clock.Frame()
		if limit := r.cfg.Stop.StopAtFrame; limit != nil && frame >= *limit {
			return r.result(StoppedByFrameLimit), nil
		}
		if frame >= r.cfg.MaxFrames {
			return r.result(StoppedByMaxFrames), nil
		}

		active, err := r.cfg.Schedule.ActiveAt(frame)
		if err != nil {
			return r.result(""), err
		}
		if entry, ok := r.cfg.Schedule.EntryAt(frame); ok {
			if err := r.applyDisturbances(entry); err != nil {
				return r.result(""), err
			}
		}

		// Decide every leaf's fate before mutating anything.
		decisions := make([][]decision, len(r.cfg.Colonies))
		for ci, colony := range r.cfg.Colonies {
			leaves := colony.Tree.LiveLeaves()
			decisions[ci] = make([]decision, 0, len(leaves))
			for _, leaf := range leaves {
				node, err := colony.Tree.Node(leaf)
				if err != nil {
					return r.result(""), err
				}
				decisions[ci] = append(decisions[ci], decision{leaf: leaf, fate: resolveFate(node)})
			}
		}

		// Emit this frame's records: every live leaf with its decided fate.
		for ci, colony := range r.cfg.Colonies {
			for _, d := range decisions[ci] {
				if err := r.emitCellRecord(colony, d.leaf, d.fate); err != nil {
					return r.result(""), err
				}
			}
			if err := r.emitColonyRecord(colony); err != nil {
				return r.result(""), err
			}
		}
		r.framesEmitted++

		if reason := r.sizeStopReason(); reason != "" {
			return r.result(reason), nil
		}

		// Apply the transitions decided above.
		for ci, colony := range r.cfg.Colonies {
			for _, d := range decisions[ci] {
				if err := r.applyTransition(colony, d, active); err != nil {
					return r.result(""), err
				}
			}
		}

		r.clock.Tick()
	}
}

func (r *Runner) result(stoppedBy string) Result {
	total := 0
	for _, colony := range r.cfg.Colonies {
		total += colony.LiveCellCount()
	}
	return Result{
		Frames:             r.framesEmitted,
		StoppedBy:          stoppedBy,
		FinalCellCount:     total,
		PlacementFallbacks: r.placementFallbacks,
	}
}

// resolveFate compares the node's age against its birth-drawn thresholds.
// When both thresholds have been crossed, death wins ties and any case
// where it was scheduled no later than division.
func resolveFate(node *lineage.Node) lineage.Fate {
	elapsed := float64(node.SecondsSinceBirth) / 3600
	dying := elapsed >= node.DeathThreshold
	dividing := elapsed >= node.DivisionThreshold
	switch {
	case dying && (!dividing || node.DeathThreshold <= node.DivisionThreshold):
		return lineage.FateDeath
	case dividing:
		return lineage.FateDivision
	default:
		return lineage.FateNone
	}
}

func (r *Runner) applyTransition(colony *Colony, d decision, active treatment.Treatment) error {
	switch d.fate {
	case lineage.FateDeath:
		return colony.Tree.MarkDead(d.leaf)
	case lineage.FateDivision:
		return r.divide(colony, d.leaf, active)
	default:
		node, err := colony.Tree.Node(d.leaf)
		if err != nil {
			return err
		}
		node.SecondsSinceBirth += r.clock.Delta()
		node.Signal = node.Signal.Inherit(r.cfg.RNG)
		return nil
	}
}

// divide replaces a leaf with two daughters: independently inherited
// traits, freshly drawn thresholds from the currently active treatment,
// and discs placed inside the parent's footprint.
func (r *Runner) divide(colony *Colony, leaf int, active treatment.Treatment) error {
	if err := colony.Tree.MarkDivided(leaf); err != nil {
		return err
	}
	parent, err := colony.Tree.Node(leaf)
	if err != nil {
		return err
	}

	occupied := r.occupiedDiscs(colony, leaf)
	makeDaughter := func() lineage.Node {
		disc := r.placeDaughter(parent.Disc, occupied)
		occupied = append(occupied, disc)
		return lineage.Node{
			ID:                r.cfg.IDs.Next(),
			Disc:              disc,
			Fitness:           parent.Fitness.Inherit(r.cfg.RNG),
			Signal:            parent.Signal.Inherit(r.cfg.RNG),
			DivisionThreshold: active.DrawDivisionThreshold(r.cfg.RNG),
			DeathThreshold:    active.DrawDeathThreshold(r.cfg.RNG),
			TreatmentName:     active.Name,
			BornAtFrame:       r.clock.Frame() + 1,
		}
	}

	first := makeDaughter()
	second := makeDaughter()
	_, _, err = colony.Tree.AddChildren(leaf, first, second)
	return err
}

// occupiedDiscs gathers the discs a daughter must not overlap: every live
// leaf of the colony except the dividing parent itself.
func (r *Runner) occupiedDiscs(colony *Colony, dividing int) []geometry.Circle {
	leaves := colony.Tree.LiveLeaves()
	discs := make([]geometry.Circle, 0, len(leaves))
	for _, leaf := range leaves {
		if leaf == dividing {
			continue
		}
		node, err := colony.Tree.Node(leaf)
		if err != nil {
			continue
		}
		discs = append(discs, node.Disc)
	}
	return discs
}

// placeDaughter draws candidate centers uniformly inside the parent's disc.
// A candidate is rejected if its disc leaves the well or overlaps an
// occupied disc. After the retry budget the daughter lands exactly at the
// parent's center; the fallback is counted, never an error.
func (r *Runner) placeDaughter(parent geometry.Circle, occupied []geometry.Circle) geometry.Circle {
	radius := parent.Radius() / math.Sqrt2
	for try := 0; try < r.cfg.PlacementRetries; try++ {
		x, y := parent.RandomPoint(r.cfg.RNG)
		candidate, err := geometry.NewCircle(x, y, radius)
		if err != nil {
			continue
		}
		if !r.cfg.Well.Fits(candidate) {
			continue
		}
		if overlapsAny(candidate, occupied) {
			continue
		}
		return candidate
	}
	r.placementFallbacks++
	fallback, err := geometry.NewCircle(parent.X, parent.Y, radius)
	if err != nil {
		// Radius is derived from a validated disc; this cannot happen.
		fallback = parent
	}
	return fallback
}

func overlapsAny(candidate geometry.Circle, occupied []geometry.Circle) bool {
	for _, disc := range occupied {
		if candidate.OverlapsWith(disc) {
			return true
		}
	}
	return false
}

// applyDisturbances reconfigures live leaves when a schedule entry
// activates: the signal trait is rebuilt with the disturbance parameters
// and the fitness memory weight is replaced.
func (r *Runner) applyDisturbances(entry treatment.Treatment) error {
	if entry.SignalDisturbance == nil && entry.FitnessMemoryDisturbance == nil {
		return nil
	}
	for _, colony := range r.cfg.Colonies {
		for _, leaf := range colony.Tree.LiveLeaves() {
			node, err := colony.Tree.Node(leaf)
			if err != nil {
				return err
			}
			node.TreatmentName = entry.Name
			if d := entry.SignalDisturbance; d != nil {
				value := node.Signal.Value
				if d.InitialValue != nil {
					value = *d.InitialValue
				}
				value = math.Max(d.Min, math.Min(d.Max, value))
				signal, err := newTrait(r.cfg.RNG, model.TraitConfig{
					InitialValue: &value,
					Memory:       d.Memory,
					Min:          d.Min,
					Max:          d.Max,
				})
				if err != nil {
					return fmt.Errorf("signal disturbance for treatment %q: %w", entry.Name, err)
				}
				node.Signal = signal
			}
			if d := entry.FitnessMemoryDisturbance; d != nil {
				fitness, err := node.Fitness.WithMemory(*d)
				if err != nil {
					return fmt.Errorf("fitness memory disturbance for treatment %q: %w", entry.Name, err)
				}
				node.Fitness = fitness
			}
		}
	}
	return nil
}

func (r *Runner) emitCellRecord(colony *Colony, leaf int, fate lineage.Fate) error {
	node, err := colony.Tree.Node(leaf)
	if err != nil {
		return err
	}
	name, err := colony.Tree.Name(leaf)
	if err != nil {
		return err
	}
	branch, err := colony.Tree.BranchName(leaf)
	if err != nil {
		return err
	}
	rec := model.CellRecord{
		Index:             r.cellRecordIndex,
		ID:                node.ID,
		Name:              name,
		BranchName:        branch,
		ColonyName:        colony.Name,
		Generation:        node.Generation,
		X:                 node.Disc.X,
		Y:                 node.Disc.Y,
		Radius:            node.Disc.Radius(),
		SignalValue:       node.Signal.Value,
		SecondsSinceBirth: node.SecondsSinceBirth,
		Fate:              string(fate),
		TreatmentName:     node.TreatmentName,
		DivisionThreshold: node.DivisionThreshold,
		DeathThreshold:    node.DeathThreshold,
		FitnessMemory:     node.Fitness.Memory,
		SimulationFrames:  r.clock.Frame(),
		SimulationSeconds: r.clock.Seconds(),
		SimulationHours:   r.clock.Hours(),
		SimulationDays:    r.clock.Days(),
	}
	r.cellRecordIndex++
	return r.cfg.Sink.WriteCellRecord(rec)
}

func (r *Runner) emitColonyRecord(colony *Colony) error {
	mean, std := colony.SignalStats()
	rec := model.ColonyRecord{
		Index:             r.colonyRecordIndex,
		Name:              colony.Name,
		Size:              colony.LiveCellCount(),
		SecondsSinceBirth: r.clock.Seconds(),
		SignalMean:        mean,
		SignalStd:         std,
		SimulationFrames:  r.clock.Frame(),
		SimulationSeconds: r.clock.Seconds(),
		SimulationHours:   r.clock.Hours(),
		SimulationDays:    r.clock.Days(),
	}
	r.colonyRecordIndex++
	return r.cfg.Sink.WriteColonyRecord(rec)
}

func (r *Runner) sizeStopReason() string {
	if limit := r.cfg.Stop.StopAtSingleColonySize; limit != nil {
		for _, colony := range r.cfg.Colonies {
			if colony.LiveCellCount() >= *limit {
				return StoppedBySingleColonySize
			}
		}
	}
	if limit := r.cfg.Stop.StopAtAllColoniesSize; limit != nil {
		all := true
		for _, colony := range r.cfg.Colonies {
			if colony.LiveCellCount() < *limit {
				all = false
				break
			}
		}
		if all {
			return StoppedByAllColoniesSize
		}
	}
	return ""
}
