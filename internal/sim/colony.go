package sim

import (
	"fmt"
	"math"
	"math/rand"

	"cellsim/internal/geometry"
	"cellsim/internal/lineage"
	"cellsim/internal/model"
	"cellsim/internal/trait"
	"cellsim/internal/treatment"
)

// Sequence hands out unique cell identifiers across all colonies of a run.
type Sequence struct {
	next int
}

func (s *Sequence) Next() int {
	v := s.next
	s.next++
	return v
}

// Colony is one growing population of cells: a set of lineage trees in a
// shared arena, living in the run's Well under the run's Schedule.
type Colony struct {
	Name string
	Tree *lineage.Tree
}

// LiveCellCount is the number of leaves whose fate is still undecided.
func (c *Colony) LiveCellCount() int {
	return len(c.Tree.LiveLeaves())
}

// SignalStats returns mean and standard deviation of the signal value over
// the live leaves; both are zero for an extinct colony.
func (c *Colony) SignalStats() (mean, std float64) {
	leaves := c.Tree.LiveLeaves()
	if len(leaves) == 0 {
		return 0, 0
	}
	var sum float64
	for _, leaf := range leaves {
		node, _ := c.Tree.Node(leaf)
		sum += node.Signal.Value
	}
	mean = sum / float64(len(leaves))
	var sq float64
	for _, leaf := range leaves {
		node, _ := c.Tree.Node(leaf)
		d := node.Signal.Value - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(len(leaves)))
}

// BuildColonies stamps out every colony described by the config, placing
// founding cells at a random spot inside the well and drawing their fate
// thresholds from the treatment scheduled at frame 0.
func BuildColonies(
	cfg model.RunConfig,
	schedule treatment.Schedule,
	well Well,
	ids *Sequence,
	rng *rand.Rand,
) ([]*Colony, error) {
	initial, err := schedule.ActiveAt(0)
	if err != nil {
		return nil, err
	}

	var colonies []*Colony
	for number, colonyCfg := range cfg.Colonies {
		copies := colonyCfg.Copies
		if copies <= 0 {
			copies = 1
		}
		initialCells := colonyCfg.InitialCells
		if initialCells <= 0 {
			initialCells = 1
		}
		cellRadius := colonyCfg.CellRadius
		if cellRadius <= 0 {
			cellRadius = 1
		}

		// Founding cells scatter inside a small neighborhood around the
		// colony's anchor point; the anchor is drawn from the well shrunk
		// by the neighborhood so every disc starts inside the well.
		spread := cellRadius * 4
		anchorArea, err := well.Disc.WithRadius(well.Disc.Radius() - spread - cellRadius)
		if err != nil || anchorArea.Radius() <= 0 {
			return nil, fmt.Errorf("well radius %v too small for colony cells of radius %v", well.Disc.Radius(), cellRadius)
		}

		for copyIdx := 0; copyIdx < copies; copyIdx++ {
			name := fmt.Sprintf("%d%s", number+1, copySuffix(copyIdx))
			colony := &Colony{Name: name, Tree: lineage.NewTree(name)}

			anchorX, anchorY := anchorArea.RandomPoint(rng)
			neighborhood, err := geometry.NewCircle(anchorX, anchorY, spread)
			if err != nil {
				return nil, err
			}

			for cell := 0; cell < initialCells; cell++ {
				x, y := neighborhood.RandomPoint(rng)
				disc, err := geometry.NewCircle(x, y, cellRadius)
				if err != nil {
					return nil, err
				}
				fitness, err := newTrait(rng, colonyCfg.Fitness)
				if err != nil {
					return nil, fmt.Errorf("colony %s fitness trait: %w", name, err)
				}
				signal, err := newTrait(rng, colonyCfg.Signal)
				if err != nil {
					return nil, fmt.Errorf("colony %s signal trait: %w", name, err)
				}
				colony.Tree.AddRoot(lineage.Node{
					ID:                ids.Next(),
					Disc:              disc,
					Fitness:           fitness,
					Signal:            signal,
					DivisionThreshold: initial.DrawDivisionThreshold(rng),
					DeathThreshold:    initial.DrawDeathThreshold(rng),
					TreatmentName:     initial.Name,
				})
			}
			colonies = append(colonies, colony)
		}
	}
	if len(colonies) == 0 {
		return nil, fmt.Errorf("run config declares no colonies")
	}
	return colonies, nil
}

func newTrait(rng *rand.Rand, cfg model.TraitConfig) (trait.Trait, error) {
	if cfg.InitialValue != nil {
		return trait.New(rng, *cfg.InitialValue, true, cfg.Memory, cfg.Min, cfg.Max)
	}
	return trait.New(rng, 0, false, cfg.Memory, cfg.Min, cfg.Max)
}

// copySuffix maps a copy index to a letter suffix: a..z, then aa, ab, ...
func copySuffix(idx int) string {
	suffix := ""
	idx++
	for idx > 0 {
		idx--
		suffix = string(rune('a'+idx%26)) + suffix
		idx /= 26
	}
	return suffix
}
