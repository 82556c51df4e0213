package sim

import (
	"math/rand"

	"cellsim/internal/model"
	"cellsim/internal/treatment"
)

// FromConfig assembles a ready-to-run simulation: schedule, well and
// colonies are built and validated fail-fast, before the first frame.
// The returned colonies are the same instances the runner drives, so the
// caller can export their lineage trees after the run.
func FromConfig(cfg model.RunConfig, sink RecordSink, rng *rand.Rand) (*Runner, []*Colony, error) {
	schedule, err := treatment.NewScheduleFromConfig(cfg.Treatments)
	if err != nil {
		return nil, nil, err
	}
	well, err := NewWell(cfg.Well)
	if err != nil {
		return nil, nil, err
	}
	ids := &Sequence{}
	colonies, err := BuildColonies(cfg, schedule, well, ids, rng)
	if err != nil {
		return nil, nil, err
	}
	runner, err := NewRunner(Config{
		Well:      well,
		Colonies:  colonies,
		Schedule:  schedule,
		Delta:     cfg.Delta,
		MaxFrames: cfg.MaxFrames,
		Stop:      cfg.StopConditions,
		Sink:      sink,
		IDs:       ids,
		RNG:       rng,
	})
	if err != nil {
		return nil, nil, err
	}
	return runner, colonies, nil
}
