// Package treatment models the drug regimens applied to a colony over the
// simulation: a named pair of division/death curves, plus a frame-indexed
// schedule resolving which treatment is active at any frame.
package treatment

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"cellsim/internal/curve"
)

var (
	ErrScheduleEmpty       = errors.New("schedule has no entries")
	ErrScheduleMissingZero = errors.New("schedule must include an entry at frame 0")
	ErrFrameBeforeSchedule = errors.New("frame precedes the first scheduled treatment")
)

// SignalDisturbance reconfigures the signal trait of every live cell when
// its treatment entry activates.
type SignalDisturbance struct {
	InitialValue *float64 `json:"initial_value,omitempty" yaml:"initial_value,omitempty"`
	Memory       float64  `json:"memory" yaml:"memory"`
	Min          float64  `json:"min" yaml:"min"`
	Max          float64  `json:"max" yaml:"max"`
}

// Treatment couples exactly one division curve and one death curve under a
// name. Thresholds for a newly created cell are drawn once from these
// curves, in hours.
type Treatment struct {
	Name          string
	DivisionCurve curve.Curve
	DeathCurve    curve.Curve

	SignalDisturbance        *SignalDisturbance
	FitnessMemoryDisturbance *float64
}

// DrawDivisionThreshold samples a division-time threshold, in hours.
func (t Treatment) DrawDivisionThreshold(rng *rand.Rand) float64 {
	return t.DivisionCurve.Draw(rng)
}

// DrawDeathThreshold samples a death-time threshold, in hours.
func (t Treatment) DrawDeathThreshold(rng *rand.Rand) float64 {
	return t.DeathCurve.Draw(rng)
}

// Config describes one treatment in run-configuration files.
type Config struct {
	Name                     string             `json:"name" yaml:"name"`
	DivisionCurve            curve.Config       `json:"division_curve" yaml:"division_curve"`
	DeathCurve               curve.Config       `json:"death_curve" yaml:"death_curve"`
	SignalDisturbance        *SignalDisturbance `json:"signal_disturbance,omitempty" yaml:"signal_disturbance,omitempty"`
	FitnessMemoryDisturbance *float64           `json:"fitness_memory_disturbance,omitempty" yaml:"fitness_memory_disturbance,omitempty"`
}

// New builds a treatment from its config, failing fast on any invalid curve.
func New(cfg Config) (Treatment, error) {
	division, err := curve.New(cfg.DivisionCurve)
	if err != nil {
		return Treatment{}, fmt.Errorf("treatment %q division curve: %w", cfg.Name, err)
	}
	death, err := curve.New(cfg.DeathCurve)
	if err != nil {
		return Treatment{}, fmt.Errorf("treatment %q death curve: %w", cfg.Name, err)
	}
	if d := cfg.FitnessMemoryDisturbance; d != nil && (*d < 0 || *d > 1) {
		return Treatment{}, fmt.Errorf("treatment %q fitness memory disturbance must be in [0, 1], got %v", cfg.Name, *d)
	}
	return Treatment{
		Name:                     cfg.Name,
		DivisionCurve:            division,
		DeathCurve:               death,
		SignalDisturbance:        cfg.SignalDisturbance,
		FitnessMemoryDisturbance: cfg.FitnessMemoryDisturbance,
	}, nil
}

// Entry pins a treatment to the frame it becomes active at.
type Entry struct {
	Frame     int
	Treatment Treatment
}

// Schedule is an ordered set of treatment entries with unique, non-negative
// frames. The active treatment at frame f is the one attached to the
// greatest scheduled frame <= f.
type Schedule struct {
	entries []Entry
}

// NewSchedule validates and sorts the entries. A schedule must be seeded at
// frame 0 so every queried frame resolves to a treatment.
func NewSchedule(entries []Entry) (Schedule, error) {
	if len(entries) == 0 {
		return Schedule{}, ErrScheduleEmpty
	}
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Frame < sorted[j].Frame })

	for i, entry := range sorted {
		if entry.Frame < 0 {
			return Schedule{}, fmt.Errorf("schedule frame cannot be negative: %d", entry.Frame)
		}
		if i > 0 && entry.Frame == sorted[i-1].Frame {
			return Schedule{}, fmt.Errorf("duplicate schedule frame: %d", entry.Frame)
		}
	}
	if sorted[0].Frame != 0 {
		return Schedule{}, ErrScheduleMissingZero
	}
	return Schedule{entries: sorted}, nil
}

// NewScheduleFromConfig builds every treatment in the frame->config mapping
// and assembles the schedule.
func NewScheduleFromConfig(regimen map[int]Config) (Schedule, error) {
	entries := make([]Entry, 0, len(regimen))
	for frame, cfg := range regimen {
		t, err := New(cfg)
		if err != nil {
			return Schedule{}, err
		}
		entries = append(entries, Entry{Frame: frame, Treatment: t})
	}
	return NewSchedule(entries)
}

// ActiveAt performs the floor lookup over scheduled frames. Querying a frame
// before the first entry is a configuration error.
func (s Schedule) ActiveAt(frame int) (Treatment, error) {
	if len(s.entries) == 0 {
		return Treatment{}, ErrScheduleEmpty
	}
	idx := sort.Search(len(s.entries), func(i int) bool { return s.entries[i].Frame > frame })
	if idx == 0 {
		return Treatment{}, fmt.Errorf("%w: frame %d", ErrFrameBeforeSchedule, frame)
	}
	return s.entries[idx-1].Treatment, nil
}

// EntryAt returns the treatment scheduled to start exactly at the given
// frame, if any. The runner uses this to apply disturbances on activation.
func (s Schedule) EntryAt(frame int) (Treatment, bool) {
	for _, entry := range s.entries {
		if entry.Frame == frame {
			return entry.Treatment, true
		}
	}
	return Treatment{}, false
}

// Entries returns the schedule in activation order.
func (s Schedule) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}
