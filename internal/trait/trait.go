package trait

import (
	"fmt"
	"math"
	"math/rand"
)

// Trait is a scalar cell property confined to [Min, Max] that offspring
// inherit through a memory-weighted bounded random walk. Memory 1 pins the
// value to a vanishing-step walk around the parent's value; memory 0
// resamples uniformly on every inheritance.
type Trait struct {
	Value  float64
	Memory float64
	Min    float64
	Max    float64
}

// New validates the trait parameters and draws the initial value uniformly
// from [min, max] when hasValue is false.
func New(rng *rand.Rand, value float64, hasValue bool, memory, min, max float64) (Trait, error) {
	if memory < 0 || memory > 1 {
		return Trait{}, fmt.Errorf("trait memory weight must be in [0, 1], got %v", memory)
	}
	if min > max {
		return Trait{}, fmt.Errorf("trait bounds are inverted: [%v, %v]", min, max)
	}
	t := Trait{Memory: memory, Min: min, Max: max}
	if hasValue {
		if value < min || value > max {
			return Trait{}, fmt.Errorf("trait value %v outside [%v, %v]", value, min, max)
		}
		t.Value = value
	} else {
		t.Value = t.uniform(rng)
	}
	return t, nil
}

// WithMemory returns a copy of the trait carrying a new memory weight,
// validated the same way as at construction.
func (t Trait) WithMemory(memory float64) (Trait, error) {
	if memory < 0 || memory > 1 {
		return Trait{}, fmt.Errorf("trait memory weight must be in [0, 1], got %v", memory)
	}
	t.Memory = memory
	return t, nil
}

// Inherit returns a new trait with the same parameters whose value is one
// step of the bounded memory walk away from the current value. The receiver
// is never mutated. With Memory == 0 the step degenerates to an independent
// uniform draw over [Min, Max].
func (t Trait) Inherit(rng *rand.Rand) Trait {
	next := t
	next.Value = t.nextValue(rng)
	return next
}

func (t Trait) nextValue(rng *rand.Rand) float64 {
	if t.Memory == 0 {
		return t.uniform(rng)
	}
	span := t.Max - t.Min
	if span == 0 {
		return t.Min
	}
	sigma := (1 - t.Memory) * (1 - t.Memory) * span
	step := rng.NormFloat64() * sigma
	return reflectIntoInterval(t.Value+step, t.Min, t.Max)
}

func (t Trait) uniform(rng *rand.Rand) float64 {
	return t.Min + rng.Float64()*(t.Max-t.Min)
}

// reflectIntoInterval folds x back into [lower, upper] by evaluating a
// triangular wave, so an overshoot bounces off the boundary instead of
// clipping onto it.
func reflectIntoInterval(x, lower, upper float64) float64 {
	interval := upper - lower
	period := 2 * interval
	amplitude := interval / 2
	shift := lower + amplitude
	return triangularWave(x-shift, period, amplitude) + shift
}

func triangularWave(x, period, amplitude float64) float64 {
	return (4*amplitude/period)*math.Abs(math.Mod(math.Mod(x-period/4, period)+period, period)-period/2) - amplitude
}
