// Package curve implements the statistical distributions a treatment uses
// to draw division-time and death-time thresholds for newly created cells.
package curve

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

var ErrUnknownCurve = errors.New("unknown curve type")

// Curve draws threshold values from a parametrized continuous distribution.
// Implementations are immutable once constructed.
type Curve interface {
	Name() string
	Draw(rng *rand.Rand) float64
}

// Gaussian is a normal distribution with the given location and scale.
type Gaussian struct {
	Mean float64
	Std  float64
}

func (g Gaussian) Name() string {
	return "Gaussian"
}

func (g Gaussian) Draw(rng *rand.Rand) float64 {
	return g.Mean + g.Std*rng.NormFloat64()
}

// EMGaussian is an exponentially-modified gaussian: the sum of a normal
// variate and an exponential variate with rate 1/K, both in units of the
// scale parameter.
type EMGaussian struct {
	Mean float64
	Std  float64
	K    float64
}

func (g EMGaussian) Name() string {
	return "EMGaussian"
}

func (g EMGaussian) Draw(rng *rand.Rand) float64 {
	return g.Mean + g.Std*(rng.NormFloat64()+g.K*rng.ExpFloat64())
}

// Gamma is a gamma distribution with shape A, shifted by Mean and scaled
// by Std.
type Gamma struct {
	Mean float64
	Std  float64
	A    float64
}

func (g Gamma) Name() string {
	return "Gamma"
}

func (g Gamma) Draw(rng *rand.Rand) float64 {
	return g.Mean + g.Std*gammaVariate(rng, g.A)
}

// Lognormal is a lognormal distribution with shape S, shifted by Mean and
// scaled by Std.
type Lognormal struct {
	Mean float64
	Std  float64
	S    float64
}

func (l Lognormal) Name() string {
	return "Lognormal"
}

func (l Lognormal) Draw(rng *rand.Rand) float64 {
	return l.Mean + l.Std*math.Exp(l.S*rng.NormFloat64())
}

// Config describes a curve in run-configuration files. The shape parameters
// K, A and S apply only to EMGaussian, Gamma and Lognormal respectively and
// default to 1 when omitted.
type Config struct {
	Name string   `json:"name" yaml:"name"`
	Mean float64  `json:"mean" yaml:"mean"`
	Std  float64  `json:"std" yaml:"std"`
	K    *float64 `json:"k,omitempty" yaml:"k,omitempty"`
	A    *float64 `json:"a,omitempty" yaml:"a,omitempty"`
	S    *float64 `json:"s,omitempty" yaml:"s,omitempty"`
}

// New builds the curve named by the config. An unrecognized name is a
// configuration error, fatal before any simulation starts.
func New(cfg Config) (Curve, error) {
	if cfg.Std < 0 {
		return nil, fmt.Errorf("curve %q: std cannot be negative (std = %v)", cfg.Name, cfg.Std)
	}
	switch cfg.Name {
	case "Gaussian":
		return Gaussian{Mean: cfg.Mean, Std: cfg.Std}, nil
	case "EMGaussian":
		return EMGaussian{Mean: cfg.Mean, Std: cfg.Std, K: shapeOrDefault(cfg.K)}, nil
	case "Gamma":
		return Gamma{Mean: cfg.Mean, Std: cfg.Std, A: shapeOrDefault(cfg.A)}, nil
	case "Lognormal":
		return Lognormal{Mean: cfg.Mean, Std: cfg.Std, S: shapeOrDefault(cfg.S)}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCurve, cfg.Name)
	}
}

func shapeOrDefault(v *float64) float64 {
	if v == nil {
		return 1.0
	}
	return *v
}

// gammaVariate samples a standard gamma with shape a via Marsaglia-Tsang
// squeeze rejection, boosted for a < 1.
func gammaVariate(rng *rand.Rand, a float64) float64 {
	if a < 1 {
		return gammaVariate(rng, a+1) * math.Pow(rng.Float64(), 1/a)
	}
	d := a - 1.0/3.0
	c := 1.0 / math.Sqrt(9*d)
	for {
		x := rng.NormFloat64()
		v := 1 + c*x
		if v <= 0 {
			continue
		}
		v = v * v * v
		u := rng.Float64()
		if u < 1-0.0331*x*x*x*x {
			return d * v
		}
		if math.Log(u) < 0.5*x*x+d*(1-v+math.Log(v)) {
			return d * v
		}
	}
}
