package sim

import (
	"fmt"

	"cellsim/internal/geometry"
	"cellsim/internal/model"
)

// Well is the bounding disc shared by every colony in a run; cell discs
// may not leave it.
type Well struct {
	Disc geometry.Circle
}

func NewWell(cfg model.WellConfig) (Well, error) {
	disc, err := geometry.NewCircle(cfg.X, cfg.Y, cfg.Radius)
	if err != nil {
		return Well{}, fmt.Errorf("well: %w", err)
	}
	return Well{Disc: disc}, nil
}

// Fits reports whether the disc lies entirely inside the well.
func (w Well) Fits(disc geometry.Circle) bool {
	return w.Disc.Contains(disc)
}
