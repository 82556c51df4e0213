package sim

import "fmt"

// Clock tracks the discrete simulation time: a monotonically increasing
// frame index, each frame spanning a fixed number of simulated seconds.
type Clock struct {
	frame int
	delta int
}

// NewClock validates the per-frame delta, which must be a positive number
// of seconds.
func NewClock(delta int) (Clock, error) {
	if delta <= 0 {
		return Clock{}, fmt.Errorf("clock delta must be a positive number of seconds, got %d", delta)
	}
	return Clock{delta: delta}, nil
}

func (c *Clock) Tick() {
	c.frame++
}

func (c Clock) Frame() int {
	return c.frame
}

func (c Clock) Delta() int {
	return c.delta
}

func (c Clock) Seconds() int {
	return c.frame * c.delta
}

func (c Clock) Hours() float64 {
	return float64(c.Seconds()) / 3600
}

func (c Clock) Days() float64 {
	return c.Hours() / 24
}
