package geometry

import (
	"fmt"
	"math"
	"math/rand"
)

// InvalidGeometryError reports a geometric invariant violation, such as a
// negative radius.
type InvalidGeometryError struct {
	Radius float64
}

func (e InvalidGeometryError) Error() string {
	return fmt.Sprintf("circle radius cannot be negative (radius = %v)", e.Radius)
}

// Circle is a disc in the 2D arena: a center point and a non-negative radius.
type Circle struct {
	X float64
	Y float64

	radius float64
}

// NewCircle validates the radius and returns the circle. A negative radius
// fails with InvalidGeometryError.
func NewCircle(x, y, radius float64) (Circle, error) {
	if radius < 0 {
		return Circle{}, InvalidGeometryError{Radius: radius}
	}
	return Circle{X: x, Y: y, radius: radius}, nil
}

func (c Circle) Radius() float64 {
	return c.radius
}

// WithRadius returns a copy of the circle with the new radius. The receiver
// is unchanged; a negative radius fails and the returned circle is the
// zero value.
func (c Circle) WithRadius(radius float64) (Circle, error) {
	if radius < 0 {
		return Circle{}, InvalidGeometryError{Radius: radius}
	}
	c.radius = radius
	return c, nil
}

func (c Circle) Area() float64 {
	return math.Pi * c.radius * c.radius
}

// DistanceTo returns the Euclidean distance between the two centers.
func (c Circle) DistanceTo(other Circle) float64 {
	return math.Hypot(c.X-other.X, c.Y-other.Y)
}

// OverlapsWith reports whether the discs overlap: the distance between
// centers is at most the sum of the radii.
func (c Circle) OverlapsWith(other Circle) bool {
	return c.radius+other.radius >= c.DistanceTo(other)
}

// Contains reports whether the disc entirely contains the other disc.
func (c Circle) Contains(other Circle) bool {
	return c.radius >= c.DistanceTo(other)+other.radius
}

// IsInside reports whether the disc is entirely contained by the other disc.
func (c Circle) IsInside(other Circle) bool {
	return other.Contains(c)
}

// RandomPoint returns a point drawn uniformly over the disc's area. The
// square root on the radial draw keeps the areal density uniform instead of
// clustering points near the center.
func (c Circle) RandomPoint(rng *rand.Rand) (x, y float64) {
	r := c.radius * math.Sqrt(rng.Float64())
	theta := rng.Float64() * 2 * math.Pi
	return c.X + r*math.Cos(theta), c.Y + r*math.Sin(theta)
}
