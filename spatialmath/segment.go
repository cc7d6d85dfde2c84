package spatialmath

import (
	"github.com/golang/geo/r3"
)

// ClosestPointSegmentPoint returns the point on segment ab closest to pt.
func ClosestPointSegmentPoint(a, b, pt r3.Vector) r3.Vector {
	ab := b.Sub(a)
	denom := ab.Norm2()
	if denom == 0 {
		return a
	}
	t := pt.Sub(a).Dot(ab) / denom
	switch {
	case t <= 0:
		return a
	case t >= 1:
		return b
	}
	return a.Add(ab.Mul(t))
}

// DistToLineSegment returns the minimum distance from pt to segment ab.
func DistToLineSegment(a, b, pt r3.Vector) float64 {
	return pt.Sub(ClosestPointSegmentPoint(a, b, pt)).Norm()
}

// Capsule is a line segment swept by a sphere. It is used as the collision
// volume of a single arm link.
//
// ....___________________
// .../                   \
// .x|  |-------O-------|  |x
// ...\___________________/
type Capsule struct {
	SegA   r3.Vector // proximal joint
	SegB   r3.Vector // distal joint
	Radius float64
	Label  string
}

// NewCapsule returns a capsule around segment ab.
func NewCapsule(a, b r3.Vector, radius float64, label string) Capsule {
	return Capsule{SegA: a, SegB: b, Radius: radius, Label: label}
}

// DistanceFrom returns the distance from the capsule surface to pt; negative inside.
func (c Capsule) DistanceFrom(pt r3.Vector) float64 {
	return DistToLineSegment(c.SegA, c.SegB, pt) - c.Radius
}

// Contains reports whether pt is within the capsule, surface included.
func (c Capsule) Contains(pt r3.Vector) bool {
	return c.DistanceFrom(pt) <= 0
}
