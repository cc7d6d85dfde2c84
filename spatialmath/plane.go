// Package spatialmath defines the geometry used by the perception pipeline:
// planes, homogeneous poses and link capsules.
package spatialmath

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// degenerateNorm is the smallest normal length considered a real plane.
const degenerateNorm = 1e-9

// Plane is the set of points satisfying Normal·p + D = 0. Normal always has unit length.
type Plane struct {
	Normal r3.Vector
	D      float64
}

// NewPlane returns the plane ax + by + cz + d = 0, normalized so that |[a,b,c]| = 1.
func NewPlane(a, b, c, d float64) (Plane, error) {
	n := r3.Vector{a, b, c}
	norm := n.Norm()
	if norm < degenerateNorm || math.IsNaN(norm) {
		return Plane{}, errors.Errorf("cannot build plane from degenerate normal (%v, %v, %v)", a, b, c)
	}
	return Plane{Normal: n.Mul(1 / norm), D: d / norm}, nil
}

// PlaneFromPoints returns the plane through three points. The normal follows
// the right hand rule over (p1-p0) x (p2-p0).
func PlaneFromPoints(p0, p1, p2 r3.Vector) (Plane, error) {
	n := PlaneNormal(p0, p1, p2)
	return NewPlane(n.X, n.Y, n.Z, -n.Dot(p0))
}

// PlaneFromNormalAndPoint returns the plane with the given normal passing through pt.
func PlaneFromNormalAndPoint(normal, pt r3.Vector) (Plane, error) {
	return NewPlane(normal.X, normal.Y, normal.Z, -normal.Dot(pt))
}

// PlaneNormal returns the (unnormalized) normal of the triangle p0, p1, p2.
func PlaneNormal(p0, p1, p2 r3.Vector) r3.Vector {
	return p1.Sub(p0).Cross(p2.Sub(p0))
}

// Distance returns the signed distance from the plane to pt. Positive values
// are on the side the normal points to.
func (p Plane) Distance(pt r3.Vector) float64 {
	return p.Normal.Dot(pt) + p.D
}

// OrientedTowards returns the same plane with its normal flipped, if needed,
// so that pt lies on the positive side.
func (p Plane) OrientedTowards(pt r3.Vector) Plane {
	if p.Distance(pt) < 0 {
		return Plane{Normal: p.Normal.Mul(-1), D: -p.D}
	}
	return p
}

// AlmostEqual reports whether two planes describe the same surface within tol,
// regardless of normal orientation.
func (p Plane) AlmostEqual(o Plane, tol float64) bool {
	if p.Normal.Dot(o.Normal) < 0 {
		o = Plane{Normal: o.Normal.Mul(-1), D: -o.D}
	}
	return p.Normal.Sub(o.Normal).Norm() <= tol && math.Abs(p.D-o.D) <= tol
}

func (p Plane) String() string {
	return fmt.Sprintf("%.4fx + %.4fy + %.4fz + %.4f = 0", p.Normal.X, p.Normal.Y, p.Normal.Z, p.D)
}
