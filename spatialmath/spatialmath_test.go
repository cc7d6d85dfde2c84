package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestNewPlane(t *testing.T) {
	p, err := NewPlane(0, 0, 2, -4)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.Normal.Norm(), test.ShouldAlmostEqual, 1)
	test.That(t, p.D, test.ShouldAlmostEqual, -2)
	test.That(t, p.Distance(r3.Vector{5, 5, 3}), test.ShouldAlmostEqual, 1)
	test.That(t, p.Distance(r3.Vector{5, 5, 1}), test.ShouldAlmostEqual, -1)

	_, err = NewPlane(0, 0, 0, 1)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "degenerate")

	_, err = PlaneFromPoints(r3.Vector{}, r3.Vector{1, 0, 0}, r3.Vector{2, 0, 0})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestPlaneOrientation(t *testing.T) {
	p, err := PlaneFromPoints(r3.Vector{0, 0, 1}, r3.Vector{0, 1, 1}, r3.Vector{1, 0, 1})
	test.That(t, err, test.ShouldBeNil)
	origin := r3.Vector{}
	oriented := p.OrientedTowards(origin)
	test.That(t, oriented.Distance(origin), test.ShouldBeGreaterThan, 0)
	test.That(t, oriented.AlmostEqual(p, 1e-9), test.ShouldBeTrue)
	test.That(t, math.Abs(oriented.Distance(origin)), test.ShouldAlmostEqual, 1)
}

func TestDistToLineSegment(t *testing.T) {
	a := r3.Vector{0, 0, 0}
	b := r3.Vector{1, 0, 0}
	test.That(t, DistToLineSegment(a, b, r3.Vector{0.5, 1, 0}), test.ShouldAlmostEqual, 1)
	test.That(t, DistToLineSegment(a, b, r3.Vector{-1, 0, 0}), test.ShouldAlmostEqual, 1)
	test.That(t, DistToLineSegment(a, b, r3.Vector{2, 0, 1}), test.ShouldAlmostEqual, math.Sqrt2)
	// degenerate segment collapses to a point
	test.That(t, DistToLineSegment(a, a, r3.Vector{0, 3, 4}), test.ShouldAlmostEqual, 5)

	c := NewCapsule(a, b, 0.1, "link0")
	test.That(t, c.Contains(r3.Vector{0.5, 0.05, 0}), test.ShouldBeTrue)
	test.That(t, c.Contains(r3.Vector{0.5, 0.1, 0}), test.ShouldBeTrue)
	test.That(t, c.Contains(r3.Vector{0.5, 0.2, 0}), test.ShouldBeFalse)
	test.That(t, c.DistanceFrom(r3.Vector{1.5, 0, 0}), test.ShouldAlmostEqual, 0.4)
}

func TestPose(t *testing.T) {
	id := NewZeroPose()
	v := r3.Vector{1, 2, 3}
	test.That(t, id.Transform(v), test.ShouldResemble, v)

	var zero Pose
	test.That(t, zero.Transform(v), test.ShouldResemble, v)

	tr := NewPoseFromPoint(r3.Vector{1, 0, 0})
	test.That(t, tr.Point(), test.ShouldResemble, r3.Vector{1, 0, 0})
	test.That(t, tr.Transform(v), test.ShouldResemble, r3.Vector{2, 2, 3})

	rot, err := NewPoseFromRowMajor([]float64{
		0, -1, 0, 0,
		1, 0, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	})
	test.That(t, err, test.ShouldBeNil)
	out := rot.Transform(r3.Vector{1, 0, 0})
	test.That(t, out.X, test.ShouldAlmostEqual, 0)
	test.That(t, out.Y, test.ShouldAlmostEqual, 1)

	composed := Compose(tr, rot)
	out = composed.Transform(r3.Vector{1, 0, 0})
	test.That(t, out.X, test.ShouldAlmostEqual, 1)
	test.That(t, out.Y, test.ShouldAlmostEqual, 1)

	fromRows, err := NewPoseFromRowMajor(composed.RowMajor())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, PoseAlmostEqual(fromRows, composed, 1e-9), test.ShouldBeTrue)
}

func TestNewPoseFromRowMajorErrors(t *testing.T) {
	_, err := NewPoseFromRowMajor([]float64{1, 2, 3})
	test.That(t, err, test.ShouldNotBeNil)

	bad := NewZeroPose().RowMajor()
	bad[15] = 2
	_, err = NewPoseFromRowMajor(bad)
	test.That(t, err.Error(), test.ShouldContainSubstring, "last row")

	skew := NewZeroPose().RowMajor()
	skew[0] = 2
	_, err = NewPoseFromRowMajor(skew)
	test.That(t, err.Error(), test.ShouldContainSubstring, "orthonormal")
}
