package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Pose is a rigid transform stored as a 4x4 homogeneous matrix.
type Pose struct {
	m *mat.Dense
}

// NewZeroPose returns the identity transform.
func NewZeroPose() Pose {
	m := mat.NewDense(4, 4, nil)
	for i := 0; i < 4; i++ {
		m.Set(i, i, 1)
	}
	return Pose{m: m}
}

// NewPoseFromPoint returns a pure translation.
func NewPoseFromPoint(pt r3.Vector) Pose {
	p := NewZeroPose()
	p.m.Set(0, 3, pt.X)
	p.m.Set(1, 3, pt.Y)
	p.m.Set(2, 3, pt.Z)
	return p
}

// NewPoseFromRowMajor builds a pose from 16 row-major values. The last row
// must be [0 0 0 1] and the rotation block orthonormal within tolerance.
func NewPoseFromRowMajor(data []float64) (Pose, error) {
	if len(data) != 16 {
		return Pose{}, errors.Errorf("pose needs 16 values, got %d", len(data))
	}
	m := mat.NewDense(4, 4, append([]float64(nil), data...))
	if m.At(3, 0) != 0 || m.At(3, 1) != 0 || m.At(3, 2) != 0 || m.At(3, 3) != 1 {
		return Pose{}, errors.New("pose last row must be [0 0 0 1]")
	}
	rot := m.Slice(0, 3, 0, 3)
	var rrt mat.Dense
	rrt.Mul(rot, rot.T())
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := 0.
			if i == j {
				want = 1
			}
			if math.Abs(rrt.At(i, j)-want) > 1e-6 {
				return Pose{}, errors.New("pose rotation block is not orthonormal")
			}
		}
	}
	return Pose{m: m}, nil
}

func (p Pose) matrix() *mat.Dense {
	if p.m == nil {
		return NewZeroPose().m
	}
	return p.m
}

// Point returns the translation component.
func (p Pose) Point() r3.Vector {
	m := p.matrix()
	return r3.Vector{m.At(0, 3), m.At(1, 3), m.At(2, 3)}
}

// Transform applies the pose to v.
func (p Pose) Transform(v r3.Vector) r3.Vector {
	m := p.matrix()
	return r3.Vector{
		m.At(0, 0)*v.X + m.At(0, 1)*v.Y + m.At(0, 2)*v.Z + m.At(0, 3),
		m.At(1, 0)*v.X + m.At(1, 1)*v.Y + m.At(1, 2)*v.Z + m.At(1, 3),
		m.At(2, 0)*v.X + m.At(2, 1)*v.Y + m.At(2, 2)*v.Z + m.At(2, 3),
	}
}

// RowMajor returns the 16 matrix entries.
func (p Pose) RowMajor() []float64 {
	return mat.DenseCopyOf(p.matrix()).RawMatrix().Data
}

// Compose returns a followed by b's frame, i.e. the matrix product a*b.
func Compose(a, b Pose) Pose {
	var out mat.Dense
	out.Mul(a.matrix(), b.matrix())
	return Pose{m: &out}
}

// PoseAlmostEqual compares two poses entrywise.
func PoseAlmostEqual(a, b Pose, tol float64) bool {
	return mat.EqualApprox(a.matrix(), b.matrix(), tol)
}
