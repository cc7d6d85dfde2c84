package pointcloud

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestFrameBasic(t *testing.T) {
	f := NewFrame(3, 2)
	test.That(t, f.Validate(), test.ShouldBeNil)
	test.That(t, f.Size(), test.ShouldEqual, 6)
	test.That(t, f.ValidCount(), test.ShouldEqual, 0)

	p0 := NewPoint(0.1, 0.2, 0.3, PackColor(255, 0, 0))
	f.Set(2, 1, p0)
	test.That(t, f.At(2, 1), test.ShouldResemble, p0)
	test.That(t, f.Index(2, 1), test.ShouldEqual, 5)
	test.That(t, f.ValidCount(), test.ShouldEqual, 1)
	test.That(t, f.Positions(), test.ShouldResemble, []r3.Vector{{0.1, 0.2, 0.3}})

	count := 0
	f.Iterate(func(idx int, p Point) bool {
		test.That(t, idx, test.ShouldEqual, 5)
		count++
		return true
	})
	test.That(t, count, test.ShouldEqual, 1)

	clone := f.Clone()
	clone.Set(0, 0, p0)
	test.That(t, f.At(0, 0).IsValid(), test.ShouldBeFalse)
	test.That(t, clone.At(0, 0).IsValid(), test.ShouldBeTrue)
}

func TestFrameValidate(t *testing.T) {
	var nilFrame *Frame
	test.That(t, nilFrame.Validate(), test.ShouldNotBeNil)

	f := &Frame{Width: 0, Height: 4}
	err := f.Validate()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "invalid dimensions")

	f = &Frame{Width: 2, Height: 2, Points: make([]Point, 3)}
	err = f.Validate()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "expected 4")
}

func TestPointColor(t *testing.T) {
	c := PackColor(0x12, 0x34, 0x56)
	test.That(t, c, test.ShouldEqual, uint32(0x123456))
	r, g, b := UnpackColor(c)
	test.That(t, r, test.ShouldEqual, uint8(0x12))
	test.That(t, g, test.ShouldEqual, uint8(0x34))
	test.That(t, b, test.ShouldEqual, uint8(0x56))

	test.That(t, NewPoint(1, 0, 0, PackColor(255, 0, 0)).Hue(), test.ShouldAlmostEqual, 0)
	test.That(t, NewPoint(1, 0, 0, PackColor(0, 255, 0)).Hue(), test.ShouldAlmostEqual, 120)
	test.That(t, NewPoint(1, 0, 0, PackColor(0, 0, 255)).Hue(), test.ShouldAlmostEqual, 240)

	// a black point at a real position is still a sample
	test.That(t, NewPoint(0, 0, 0.5, 0).IsValid(), test.ShouldBeTrue)
	test.That(t, Point{}.IsValid(), test.ShouldBeFalse)
}

func TestExtents(t *testing.T) {
	e := NewExtents(r3.Vector{1, 1, 1})
	e.Extend(r3.Vector{-1, 2, 0})
	e.Extend(r3.Vector{0, 0, 3})
	test.That(t, e.Min, test.ShouldResemble, r3.Vector{-1, 0, 0})
	test.That(t, e.Max, test.ShouldResemble, r3.Vector{1, 2, 3})
	test.That(t, e.Center(), test.ShouldResemble, r3.Vector{0, 1, 1.5})
	test.That(t, e.Size(), test.ShouldResemble, r3.Vector{2, 2, 3})
}
