package pointcloud

import (
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// Frame is one organized depth+color capture: a row-major grid of
// Width*Height points. Missing samples are zero points, so grid
// addressing stays valid after filtering.
type Frame struct {
	Width     int
	Height    int
	Points    []Point
	Timestamp time.Time
}

// NewFrame returns an empty frame of the given dimensions.
func NewFrame(width, height int) *Frame {
	if width < 0 || height < 0 {
		width, height = 0, 0
	}
	return &Frame{
		Width:  width,
		Height: height,
		Points: make([]Point, width*height),
	}
}

// Validate checks that the frame's grid is well formed.
func (f *Frame) Validate() error {
	if f == nil {
		return errors.New("frame is nil")
	}
	if f.Width <= 0 || f.Height <= 0 {
		return errors.Errorf("frame has invalid dimensions %dx%d", f.Width, f.Height)
	}
	if len(f.Points) != f.Width*f.Height {
		return errors.Errorf("frame has %d points, expected %d (%dx%d)", len(f.Points), f.Width*f.Height, f.Width, f.Height)
	}
	return nil
}

// Size returns the number of grid cells in the frame.
func (f *Frame) Size() int {
	return len(f.Points)
}

// Index returns the row-major index of (col, row).
func (f *Frame) Index(col, row int) int {
	return row*f.Width + col
}

// At returns the point at (col, row).
func (f *Frame) At(col, row int) Point {
	return f.Points[f.Index(col, row)]
}

// Set stores p at (col, row).
func (f *Frame) Set(col, row int, p Point) {
	f.Points[f.Index(col, row)] = p
}

// Iterate calls fn for every valid point in row-major order. If fn
// returns false, iteration stops.
func (f *Frame) Iterate(fn func(idx int, p Point) bool) {
	for i, p := range f.Points {
		if !p.IsValid() {
			continue
		}
		if !fn(i, p) {
			return
		}
	}
}

// ValidCount returns the number of points holding a sample.
func (f *Frame) ValidCount() int {
	n := 0
	f.Iterate(func(int, Point) bool {
		n++
		return true
	})
	return n
}

// Positions extracts the positions of all valid points.
func (f *Frame) Positions() []r3.Vector {
	positions := make([]r3.Vector, 0, len(f.Points))
	f.Iterate(func(_ int, p Point) bool {
		positions = append(positions, p.Position())
		return true
	})
	return positions
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	pts := make([]Point, len(f.Points))
	copy(pts, f.Points)
	return &Frame{Width: f.Width, Height: f.Height, Points: pts, Timestamp: f.Timestamp}
}
