// Package pointcloud defines the sensor-facing point and frame types.
package pointcloud

import (
	"github.com/golang/geo/r3"
	"github.com/lucasb-eyer/go-colorful"
)

// Point is a single depth+color sample in the camera frame, in meters.
// Color is packed as 0xRRGGBB. The zero value means the sensor returned no sample.
type Point struct {
	X, Y, Z float64
	Color   uint32
}

// NewPoint returns a point at the given position with the given packed color.
func NewPoint(x, y, z float64, c uint32) Point {
	return Point{X: x, Y: y, Z: z, Color: c}
}

// IsValid reports whether the point holds a sample.
func (p Point) IsValid() bool {
	return p != Point{}
}

// Position returns the position of the point.
func (p Point) Position() r3.Vector {
	return r3.Vector{p.X, p.Y, p.Z}
}

// RGB255 returns the unpacked color components.
func (p Point) RGB255() (uint8, uint8, uint8) {
	return UnpackColor(p.Color)
}

// Hue returns the HSV hue of the point's color in degrees [0, 360).
func (p Point) Hue() float64 {
	r, g, b := p.RGB255()
	h, _, _ := colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}.Hsv()
	return h
}

// PackColor packs 8 bit color components into 0xRRGGBB.
func PackColor(r, g, b uint8) uint32 {
	return uint32(r)<<16 | uint32(g)<<8 | uint32(b)
}

// UnpackColor splits 0xRRGGBB into its components.
func UnpackColor(c uint32) (uint8, uint8, uint8) {
	return uint8(c >> 16), uint8(c >> 8), uint8(c)
}

// Extents is an axis aligned bounding box.
type Extents struct {
	Min r3.Vector
	Max r3.Vector
}

// NewExtents returns extents containing only v.
func NewExtents(v r3.Vector) Extents {
	return Extents{Min: v, Max: v}
}

// Extend grows the extents to include v.
func (e *Extents) Extend(v r3.Vector) {
	e.Min = r3.Vector{min(e.Min.X, v.X), min(e.Min.Y, v.Y), min(e.Min.Z, v.Z)}
	e.Max = r3.Vector{max(e.Max.X, v.X), max(e.Max.Y, v.Y), max(e.Max.Z, v.Z)}
}

// Center returns the middle of the box.
func (e Extents) Center() r3.Vector {
	return e.Min.Add(e.Max).Mul(0.5)
}

// Size returns the edge lengths of the box.
func (e Extents) Size() r3.Vector {
	return e.Max.Sub(e.Min)
}
