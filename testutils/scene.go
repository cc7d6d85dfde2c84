// Package testutils provides synthetic tabletop scenes for exercising the
// perception pipeline without a camera.
package testutils

import (
	"math/rand"
	"time"

	"github.com/golang/geo/r3"

	"go.viam.com/tabletop/pointcloud"
	"go.viam.com/tabletop/spatialmath"
)

// Common colors for scene objects.
var (
	Red       = pointcloud.PackColor(200, 20, 20)
	Green     = pointcloud.PackColor(20, 180, 30)
	Blue      = pointcloud.PackColor(20, 40, 200)
	Yellow    = pointcloud.PackColor(220, 200, 20)
	FloorGray = pointcloud.PackColor(128, 128, 128)
)

// Box is an axis aligned block resting on the table. X and Y are in world
// coordinates (meters); Height is measured up from the table surface.
type Box struct {
	X, Y     float64
	HalfSize float64
	Height   float64
	Color    uint32
}

// Scene renders a downward-looking organized camera over a flat table.
// The camera sits CameraHeight above the table; its optical axis points
// straight down, image X matches world X and image Y is world -Y.
type Scene struct {
	Width, Height int
	// Pitch is the spacing between neighbouring samples on the table, in meters.
	Pitch        float64
	CameraHeight float64
	FloorColor   uint32
	Boxes        []Box
	// Noise is the standard deviation of depth noise in meters.
	Noise float64
	// Dropout is the fraction of pixels with no sample.
	Dropout float64
	// NoFloor leaves table pixels empty.
	NoFloor bool
	Seed    int64
}

// DefaultScene returns a 96x48 view with 4mm pitch, 0.8m above the table.
// It covers about ±0.19m in X and ±0.096m in Y.
func DefaultScene(boxes ...Box) Scene {
	return Scene{
		Width:        96,
		Height:       48,
		Pitch:        0.004,
		CameraHeight: 0.8,
		FloorColor:   FloorGray,
		Boxes:        boxes,
		Seed:         1,
	}
}

// cameraFlip turns the camera upside down so its optical axis points at the table.
var cameraFlip = []float64{
	1, 0, 0, 0,
	0, -1, 0, 0,
	0, 0, -1, 0,
	0, 0, 0, 1,
}

// Extrinsics returns the camera-to-world transform of the scene.
func (s Scene) Extrinsics() spatialmath.Pose {
	flip, err := spatialmath.NewPoseFromRowMajor(cameraFlip)
	if err != nil {
		panic(err)
	}
	return spatialmath.Compose(spatialmath.NewPoseFromPoint(r3.Vector{0, 0, s.CameraHeight}), flip)
}

// ExtrinsicsRowMajor returns Extrinsics as config values.
func (s Scene) ExtrinsicsRowMajor() []float64 {
	return s.Extrinsics().RowMajor()
}

// FloorPlane returns the table plane in the camera frame, normal towards the camera.
func (s Scene) FloorPlane() spatialmath.Plane {
	plane, err := spatialmath.NewPlane(0, 0, -1, s.CameraHeight)
	if err != nil {
		panic(err)
	}
	return plane
}

// ToCamera converts a world point to the camera frame.
func (s Scene) ToCamera(world r3.Vector) r3.Vector {
	return r3.Vector{world.X, -world.Y, s.CameraHeight - world.Z}
}

// Render produces one frame of the scene.
func (s Scene) Render() *pointcloud.Frame {
	r := rand.New(rand.NewSource(s.Seed)) //nolint:gosec
	frame := pointcloud.NewFrame(s.Width, s.Height)
	frame.Timestamp = time.Unix(0, 0)
	for row := 0; row < s.Height; row++ {
		for col := 0; col < s.Width; col++ {
			if s.Dropout > 0 && r.Float64() < s.Dropout {
				continue
			}
			x := float64(col-s.Width/2) * s.Pitch
			y := -float64(row-s.Height/2) * s.Pitch
			z, c, hit := s.surfaceAt(x, y)
			if !hit {
				continue
			}
			if s.Noise > 0 {
				z += r.NormFloat64() * s.Noise
			}
			cam := s.ToCamera(r3.Vector{x, y, z})
			frame.Set(col, row, pointcloud.NewPoint(cam.X, cam.Y, cam.Z, c))
		}
	}
	return frame
}

// surfaceAt returns the height and color of the topmost surface at world (x, y).
func (s Scene) surfaceAt(x, y float64) (float64, uint32, bool) {
	z, c, hit := 0., s.FloorColor, !s.NoFloor
	for _, b := range s.Boxes {
		if x < b.X-b.HalfSize || x > b.X+b.HalfSize || y < b.Y-b.HalfSize || y > b.Y+b.HalfSize {
			continue
		}
		if !hit || b.Height > z {
			z, c, hit = b.Height, b.Color, true
		}
	}
	return z, c, hit
}
