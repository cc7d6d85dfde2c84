package tracking

import (
	"image/color"
	"math"

	"github.com/golang/geo/r3"

	"go.viam.com/tabletop/pointcloud"
	"go.viam.com/tabletop/spatialmath"
	"go.viam.com/tabletop/vision/segmentation"
)

// ObjectInfo is a tracked object. It keeps its RepID for as long as the
// tracker can follow it.
type ObjectInfo struct {
	RepID int
	// Center is the mean position of the object's points in the world frame.
	Center   r3.Vector
	AvgColor color.NRGBA
	// Extents is the world frame bounding box of the object's points.
	Extents pointcloud.Extents
	// Points are the raw camera frame samples of the last observation.
	Points []pointcloud.Point
	// UFSID is the cluster id of the last frame this object was observed in.
	UFSID int
}

// Clone returns a copy sharing the (read-only) point slice.
func (o *ObjectInfo) Clone() *ObjectInfo {
	c := *o
	return &c
}

// MoveTo translates the object so its center is at pos.
func (o *ObjectInfo) MoveTo(pos r3.Vector) {
	delta := pos.Sub(o.Center)
	o.Center = pos
	o.Extents = pointcloud.Extents{Min: o.Extents.Min.Add(delta), Max: o.Extents.Max.Add(delta)}
}

// newObjectInfo converts a cluster to a world frame object.
func newObjectInfo(repID int, cl *segmentation.Cluster, extrinsics spatialmath.Pose) *ObjectInfo {
	obj := &ObjectInfo{
		RepID:    repID,
		Center:   extrinsics.Transform(cl.Center()),
		AvgColor: cl.AvgColor(),
		Points:   cl.Points,
		UFSID:    cl.ClusterID,
	}
	for i, p := range cl.Points {
		w := extrinsics.Transform(p.Position())
		if i == 0 {
			obj.Extents = pointcloud.NewExtents(w)
		} else {
			obj.Extents.Extend(w)
		}
	}
	if len(cl.Points) == 0 {
		obj.Extents = pointcloud.NewExtents(obj.Center)
	}
	return obj
}

// xyDistance is the distance between two positions projected on the table.
func xyDistance(a, b r3.Vector) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// colorDistance is the euclidean distance between two colors in 8 bit RGB space.
func colorDistance(a, b color.NRGBA) float64 {
	dr := float64(a.R) - float64(b.R)
	dg := float64(a.G) - float64(b.G)
	db := float64(a.B) - float64(b.B)
	return math.Sqrt(dr*dr + dg*dg + db*db)
}

// isDark reports whether every channel is under threshold, which for this
// sensor means the blob is noise.
func isDark(c color.NRGBA, threshold int) bool {
	return int(c.R) < threshold && int(c.G) < threshold && int(c.B) < threshold
}
