package segmentation

import (
	"image/color"

	"github.com/golang/geo/r3"

	"go.viam.com/tabletop/pointcloud"
)

// Cluster is one frame-local blob of connected points. It only lives until
// identity resolution for its frame is done.
type Cluster struct {
	// ClusterID is the union-find representative index of the blob.
	ClusterID  int
	PointCount int
	ColorSum   [3]uint64
	Extents    pointcloud.Extents
	Points     []pointcloud.Point

	positionSum r3.Vector
}

func newCluster(id int) *Cluster {
	return &Cluster{ClusterID: id}
}

// NewClusterFromPoints builds a cluster directly from a set of points.
func NewClusterFromPoints(id int, pts []pointcloud.Point) *Cluster {
	c := newCluster(id)
	for _, p := range pts {
		c.add(p)
	}
	return c
}

func (c *Cluster) add(p pointcloud.Point) {
	pos := p.Position()
	if c.PointCount == 0 {
		c.Extents = pointcloud.NewExtents(pos)
	} else {
		c.Extents.Extend(pos)
	}
	r, g, b := p.RGB255()
	c.ColorSum[0] += uint64(r)
	c.ColorSum[1] += uint64(g)
	c.ColorSum[2] += uint64(b)
	c.positionSum = c.positionSum.Add(pos)
	c.PointCount++
	c.Points = append(c.Points, p)
}

// Center returns the mean position of the cluster's points in the camera frame.
func (c *Cluster) Center() r3.Vector {
	if c.PointCount == 0 {
		return r3.Vector{}
	}
	return c.positionSum.Mul(1 / float64(c.PointCount))
}

// AvgColor returns the mean color of the cluster's points.
func (c *Cluster) AvgColor() color.NRGBA {
	if c.PointCount == 0 {
		return color.NRGBA{A: 255}
	}
	n := uint64(c.PointCount)
	return color.NRGBA{
		R: uint8(c.ColorSum[0] / n),
		G: uint8(c.ColorSum[1] / n),
		B: uint8(c.ColorSum[2] / n),
		A: 255,
	}
}
