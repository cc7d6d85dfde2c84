package segmentation

import (
	"context"

	"github.com/edaniels/golog"
	"go.opencensus.io/trace"

	"go.viam.com/tabletop/config"
	"go.viam.com/tabletop/pointcloud"
	"go.viam.com/tabletop/utils"
)

// unionFind is a disjoint-set forest over grid indices with path compression
// and union by size. Its buffers are reused across frames.
type unionFind struct {
	parent []int32
	size   []int32
}

func (uf *unionFind) reset(n int) {
	if cap(uf.parent) < n {
		uf.parent = make([]int32, n)
		uf.size = make([]int32, n)
	}
	uf.parent = uf.parent[:n]
	uf.size = uf.size[:n]
	for i := range uf.parent {
		uf.parent[i] = int32(i)
		uf.size[i] = 1
	}
}

func (uf *unionFind) find(i int) int {
	root := i
	for int(uf.parent[root]) != root {
		root = int(uf.parent[root])
	}
	for int(uf.parent[i]) != root {
		next := int(uf.parent[i])
		uf.parent[i] = int32(root)
		i = next
	}
	return root
}

func (uf *unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	if uf.size[ra] < uf.size[rb] {
		ra, rb = rb, ra
	}
	uf.parent[rb] = int32(ra)
	uf.size[ra] += uf.size[rb]
}

// Clusterer groups the valid points of an organized frame into blobs by
// joining grid neighbours that are close in space and in hue.
type Clusterer struct {
	distanceThresh float64
	colorThresh    float64
	minSize        int
	logger         golog.Logger

	uf  unionFind
	hue []float64
}

// NewClusterer returns a clusterer configured from cfg.
func NewClusterer(cfg *config.Config, logger golog.Logger) *Clusterer {
	return &Clusterer{
		distanceThresh: cfg.DistanceThreshM,
		colorThresh:    cfg.ColorThreshDeg,
		minSize:        cfg.MinObjectSize,
		logger:         logger,
	}
}

// Cluster partitions frame. Only the right and down neighbours of each point
// are tested, in that order, so the result is deterministic for a given frame.
// Groups smaller than the minimum object size are dropped. Clusters are
// returned in the row-major order of their first point.
func (c *Clusterer) Cluster(ctx context.Context, frame *pointcloud.Frame) ([]*Cluster, error) {
	_, span := trace.StartSpan(ctx, "segmentation::Clusterer::Cluster")
	defer span.End()

	if err := frame.Validate(); err != nil {
		return nil, err
	}
	n := frame.Size()
	c.uf.reset(n)
	if cap(c.hue) < n {
		c.hue = make([]float64, n)
	}
	c.hue = c.hue[:n]
	frame.Iterate(func(i int, p pointcloud.Point) bool {
		c.hue[i] = p.Hue()
		return true
	})

	w, h := frame.Width, frame.Height
	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			i := row*w + col
			if !frame.Points[i].IsValid() {
				continue
			}
			if col+1 < w {
				c.tryUnion(frame, i, i+1)
			}
			if row+1 < h {
				c.tryUnion(frame, i, i+w)
			}
		}
	}

	byRoot := map[int]*Cluster{}
	var order []*Cluster
	frame.Iterate(func(i int, p pointcloud.Point) bool {
		root := c.uf.find(i)
		if int(c.uf.size[root]) < c.minSize {
			return true
		}
		cl, ok := byRoot[root]
		if !ok {
			cl = newCluster(root)
			byRoot[root] = cl
			order = append(order, cl)
		}
		cl.add(p)
		return true
	})
	c.logger.Debugw("clustered frame", "clusters", len(order), "points", n)
	return order, nil
}

func (c *Clusterer) tryUnion(frame *pointcloud.Frame, a, b int) {
	pa, pb := frame.Points[a], frame.Points[b]
	if !pb.IsValid() {
		return
	}
	if pa.Position().Distance(pb.Position()) >= c.distanceThresh {
		return
	}
	if utils.AngleDiffDeg(c.hue[a], c.hue[b]) >= c.colorThresh {
		return
	}
	c.uf.union(a, b)
}
