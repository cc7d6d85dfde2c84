// Package segmentation turns a raw depth+color frame into ephemeral object
// clusters: it finds the support plane, strips the floor and the robot's own
// arm, and groups what is left with a union-find over the sensor grid.
package segmentation

import (
	"context"
	"math/rand"
	"sync"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"go.opencensus.io/trace"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/tabletop/config"
	"go.viam.com/tabletop/pointcloud"
	"go.viam.com/tabletop/spatialmath"
	"go.viam.com/tabletop/utils"
)

// minPlanePoints is the fewest points a plane can be fit to.
const minPlanePoints = 3

// FloorEstimator fits the dominant plane of a point set with RANSAC.
type FloorEstimator struct {
	iterations int
	threshold  float64
	percent    float64
	refine     bool
	r          *rand.Rand
	logger     golog.Logger
}

// NewFloorEstimator returns an estimator configured from cfg. The random source is
// seeded from cfg so repeated runs over the same input agree.
func NewFloorEstimator(cfg *config.Config, logger golog.Logger) *FloorEstimator {
	return &FloorEstimator{
		iterations: cfg.RansacIterations,
		threshold:  cfg.RansacThreshM,
		percent:    cfg.RansacPercent,
		refine:     cfg.RefineFloor,
		r:          rand.New(rand.NewSource(cfg.RansacSeed)), //nolint:gosec
		logger:     logger,
	}
}

// Estimate segments the biggest plane in pts.
// Each iteration draws 3 points, builds the plane through them from the cross
// product of two edges and counts how many points of a fixed random subsample
// lie within the threshold. The best plane wins only if its support exceeds a
// sixth of the subsample; otherwise the second return is false.
func (fe *FloorEstimator) Estimate(ctx context.Context, pts []r3.Vector) (spatialmath.Plane, bool) {
	_, span := trace.StartSpan(ctx, "segmentation::FloorEstimator::Estimate")
	defer span.End()

	nPoints := len(pts)
	if nPoints < minPlanePoints {
		return spatialmath.Plane{}, false
	}

	nSamples := int(fe.percent * float64(nPoints))
	if nSamples < minPlanePoints {
		nSamples = minPlanePoints
	}
	samples := make([]r3.Vector, 0, nSamples)
	for _, idx := range utils.SampleDistinct(nPoints, nSamples, fe.r) {
		samples = append(samples, pts[idx])
	}
	nSamples = len(samples)

	var best spatialmath.Plane
	bestInliers := 0
	for i := 0; i < fe.iterations; i++ {
		p1 := pts[utils.SampleRandomIntRange(0, nPoints-1, fe.r)]
		p2 := pts[utils.SampleRandomIntRange(0, nPoints-1, fe.r)]
		p3 := pts[utils.SampleRandomIntRange(0, nPoints-1, fe.r)]

		candidate, err := spatialmath.PlaneFromPoints(p1, p2, p3)
		if err != nil {
			// collinear or repeated picks
			continue
		}
		inliers := countInliers(candidate, samples, fe.threshold)
		if inliers > bestInliers {
			best = candidate
			bestInliers = inliers
		}
	}

	if bestInliers*6 <= nSamples {
		fe.logger.Debugw("no plane found", "best_inliers", bestInliers, "samples", nSamples)
		return spatialmath.Plane{}, false
	}

	if fe.refine {
		if refined, ok := refinePlane(best, samples, fe.threshold); ok {
			best = refined
		}
	}
	fe.logger.Debugw("plane found", "plane", best.String(), "inliers", bestInliers, "samples", nSamples)
	return best, true
}

func countInliers(plane spatialmath.Plane, pts []r3.Vector, threshold float64) int {
	n := 0
	for _, pt := range pts {
		d := plane.Distance(pt)
		if d < threshold && d > -threshold {
			n++
		}
	}
	return n
}

// refinePlane re-fits the plane to its inliers by total least squares: the
// normal is the right singular vector of the centered inliers with the
// smallest singular value.
func refinePlane(plane spatialmath.Plane, pts []r3.Vector, threshold float64) (spatialmath.Plane, bool) {
	inliers := make([]r3.Vector, 0, len(pts))
	var centroid r3.Vector
	for _, pt := range pts {
		d := plane.Distance(pt)
		if d < threshold && d > -threshold {
			inliers = append(inliers, pt)
			centroid = centroid.Add(pt)
		}
	}
	if len(inliers) < minPlanePoints {
		return plane, false
	}
	centroid = centroid.Mul(1 / float64(len(inliers)))

	data := make([]float64, 0, 3*len(inliers))
	for _, pt := range inliers {
		c := pt.Sub(centroid)
		data = append(data, c.X, c.Y, c.Z)
	}
	var svd mat.SVD
	if ok := svd.Factorize(mat.NewDense(len(inliers), 3, data), mat.SVDThin); !ok {
		return plane, false
	}
	var v mat.Dense
	svd.VTo(&v)
	normal := r3.Vector{v.At(0, 2), v.At(1, 2), v.At(2, 2)}
	refined, err := spatialmath.PlaneFromNormalAndPoint(normal, centroid)
	if err != nil {
		return plane, false
	}
	if refined.Normal.Dot(plane.Normal) < 0 {
		refined = spatialmath.Plane{Normal: refined.Normal.Mul(-1), D: -refined.D}
	}
	return refined, true
}

// CachedFloor holds the support plane for one camera session. The plane is
// assumed static for a mounted sensor, so it is estimated once and reused
// until Reset.
type CachedFloor struct {
	mu        sync.Mutex
	estimator *FloorEstimator
	plane     spatialmath.Plane
	hasPlane  bool
	logger    golog.Logger
}

// NewCachedFloor returns an empty floor cache backed by estimator.
func NewCachedFloor(estimator *FloorEstimator, logger golog.Logger) *CachedFloor {
	return &CachedFloor{estimator: estimator, logger: logger}
}

// Plane returns the cached plane, if any.
func (cf *CachedFloor) Plane() (spatialmath.Plane, bool) {
	cf.mu.Lock()
	defer cf.mu.Unlock()
	return cf.plane, cf.hasPlane
}

// Update estimates the plane from frame when none is cached. A failed
// estimate leaves any previous plane in place. The stored plane's normal
// points towards the sensor origin.
func (cf *CachedFloor) Update(ctx context.Context, frame *pointcloud.Frame) (spatialmath.Plane, bool) {
	cf.mu.Lock()
	defer cf.mu.Unlock()
	if cf.hasPlane {
		return cf.plane, true
	}
	plane, ok := cf.estimator.Estimate(ctx, frame.Positions())
	if !ok {
		return cf.plane, cf.hasPlane
	}
	cf.plane = plane.OrientedTowards(r3.Vector{})
	cf.hasPlane = true
	cf.logger.Infow("floor plane cached", "plane", cf.plane.String())
	return cf.plane, true
}

// Set overrides the cached plane, e.g. with a calibrated one.
func (cf *CachedFloor) Set(plane spatialmath.Plane) {
	cf.mu.Lock()
	defer cf.mu.Unlock()
	cf.plane = plane.OrientedTowards(r3.Vector{})
	cf.hasPlane = true
}

// Reset drops the cached plane so the next Update re-estimates it.
func (cf *CachedFloor) Reset() {
	cf.mu.Lock()
	defer cf.mu.Unlock()
	cf.plane = spatialmath.Plane{}
	cf.hasPlane = false
	cf.logger.Info("floor plane reset")
}
