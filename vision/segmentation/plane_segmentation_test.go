package segmentation

import (
	"context"
	"math/rand"
	"testing"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/tabletop/config"
	"go.viam.com/tabletop/spatialmath"
	"go.viam.com/tabletop/testutils"
)

func TestFloorEstimatorFindsTable(t *testing.T) {
	logger := golog.NewTestLogger(t)
	scene := testutils.DefaultScene(
		testutils.Box{X: 0.10, Y: 0.00, HalfSize: 0.02, Height: 0.02, Color: testutils.Red},
		testutils.Box{X: -0.08, Y: 0.04, HalfSize: 0.03, Height: 0.05, Color: testutils.Blue},
	)
	scene.Noise = 0.001
	scene.Dropout = 0.1
	frame := scene.Render()

	for _, refine := range []bool{false, true} {
		cfg := config.Default()
		cfg.RefineFloor = refine
		plane, ok := NewFloorEstimator(cfg, logger).Estimate(context.Background(), frame.Positions())
		test.That(t, ok, test.ShouldBeTrue)
		plane = plane.OrientedTowards(r3.Vector{})
		test.That(t, plane.Normal.Z, test.ShouldAlmostEqual, -1, 0.02)
		test.That(t, plane.D, test.ShouldAlmostEqual, scene.CameraHeight, 0.01)
	}
}

func TestFloorEstimatorDeterministic(t *testing.T) {
	logger := golog.NewTestLogger(t)
	scene := testutils.DefaultScene()
	scene.Noise = 0.002
	pts := scene.Render().Positions()

	a, okA := NewFloorEstimator(config.Default(), logger).Estimate(context.Background(), pts)
	b, okB := NewFloorEstimator(config.Default(), logger).Estimate(context.Background(), pts)
	test.That(t, okA, test.ShouldBeTrue)
	test.That(t, okB, test.ShouldBeTrue)
	test.That(t, a, test.ShouldResemble, b)
}

func TestFloorEstimatorNoPlane(t *testing.T) {
	logger := golog.NewTestLogger(t)
	est := NewFloorEstimator(config.Default(), logger)

	_, ok := est.Estimate(context.Background(), nil)
	test.That(t, ok, test.ShouldBeFalse)
	_, ok = est.Estimate(context.Background(), []r3.Vector{{0, 0, 1}, {1, 0, 1}})
	test.That(t, ok, test.ShouldBeFalse)

	// uniform noise in a cube has no dominant plane
	r := rand.New(rand.NewSource(3))
	pts := make([]r3.Vector, 3000)
	for i := range pts {
		pts[i] = r3.Vector{r.Float64(), r.Float64(), r.Float64()}
	}
	_, ok = est.Estimate(context.Background(), pts)
	test.That(t, ok, test.ShouldBeFalse)

	// every pick is collinear
	line := make([]r3.Vector, 100)
	for i := range line {
		line[i] = r3.Vector{float64(i) * 0.01, 0, 1}
	}
	_, ok = est.Estimate(context.Background(), line)
	test.That(t, ok, test.ShouldBeFalse)
}

func TestCachedFloor(t *testing.T) {
	logger := golog.NewTestLogger(t)
	ctx := context.Background()
	cf := NewCachedFloor(NewFloorEstimator(config.Default(), logger), logger)
	_, ok := cf.Plane()
	test.That(t, ok, test.ShouldBeFalse)

	// a frame with no points fails and caches nothing
	empty := testutils.DefaultScene()
	empty.NoFloor = true
	_, ok = cf.Update(ctx, empty.Render())
	test.That(t, ok, test.ShouldBeFalse)

	scene := testutils.DefaultScene()
	plane, ok := cf.Update(ctx, scene.Render())
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, plane.Distance(r3.Vector{}), test.ShouldBeGreaterThan, 0)

	// the cached plane is kept even when a later frame has no floor
	again, ok := cf.Update(ctx, empty.Render())
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, again, test.ShouldResemble, plane)

	cf.Reset()
	_, ok = cf.Plane()
	test.That(t, ok, test.ShouldBeFalse)

	flipped, err := spatialmath.NewPlane(0, 0, 1, -0.5)
	test.That(t, err, test.ShouldBeNil)
	cf.Set(flipped)
	got, ok := cf.Plane()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, got.Normal.Z, test.ShouldAlmostEqual, -1)
	test.That(t, got.D, test.ShouldAlmostEqual, 0.5)
}

func TestArmFilter(t *testing.T) {
	logger := golog.NewTestLogger(t)
	scene := testutils.DefaultScene(
		testutils.Box{X: 0.10, Y: 0.00, HalfSize: 0.02, Height: 0.02, Color: testutils.Red},
		testutils.Box{X: -0.08, Y: 0.00, HalfSize: 0.02, Height: 0.02, Color: testutils.Green},
	)
	frame := scene.Render()
	plane := scene.FloorPlane()
	af := NewArmFilter(config.Default(), scene.Extrinsics(), logger)

	t.Run("floor only", func(t *testing.T) {
		out, stats, err := af.Filter(frame, &plane, nil)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, out.Width, test.ShouldEqual, frame.Width)
		test.That(t, out.Points, test.ShouldHaveLength, len(frame.Points))
		test.That(t, stats.Floor, test.ShouldBeGreaterThan, 0)
		test.That(t, stats.Arm, test.ShouldEqual, 0)
		test.That(t, stats.Kept, test.ShouldEqual, out.ValidCount())
		test.That(t, stats.Kept+stats.Floor, test.ShouldEqual, frame.ValidCount())
		// input is not modified
		test.That(t, frame.ValidCount(), test.ShouldEqual, frame.Size())
	})

	t.Run("arm link over a block", func(t *testing.T) {
		chain := &KinematicChain{
			Joints: []spatialmath.Pose{
				spatialmath.NewPoseFromPoint(r3.Vector{0.10, 0, 0}),
				spatialmath.NewPoseFromPoint(r3.Vector{0.10, 0, 0.3}),
			},
			LinkRadii: []float64{0.03},
		}
		_, floorOnly, err := af.Filter(frame, &plane, nil)
		test.That(t, err, test.ShouldBeNil)
		out, stats, err := af.Filter(frame, &plane, chain)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, stats.Arm, test.ShouldBeGreaterThan, 0)
		test.That(t, stats.Kept+stats.Arm, test.ShouldEqual, floorOnly.Kept)

		clusters, err := NewClusterer(config.Default(), logger).Cluster(context.Background(), out)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, clusters, test.ShouldHaveLength, 1)
		test.That(t, clusters[0].AvgColor().G, test.ShouldEqual, uint8(180))
	})

	t.Run("arm without a plane", func(t *testing.T) {
		chain := &KinematicChain{
			Joints: []spatialmath.Pose{
				spatialmath.NewPoseFromPoint(r3.Vector{0.10, 0, 0}),
				spatialmath.NewPoseFromPoint(r3.Vector{0.10, 0, 0.3}),
			},
			LinkRadii: []float64{0.03},
		}
		_, stats, err := af.Filter(frame, nil, chain)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, stats.Floor, test.ShouldEqual, 0)
		test.That(t, stats.Arm, test.ShouldBeGreaterThan, 0)
		test.That(t, stats.Kept+stats.Arm, test.ShouldEqual, frame.ValidCount())
	})

	t.Run("bad chain", func(t *testing.T) {
		chain := &KinematicChain{
			Joints: []spatialmath.Pose{
				spatialmath.NewZeroPose(),
				spatialmath.NewPoseFromPoint(r3.Vector{0, 0, 0.1}),
				spatialmath.NewPoseFromPoint(r3.Vector{0, 0, 0.2}),
			},
			LinkRadii: []float64{0.03},
		}
		_, _, err := af.Filter(frame, &plane, chain)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "radii")
	})

	t.Run("above max height", func(t *testing.T) {
		tall := testutils.DefaultScene(testutils.Box{X: 0, Y: 0, HalfSize: 0.02, Height: 0.5, Color: testutils.Yellow})
		_, stats, err := af.Filter(tall.Render(), &plane, nil)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, stats.AboveMax, test.ShouldBeGreaterThan, 0)
		test.That(t, stats.Kept, test.ShouldEqual, 0)
	})
}

func TestKinematicChainLinks(t *testing.T) {
	var nilChain *KinematicChain
	links, err := nilChain.Links()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, links, test.ShouldBeEmpty)

	chain := &KinematicChain{
		Joints: []spatialmath.Pose{
			spatialmath.NewZeroPose(),
			spatialmath.NewPoseFromPoint(r3.Vector{0, 0, 0.1}),
			spatialmath.NewPoseFromPoint(r3.Vector{0.1, 0, 0.1}),
		},
		LinkRadii: []float64{0.05, 0.02},
	}
	links, err = chain.Links()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, links, test.ShouldHaveLength, 2)
	test.That(t, links[1].Label, test.ShouldEqual, "link1")
	test.That(t, links[0].Contains(r3.Vector{0.04, 0, 0.05}), test.ShouldBeTrue)
	test.That(t, links[1].Contains(r3.Vector{0.05, 0, 0.13}), test.ShouldBeFalse)
}
