package segmentation

import (
	"fmt"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"go.viam.com/tabletop/config"
	"go.viam.com/tabletop/pointcloud"
	"go.viam.com/tabletop/spatialmath"
)

// KinematicChain is the arm's current shape: joint poses in the world frame,
// ordered from base to gripper, and the radius of the link leaving each joint.
type KinematicChain struct {
	Joints    []spatialmath.Pose
	LinkRadii []float64
}

// Links returns one capsule per pair of consecutive joints.
func (kc *KinematicChain) Links() ([]spatialmath.Capsule, error) {
	if kc == nil || len(kc.Joints) < 2 {
		return nil, nil
	}
	nLinks := len(kc.Joints) - 1
	if len(kc.LinkRadii) < nLinks {
		return nil, errors.Errorf("kinematic chain has %d links but only %d radii", nLinks, len(kc.LinkRadii))
	}
	links := make([]spatialmath.Capsule, 0, nLinks)
	for i := 0; i < nLinks; i++ {
		links = append(links, spatialmath.NewCapsule(
			kc.Joints[i].Point(),
			kc.Joints[i+1].Point(),
			kc.LinkRadii[i],
			fmt.Sprintf("link%d", i),
		))
	}
	return links, nil
}

// FilterStats counts why points were removed from a frame.
type FilterStats struct {
	Kept       int
	Floor      int
	BelowFloor int
	AboveMax   int
	Arm        int
}

// ArmFilter removes points that belong to the floor, to clutter above the
// workspace, or to the robot's own arm.
type ArmFilter struct {
	floorThresh float64
	maxHeight   float64
	extrinsics  spatialmath.Pose
	logger      golog.Logger
}

// NewArmFilter returns a filter for a camera whose camera-to-world transform is extrinsics.
func NewArmFilter(cfg *config.Config, extrinsics spatialmath.Pose, logger golog.Logger) *ArmFilter {
	return &ArmFilter{
		floorThresh: cfg.RansacThreshM,
		maxHeight:   cfg.MaxHeightM,
		extrinsics:  extrinsics,
		logger:      logger,
	}
}

// Filter returns a copy of frame where excluded points are replaced by the
// zero sentinel. The grid shape is preserved so neighbour addressing in the
// clusterer stays valid. The plane must have its normal towards the sensor;
// a nil plane skips floor rules and a nil chain skips arm rules.
func (af *ArmFilter) Filter(frame *pointcloud.Frame, plane *spatialmath.Plane, chain *KinematicChain) (*pointcloud.Frame, FilterStats, error) {
	var stats FilterStats
	links, err := chain.Links()
	if err != nil {
		return nil, stats, err
	}
	out := &pointcloud.Frame{
		Width:     frame.Width,
		Height:    frame.Height,
		Points:    make([]pointcloud.Point, len(frame.Points)),
		Timestamp: frame.Timestamp,
	}

	for i, p := range frame.Points {
		if !p.IsValid() {
			continue
		}
		pos := p.Position()
		if plane != nil {
			height := plane.Distance(pos)
			switch {
			case height < -af.floorThresh:
				stats.BelowFloor++
				continue
			case height < af.floorThresh:
				stats.Floor++
				continue
			case height > af.maxHeight:
				stats.AboveMax++
				continue
			}
		}
		if len(links) > 0 {
			world := af.extrinsics.Transform(pos)
			onArm := false
			for _, link := range links {
				if link.Contains(world) {
					onArm = true
					break
				}
			}
			if onArm {
				stats.Arm++
				continue
			}
		}
		out.Points[i] = p
		stats.Kept++
	}
	return out, stats, nil
}
