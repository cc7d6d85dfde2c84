// Package perception wires floor estimation, arm filtering, clustering and
// identity tracking into a single frame pipeline.
package perception

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"

	"go.viam.com/tabletop/config"
	"go.viam.com/tabletop/logging"
	"go.viam.com/tabletop/pointcloud"
	"go.viam.com/tabletop/spatialmath"
	"go.viam.com/tabletop/utils"
	"go.viam.com/tabletop/vision/segmentation"
	"go.viam.com/tabletop/vision/tracking"
)

// FloorModel caches the support plane of a camera session.
type FloorModel interface {
	Plane() (spatialmath.Plane, bool)
	Update(ctx context.Context, frame *pointcloud.Frame) (spatialmath.Plane, bool)
	Reset()
}

// ArmPose is the arm's shape at capture time.
type ArmPose struct {
	Chain   *segmentation.KinematicChain
	Gripper r3.Vector
}

// ArmPoseSource reports the current arm pose. A nil pose with a nil error
// means the arm is not known.
type ArmPoseSource interface {
	ArmPose(ctx context.Context) (*ArmPose, error)
}

// Result is the outcome of processing one frame.
type Result struct {
	FrameTime  time.Time
	Objects    map[int]*tracking.ObjectInfo
	Clusters   int
	FloorFound bool
	Filter     segmentation.FilterStats
	Duration   time.Duration
}

// Pipeline turns frames into tracked objects. Frames are processed one at a
// time; Submit plus Start run it in the background, always on the newest frame.
type Pipeline struct {
	mu sync.Mutex

	sessionID uuid.UUID
	floor     FloorModel
	arm       ArmPoseSource
	filter    *segmentation.ArmFilter
	clusterer *segmentation.Clusterer
	tracker   *tracking.Tracker
	clock     clock.Clock
	logger    golog.Logger

	pending   *utils.LatestSlot[*pointcloud.Frame]
	workersMu sync.Mutex
	workers   *utils.StoppableWorkers

	stats *statsRecorder
}

// NewPipeline returns a pipeline configured from cfg. A nil floor uses a
// CachedFloor estimated by RANSAC; a nil arm disables arm filtering.
func NewPipeline(cfg *config.Config, floor FloorModel, arm ArmPoseSource, clk clock.Clock, logger golog.Logger) (*Pipeline, error) {
	if err := cfg.Validate("perception"); err != nil {
		return nil, err
	}
	extrinsics, err := cfg.Extrinsics()
	if err != nil {
		return nil, err
	}
	if clk == nil {
		clk = clock.New()
	}
	sessionID := uuid.New()
	logger = logging.Sub(logger, "perception").With("session", sessionID.String())
	if floor == nil {
		floor = segmentation.NewCachedFloor(
			segmentation.NewFloorEstimator(cfg, logging.Sub(logger, "floor")),
			logging.Sub(logger, "floor"),
		)
	}
	return &Pipeline{
		sessionID: sessionID,
		floor:     floor,
		arm:       arm,
		filter:    segmentation.NewArmFilter(cfg, extrinsics, logging.Sub(logger, "filter")),
		clusterer: segmentation.NewClusterer(cfg, logging.Sub(logger, "cluster")),
		tracker:   tracking.NewTracker(cfg, extrinsics, clk, logging.Sub(logger, "tracker")),
		clock:     clk,
		logger:    logger,
		pending:   utils.NewLatestSlot[*pointcloud.Frame](),
		stats:     newStatsRecorder(),
	}, nil
}

// SessionID identifies this pipeline in logs.
func (p *Pipeline) SessionID() uuid.UUID {
	return p.sessionID
}

// Tracker returns the identity tracker, for arm transitions and inspection.
func (p *Pipeline) Tracker() *tracking.Tracker {
	return p.tracker
}

// Process runs one frame through the whole pipeline and returns the tracked objects.
func (p *Pipeline) Process(ctx context.Context, frame *pointcloud.Frame) (*Result, error) {
	ctx, span := trace.StartSpan(ctx, "perception::Pipeline::Process")
	defer span.End()

	if err := frame.Validate(); err != nil {
		p.stats.errors.Inc()
		return nil, errors.Wrap(err, "cannot process frame")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	start := p.clock.Now()

	var planePtr *spatialmath.Plane
	plane, floorFound := p.floor.Update(ctx, frame)
	if floorFound {
		planePtr = &plane
	}

	var chain *segmentation.KinematicChain
	var gripper *r3.Vector
	if p.arm != nil {
		pose, err := p.arm.ArmPose(ctx)
		switch {
		case err != nil:
			p.logger.Warnw("cannot get arm pose, not filtering the arm", "error", err)
		case pose != nil:
			chain, gripper = pose.Chain, &pose.Gripper
		}
	}

	filtered, filterStats, err := p.filter.Filter(frame, planePtr, chain)
	if err != nil {
		p.logger.Warnw("bad kinematic chain, not filtering the arm", "error", err)
		filtered, filterStats, err = p.filter.Filter(frame, planePtr, nil)
		if err != nil {
			p.stats.errors.Inc()
			return nil, err
		}
	}

	clusters, err := p.clusterer.Cluster(ctx, filtered)
	if err != nil {
		p.stats.errors.Inc()
		return nil, err
	}
	objects := p.tracker.Resolve(ctx, clusters, gripper)

	res := &Result{
		FrameTime:  frame.Timestamp,
		Objects:    objects,
		Clusters:   len(clusters),
		FloorFound: floorFound,
		Filter:     filterStats,
		Duration:   p.clock.Since(start),
	}
	p.stats.record(res.Duration)
	p.logger.Debugw("processed frame",
		"clusters", res.Clusters, "objects", len(objects), "floor", floorFound, "kept", filterStats.Kept, "duration", res.Duration)
	return res, nil
}

// Submit hands a frame to the background worker. A frame that has not been
// picked up yet is replaced, and Submit reports that it was dropped.
func (p *Pipeline) Submit(frame *pointcloud.Frame) bool {
	replaced := p.pending.Put(frame)
	if replaced {
		p.logger.Debug("dropped stale frame")
	}
	return replaced
}

// Start runs the background worker until ctx is done or Close is called.
// onResult is called from the worker for every processed frame and may be nil.
func (p *Pipeline) Start(ctx context.Context, onResult func(*Result)) error {
	p.workersMu.Lock()
	defer p.workersMu.Unlock()
	if p.workers != nil {
		return errors.New("pipeline already started")
	}
	p.workers = utils.NewStoppableWorkers(ctx, func(ctx context.Context) {
		for {
			frame, err := p.pending.Take(ctx)
			if err != nil {
				return
			}
			res, err := p.Process(ctx, frame)
			if err != nil {
				p.logger.Errorw("frame failed", "error", err)
				continue
			}
			if onResult != nil {
				onResult(res)
			}
		}
	})
	return nil
}

// Close stops the background worker, if running, and waits for it to exit.
func (p *Pipeline) Close() error {
	p.workersMu.Lock()
	defer p.workersMu.Unlock()
	if p.workers != nil {
		p.workers.Stop()
		p.workers = nil
	}
	return nil
}

// ResetFloor forgets the cached floor plane so the next frame re-estimates it.
func (p *Pipeline) ResetFloor() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.floor.Reset()
}

// ArmGrabbing forwards to the tracker.
func (p *Pipeline) ArmGrabbing(id int) { p.tracker.ArmGrabbing(id) }

// ArmDropping forwards to the tracker.
func (p *Pipeline) ArmDropping(pos r3.Vector) { p.tracker.ArmDropping(pos) }

// ArmWaiting forwards to the tracker.
func (p *Pipeline) ArmWaiting() { p.tracker.ArmWaiting() }

// ArmFailed forwards to the tracker.
func (p *Pipeline) ArmFailed() { p.tracker.ArmFailed() }

// Stats returns counters and pass timings since the pipeline was created.
func (p *Pipeline) Stats() Stats {
	return p.stats.snapshot(p.pending.Dropped())
}

// StaticArmPose is an ArmPoseSource whose pose is set by the caller, usually
// the arm control loop.
type StaticArmPose struct {
	mu   sync.Mutex
	pose *ArmPose
}

// NewStaticArmPose returns a source reporting pose, which may be nil.
func NewStaticArmPose(pose *ArmPose) *StaticArmPose {
	return &StaticArmPose{pose: pose}
}

// Set replaces the reported pose.
func (s *StaticArmPose) Set(pose *ArmPose) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pose = pose
}

// ArmPose returns the last pose set.
func (s *StaticArmPose) ArmPose(ctx context.Context) (*ArmPose, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pose == nil {
		return nil, nil
	}
	pose := *s.pose
	return &pose, nil
}
