// Package tracking gives the ephemeral clusters of each frame persistent
// identities, remembering objects that are briefly occluded and following
// objects the arm is carrying.
package tracking

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.opencensus.io/trace"

	"go.viam.com/tabletop/config"
	"go.viam.com/tabletop/spatialmath"
	"go.viam.com/tabletop/vision/segmentation"
)

// Tracker resolves each frame's clusters to persistent object identities.
// All state is guarded by one mutex, so arm transitions coming from the
// control loop never interleave with a Resolve.
type Tracker struct {
	mu sync.Mutex

	maxTravel      float64
	maxColorChange float64
	darkThreshold  int
	maxHistory     time.Duration
	extrinsics     spatialmath.Pose
	clock          clock.Clock
	logger         golog.Logger

	previous map[int]*ObjectInfo
	lost     *LostMemory
	held     *ObjectInfo
	armState ArmState
	nextID   int
}

// NewTracker returns a tracker for a camera whose camera-to-world transform is extrinsics.
func NewTracker(cfg *config.Config, extrinsics spatialmath.Pose, clk clock.Clock, logger golog.Logger) *Tracker {
	if clk == nil {
		clk = clock.New()
	}
	return &Tracker{
		maxTravel:      cfg.MaxTravelDistM,
		maxColorChange: cfg.MaxColorChange,
		darkThreshold:  cfg.DarkThreshold,
		maxHistory:     cfg.MaxHistory(),
		extrinsics:     extrinsics,
		clock:          clk,
		logger:         logger,
		previous:       map[int]*ObjectInfo{},
		lost:           NewLostMemory(cfg.MaxHistory()),
		armState:       StateWaiting,
		nextID:         1,
	}
}

type observation struct {
	idx     int
	cluster *segmentation.Cluster
	obj     *ObjectInfo // RepID unset until assigned
}

type candidate struct {
	obs   int
	repID int
	dist  float64
}

// Resolve assigns a repID to every cluster that is not sensor noise and returns
// the tracked objects keyed by repID. gripper is the current world frame
// gripper position, used for the object being carried; when it is nil the
// carried object keeps its last known position.
//
// Matching is greedy: the closest (cluster, previous object) pair within the
// travel and color gates is matched first, ties going to the lowest repID.
// Clusters left over are looked up in lost memory and otherwise get a new id.
func (t *Tracker) Resolve(ctx context.Context, clusters []*segmentation.Cluster, gripper *r3.Vector) map[int]*ObjectInfo {
	_, span := trace.StartSpan(ctx, "tracking::Tracker::Resolve")
	defer span.End()

	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.clock.Now()

	if t.armState == StateJustDropped {
		if t.held != nil {
			if _, ok := t.previous[t.held.RepID]; !ok {
				t.previous[t.held.RepID] = t.held.Clone()
			}
			t.lost.Remove(t.held.RepID)
		}
		t.held = nil
		t.armState = StateWaiting
	}

	observations := make([]observation, 0, len(clusters))
	for _, cl := range clusters {
		obj := newObjectInfo(0, cl, t.extrinsics)
		observations = append(observations, observation{cluster: cl, obj: obj})
	}
	observations = lo.Filter(observations, func(o observation, _ int) bool {
		return !isDark(o.obj.AvgColor, t.darkThreshold)
	})
	for i := range observations {
		observations[i].idx = i
	}

	var result map[int]*ObjectInfo
	if len(t.previous) == 0 && t.lost.Len() == 0 {
		result = make(map[int]*ObjectInfo, len(observations))
		for _, o := range observations {
			o.obj.RepID = t.newID()
			result[o.obj.RepID] = o.obj
		}
	} else {
		result = t.match(observations, now)
	}

	if t.armState == StateHolding && t.held != nil {
		id := t.held.RepID
		held, ok := result[id]
		if !ok {
			held = t.held.Clone()
		}
		if gripper != nil {
			held.MoveTo(*gripper)
		}
		t.held = held.Clone()
		result[id] = held
		t.lost.Remove(id)
	}

	t.previous = result
	t.assertDistinct()
	t.logger.Debugw("resolved frame",
		"clusters", len(clusters), "objects", len(result), "lost", t.lost.Len(), "arm_state", t.armState.String())
	return cloneObjects(result)
}

// match runs both matching passes and moves unmatched previous objects to lost memory.
func (t *Tracker) match(observations []observation, now time.Time) map[int]*ObjectInfo {
	prevIDs := lo.Keys(t.previous)
	sort.Ints(prevIDs)

	var candidates []candidate
	for _, o := range observations {
		for _, id := range prevIDs {
			prev := t.previous[id]
			d := xyDistance(o.obj.Center, prev.Center)
			if d >= t.maxTravel || colorDistance(o.obj.AvgColor, prev.AvgColor) >= t.maxColorChange {
				continue
			}
			candidates = append(candidates, candidate{obs: o.idx, repID: id, dist: d})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.dist != b.dist {
			return a.dist < b.dist
		}
		if a.repID != b.repID {
			return a.repID < b.repID
		}
		return a.obs < b.obs
	})

	result := make(map[int]*ObjectInfo, len(observations))
	matchedObs := make(map[int]bool, len(observations))
	matchedPrev := make(map[int]bool, len(prevIDs))
	for _, c := range candidates {
		if matchedObs[c.obs] || matchedPrev[c.repID] {
			continue
		}
		obj := observations[c.obs].obj
		obj.RepID = c.repID
		result[c.repID] = obj
		matchedObs[c.obs] = true
		matchedPrev[c.repID] = true
	}
	active := len(result)

	// aged entries must never be recovered
	t.lost.Purge(now)
	recovered := 0
	for _, o := range observations {
		if matchedObs[o.idx] {
			continue
		}
		if found, ok := t.lost.Best(o.obj.Center, o.obj.AvgColor, t.maxTravel, t.maxColorChange); ok {
			o.obj.RepID = found.RepID
			t.lost.Remove(found.RepID)
			recovered++
		} else {
			o.obj.RepID = t.newID()
		}
		result[o.obj.RepID] = o.obj
	}

	for _, id := range prevIDs {
		if !matchedPrev[id] {
			t.lost.Put(t.previous[id], now)
		}
	}
	purged := t.lost.Purge(now)

	t.logger.Debugw("matched clusters",
		"active", active, "recovered", recovered, "new", len(result)-active-recovered, "purged", len(purged))
	return result
}

func (t *Tracker) newID() int {
	id := t.nextID
	t.nextID++
	return id
}

// assertDistinct panics if a repID is both active and lost. Every other
// guarantee of the tracker depends on ids being unique.
func (t *Tracker) assertDistinct() {
	for id, obj := range t.previous {
		if obj.RepID != id {
			panic(errors.Errorf("tracked object stored under repID %d has repID %d", id, obj.RepID))
		}
		if _, _, ok := t.lost.Get(id); ok {
			panic(errors.Errorf("repID %d is both tracked and lost", id))
		}
	}
}

// ArmGrabbing records that the arm is closing on object id. It is ignored
// unless the arm is waiting or holding, or if id is unknown.
func (t *Tracker) ArmGrabbing(id int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.armState != StateWaiting && t.armState != StateHolding {
		t.logger.Debugw("ignoring grab", "id", id, "arm_state", t.armState.String())
		return
	}
	obj, ok := t.previous[id]
	if !ok {
		obj, _, ok = t.lost.Get(id)
	}
	if !ok {
		t.logger.Debugw("ignoring grab of unknown object", "id", id)
		return
	}
	t.held = obj.Clone()
	t.armState = StateGrabbing
	t.logger.Debugw("grabbing", "id", id)
}

// ArmDropping records that the held object is being released at pos.
func (t *Tracker) ArmDropping(pos r3.Vector) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.held == nil {
		t.logger.Debug("ignoring drop with nothing held")
		return
	}
	t.held.MoveTo(pos)
	t.previous[t.held.RepID] = t.held.Clone()
	t.lost.Remove(t.held.RepID)
	t.armState = StateDropping
	t.logger.Debugw("dropping", "id", t.held.RepID, "pos", pos)
}

// ArmWaiting records that the arm finished its current motion.
func (t *Tracker) ArmWaiting() {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch t.armState {
	case StateGrabbing, StateHolding:
		t.armState = StateHolding
	case StateDropping, StateJustDropped:
		t.armState = StateJustDropped
	default:
		t.armState = StateWaiting
	}
	t.logger.Debugw("arm waiting", "arm_state", t.armState.String())
}

// ArmFailed abandons the current manipulation.
func (t *Tracker) ArmFailed() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.held = nil
	t.armState = StateWaiting
	t.logger.Debug("arm failed")
}

// State returns the current arm state.
func (t *Tracker) State() ArmState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.armState
}

// HeldObjectID returns the id of the object being manipulated, if any.
func (t *Tracker) HeldObjectID() (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.held == nil {
		return 0, false
	}
	return t.held.RepID, true
}

// Objects returns a copy of the objects tracked in the last frame.
func (t *Tracker) Objects() map[int]*ObjectInfo {
	t.mu.Lock()
	defer t.mu.Unlock()
	return cloneObjects(t.previous)
}

// Lost returns a copy of the objects in lost memory.
func (t *Tracker) Lost() map[int]*ObjectInfo {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lost.Snapshot()
}

// Reset forgets every tracked and lost object. Ids handed out before the
// reset are never reused.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.previous = map[int]*ObjectInfo{}
	t.lost = NewLostMemory(t.maxHistory)
	t.held = nil
	t.armState = StateWaiting
}

func cloneObjects(in map[int]*ObjectInfo) map[int]*ObjectInfo {
	out := make(map[int]*ObjectInfo, len(in))
	for id, obj := range in {
		out[id] = obj.Clone()
	}
	return out
}
