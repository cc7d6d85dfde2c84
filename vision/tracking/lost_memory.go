package tracking

import (
	"image/color"
	"sort"
	"time"

	"github.com/golang/geo/r3"
	"github.com/samber/lo"
)

type lostEntry struct {
	obj      *ObjectInfo
	lastSeen time.Time
}

// LostMemory remembers recently vanished objects so they can be re-identified
// after a short occlusion. Entries older than maxHistory are forgotten.
type LostMemory struct {
	entries    map[int]lostEntry
	maxHistory time.Duration
}

// NewLostMemory returns an empty memory.
func NewLostMemory(maxHistory time.Duration) *LostMemory {
	return &LostMemory{entries: map[int]lostEntry{}, maxHistory: maxHistory}
}

// Put inserts or refreshes obj, last seen at t.
func (lm *LostMemory) Put(obj *ObjectInfo, t time.Time) {
	lm.entries[obj.RepID] = lostEntry{obj: obj, lastSeen: t}
}

// Get returns the entry for repID.
func (lm *LostMemory) Get(repID int) (*ObjectInfo, time.Time, bool) {
	e, ok := lm.entries[repID]
	return e.obj, e.lastSeen, ok
}

// Remove forgets repID.
func (lm *LostMemory) Remove(repID int) {
	delete(lm.entries, repID)
}

// Len returns the number of remembered objects.
func (lm *LostMemory) Len() int {
	return len(lm.entries)
}

// IDs returns the remembered repIDs in ascending order.
func (lm *LostMemory) IDs() []int {
	ids := lo.Keys(lm.entries)
	sort.Ints(ids)
	return ids
}

// Purge drops entries last seen more than maxHistory before now and returns their ids.
func (lm *LostMemory) Purge(now time.Time) []int {
	var purged []int
	for _, id := range lm.IDs() {
		if now.Sub(lm.entries[id].lastSeen) > lm.maxHistory {
			delete(lm.entries, id)
			purged = append(purged, id)
		}
	}
	return purged
}

// Best returns the closest remembered object within maxDist whose color is
// within maxColor. Ties go to the lowest repID.
func (lm *LostMemory) Best(center r3.Vector, c color.NRGBA, maxDist, maxColor float64) (*ObjectInfo, bool) {
	var best *ObjectInfo
	bestDist := maxDist
	for _, id := range lm.IDs() {
		obj := lm.entries[id].obj
		d := xyDistance(center, obj.Center)
		if d >= bestDist || colorDistance(c, obj.AvgColor) >= maxColor {
			continue
		}
		best, bestDist = obj, d
	}
	return best, best != nil
}

// Snapshot copies the remembered objects.
func (lm *LostMemory) Snapshot() map[int]*ObjectInfo {
	out := make(map[int]*ObjectInfo, len(lm.entries))
	for id, e := range lm.entries {
		out[id] = e.obj.Clone()
	}
	return out
}
