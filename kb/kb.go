// Package kb holds the administrative boundary knowledge base used to name
// the region under a pick.
package kb

import (
	"errors"
	"fmt"
	"sync"

	"github.com/paulmach/orb"

	"github.com/signalsfoundry/holo-globe/model"
)

// ErrRegionExists is returned when a boundary ID is registered twice.
var ErrRegionExists = errors.New("region already exists")

// EventType indicates what kind of change happened in the index.
type EventType int

const (
	// EventDatasetReplaced fires after Replace swaps the whole dataset.
	EventDatasetReplaced EventType = iota
	// EventRegionAdded fires after Add appends one boundary.
	EventRegionAdded
)

// Event is emitted to subscribers when the dataset changes.
type Event struct {
	Type    EventType
	Regions int
}

type indexedBoundary struct {
	boundary model.RegionBoundary
	// bounds[i] is the bounding box of polygon i's outer ring.
	bounds []orb.Bound
}

// RegionIndex is an in-memory, thread-safe, ordered set of region
// boundaries. Lookups honour declaration order: the first containing
// boundary wins.
type RegionIndex struct {
	mu sync.RWMutex

	entries []indexedBoundary
	byID    map[string]int

	subs []func(Event)
}

// NewRegionIndex builds an index over boundaries in the given order.
// Duplicate IDs are kept; only Add enforces uniqueness.
func NewRegionIndex(boundaries ...model.RegionBoundary) *RegionIndex {
	ix := &RegionIndex{byID: make(map[string]int)}
	ix.entries, ix.byID = buildEntries(boundaries)
	return ix
}

// Add appends a boundary after all existing ones. It returns an error if a
// non-empty ID is already present.
func (ix *RegionIndex) Add(b model.RegionBoundary) error {
	ix.mu.Lock()
	if b.ID != "" {
		if _, exists := ix.byID[b.ID]; exists {
			ix.mu.Unlock()
			return fmt.Errorf("region %q: %w", b.ID, ErrRegionExists)
		}
		ix.byID[b.ID] = len(ix.entries)
	}
	ix.entries = append(ix.entries, index(b))
	n := len(ix.entries)
	subs := append([]func(Event){}, ix.subs...)
	ix.mu.Unlock()

	notify(subs, Event{Type: EventRegionAdded, Regions: n})
	return nil
}

// Replace swaps the whole dataset, e.g. after a reload.
func (ix *RegionIndex) Replace(boundaries []model.RegionBoundary) {
	entries, byID := buildEntries(boundaries)

	ix.mu.Lock()
	ix.entries, ix.byID = entries, byID
	subs := append([]func(Event){}, ix.subs...)
	ix.mu.Unlock()

	notify(subs, Event{Type: EventDatasetReplaced, Regions: len(entries)})
}

// Subscribe registers a callback for dataset changes. Callbacks run on the
// goroutine that made the change, outside the index lock.
func (ix *RegionIndex) Subscribe(fn func(Event)) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.subs = append(ix.subs, fn)
}

// Len returns the number of boundaries. A nil index is empty.
func (ix *RegionIndex) Len() int {
	if ix == nil {
		return 0
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// Get returns the boundary with the given ID.
func (ix *RegionIndex) Get(id string) (model.RegionBoundary, bool) {
	if ix == nil {
		return model.RegionBoundary{}, false
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	i, ok := ix.byID[id]
	if !ok {
		return model.RegionBoundary{}, false
	}
	return ix.entries[i].boundary, true
}

// Boundaries returns the dataset in declaration order. The polygons are
// shared with the index and must be treated as read-only.
func (ix *RegionIndex) Boundaries() []model.RegionBoundary {
	if ix == nil {
		return nil
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]model.RegionBoundary, len(ix.entries))
	for i, e := range ix.entries {
		out[i] = e.boundary
	}
	return out
}

// Lookup returns the first boundary, in declaration order, that contains
// the point (lng, lat). Only outer rings are tested, so enclaves inside a
// hole still match the surrounding region. A nil or empty index never
// matches.
func (ix *RegionIndex) Lookup(lng, lat float64) (model.RegionBoundary, bool) {
	if ix == nil {
		return model.RegionBoundary{}, false
	}
	pt := orb.Point{lng, lat}

	ix.mu.RLock()
	defer ix.mu.RUnlock()
	for _, e := range ix.entries {
		for i, poly := range e.boundary.Polygons {
			if len(poly) == 0 || !e.bounds[i].Contains(pt) {
				continue
			}
			if RingContains(poly[0], pt) {
				return e.boundary, true
			}
		}
	}
	return model.RegionBoundary{}, false
}

// Contains reports whether any polygon of b contains pt by its outer ring.
func Contains(b model.RegionBoundary, pt orb.Point) bool {
	for _, poly := range b.Polygons {
		if len(poly) > 0 && RingContains(poly[0], pt) {
			return true
		}
	}
	return false
}

// RingContains is an even-odd ray casting test of pt against ring. The ring
// may or may not repeat its first vertex at the end.
func RingContains(ring orb.Ring, pt orb.Point) bool {
	x, y := pt[0], pt[1]
	inside := false
	for i, j := 0, len(ring)-1; i < len(ring); j, i = i, i+1 {
		xi, yi := ring[i][0], ring[i][1]
		xj, yj := ring[j][0], ring[j][1]
		if (yi > y) != (yj > y) && x < (xj-xi)*(y-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}

func buildEntries(boundaries []model.RegionBoundary) ([]indexedBoundary, map[string]int) {
	entries := make([]indexedBoundary, 0, len(boundaries))
	byID := make(map[string]int, len(boundaries))
	for _, b := range boundaries {
		if b.ID != "" {
			if _, dup := byID[b.ID]; !dup {
				byID[b.ID] = len(entries)
			}
		}
		entries = append(entries, index(b))
	}
	return entries, byID
}

func index(b model.RegionBoundary) indexedBoundary {
	bounds := make([]orb.Bound, len(b.Polygons))
	for i, poly := range b.Polygons {
		if len(poly) > 0 {
			bounds[i] = poly[0].Bound()
		}
	}
	return indexedBoundary{boundary: b, bounds: bounds}
}

func notify(subs []func(Event), ev Event) {
	for _, fn := range subs {
		fn(ev)
	}
}
