package core

import (
	"time"

	"github.com/golang/geo/r3"
	"github.com/jonboulle/clockwork"

	"github.com/signalsfoundry/holo-globe/model"
)

// DefaultHoverInterval bounds how often hover picks are resolved.
const DefaultHoverInterval = 100 * time.Millisecond

// RegionLookup resolves a (longitude, latitude) pair to its enclosing
// boundary.
type RegionLookup interface {
	Lookup(lng, lat float64) (model.RegionBoundary, bool)
}

// PickResolver turns screen points into geographic picks.
type PickResolver struct {
	regions RegionLookup
}

// NewPickResolver constructs a resolver. regions may be nil, in which case
// picks never carry a region.
func NewPickResolver(regions RegionLookup) *PickResolver {
	return &PickResolver{regions: regions}
}

// Resolve casts a ray from cam through client point (x, y), intersects the
// globe rotated by o, and maps the hit back to a coordinate and region.
// ok is false when the camera is not ready or the ray misses the globe.
func (r *PickResolver) Resolve(cam Camera, o model.Orientation, x, y float64) (model.PickResult, bool) {
	local, ok := r.Hit(cam, o, x, y)
	if !ok {
		return model.PickResult{}, false
	}
	return r.ResolveLocal(local), true
}

// Hit returns the globe surface point under client point (x, y) in the
// globe's unrotated frame, without resolving coordinates or regions.
func (r *PickResolver) Hit(cam Camera, o model.Orientation, x, y float64) (r3.Vector, bool) {
	origin, dir, ok := cam.Ray(x, y)
	if !ok {
		return r3.Vector{}, false
	}
	hit, ok := IntersectSphere(origin, dir, GlobeRadius)
	if !ok {
		return r3.Vector{}, false
	}
	return InverseRotateVector(QuaternionFromOrientation(o), hit), true
}

// ResolveLocal maps a point in the globe's unrotated frame to a pick.
// The region lookup uses the rounded coordinates that are reported.
func (r *PickResolver) ResolveLocal(local r3.Vector) model.PickResult {
	lat, lng := VectorToLatLng(local.Normalize())
	res := model.PickResult{
		Coordinates: model.Coordinates{Lat: RoundCoord(lat), Lng: RoundCoord(lng)},
		Local:       local,
	}
	if r.regions == nil {
		return res
	}
	if b, ok := r.regions.Lookup(res.Coordinates.Lng, res.Coordinates.Lat); ok {
		res.Region = b.Name
		res.RegionID = b.ID
		res.HasRegion = true
	}
	return res
}

// HoverThrottle admits at most one hover resolution per interval.
type HoverThrottle struct {
	clock    clockwork.Clock
	interval time.Duration
	last     time.Time
	primed   bool
}

// NewHoverThrottle constructs a throttle on clock. A nil clock uses real
// time.
func NewHoverThrottle(clock clockwork.Clock, interval time.Duration) *HoverThrottle {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &HoverThrottle{clock: clock, interval: interval}
}

// Allow reports whether a resolution may run now and, if so, starts a new
// interval.
func (t *HoverThrottle) Allow() bool {
	now := t.clock.Now()
	if t.primed && now.Sub(t.last) <= t.interval {
		return false
	}
	t.last = now
	t.primed = true
	return true
}
