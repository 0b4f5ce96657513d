package kb

import (
	"github.com/golang/geo/r3"
	"github.com/paulmach/orb"

	"github.com/signalsfoundry/holo-globe/core"
	"github.com/signalsfoundry/holo-globe/model"
)

// Segments returns the border of b as line-segment vertex pairs on a sphere
// of the given radius, covering every ring including holes. Renderers draw
// the result slightly above the globe surface.
func Segments(b model.RegionBoundary, radius float64) []r3.Vector {
	var out []r3.Vector
	for _, poly := range b.Polygons {
		for _, ring := range poly {
			out = appendRing(out, ring, radius)
		}
	}
	return out
}

// BorderSegments returns the segments of every boundary in the index.
func (ix *RegionIndex) BorderSegments(radius float64) []r3.Vector {
	var out []r3.Vector
	for _, b := range ix.Boundaries() {
		out = append(out, Segments(b, radius)...)
	}
	return out
}

func appendRing(out []r3.Vector, ring orb.Ring, radius float64) []r3.Vector {
	for i := 0; i+1 < len(ring); i++ {
		a, b := ring[i], ring[i+1]
		out = append(out,
			core.LatLngToVector(a[1], a[0], radius),
			core.LatLngToVector(b[1], b[0], radius),
		)
	}
	return out
}
