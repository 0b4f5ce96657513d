package model

import "github.com/paulmach/orb"

// RegionBoundary is a named administrative area made of one or more
// polygons. Vertices are (longitude, latitude) pairs; the first ring of each
// polygon is its outer ring and any further rings are holes.
type RegionBoundary struct {
	ID       string
	Name     string
	Polygons []orb.Polygon
}

// Rings returns the number of rings across all polygons.
func (r RegionBoundary) Rings() int {
	n := 0
	for _, p := range r.Polygons {
		n += len(p)
	}
	return n
}
