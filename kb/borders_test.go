package kb

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalsfoundry/holo-globe/core"
	"github.com/signalsfoundry/holo-globe/model"
)

func TestSegmentsCoverEveryRing(t *testing.T) {
	b := model.RegionBoundary{
		Polygons: []orb.Polygon{{
			{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}},
			{{4, 4}, {6, 4}, {6, 6}, {4, 4}},
		}},
	}

	segs := Segments(b, 1.001)
	require.Len(t, segs, 2*(4+3))

	for _, v := range segs {
		assert.InDelta(t, 1.001, v.Norm(), 1e-9)
	}
	assert.Equal(t, core.LatLngToVector(0, 0, 1.001), segs[0])
	assert.Equal(t, core.LatLngToVector(0, 10, 1.001), segs[1])
}

func TestBorderSegmentsOverIndex(t *testing.T) {
	ix := NewRegionIndex(
		square("A", "Alpha", 0, 0, 1, 1),
		square("B", "Beta", 2, 2, 3, 3),
	)
	// Open 4-vertex rings give three segments each.
	assert.Len(t, ix.BorderSegments(1), 2*2*3)
	assert.Empty(t, NewRegionIndex().BorderSegments(1))
}
