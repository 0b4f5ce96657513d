package core

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalsfoundry/holo-globe/model"
)

func lngDiff(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 360)
	return math.Min(d, 360-d)
}

func TestLatLngRoundTrip(t *testing.T) {
	for _, radius := range []float64{0.25, 1, 2.5, 6371} {
		for lat := -89.5; lat <= 89.5; lat += 4.75 {
			for lng := -180.0; lng <= 180; lng += 7.5 {
				v := LatLngToVector(lat, lng, radius)
				gotLat, gotLng := VectorToLatLng(v.Normalize())

				if math.Abs(gotLat-lat) > 0.01 || lngDiff(gotLng, lng) > 0.01 {
					t.Fatalf("r=%v (%v,%v) round-tripped to (%v,%v)", radius, lat, lng, gotLat, gotLng)
				}
				if gotLng < -180 || gotLng > 180 {
					t.Fatalf("longitude %v outside [-180,180]", gotLng)
				}
			}
		}
	}
}

func TestLatLngRoundTripPolesKeepLatitude(t *testing.T) {
	for _, lat := range []float64{-90, 90} {
		gotLat, _ := VectorToLatLng(LatLngToVector(lat, 42, 1))
		assert.InDelta(t, lat, gotLat, 0.01)
	}
}

func TestLatLngToVectorSeamOffset(t *testing.T) {
	// The +90° offset puts (0,0) on +Z and (0,90) on +X.
	v := LatLngToVector(0, 0, 1)
	assert.InDelta(t, 0, v.X, 1e-12)
	assert.InDelta(t, 0, v.Y, 1e-12)
	assert.InDelta(t, 1, v.Z, 1e-12)

	v = LatLngToVector(0, 90, 1)
	assert.InDelta(t, 1, v.X, 1e-12)
	assert.InDelta(t, 0, v.Z, 1e-12)

	v = LatLngToVector(90, 0, 2)
	assert.InDelta(t, 2, v.Y, 1e-12)
}

func TestVectorToLatLngPropagatesNaN(t *testing.T) {
	lat, lng := VectorToLatLng(r3.Vector{X: math.NaN(), Y: math.NaN(), Z: 0})
	assert.True(t, math.IsNaN(lat))
	assert.True(t, math.IsNaN(lng))
}

func TestRoundCoord(t *testing.T) {
	assert.Equal(t, 35.0, RoundCoord(34.999999))
	assert.Equal(t, 139.01, RoundCoord(139.0149))
	assert.Equal(t, -12.35, RoundCoord(-12.346))
}

func TestBlendOrientationTakesShorterArc(t *testing.T) {
	cases := []struct {
		name     string
		from, to model.Orientation
		want     model.Orientation
	}{
		{"in range", model.Orientation{}, model.Orientation{Pitch: 0.4, Yaw: 1}, model.Orientation{Pitch: 0.2, Yaw: 0.5}},
		{"across the antimeridian", model.Orientation{Yaw: 3}, model.Orientation{Yaw: -3}, model.Orientation{Yaw: math.Pi}},
		{"unwrapped start", model.Orientation{Yaw: 7}, model.Orientation{Yaw: 0.5}, model.Orientation{Yaw: 7 + (0.5+2*math.Pi-7)/2}},
		{"pitch across zero", model.Orientation{Pitch: 0.6}, model.Orientation{Pitch: -0.6, Yaw: 3.1}, model.Orientation{Pitch: 0, Yaw: 1.55}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := BlendOrientation(c.from, c.to, 0.5)
			if diff := cmp.Diff(c.want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
				t.Errorf("blend mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBlendOrientationKeepsPitchBetweenEnds(t *testing.T) {
	from := model.Orientation{Pitch: -0.6, Yaw: 0}
	to := FocusOrientation(35, 139, 0.6)
	for i := 1; i <= 10; i++ {
		o := BlendOrientation(from, to, float64(i)/10)
		assert.GreaterOrEqual(t, o.Pitch, -0.6)
		assert.LessOrEqual(t, o.Pitch, 0.6)
	}
	assert.InDelta(t, to.Yaw, BlendOrientation(from, to, 1).Yaw, 1e-12)
}

func TestInverseRotateUndoesRotate(t *testing.T) {
	q := QuaternionFromOrientation(model.Orientation{Pitch: 0.4, Yaw: -1.1, Roll: 0.05})
	v := r3.Vector{X: 0.2, Y: -0.7, Z: 0.3}

	back := InverseRotateVector(q, RotateVector(q, v))
	assert.InDelta(t, 0, back.Sub(v).Norm(), 1e-12)
}

func TestRotateVectorMatchesEulerOrder(t *testing.T) {
	// A pure yaw of +90° takes +Z to +X.
	q := QuaternionFromOrientation(model.Orientation{Yaw: math.Pi / 2})
	got := RotateVector(q, r3.Vector{Z: 1})
	assert.InDelta(t, 1, got.X, 1e-12)
	assert.InDelta(t, 0, got.Z, 1e-12)

	// A pure pitch of +90° takes +Y to +Z.
	q = QuaternionFromOrientation(model.Orientation{Pitch: math.Pi / 2})
	got = RotateVector(q, r3.Vector{Y: 1})
	assert.InDelta(t, 1, got.Z, 1e-12)
}

func TestAngularDistance(t *testing.T) {
	a := QuaternionFromOrientation(model.Orientation{})
	b := QuaternionFromOrientation(model.Orientation{Yaw: 1})
	assert.InDelta(t, 1, AngularDistance(a, b).Radians(), 1e-12)

	// A full turn of yaw is the same rotation.
	c := QuaternionFromOrientation(model.Orientation{Yaw: 1 + 2*math.Pi})
	assert.InDelta(t, 0, AngularDistance(b, c).Radians(), 1e-6)
}

func TestIntersectSphere(t *testing.T) {
	origin := r3.Vector{Z: 2.5}

	hit, ok := IntersectSphere(origin, r3.Vector{Z: -1}, 1)
	require.True(t, ok)
	assert.InDelta(t, 1, hit.Z, 1e-12)

	_, ok = IntersectSphere(origin, r3.Vector{X: 1}, 1)
	assert.False(t, ok, "ray parallel to the surface plane should miss")

	_, ok = IntersectSphere(origin, r3.Vector{Z: 1}, 1)
	assert.False(t, ok, "ray pointing away should miss")

	hit, ok = IntersectSphere(r3.Vector{}, r3.Vector{Y: 2}, 1)
	require.True(t, ok, "origin inside the sphere exits through the surface")
	assert.InDelta(t, 1, hit.Y, 1e-12)
}

func TestClampPitch(t *testing.T) {
	assert.Equal(t, 0.6, ClampPitch(3, 0.6))
	assert.Equal(t, -0.6, ClampPitch(-0.61, 0.6))
	assert.Equal(t, 0.2, ClampPitch(0.2, 0.6))
}
