package core

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/golang/geo/s1"
	"gonum.org/v1/gonum/num/quat"

	"github.com/signalsfoundry/holo-globe/model"
)

// GlobeRadius is the radius of the rendered globe in scene units. Picks
// intersect this sphere; the mapper accepts any radius.
const GlobeRadius = 1.0

const (
	degToRad = math.Pi / 180
	radToDeg = 180 / math.Pi
)

// LatLngToVector maps a geographic coordinate onto a sphere of the given
// radius in the globe's local frame.
//
// The +90° longitude offset aligns the prime meridian with the texture seam
// of the rendered sphere. Borders, picks and focus targets all derive from
// this mapping, so it must not change.
func LatLngToVector(lat, lng, radius float64) r3.Vector {
	phi := (90 - lat) * degToRad
	theta := (lng + 90) * degToRad

	return r3.Vector{
		X: -(radius * math.Sin(phi) * math.Cos(theta)),
		Y: radius * math.Cos(phi),
		Z: radius * math.Sin(phi) * math.Sin(theta),
	}
}

// VectorToLatLng is the exact inverse of LatLngToVector for a normalized
// local-frame point. Longitude is normalized into [-180, 180]. NaN input
// yields NaN output.
func VectorToLatLng(v r3.Vector) (lat, lng float64) {
	lat = math.Asin(v.Y) * radToDeg
	lng = math.Atan2(v.Z, -v.X)*radToDeg - 90

	if lng < -180 {
		lng += 360
	}
	if lng > 180 {
		lng -= 360
	}
	return lat, lng
}

// RoundCoord rounds a degree value to two decimals, the precision of every
// reported pick.
func RoundCoord(v float64) float64 {
	return math.Round(v*100) / 100
}

// ClampPitch bounds a pitch angle to [-limit, limit].
func ClampPitch(pitch, limit float64) float64 {
	return math.Max(-limit, math.Min(limit, pitch))
}

// QuaternionFromOrientation converts XYZ-order Euler angles into a unit
// quaternion.
func QuaternionFromOrientation(o model.Orientation) quat.Number {
	cx, sx := math.Cos(o.Pitch/2), math.Sin(o.Pitch/2)
	cy, sy := math.Cos(o.Yaw/2), math.Sin(o.Yaw/2)
	cz, sz := math.Cos(o.Roll/2), math.Sin(o.Roll/2)

	return quat.Number{
		Real: cx*cy*cz - sx*sy*sz,
		Imag: sx*cy*cz + cx*sy*sz,
		Jmag: cx*sy*cz - sx*cy*sz,
		Kmag: cx*cy*sz + sx*sy*cz,
	}
}

// RotateVector applies the rotation q to v (local frame to world frame).
func RotateVector(q quat.Number, v r3.Vector) r3.Vector {
	p := quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
	r := quat.Mul(quat.Mul(q, p), quat.Conj(q))
	return r3.Vector{X: r.Imag, Y: r.Jmag, Z: r.Kmag}
}

// InverseRotateVector undoes the rotation q (world frame to local frame).
func InverseRotateVector(q quat.Number, v r3.Vector) r3.Vector {
	return RotateVector(quat.Conj(q), v)
}

// AngularDistance returns the rotation angle between two unit quaternions.
func AngularDistance(a, b quat.Number) s1.Angle {
	d := math.Abs(quatDot(a, b))
	if d > 1 {
		d = 1
	}
	return s1.Angle(2 * math.Acos(d))
}

// BlendOrientation turns from toward to by fraction t about each Euler axis
// on its own, along the shorter arc of that axis. Each step is a slerp of a
// single-axis rotation, so the blended pitch stays between the two input
// pitches and never leaves a bound both of them satisfy. Yaw is not wrapped.
func BlendOrientation(from, to model.Orientation, t float64) model.Orientation {
	return model.Orientation{
		Pitch: from.Pitch + t*shortArc(from.Pitch, to.Pitch),
		Yaw:   from.Yaw + t*shortArc(from.Yaw, to.Yaw),
		Roll:  from.Roll + t*shortArc(from.Roll, to.Roll),
	}
}

// shortArc is the signed turn in (-π, π] from a to b.
func shortArc(a, b float64) float64 {
	return s1.Angle(b - a).Normalized().Radians()
}

// IntersectSphere returns the nearest point where the ray origin + t·dir
// (t >= 0) meets a sphere of the given radius centred at the origin, solving
// |o + t·d|² = r² for the smallest non-negative t.
func IntersectSphere(origin, dir r3.Vector, radius float64) (r3.Vector, bool) {
	a := dir.Norm2()
	if a == 0 {
		return r3.Vector{}, false
	}
	b := origin.Dot(dir)
	c := origin.Norm2() - radius*radius

	disc := b*b - a*c
	if disc < 0 {
		return r3.Vector{}, false
	}
	sq := math.Sqrt(disc)

	t := (-b - sq) / a
	if t < 0 {
		// Origin inside the sphere: take the exit point.
		t = (-b + sq) / a
	}
	if t < 0 {
		return r3.Vector{}, false
	}
	return origin.Add(dir.Mul(t)), true
}

func quatDot(a, b quat.Number) float64 {
	return a.Real*b.Real + a.Imag*b.Imag + a.Jmag*b.Jmag + a.Kmag*b.Kmag
}
