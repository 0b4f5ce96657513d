package core

import (
	"math"

	"github.com/golang/geo/r3"
)

// DefaultFOV is the vertical field of view of the globe camera in degrees.
const DefaultFOV = 45.0

// Viewport is the client-space rectangle the scene is drawn into.
type Viewport struct {
	Left   float64
	Top    float64
	Width  float64
	Height float64
}

// Ready reports whether the viewport has a drawable area. Picks against an
// unsized viewport resolve to nothing.
func (v Viewport) Ready() bool {
	return v.Width > 0 && v.Height > 0
}

// Camera is a perspective camera on the +Z axis looking at the globe centre.
type Camera struct {
	FOV      float64 // vertical, degrees
	Distance float64
	Viewport Viewport
}

// Position returns the camera position in world space.
func (c Camera) Position() r3.Vector {
	return r3.Vector{Z: c.Distance}
}

func (c Camera) frustum() (tanHalf, aspect float64) {
	fov := c.FOV
	if fov <= 0 {
		fov = DefaultFOV
	}
	return math.Tan(fov * degToRad / 2), c.Viewport.Width / c.Viewport.Height
}

// Ray returns the world-space ray through client point (x, y).
func (c Camera) Ray(x, y float64) (origin, dir r3.Vector, ok bool) {
	if !c.Viewport.Ready() || c.Distance <= 0 {
		return r3.Vector{}, r3.Vector{}, false
	}
	ndcX := ((x-c.Viewport.Left)/c.Viewport.Width)*2 - 1
	ndcY := -((y-c.Viewport.Top)/c.Viewport.Height)*2 + 1

	tanHalf, aspect := c.frustum()
	dir = r3.Vector{X: ndcX * tanHalf * aspect, Y: ndcY * tanHalf, Z: -1}.Normalize()
	return c.Position(), dir, true
}

// Project maps a world-space point to client coordinates. ok is false for
// points at or behind the camera plane.
func (c Camera) Project(p r3.Vector) (x, y float64, ok bool) {
	if !c.Viewport.Ready() || c.Distance <= 0 {
		return 0, 0, false
	}
	rel := p.Sub(c.Position())
	if rel.Z >= 0 {
		return 0, 0, false
	}
	tanHalf, aspect := c.frustum()
	ndcX := (rel.X / -rel.Z) / (tanHalf * aspect)
	ndcY := (rel.Y / -rel.Z) / tanHalf

	x = c.Viewport.Left + (ndcX+1)/2*c.Viewport.Width
	y = c.Viewport.Top + (1-ndcY)/2*c.Viewport.Height
	return x, y, true
}
