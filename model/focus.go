package model

import "time"

// FocusTarget is a pending programmatic rotation toward a coordinate. It is
// transient: cleared on convergence, replaced by a newer request, or dropped
// as soon as manual orbit input begins.
type FocusTarget struct {
	ID          string
	Coordinates Coordinates
	Orientation Orientation
	Epsilon     float64
	RequestedAt time.Time
}
