package model

import "github.com/golang/geo/r3"

// Coordinates is a geographic position in degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// PickKind distinguishes hover resolutions from deliberate clicks.
type PickKind string

const (
	PickHover PickKind = "hover"
	PickClick PickKind = "click"
)

// PickResult is the outcome of resolving a screen point against the globe.
//
// Coordinates are rounded to two decimals. Local is the unrounded hit point in
// the sphere's unrotated frame, which renderers use to place the hover cursor
// or the click marker.
type PickResult struct {
	Kind        PickKind    `json:"kind"`
	Coordinates Coordinates `json:"coords"`
	Region      string      `json:"region,omitempty"`
	RegionID    string      `json:"region_id,omitempty"`
	HasRegion   bool        `json:"-"`
	Local       r3.Vector   `json:"-"`
}
