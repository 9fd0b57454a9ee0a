package models

import "github.com/paulmach/orb"

// Location represents a geographic location with latitude and longitude (WGS84)
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// BoundingBox represents a rectangular area defined by two corners
type BoundingBox struct {
	BottomLeft Location
	TopRight   Location
}

// Contains reports whether the location lies within the box (inclusive)
func (b BoundingBox) Contains(loc Location) bool {
	return loc.Lat >= b.BottomLeft.Lat && loc.Lat <= b.TopRight.Lat &&
		loc.Lon >= b.BottomLeft.Lon && loc.Lon <= b.TopRight.Lon
}

// RoadFeature is a single road segment: its polyline geometry plus the two
// attributes the resolver cares about. Class is the open highway-class
// enumeration (motorway, primary, residential, ...); MaxSpeed is the raw
// speed-limit tag as stored, empty when absent.
//
// Features are read-only once indexed. Stores hand out shared pointers, so
// callers must not mutate them.
type RoadFeature struct {
	ID       int64          `json:"id"`
	Class    string         `json:"class"`
	MaxSpeed string         `json:"maxspeed,omitempty"`
	Geometry orb.LineString `json:"geometry"`
}

// Tagged reports whether the feature carries a non-empty raw speed tag
func (f *RoadFeature) Tagged() bool {
	return f != nil && f.MaxSpeed != ""
}

// SearchResult is the outcome of one successful nearest-road resolution.
// SpeedKMH is nil when neither the raw tag nor the class fallback produced
// a numeric value. DistanceDeg is in planar degrees, not meters.
type SearchResult struct {
	Class       string   `json:"class"`
	MaxSpeedRaw string   `json:"maxspeed_raw,omitempty"`
	SpeedKMH    *float64 `json:"maxspeed_kmh,omitempty"`
	DistanceDeg float64  `json:"distance_deg"`
}
