// Package resolver finds the most relevant road segment for a geographic
// point using an expanding-radius search with road-class priority tiers,
// and resolves its speed limit.
package resolver

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/kass/go-speedlimit/pkg/models"
	"github.com/kass/go-speedlimit/pkg/policy"
	"github.com/kass/go-speedlimit/pkg/roadstore"
	"github.com/kass/go-speedlimit/pkg/speed"
)

const (
	// degPerMeterLat approximates one meter in latitude degrees
	// (1 deg lat ~= 111320 m)
	degPerMeterLat = 1.0 / 111320.0

	// minCosLat floors cos(lat) so longitude scaling stays finite near
	// the poles
	minCosLat = 0.0001
)

// RoadStore is the store surface the resolver consumes. The filter is a
// pre-filter hint only; the resolver applies its own restriction logic on
// the returned set, so a store that ignores the filter is still correct.
type RoadStore interface {
	QueryBox(box models.BoundingBox, filter roadstore.Filter) ([]*models.RoadFeature, error)
}

// Options are the per-resolver search parameters
type Options struct {
	// InitialRadiusM is the first search radius in meters
	InitialRadiusM float64
	// MaxRadiusM caps the expanding search. When it is smaller than
	// InitialRadiusM it is raised to match, so at least one pass runs.
	MaxRadiusM float64
	// DrivableOnly restricts the second selection pass to drivable
	// road classes
	DrivableOnly bool
	// PreferTagged prefers features carrying a speed tag over closer
	// untagged ones within the same pass
	PreferTagged bool
	// PreferTiers enables the road-class priority pass: higher-class
	// roads win over closer lower-class ones
	PreferTiers bool
}

// DefaultOptions returns the standard search parameters
func DefaultOptions() Options {
	return Options{
		InitialRadiusM: 500,
		MaxRadiusM:     5000,
		DrivableOnly:   true,
		PreferTagged:   true,
		PreferTiers:    true,
	}
}

// Resolver resolves query points against a road store using a region policy.
// It holds no mutable state; concurrent Resolve calls are safe as long as
// the store supports concurrent reads.
type Resolver struct {
	store  RoadStore
	policy *policy.Policy
	opts   Options
}

// New creates a resolver over the given store and region policy
func New(store RoadStore, pol *policy.Policy, opts Options) *Resolver {
	return &Resolver{store: store, policy: pol, opts: opts}
}

// candidate pairs a feature with its distance to the query point for one
// resolution pass. Distances are planar degrees, not meters.
type candidate struct {
	dist float64
	feat *models.RoadFeature
}

// Resolve finds the best-matching road for the query point. A nil result
// with a nil error means no feature exists within the maximum radius; a
// non-nil error means the store could not be queried.
func (r *Resolver) Resolve(loc models.Location) (*models.SearchResult, error) {
	radius := r.opts.InitialRadiusM
	maxRadius := r.opts.MaxRadiusM
	if radius > maxRadius {
		maxRadius = radius
	}

	point := orb.Point{loc.Lon, loc.Lat}

	var best *candidate
	for best == nil && radius <= maxRadius {
		box := searchBox(loc, radius)
		features, err := r.store.QueryBox(box, roadstore.Filter{})
		if err != nil {
			return nil, fmt.Errorf("road store query failed: %w", err)
		}

		candidates := make([]candidate, 0, len(features))
		for _, feat := range features {
			if feat == nil || len(feat.Geometry) == 0 {
				continue
			}
			candidates = append(candidates, candidate{
				dist: planar.DistanceFrom(feat.Geometry, point),
				feat: feat,
			})
		}

		best = r.selectCandidate(candidates)
		if best == nil {
			radius *= 2
		}
	}

	if best == nil {
		return nil, nil
	}

	raw, kmh := speed.Normalize(best.feat.MaxSpeed)
	if kmh == nil {
		if fallback, ok := r.policy.FallbackSpeed(best.feat.Class); ok {
			kmh = &fallback
		}
	}

	return &models.SearchResult{
		Class:       best.feat.Class,
		MaxSpeedRaw: raw,
		SpeedKMH:    kmh,
		DistanceDeg: best.dist,
	}, nil
}

// selectCandidate ranks one radius pass worth of candidates. Priority tiers
// outrank raw distance: the first tier with any match wins and lower tiers
// are never consulted, even when their features are closer.
func (r *Resolver) selectCandidate(candidates []candidate) *candidate {
	if len(candidates) == 0 {
		return nil
	}

	if r.opts.PreferTiers {
		for _, tier := range r.policy.Tiers() {
			if c := bestInClasses(candidates, tier, r.opts.PreferTagged); c != nil {
				return c
			}
		}
	}

	if r.opts.DrivableOnly {
		if c := bestInClasses(candidates, r.policy.Drivable(), r.opts.PreferTagged); c != nil {
			return c
		}
	}

	return bestInClasses(candidates, nil, false)
}

// bestInClasses selects the minimum-distance candidate among the given
// classes (nil = any class). With preferTagged, candidates carrying a speed
// tag are tried first; the untagged set is only consulted when no tagged
// candidate exists.
func bestInClasses(candidates []candidate, classes map[string]bool, preferTagged bool) *candidate {
	if preferTagged {
		if c := minCandidate(candidates, classes, true); c != nil {
			return c
		}
	}
	return minCandidate(candidates, classes, false)
}

func minCandidate(candidates []candidate, classes map[string]bool, taggedOnly bool) *candidate {
	var best *candidate
	for i := range candidates {
		c := &candidates[i]
		if classes != nil && !classes[c.feat.Class] {
			continue
		}
		if taggedOnly && !c.feat.Tagged() {
			continue
		}
		// Exact-distance ties break on the lower feature ID so results
		// are reproducible across store implementations
		if best == nil || c.dist < best.dist ||
			(c.dist == best.dist && c.feat.ID < best.feat.ID) {
			best = c
		}
	}
	return best
}

// searchBox sizes a bounding box of radiusM meters around the query point,
// scaling longitude by the latitude's degree length
func searchBox(loc models.Location, radiusM float64) models.BoundingBox {
	cosLat := math.Cos(loc.Lat * math.Pi / 180)
	if cosLat < minCosLat {
		cosLat = minCosLat
	}
	dLat := degPerMeterLat * radiusM
	dLon := degPerMeterLat / cosLat * radiusM

	return models.BoundingBox{
		BottomLeft: models.Location{Lat: loc.Lat - dLat, Lon: loc.Lon - dLon},
		TopRight:   models.Location{Lat: loc.Lat + dLat, Lon: loc.Lon + dLon},
	}
}
