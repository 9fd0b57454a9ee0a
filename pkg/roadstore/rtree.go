// Package roadstore provides an R-Tree backed store of road features with
// bounding-box queries and optional attribute pre-filtering.
package roadstore

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/dhconnelly/rtreego"
	"github.com/kass/go-speedlimit/pkg/models"
)

const (
	minChildren = 25
	maxChildren = 50
	dimensions  = 2

	// minExtent pads degenerate rects (straight N-S or E-W segments) so
	// rtreego accepts them
	minExtent = 1e-9
)

// Filter is an optional attribute pre-filter for QueryBox. The zero value
// matches every feature. Stores may apply it only approximately; callers
// re-apply their own restriction logic on the returned set.
type Filter struct {
	Classes       map[string]bool
	RequireTagged bool
}

// Match reports whether the feature passes the filter
func (f Filter) Match(feat *models.RoadFeature) bool {
	if feat == nil {
		return false
	}
	if f.Classes != nil && !f.Classes[feat.Class] {
		return false
	}
	if f.RequireTagged && !feat.Tagged() {
		return false
	}
	return true
}

// spatialFeature wraps a RoadFeature for R-Tree indexing
type spatialFeature struct {
	*models.RoadFeature
	rect *rtreego.Rect
}

func (sf *spatialFeature) Bounds() *rtreego.Rect {
	return sf.rect
}

// RoadIndex is a thread-safe R-Tree based store of road features
type RoadIndex struct {
	tree      *rtreego.Rtree
	mu        sync.RWMutex
	itemCount atomic.Int64
}

// NewRoadIndex creates an empty road feature index
func NewRoadIndex() *RoadIndex {
	return &RoadIndex{
		tree: rtreego.NewTree(dimensions, minChildren, maxChildren),
	}
}

// featureRect builds the (lat, lon) ordered bounding rect of a feature's
// geometry
func featureRect(feat *models.RoadFeature) (*rtreego.Rect, error) {
	if len(feat.Geometry) == 0 {
		return nil, fmt.Errorf("feature %d has empty geometry", feat.ID)
	}
	bound := feat.Geometry.Bound()
	lengths := []float64{
		bound.Max.Lat() - bound.Min.Lat(),
		bound.Max.Lon() - bound.Min.Lon(),
	}
	for i := range lengths {
		if lengths[i] < minExtent {
			lengths[i] = minExtent
		}
	}
	return rtreego.NewRect(rtreego.Point{bound.Min.Lat(), bound.Min.Lon()}, lengths)
}

// IndexFeatures indexes a batch of features using parallel rect construction
func (g *RoadIndex) IndexFeatures(features []*models.RoadFeature) error {
	if len(features) == 0 {
		return nil
	}

	numCPU := runtime.NumCPU()
	items := make([]rtreego.Spatial, len(features))
	errs := make([]error, numCPU)
	var wg sync.WaitGroup

	batchSize := len(features) / numCPU
	if batchSize < 1 {
		batchSize = 1
		numCPU = len(features)
	}

	for i := 0; i < numCPU && i*batchSize < len(features); i++ {
		wg.Add(1)
		start := i * batchSize
		end := start + batchSize
		if i == numCPU-1 || end > len(features) {
			end = len(features)
		}

		go func(worker, start, end int) {
			defer wg.Done()
			for j := start; j < end; j++ {
				feat := features[j]
				if feat == nil {
					continue
				}
				rect, err := featureRect(feat)
				if err != nil {
					errs[worker] = err
					continue
				}
				items[j] = &spatialFeature{feat, rect}
			}
		}(i, start, end)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}

	// Tree insertion must be synchronized
	g.mu.Lock()
	defer g.mu.Unlock()

	count := int64(0)
	for _, item := range items {
		if item != nil {
			g.tree.Insert(item)
			count++
		}
	}
	g.itemCount.Add(count)
	return nil
}

// QueryBox returns all features whose geometry bounds intersect the given
// bounding box, post-filtered by filter. Result order is unspecified. The
// query over-returns relative to exact geometry (bounds, not the polyline
// itself, are tested); callers rank by true distance.
func (g *RoadIndex) QueryBox(box models.BoundingBox, filter Filter) ([]*models.RoadFeature, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	bottomLeft := rtreego.Point{box.BottomLeft.Lat, box.BottomLeft.Lon}
	rectSize := []float64{
		box.TopRight.Lat - box.BottomLeft.Lat,
		box.TopRight.Lon - box.BottomLeft.Lon,
	}

	bounds, err := rtreego.NewRect(bottomLeft, rectSize)
	if err != nil {
		return nil, fmt.Errorf("invalid bounding box: %w", err)
	}

	results := g.tree.SearchIntersect(bounds)

	features := make([]*models.RoadFeature, 0, len(results))
	for _, result := range results {
		item, ok := result.(*spatialFeature)
		if !ok || item.RoadFeature == nil {
			continue
		}
		if filter.Match(item.RoadFeature) {
			features = append(features, item.RoadFeature)
		}
	}

	return features, nil
}

// All returns every indexed feature
func (g *RoadIndex) All() ([]*models.RoadFeature, error) {
	world := models.BoundingBox{
		BottomLeft: models.Location{Lat: -90, Lon: -180},
		TopRight:   models.Location{Lat: 90, Lon: 180},
	}
	return g.QueryBox(world, Filter{})
}

// Count returns the number of features in the index
func (g *RoadIndex) Count() int64 {
	return g.itemCount.Load()
}

// Clear removes all features from the index
func (g *RoadIndex) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.tree = rtreego.NewTree(dimensions, minChildren, maxChildren)
	g.itemCount.Store(0)
}
