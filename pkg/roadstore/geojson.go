package roadstore

import (
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/kass/go-speedlimit/pkg/models"
)

// ReadGeoJSON reads road features from a GeoJSON FeatureCollection file.
// Each feature needs a LineString or MultiLineString geometry; road class
// and speed limit are taken from the "highway" and "maxspeed" properties.
// MultiLineString parts become separate features sharing the same
// attributes. Features without a usable geometry are skipped.
func ReadGeoJSON(filename string) ([]*models.RoadFeature, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse GeoJSON: %w", err)
	}

	var features []*models.RoadFeature
	nextID := int64(1)
	for _, f := range fc.Features {
		class := f.Properties.MustString("highway", "")
		maxspeed := f.Properties.MustString("maxspeed", "")

		var lines []orb.LineString
		switch geom := f.Geometry.(type) {
		case orb.LineString:
			lines = []orb.LineString{geom}
		case orb.MultiLineString:
			lines = geom
		default:
			continue
		}

		for _, line := range lines {
			if len(line) < 2 {
				continue
			}
			features = append(features, &models.RoadFeature{
				ID:       nextID,
				Class:    class,
				MaxSpeed: maxspeed,
				Geometry: line,
			})
			nextID++
		}
	}

	if len(features) == 0 {
		return nil, fmt.Errorf("no road features found in %s", filename)
	}
	return features, nil
}

// LoadGeoJSON reads a GeoJSON roads file and indexes its features
func (g *RoadIndex) LoadGeoJSON(filename string) error {
	features, err := ReadGeoJSON(filename)
	if err != nil {
		return err
	}
	return g.IndexFeatures(features)
}
