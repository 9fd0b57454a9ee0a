package roadstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const roadsGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "properties": {"highway": "residential", "maxspeed": "50"},
      "geometry": {"type": "LineString", "coordinates": [[12.56, 55.676], [12.58, 55.676]]}
    },
    {
      "type": "Feature",
      "properties": {"highway": "motorway"},
      "geometry": {
        "type": "MultiLineString",
        "coordinates": [
          [[12.50, 55.70], [12.55, 55.70]],
          [[12.55, 55.70], [12.60, 55.70]]
        ]
      }
    },
    {
      "type": "Feature",
      "properties": {"name": "a bus stop"},
      "geometry": {"type": "Point", "coordinates": [12.57, 55.675]}
    }
  ]
}`

func writeRoadsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roads.geojson")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReadGeoJSON(t *testing.T) {
	features, err := ReadGeoJSON(writeRoadsFile(t, roadsGeoJSON))
	require.NoError(t, err)

	// One LineString plus two MultiLineString parts; the Point is skipped
	require.Len(t, features, 3)

	assert.Equal(t, "residential", features[0].Class)
	assert.Equal(t, "50", features[0].MaxSpeed)
	assert.Len(t, features[0].Geometry, 2)

	assert.Equal(t, "motorway", features[1].Class)
	assert.Equal(t, "motorway", features[2].Class)
	assert.Empty(t, features[1].MaxSpeed)

	// IDs are assigned sequentially
	assert.Equal(t, int64(1), features[0].ID)
	assert.Equal(t, int64(2), features[1].ID)
	assert.Equal(t, int64(3), features[2].ID)
}

func TestReadGeoJSONNoRoads(t *testing.T) {
	_, err := ReadGeoJSON(writeRoadsFile(t, `{"type": "FeatureCollection", "features": []}`))
	assert.Error(t, err)
}

func TestReadGeoJSONMalformed(t *testing.T) {
	_, err := ReadGeoJSON(writeRoadsFile(t, `{"not": "geojson`))
	assert.Error(t, err)
}

func TestLoadGeoJSON(t *testing.T) {
	index := NewRoadIndex()
	require.NoError(t, index.LoadGeoJSON(writeRoadsFile(t, roadsGeoJSON)))
	assert.Equal(t, int64(3), index.Count())
}
