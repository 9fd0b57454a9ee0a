package roadstore

import (
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kass/go-speedlimit/pkg/models"
)

// seg builds a west-east road segment at the given latitude
func seg(id int64, class, maxspeed string, lat, lonStart, lonEnd float64) *models.RoadFeature {
	return &models.RoadFeature{
		ID:       id,
		Class:    class,
		MaxSpeed: maxspeed,
		Geometry: orb.LineString{{lonStart, lat}, {lonEnd, lat}},
	}
}

func copenhagenRoads() []*models.RoadFeature {
	return []*models.RoadFeature{
		seg(1, "motorway", "130", 55.70, 12.50, 12.60),
		seg(2, "residential", "", 55.676, 12.56, 12.58),
		seg(3, "residential", "50", 55.677, 12.56, 12.58),
		seg(4, "footway", "", 55.675, 12.56, 12.58),
	}
}

func TestIndexAndQueryBox(t *testing.T) {
	index := NewRoadIndex()
	require.NoError(t, index.IndexFeatures(copenhagenRoads()))
	assert.Equal(t, int64(4), index.Count())

	// Box around the inner city, excluding the motorway to the north
	box := models.BoundingBox{
		BottomLeft: models.Location{Lat: 55.67, Lon: 12.55},
		TopRight:   models.Location{Lat: 55.68, Lon: 12.59},
	}

	features, err := index.QueryBox(box, Filter{})
	require.NoError(t, err)
	assert.Len(t, features, 3)

	ids := make(map[int64]bool)
	for _, f := range features {
		ids[f.ID] = true
	}
	assert.False(t, ids[1], "motorway lies outside the box")
	assert.True(t, ids[2])
	assert.True(t, ids[3])
	assert.True(t, ids[4])
}

func TestQueryBoxClassFilter(t *testing.T) {
	index := NewRoadIndex()
	require.NoError(t, index.IndexFeatures(copenhagenRoads()))

	world := models.BoundingBox{
		BottomLeft: models.Location{Lat: 55.0, Lon: 12.0},
		TopRight:   models.Location{Lat: 56.0, Lon: 13.0},
	}

	features, err := index.QueryBox(world, Filter{Classes: map[string]bool{"residential": true}})
	require.NoError(t, err)
	assert.Len(t, features, 2)
	for _, f := range features {
		assert.Equal(t, "residential", f.Class)
	}
}

func TestQueryBoxTaggedFilter(t *testing.T) {
	index := NewRoadIndex()
	require.NoError(t, index.IndexFeatures(copenhagenRoads()))

	world := models.BoundingBox{
		BottomLeft: models.Location{Lat: 55.0, Lon: 12.0},
		TopRight:   models.Location{Lat: 56.0, Lon: 13.0},
	}

	features, err := index.QueryBox(world, Filter{RequireTagged: true})
	require.NoError(t, err)
	assert.Len(t, features, 2)
	for _, f := range features {
		assert.NotEmpty(t, f.MaxSpeed)
	}

	features, err = index.QueryBox(world, Filter{
		Classes:       map[string]bool{"residential": true},
		RequireTagged: true,
	})
	require.NoError(t, err)
	require.Len(t, features, 1)
	assert.Equal(t, int64(3), features[0].ID)
}

func TestQueryBoxInvalid(t *testing.T) {
	index := NewRoadIndex()
	require.NoError(t, index.IndexFeatures(copenhagenRoads()))

	// Inverted corners make a negative-sized rect
	box := models.BoundingBox{
		BottomLeft: models.Location{Lat: 56.0, Lon: 13.0},
		TopRight:   models.Location{Lat: 55.0, Lon: 12.0},
	}
	_, err := index.QueryBox(box, Filter{})
	assert.Error(t, err)
}

func TestIndexRejectsEmptyGeometry(t *testing.T) {
	index := NewRoadIndex()
	err := index.IndexFeatures([]*models.RoadFeature{
		{ID: 1, Class: "residential"},
	})
	assert.Error(t, err)
}

func TestClear(t *testing.T) {
	index := NewRoadIndex()
	require.NoError(t, index.IndexFeatures(copenhagenRoads()))
	require.Equal(t, int64(4), index.Count())

	index.Clear()
	assert.Equal(t, int64(0), index.Count())

	all, err := index.All()
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSaveAndLoad(t *testing.T) {
	index := NewRoadIndex()
	require.NoError(t, index.IndexFeatures(copenhagenRoads()))

	path := filepath.Join(t.TempDir(), "roads.gob")
	require.NoError(t, index.SaveToFile(path))

	loaded := NewRoadIndex()
	require.NoError(t, loaded.LoadFromFile(path))
	assert.Equal(t, int64(4), loaded.Count())

	features, err := loaded.All()
	require.NoError(t, err)

	byID := make(map[int64]*models.RoadFeature)
	for _, f := range features {
		byID[f.ID] = f
	}
	require.Contains(t, byID, int64(3))
	assert.Equal(t, "residential", byID[3].Class)
	assert.Equal(t, "50", byID[3].MaxSpeed)
	assert.Equal(t, orb.LineString{{12.56, 55.677}, {12.58, 55.677}}, byID[3].Geometry)
}

func TestLoadFromMissingFile(t *testing.T) {
	index := NewRoadIndex()
	err := index.LoadFromFile(filepath.Join(t.TempDir(), "missing.gob"))
	assert.Error(t, err)
}
