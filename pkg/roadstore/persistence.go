package roadstore

import (
	"encoding/gob"
	"fmt"
	"os"

	"github.com/kass/go-speedlimit/pkg/models"
)

// IndexData represents the serializable form of the road index
type IndexData struct {
	Features []*models.RoadFeature
	Count    int64
}

// SaveToFile saves the index to a binary file using gob encoding
func (g *RoadIndex) SaveToFile(filename string) error {
	// rtreego has no iterator, so extract everything through a world-sized
	// query before encoding
	features, err := g.All()
	if err != nil {
		return fmt.Errorf("failed to extract features: %w", err)
	}

	data := IndexData{
		Features: features,
		Count:    g.itemCount.Load(),
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	encoder := gob.NewEncoder(file)
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode index: %w", err)
	}

	return nil
}

// LoadFromFile loads the index from a binary file
func (g *RoadIndex) LoadFromFile(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var data IndexData
	decoder := gob.NewDecoder(file)
	if err := decoder.Decode(&data); err != nil {
		return fmt.Errorf("failed to decode index: %w", err)
	}

	g.Clear()
	if err := g.IndexFeatures(data.Features); err != nil {
		return fmt.Errorf("failed to index features: %w", err)
	}

	return nil
}
