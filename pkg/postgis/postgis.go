// Package postgis implements the road store against a PostGIS roads table.
package postgis

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/kass/go-speedlimit/pkg/models"
	"github.com/kass/go-speedlimit/pkg/roadstore"
)

// RoadsDB is a PostGIS-backed road feature store. It satisfies the same
// QueryBox contract as the in-memory R-Tree index.
type RoadsDB struct {
	db *sql.DB
}

// Open connects to PostGIS using a lib/pq connection string
func Open(connStr string) (*RoadsDB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &RoadsDB{db: db}, nil
}

// InitSchema creates the roads table and its spatial index
func (p *RoadsDB) InitSchema() error {
	queries := []string{
		`CREATE EXTENSION IF NOT EXISTS postgis;`,

		`DROP TABLE IF EXISTS roads;`,

		`CREATE TABLE roads (
			id BIGINT PRIMARY KEY,
			highway TEXT NOT NULL,
			maxspeed TEXT,
			geom GEOMETRY(LINESTRING, 4326)
		);`,

		`CREATE INDEX idx_roads_geom ON roads USING GIST(geom);`,
	}

	for _, query := range queries {
		if _, err := p.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query '%s': %w", query, err)
		}
	}

	return nil
}

// BulkInsertFeatures inserts road features in batches
func (p *RoadsDB) BulkInsertFeatures(features []*models.RoadFeature) error {
	const batchSize = 10000

	stmt, err := p.db.Prepare(`
		INSERT INTO roads (id, highway, maxspeed, geom)
		VALUES ($1, $2, NULLIF($3, ''), ST_SetSRID(ST_GeomFromGeoJSON($4), 4326))
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	tx, err := p.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	txStmt := tx.Stmt(stmt)

	for i, feat := range features {
		geomJSON, err := geojson.NewGeometry(feat.Geometry).MarshalJSON()
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to encode geometry for feature %d: %w", feat.ID, err)
		}

		if _, err := txStmt.Exec(feat.ID, feat.Class, feat.MaxSpeed, geomJSON); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert feature %d: %w", feat.ID, err)
		}

		if (i+1)%batchSize == 0 {
			if err := tx.Commit(); err != nil {
				return fmt.Errorf("failed to commit batch: %w", err)
			}

			tx, err = p.db.Begin()
			if err != nil {
				return fmt.Errorf("failed to begin new transaction: %w", err)
			}
			txStmt = tx.Stmt(stmt)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit final batch: %w", err)
	}

	return nil
}

// QueryBox performs a bounding box query with the optional attribute filter
// pushed down into SQL
func (p *RoadsDB) QueryBox(box models.BoundingBox, filter roadstore.Filter) ([]*models.RoadFeature, error) {
	query := `
		SELECT id, highway, COALESCE(maxspeed, ''), ST_AsGeoJSON(geom)
		FROM roads
		WHERE geom && ST_MakeEnvelope($1, $2, $3, $4, 4326)
	`
	args := []interface{}{
		box.BottomLeft.Lon, box.BottomLeft.Lat,
		box.TopRight.Lon, box.TopRight.Lat,
	}

	if filter.Classes != nil {
		classes := make([]string, 0, len(filter.Classes))
		for class := range filter.Classes {
			classes = append(classes, class)
		}
		args = append(args, pq.Array(classes))
		query += fmt.Sprintf(" AND highway = ANY($%d)", len(args))
	}
	if filter.RequireTagged {
		query += " AND maxspeed IS NOT NULL AND maxspeed <> ''"
	}

	rows, err := p.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var results []*models.RoadFeature
	for rows.Next() {
		var (
			id       int64
			class    string
			maxspeed string
			geomJSON []byte
		)

		if err := rows.Scan(&id, &class, &maxspeed, &geomJSON); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		geom, err := geojson.UnmarshalGeometry(geomJSON)
		if err != nil {
			return nil, fmt.Errorf("failed to decode geometry for road %d: %w", id, err)
		}
		line, ok := geom.Geometry().(orb.LineString)
		if !ok {
			continue
		}

		results = append(results, &models.RoadFeature{
			ID:       id,
			Class:    class,
			MaxSpeed: maxspeed,
			Geometry: line,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return results, nil
}

// Count returns the number of roads in the database
func (p *RoadsDB) Count() (int64, error) {
	var count int64
	err := p.db.QueryRow("SELECT COUNT(*) FROM roads").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count roads: %w", err)
	}
	return count, nil
}

// Close closes the database connection
func (p *RoadsDB) Close() error {
	return p.db.Close()
}
