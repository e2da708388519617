package repositories

import (
	"database/sql"
	"errors"
	"fmt"
)

// Initialize the Postgres schema for routes and the ORS caches.
func InitSchema(db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createRoutesQuery := `
	CREATE TABLE IF NOT EXISTS routes (
		route_id TEXT PRIMARY KEY,
		vehicle_id INTEGER NOT NULL,
		vehicle_index INTEGER NOT NULL,
		depart_at TIMESTAMPTZ NOT NULL,
		total_distance_meters DOUBLE PRECISION NOT NULL,
		total_duration_seconds DOUBLE PRECISION NOT NULL,
		return_to_depot BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	`

	createRouteStopsQuery := `
	CREATE TABLE IF NOT EXISTS route_stops (
		route_id TEXT NOT NULL REFERENCES routes(route_id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		stop_id TEXT NOT NULL,
		lat DOUBLE PRECISION NOT NULL,
		lon DOUBLE PRECISION NOT NULL,
		window_open TIMESTAMPTZ,
		window_close TIMESTAMPTZ,
		service_seconds DOUBLE PRECISION,
		arrive_at TIMESTAMPTZ NOT NULL,
		wait_seconds DOUBLE PRECISION NOT NULL,
		late BOOLEAN NOT NULL,
		leg_distance_meters DOUBLE PRECISION NOT NULL,
		leg_duration_seconds DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (route_id, position),
		UNIQUE (route_id, stop_id)
	);
	`

	createDistanceCacheQuery := `
	CREATE TABLE IF NOT EXISTS distance_cache (
        origin TEXT NOT NULL,
        destination TEXT NOT NULL,
        distance_meters DOUBLE PRECISION NOT NULL,
        duration_seconds DOUBLE PRECISION NOT NULL,
        PRIMARY KEY (origin, destination)
    );
	`

	createGeocodeCacheQuery := `
	CREATE TABLE IF NOT EXISTS geocode_cache (
        address TEXT PRIMARY KEY,
        lon DOUBLE PRECISION NOT NULL,
        lat DOUBLE PRECISION NOT NULL,
        resolved_at TIMESTAMPTZ NOT NULL DEFAULT now()
    );
	`

	// Tables created before resolved_at existed.
	alterGeocodeCacheQuery := `
	ALTER TABLE geocode_cache
	ADD COLUMN IF NOT EXISTS resolved_at TIMESTAMPTZ NOT NULL DEFAULT now();
	`

	createIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_distance_cache_destination_origin
    ON distance_cache(destination, origin);
	`

	statements := []string{
		createRoutesQuery,
		createRouteStopsQuery,
		createDistanceCacheQuery,
		createGeocodeCacheQuery,
		alterGeocodeCacheQuery,
		createIndexQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}
