package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"route-optimizer-service/internal/domain"
	"route-optimizer-service/internal/platform/obs"
	"strings"
	"time"
)

// SQLGeocodeCache maps normalized addresses to coordinates in Postgres.
// Entries older than MaxAge are treated as misses so re-geocoding refreshes them.
// A zero MaxAge keeps entries forever.
type SQLGeocodeCache struct {
	DB     *sql.DB
	MaxAge time.Duration
	Now    func() time.Time
}

func NewSQLGeocodeCache(db *sql.DB, maxAge time.Duration) *SQLGeocodeCache {
	return &SQLGeocodeCache{DB: db, MaxAge: maxAge, Now: time.Now}
}

func (s *SQLGeocodeCache) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// GetMany returns the fresh cached coordinates among addresses.
// Rows holding out-of-range coordinates are skipped.
func (s *SQLGeocodeCache) GetMany(
	ctx context.Context,
	addresses []string,
) (_ map[string]domain.Coordinates, err error) {
	defer obs.Time(ctx, "geocode.cache.GetMany")(&err)

	if s.DB == nil {
		return nil, errors.New("geocode cache: db is nil")
	}

	keys := uniqueKeys(addresses)
	if len(keys) == 0 {
		return map[string]domain.Coordinates{}, nil
	}

	// The zero time admits every row.
	var since time.Time
	if s.MaxAge > 0 {
		since = s.now().Add(-s.MaxAge)
	}

	rows, err := s.DB.QueryContext(ctx, `
	SELECT address, lat, lon
	FROM geocode_cache
	WHERE address = ANY($1::text[])
		AND resolved_at >= $2;
	`, keys, since)
	if err != nil {
		return nil, fmt.Errorf("get geocode cache: query: %w", err)
	}
	defer rows.Close()

	out := make(map[string]domain.Coordinates, len(keys))
	for rows.Next() {
		var addr string
		var c domain.Coordinates
		if err := rows.Scan(&addr, &c.Lat, &c.Lon); err != nil {
			return nil, fmt.Errorf("get geocode cache: scan: %w", err)
		}
		if c.Validate() != nil {
			continue
		}
		out[addr] = c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get geocode cache: rows: %w", err)
	}

	return out, nil
}

// PutMany upserts all results in one statement, stamping them with the current time.
func (s *SQLGeocodeCache) PutMany(ctx context.Context, results map[string]domain.Coordinates) (err error) {
	defer obs.Time(ctx, "geocode.cache.PutMany")(&err)

	if s.DB == nil {
		return errors.New("geocode cache: db is nil")
	}
	if len(results) == 0 {
		return nil
	}

	addrs := make([]string, 0, len(results))
	lats := make([]float64, 0, len(results))
	lons := make([]float64, 0, len(results))
	for addr, c := range results {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			return errors.New("put geocode cache: empty address key")
		}
		if err := c.Validate(); err != nil {
			return fmt.Errorf("put geocode cache address=%q: %w", addr, err)
		}
		addrs = append(addrs, addr)
		lats = append(lats, c.Lat)
		lons = append(lons, c.Lon)
	}

	_, err = s.DB.ExecContext(ctx, `
	INSERT INTO geocode_cache (address, lat, lon, resolved_at)
	SELECT a, la, lo, $4
	FROM unnest($1::text[], $2::float8[], $3::float8[]) AS t(a, la, lo)
	ON CONFLICT (address) DO UPDATE
	SET lat = EXCLUDED.lat,
		lon = EXCLUDED.lon,
		resolved_at = EXCLUDED.resolved_at;
	`, addrs, lats, lons, s.now().UTC())
	if err != nil {
		return fmt.Errorf("put geocode cache: %w", err)
	}

	return nil
}

// uniqueKeys trims keys and drops blanks and repeats, keeping first-seen order.
func uniqueKeys(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
