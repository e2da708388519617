package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"route-optimizer-service/internal/domain"
	"route-optimizer-service/internal/platform/obs"
	"route-optimizer-service/internal/ports"
	"time"

	"github.com/google/uuid"
)

// Postgres-backed implementation of the RouteRepository port.
type PostgresRouteRepository struct{ DB *sql.DB }

var _ ports.RouteRepository = (*PostgresRouteRepository)(nil)

func NewPostgresRouteRepository(db *sql.DB) *PostgresRouteRepository {
	return &PostgresRouteRepository{DB: db}
}

// SaveRoute stores the route and its stops in one transaction.
// A route without an ID is assigned a new UUID.
func (s *PostgresRouteRepository) SaveRoute(ctx context.Context, route *domain.Route) (_ string, err error) {
	defer obs.Time(ctx, "routes.SaveRoute")(&err)

	if s.DB == nil {
		return "", errors.New("postgres route repository: DB is nil")
	}
	if route == nil {
		return "", errors.New("save route: route is nil")
	}

	id := route.ID
	if id == "" {
		id = uuid.NewString()
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("save route: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
	INSERT INTO routes (
		route_id,
		vehicle_id,
		vehicle_index,
		depart_at,
		total_distance_meters,
		total_duration_seconds,
		return_to_depot
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7);
	`,
		id,
		route.Vehicle.ID,
		route.Vehicle.Index,
		route.DepartAt,
		route.TotalDistanceMeters,
		route.TotalDurationSeconds,
		route.ReturnToDepot,
	)
	if err != nil {
		return "", fmt.Errorf("save route: insert route %s: %w", id, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO route_stops (
		route_id,
		position,
		stop_id,
		lat,
		lon,
		window_open,
		window_close,
		service_seconds,
		arrive_at,
		wait_seconds,
		late,
		leg_distance_meters,
		leg_duration_seconds
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13);
	`)
	if err != nil {
		return "", fmt.Errorf("save route: prepare stop insert: %w", err)
	}
	defer stmt.Close()

	for i, rs := range route.Stops {
		var open, closeAt sql.NullTime
		if w := rs.Stop.Window; w != nil {
			open = sql.NullTime{Time: w.Open, Valid: !w.Open.IsZero()}
			closeAt = sql.NullTime{Time: w.Close, Valid: !w.Close.IsZero()}
		}

		var service sql.NullFloat64
		if rs.Stop.ServiceDuration != nil {
			service = sql.NullFloat64{Float64: rs.Stop.ServiceDuration.Seconds(), Valid: true}
		}

		_, err := stmt.ExecContext(ctx,
			id,
			i,
			rs.Stop.ID,
			rs.Stop.Location.Lat,
			rs.Stop.Location.Lon,
			open,
			closeAt,
			service,
			rs.ArriveAt,
			rs.WaitSeconds,
			rs.Late,
			rs.LegDistanceMeters,
			rs.LegDurationSeconds,
		)
		if err != nil {
			return "", fmt.Errorf("save route: insert stop %q: %w", rs.Stop.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("save route: commit tx: %w", err)
	}

	return id, nil
}

// LoadRoute returns the stored route with stops in planned order.
func (s *PostgresRouteRepository) LoadRoute(ctx context.Context, id string) (_ *domain.Route, err error) {
	defer obs.Time(ctx, "routes.LoadRoute")(&err)

	if s.DB == nil {
		return nil, errors.New("postgres route repository: DB is nil")
	}

	route := &domain.Route{ID: id}
	err = s.DB.QueryRowContext(ctx, `
	SELECT
		vehicle_id,
		vehicle_index,
		depart_at,
		total_distance_meters,
		total_duration_seconds,
		return_to_depot
	FROM routes
	WHERE route_id = $1;
	`, id).Scan(
		&route.Vehicle.ID,
		&route.Vehicle.Index,
		&route.DepartAt,
		&route.TotalDistanceMeters,
		&route.TotalDurationSeconds,
		&route.ReturnToDepot,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load route %s: %w", id, domain.ErrRouteNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load route %s: query routes table: %w", id, err)
	}

	rows, err := s.DB.QueryContext(ctx, `
	SELECT
		stop_id,
		lat,
		lon,
		window_open,
		window_close,
		service_seconds,
		arrive_at,
		wait_seconds,
		late,
		leg_distance_meters,
		leg_duration_seconds
	FROM route_stops
	WHERE route_id = $1
	ORDER BY position;
	`, id)
	if err != nil {
		return nil, fmt.Errorf("load route %s: query route_stops table: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rs      domain.RouteStop
			open    sql.NullTime
			closeAt sql.NullTime
			service sql.NullFloat64
		)
		err := rows.Scan(
			&rs.Stop.ID,
			&rs.Stop.Location.Lat,
			&rs.Stop.Location.Lon,
			&open,
			&closeAt,
			&service,
			&rs.ArriveAt,
			&rs.WaitSeconds,
			&rs.Late,
			&rs.LegDistanceMeters,
			&rs.LegDurationSeconds,
		)
		if err != nil {
			return nil, fmt.Errorf("load route %s: scan row: %w", id, err)
		}

		if open.Valid || closeAt.Valid {
			rs.Stop.Window = &domain.TimeWindow{Open: open.Time, Close: closeAt.Time}
		}
		if service.Valid {
			d := time.Duration(service.Float64 * float64(time.Second))
			rs.Stop.ServiceDuration = &d
		}
		route.Stops = append(route.Stops, rs)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load route %s: row iteration: %w", id, err)
	}

	return route, nil
}
