package repositories

import (
	"context"
	"os"
	"route-optimizer-service/internal/domain"
	"route-optimizer-service/internal/platform/db"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a real Postgres when TEST_DATABASE_URL is set.
func TestPostgresRouteRepositoryRoundTrip(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	conn, err := db.Open(url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, InitSchema(conn))

	repo := NewPostgresRouteRepository(conn)
	ctx := context.Background()

	depart := time.Date(2026, 2, 3, 8, 0, 0, 0, time.UTC)
	service := 5 * time.Minute
	route := &domain.Route{
		ID:       "test-" + uuid.NewString(),
		Vehicle:  domain.Vehicle{ID: 2, Index: 1},
		DepartAt: depart,
		Stops: []domain.RouteStop{
			{
				Stop:     domain.Stop{ID: "a", Location: domain.Coordinates{Lat: 33.5, Lon: -112.0}},
				ArriveAt: depart.Add(10 * time.Minute),
			},
			{
				Stop: domain.Stop{
					ID:              "b",
					Location:        domain.Coordinates{Lat: 33.6, Lon: -112.1},
					Window:          &domain.TimeWindow{Open: depart.Add(time.Hour)},
					ServiceDuration: &service,
				},
				ArriveAt:    depart.Add(time.Hour),
				WaitSeconds: 1200,
			},
		},
		TotalDistanceMeters:  12000,
		TotalDurationSeconds: 3900,
	}

	id, err := repo.SaveRoute(ctx, route)
	require.NoError(t, err)
	assert.Equal(t, route.ID, id)

	got, err := repo.LoadRoute(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got.StopIDs())
	assert.Equal(t, 2, got.Vehicle.ID)
	require.NotNil(t, got.Stops[1].Stop.Window)
	assert.True(t, got.Stops[1].Stop.Window.Close.IsZero())
	require.NotNil(t, got.Stops[1].Stop.ServiceDuration)
	assert.Equal(t, service, *got.Stops[1].Stop.ServiceDuration)

	_, err = repo.LoadRoute(ctx, "missing-"+uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrRouteNotFound)
}
