package domain

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoordinatesValidate(t *testing.T) {
	cases := []struct {
		name  string
		c     Coordinates
		valid bool
	}{
		{"origin", Coordinates{}, true},
		{"corners", Coordinates{Lat: -90, Lon: 180}, true},
		{"lat too high", Coordinates{Lat: 90.0001, Lon: 0}, false},
		{"lon too low", Coordinates{Lat: 0, Lon: -180.5}, false},
		{"nan", Coordinates{Lat: math.NaN(), Lon: 0}, false},
		{"inf", Coordinates{Lat: 0, Lon: math.Inf(1)}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.c.Validate()
			if tc.valid {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidCoordinate)
			assert.Equal(t, KindInvalidInput, KindOf(err))
		})
	}
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("tracker: update stop: %w", ErrRouteNotActive)

	assert.True(t, errors.Is(err, ErrRouteNotActive))
	assert.Equal(t, KindInvalidStateTransition, KindOf(err))
	assert.Equal(t, "route_not_active", CodeOf(err))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, "", CodeOf(nil))
}

func TestParseStopStatus(t *testing.T) {
	st, err := ParseStopStatus(" delivered ")
	require.NoError(t, err)
	assert.Equal(t, StopDelivered, st)

	_, err = ParseStopStatus("LOST")
	assert.ErrorIs(t, err, ErrInvalidStopStatus)
}

func TestRouteProgressCloneIsIndependent(t *testing.T) {
	now := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	p := &RouteProgress{
		RouteID:           "r1",
		Status:            RouteInProgress,
		DriverLocation:    &Coordinates{Lat: 1, Lon: 2},
		LocationUpdatedAt: &now,
		Stops:             []StopProgress{{StopID: "a", Status: StopPending}},
	}

	c := p.Clone()
	c.DriverLocation.Lat = 50
	c.Stops[0].Status = StopDelivered

	assert.Equal(t, 1.0, p.DriverLocation.Lat)
	assert.Equal(t, StopPending, p.Stops[0].Status)
	assert.Equal(t, map[StopStatus]int{StopDelivered: 1}, c.Counts())
}

func TestRouteLoadAndStopIDs(t *testing.T) {
	r := &Route{Stops: []RouteStop{{Stop: Stop{ID: "b"}}, {Stop: Stop{ID: "a"}}}}

	assert.Equal(t, 2, r.Load())
	assert.Equal(t, []string{"b", "a"}, r.StopIDs())

	c := r.Clone()
	c.Stops[0].Stop.ID = "z"
	assert.Equal(t, "b", r.Stops[0].Stop.ID)
}

func TestStopValidate(t *testing.T) {
	open := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	assert.NoError(t, Stop{ID: "a"}.Validate())
	assert.ErrorIs(t, Stop{ID: " "}.Validate(), ErrMissingStopID)
	assert.ErrorIs(t, Stop{ID: "a", Location: Coordinates{Lat: 91}}.Validate(), ErrInvalidCoordinate)
	assert.ErrorIs(t,
		Stop{ID: "a", Window: &TimeWindow{Open: open, Close: open.Add(-time.Minute)}}.Validate(),
		ErrInvalidTimeWindow,
	)
	assert.NoError(t, Stop{ID: "a", Window: &TimeWindow{Close: open}}.Validate())

	neg := -time.Second
	assert.ErrorIs(t, Stop{ID: "a", ServiceDuration: &neg}.Validate(), ErrInvalidServiceTime)
}

func TestRouteCloneCopiesStopFields(t *testing.T) {
	d := 5 * time.Minute
	r := &Route{Stops: []RouteStop{{Stop: Stop{ID: "a", ServiceDuration: &d, Window: &TimeWindow{}}}}}

	c := r.Clone()
	*c.Stops[0].Stop.ServiceDuration = time.Hour
	c.Stops[0].Stop.Window.Open = time.Unix(1, 0)

	assert.Equal(t, 5*time.Minute, *r.Stops[0].Stop.ServiceDuration)
	assert.True(t, r.Stops[0].Stop.Window.Open.IsZero())
}
