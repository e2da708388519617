package distance

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"route-optimizer-service/internal/domain"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memGeocodeCache struct {
	mu sync.Mutex
	m  map[string]domain.Coordinates
}

func (c *memGeocodeCache) GetMany(_ context.Context, addresses []string) (map[string]domain.Coordinates, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := map[string]domain.Coordinates{}
	for _, a := range addresses {
		if v, ok := c.m[a]; ok {
			out[a] = v
		}
	}
	return out, nil
}

func (c *memGeocodeCache) PutMany(_ context.Context, results map[string]domain.Coordinates) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range results {
		c.m[k] = v
	}
	return nil
}

type memDistanceCache struct {
	mu sync.Mutex
	m  map[string]domain.Cost
}

func (c *memDistanceCache) GetMany(_ context.Context, origin string, destinations []string) (map[string]domain.Cost, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := map[string]domain.Cost{}
	for _, d := range destinations {
		if v, ok := c.m[origin+"|"+d]; ok {
			out[d] = v
		}
	}
	return out, nil
}

func (c *memDistanceCache) PutMany(_ context.Context, origin string, results map[string]domain.Cost) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for d, v := range results {
		c.m[origin+"|"+d] = v
	}
	return nil
}

func newTestClient(t *testing.T, h http.Handler) (*ORSClient, *memGeocodeCache, *memDistanceCache) {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	gc := &memGeocodeCache{m: map[string]domain.Coordinates{}}
	dc := &memDistanceCache{m: map[string]domain.Cost{}}

	client, err := NewORSClient("key",
		WithBaseURL(srv.URL),
		WithCaches(dc, gc),
		withBackoff(time.Millisecond),
	)
	require.NoError(t, err)
	return client, gc, dc
}

func TestNewORSClientRequiresKey(t *testing.T) {
	_, err := NewORSClient("  ")
	assert.Error(t, err)
}

func TestResolveUsesCacheAfterFirstCall(t *testing.T) {
	var calls atomic.Int32
	client, gc, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/geocode/search", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("Authorization"))
		assert.Equal(t, "1901 W Madison St", r.URL.Query().Get("text"))
		_, _ = w.Write([]byte(`{"features":[{"geometry":{"coordinates":[-112.1,33.45]}}]}`))
	}))

	ctx := context.Background()
	c, err := client.Resolve(ctx, "  1901   W Madison St ")
	require.NoError(t, err)
	assert.Equal(t, domain.Coordinates{Lat: 33.45, Lon: -112.1}, c)

	c2, err := client.Resolve(ctx, "1901 W Madison St")
	require.NoError(t, err)
	assert.Equal(t, c, c2)
	assert.Equal(t, int32(1), calls.Load())
	assert.Contains(t, gc.m, "1901 W Madison St")
}

func TestResolveNoFeaturesIsUnresolvable(t *testing.T) {
	client, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"features":[]}`))
	}))

	_, err := client.Resolve(context.Background(), "nowhere")
	assert.ErrorIs(t, err, domain.ErrUnresolvableAddress)

	_, err = client.Resolve(context.Background(), "   ")
	assert.ErrorIs(t, err, domain.ErrUnresolvableAddress)
}

func TestRetryThenSuccess(t *testing.T) {
	var calls atomic.Int32
	client, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"features":[{"geometry":{"coordinates":[1,2]}}]}`))
	}))

	c, err := client.Resolve(context.Background(), "somewhere")
	require.NoError(t, err)
	assert.Equal(t, domain.Coordinates{Lat: 2, Lon: 1}, c)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetryExhaustedIsUpstreamUnavailable(t *testing.T) {
	var calls atomic.Int32
	client, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := client.Resolve(context.Background(), "somewhere")
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	assert.Equal(t, int32(4), calls.Load())
}

func TestClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	client, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))

	_, err := client.Resolve(context.Background(), "somewhere")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrUpstreamUnavailable)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchMatrixFillsAndReadsCache(t *testing.T) {
	var calls atomic.Int32
	client, _, dc := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/v2/matrix/driving-car", r.URL.Path)

		var req matrixRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Len(t, req.Locations, 2)

		_, _ = w.Write([]byte(`{"distances":[[0,1500.5],[1600,0]],"durations":[[0,120],[130,0]]}`))
	}))

	points := []domain.Coordinates{{Lat: 33.4, Lon: -112.0}, {Lat: 33.5, Lon: -112.1}}

	m, err := client.FetchMatrix(context.Background(), points)
	require.NoError(t, err)
	assert.Equal(t, 1500.5, m[0][1].DistanceMeters)
	assert.Equal(t, 130.0, m[1][0].DurationSeconds)
	assert.Len(t, dc.m, 2)

	again, err := client.FetchMatrix(context.Background(), points)
	require.NoError(t, err)
	assert.Equal(t, m, again)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchMatrixUnroutablePair(t *testing.T) {
	client, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"distances":[[0,null],[1,0]],"durations":[[0,null],[1,0]]}`))
	}))

	_, err := client.FetchMatrix(context.Background(), []domain.Coordinates{{Lat: 1}, {Lat: 2}})
	assert.Error(t, err)
}
