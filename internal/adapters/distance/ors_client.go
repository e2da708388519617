package distance

import (
	"context"
	"errors"
	"net/http"
	"route-optimizer-service/internal/domain"
	"route-optimizer-service/internal/ports"
	"strings"
	"time"
)

// Persistent address -> coordinate cache consulted before geocoding calls.
type GeocodeCache interface {
	GetMany(ctx context.Context, addresses []string) (map[string]domain.Coordinates, error)
	PutMany(ctx context.Context, results map[string]domain.Coordinates) error
}

// Persistent origin -> destination cost cache consulted before matrix calls.
// Keys are domain.Coordinates.Key values.
type DistanceCache interface {
	GetMany(ctx context.Context, origin string, destinations []string) (map[string]domain.Cost, error)
	PutMany(ctx context.Context, origin string, results map[string]domain.Cost) error
}

// ORSClient implements the Geocoder and MatrixProvider ports using OpenRouteService.
//
// It coordinates:
//   - Address normalization
//   - Persistent geocode caching
//   - Persistent distance matrix caching
//   - External API calls with retry/backoff
//
// The client is safe for concurrent use.
type ORSClient struct {
	session       *http.Client
	apiKey        string
	baseURL       string
	profile       string
	country       string
	backoff       time.Duration
	distanceCache DistanceCache
	geocodeCache  GeocodeCache
}

var (
	_ ports.Geocoder       = (*ORSClient)(nil)
	_ ports.MatrixProvider = (*ORSClient)(nil)
)

type ORSOption func(*ORSClient)

// WithBaseURL points the client at a different ORS deployment.
func WithBaseURL(u string) ORSOption {
	return func(o *ORSClient) { o.baseURL = strings.TrimRight(u, "/") }
}

// WithCountry restricts geocoding to an ISO country code; empty disables the boundary.
func WithCountry(code string) ORSOption {
	return func(o *ORSClient) { o.country = code }
}

func WithCaches(distanceCache DistanceCache, geocodeCache GeocodeCache) ORSOption {
	return func(o *ORSClient) {
		o.distanceCache = distanceCache
		o.geocodeCache = geocodeCache
	}
}

func WithHTTPClient(c *http.Client) ORSOption {
	return func(o *ORSClient) { o.session = c }
}

func withBackoff(d time.Duration) ORSOption {
	return func(o *ORSClient) { o.backoff = d }
}

func NewORSClient(apiKey string, opts ...ORSOption) (*ORSClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("ORS api key is empty")
	}

	client := &ORSClient{
		session: &http.Client{Timeout: 10 * time.Second},
		apiKey:  apiKey,
		baseURL: "https://api.openrouteservice.org",
		profile: "driving-car",
		country: "US",
		backoff: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// normalize ensures consistent cache keys by collapsing whitespace.
func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
