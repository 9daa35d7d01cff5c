// Package geo resolves free-text city names into coordinates using
// OpenStreetMap Nominatim, with a TTL/LRU cache in front of the network.
package geo

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/muesli/gominatim"
)

const (
	DefaultNominatimServer = "https://nominatim.openstreetmap.org/"
	DefaultCacheSize       = 1000
	DefaultCacheTTL        = time.Hour

	defaultRetryBase = 250 * time.Millisecond
	maxAttempts      = 3
)

// Point is a resolved latitude/longitude pair. Points are immutable: cache
// entries are stored and returned by value.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Reason classifies a resolution failure.
type Reason int

const (
	// ReasonNotFound means the geocoder answered but knows no such city.
	ReasonNotFound Reason = iota
	// ReasonUnavailable means the geocoder could not be reached after retries.
	ReasonUnavailable
)

// ResolutionError is the only error type Resolve returns.
type ResolutionError struct {
	City   string
	Reason Reason
	Err    error
}

func (e *ResolutionError) Error() string {
	if e.Reason == ReasonNotFound {
		return fmt.Sprintf("city %q not found", e.City)
	}
	return fmt.Sprintf("geocoding service unavailable: %v", e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// Geocoder is the seam to the geocoding provider. The boolean reports
// whether the city was found; an error means the provider was unreachable.
type Geocoder interface {
	Geocode(ctx context.Context, city string) (Point, bool, error)
}

// NominatimGeocoder queries an OpenStreetMap Nominatim server.
type NominatimGeocoder struct{}

// NewNominatimGeocoder configures the Nominatim client for the given server.
func NewNominatimGeocoder(server string) (*NominatimGeocoder, error) {
	if server == "" {
		server = DefaultNominatimServer
	}
	gominatim.SetServer(server)
	return &NominatimGeocoder{}, nil
}

func (g *NominatimGeocoder) Geocode(ctx context.Context, city string) (Point, bool, error) {
	if err := ctx.Err(); err != nil {
		return Point{}, false, err
	}

	qry := gominatim.SearchQuery{
		Q: city,
	}

	results, err := qry.Get()
	if err != nil {
		return Point{}, false, fmt.Errorf("geocoding error: %w", err)
	}
	if len(results) == 0 {
		return Point{}, false, nil
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return Point{}, false, fmt.Errorf("error parsing latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return Point{}, false, fmt.Errorf("error parsing longitude: %w", err)
	}

	return Point{Latitude: lat, Longitude: lon}, true, nil
}

// Common English names for Italian cities, folded to the local spelling so
// both forms share one cache key.
var cityAliases = map[string]string{
	"rome":     "roma",
	"milan":    "milano",
	"naples":   "napoli",
	"turin":    "torino",
	"florence": "firenze",
	"venice":   "venezia",
	"genoa":    "genova",
}

// NormalizeCity trims, case-folds and de-aliases a city name. The result is
// both the cache key and the geocoding query.
func NormalizeCity(city string) string {
	c := strings.ToLower(strings.TrimSpace(city))
	if alias, ok := cityAliases[c]; ok {
		return alias
	}
	return c
}

// Resolver resolves city names with caching, retries and a local fallback.
type Resolver struct {
	geocoder  Geocoder
	cache     *expirable.LRU[string, Point]
	retryBase time.Duration
	log       *slog.Logger
}

// ResolverOptions configures a Resolver. Zero values fall back to defaults.
type ResolverOptions struct {
	Geocoder  Geocoder
	CacheSize int
	CacheTTL  time.Duration
	RetryBase time.Duration
	Logger    *slog.Logger
}

func NewResolver(opts ResolverOptions) *Resolver {
	if opts.CacheSize == 0 {
		opts.CacheSize = DefaultCacheSize
	}
	if opts.CacheTTL == 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.RetryBase == 0 {
		opts.RetryBase = defaultRetryBase
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	return &Resolver{
		geocoder:  opts.Geocoder,
		cache:     expirable.NewLRU[string, Point](opts.CacheSize, nil, opts.CacheTTL),
		retryBase: opts.RetryBase,
		log:       opts.Logger,
	}
}

// Resolve turns a city name into coordinates. A cache hit short-circuits all
// network activity. Transport failures are retried with exponential backoff;
// an empty geocoder answer is terminal and never retried. Only successful
// resolutions populate the cache.
func (r *Resolver) Resolve(ctx context.Context, city string) (Point, error) {
	key := NormalizeCity(city)

	if pt, ok := r.cache.Get(key); ok {
		r.log.Debug("geocoding cache hit", "city", key)
		return pt, nil
	}
	r.log.Debug("geocoding cache miss", "city", key)

	var pt Point
	var found bool
	op := func() error {
		p, ok, err := r.geocoder.Geocode(ctx, key)
		if err != nil {
			r.log.Warn("geocoding attempt failed", "city", key, "error", err)
			return err
		}
		pt, found = p, ok
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = r.retryBase
	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, maxAttempts-1), ctx)); err != nil {
		if fb, ok := fallbackCoords[key]; ok {
			r.log.Warn("geocoder unreachable, using local fallback coordinates", "city", key, "error", err)
			r.cache.Add(key, fb)
			return fb, nil
		}
		return Point{}, &ResolutionError{City: city, Reason: ReasonUnavailable, Err: err}
	}

	if !found {
		return Point{}, &ResolutionError{City: city, Reason: ReasonNotFound}
	}

	r.cache.Add(key, pt)
	return pt, nil
}
