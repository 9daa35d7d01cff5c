// Package history keeps a small, size-bounded record of past searches used
// to prefill the form, plus an aggregated search-location log. It is a
// convenience store: failures here never affect the search pipeline.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/openfuelmap/fuelfinder/pkg/prezzi"
)

const (
	// MaxEntries bounds the recent-search list.
	MaxEntries = 5

	locationPrecisionDecimals = 2
	decimalBase               = 10
)

// Params is one saved search parameter set.
type Params struct {
	City       string          `json:"city"`
	RadiusKm   float64         `json:"radiusKm"`
	Fuel       prezzi.FuelType `json:"fuel"`
	MaxResults int             `json:"maxResults"`
}

// Location is one aggregated search area.
type Location struct {
	Latitude    float64 `json:"lat"`
	Longitude   float64 `json:"lng"`
	RadiusKm    float64 `json:"radiusKm"`
	SearchCount int64   `json:"count"`
}

// Store persists search history in a local sqlite database.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

func NewStore(ctx context.Context, dbPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	db, err := sql.Open("sqlite3", "file:"+dbPath)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 10000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("error setting busy timeout: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("error setting journal mode: %w", err)
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS search_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		city TEXT NOT NULL,
		radius_km REAL NOT NULL,
		fuel TEXT NOT NULL,
		max_results INTEGER NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS location_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		latitude REAL NOT NULL,
		longitude REAL NOT NULL,
		radius_km REAL NOT NULL,
		search_count INTEGER NOT NULL DEFAULT 1,
		last_search TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_location_logs_coordinates ON location_logs (latitude, longitude);
	`
	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating tables: %w", err)
	}

	return &Store{db: db, log: logger}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Append records a search parameter set, keeping only the MaxEntries most
// recent ones. Repeating a previous search moves it to the front instead of
// duplicating it.
func (s *Store) Append(ctx context.Context, p Params) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM search_history
		WHERE city = ? AND radius_km = ? AND fuel = ? AND max_results = ?
	`, p.City, p.RadiusKm, string(p.Fuel), p.MaxResults)
	if err != nil {
		return fmt.Errorf("error deduplicating history: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO search_history (city, radius_km, fuel, max_results)
		VALUES (?, ?, ?, ?)
	`, p.City, p.RadiusKm, string(p.Fuel), p.MaxResults)
	if err != nil {
		return fmt.Errorf("error inserting history entry: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		DELETE FROM search_history
		WHERE id NOT IN (SELECT id FROM search_history ORDER BY id DESC LIMIT ?)
	`, MaxEntries)
	if err != nil {
		return fmt.Errorf("error trimming history: %w", err)
	}

	return nil
}

// Recent returns up to limit saved searches, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Params, error) {
	if limit <= 0 || limit > MaxEntries {
		limit = MaxEntries
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT city, radius_km, fuel, max_results
		FROM search_history
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying history: %w", err)
	}
	defer rows.Close()

	var entries []Params
	for rows.Next() {
		var p Params
		var fuel string
		if err := rows.Scan(&p.City, &p.RadiusKm, &fuel, &p.MaxResults); err != nil {
			return nil, fmt.Errorf("error scanning history entry: %w", err)
		}
		p.Fuel = prezzi.FuelType(fuel)
		entries = append(entries, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error: %w", err)
	}

	return entries, nil
}

// LogSearchLocation upserts an aggregated counter for a searched area.
// Coordinates are reduced to 2 decimals so nearby searches cluster.
func (s *Store) LogSearchLocation(ctx context.Context, latitude, longitude, radiusKm float64) error {
	lat, lon := reduceLocationPrecision(latitude, longitude, locationPrecisionDecimals)

	var id int64
	var count int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, search_count FROM location_logs
		WHERE latitude = ? AND longitude = ?
		LIMIT 1
	`, lat, lon).Scan(&id, &count)

	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("error checking for existing location: %w", err)
	}

	if err == sql.ErrNoRows {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO location_logs (latitude, longitude, radius_km)
			VALUES (?, ?, ?)
		`, lat, lon, radiusKm)
		if err != nil {
			return fmt.Errorf("error logging search location: %w", err)
		}
		return nil
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE location_logs
		SET search_count = search_count + 1, last_search = CURRENT_TIMESTAMP, radius_km = ?
		WHERE id = ?
	`, radiusKm, id)
	if err != nil {
		return fmt.Errorf("error updating search location: %w", err)
	}

	return nil
}

// PopularLocations returns the most searched areas, busiest first.
func (s *Store) PopularLocations(ctx context.Context, limit int) ([]Location, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT latitude, longitude, radius_km, search_count
		FROM location_logs
		ORDER BY search_count DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying popular locations: %w", err)
	}
	defer rows.Close()

	var locations []Location
	for rows.Next() {
		var l Location
		if err := rows.Scan(&l.Latitude, &l.Longitude, &l.RadiusKm, &l.SearchCount); err != nil {
			return nil, fmt.Errorf("error scanning location: %w", err)
		}
		locations = append(locations, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error: %w", err)
	}

	return locations, nil
}

func reduceLocationPrecision(lat, lng float64, decimalPlaces int) (roundedLat, roundedLng float64) {
	factor := math.Pow(decimalBase, float64(decimalPlaces))
	roundedLat = math.Round(lat*factor) / factor
	roundedLng = math.Round(lng*factor) / factor
	return
}
