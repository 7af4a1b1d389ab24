package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/i474232898/surf-forecast/internal/surf"
)

const schema = `
CREATE TABLE IF NOT EXISTS forecast_reports (
	id TEXT PRIMARY KEY,
	location_key TEXT NOT NULL,
	location_name TEXT NOT NULL,
	latitude REAL NOT NULL,
	longitude REAL NOT NULL,
	source TEXT NOT NULL,
	spot_name TEXT,
	spot_id TEXT,
	fetched_at INTEGER NOT NULL,
	days TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_forecast_reports_location ON forecast_reports(location_key, fetched_at);
`

// SQLiteStore persists reports in a SQLite database. Retention works like
// MemoryStore: maxHistory <= 0 and maxAge <= 0 mean unlimited.
type SQLiteStore struct {
	db *sql.DB

	maxHistory int
	maxAge     time.Duration
	now        func() time.Time
}

// OpenSQLite opens (creating if needed) the database at path and ensures the schema.
func OpenSQLite(path string, maxHistory int, maxAge time.Duration) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." && path != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// A single connection keeps :memory: databases shared across calls.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating forecast_reports table: %w", err)
	}
	return &SQLiteStore{
		db:         db,
		maxHistory: maxHistory,
		maxAge:     maxAge,
		now:        time.Now,
	}, nil
}

// Close releases the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveReport inserts a report and enforces retention for its location.
func (s *SQLiteStore) SaveReport(report surf.Report) error {
	days, err := json.Marshal(report.Days)
	if err != nil {
		return fmt.Errorf("encoding report days: %w", err)
	}
	key := report.Location.Key()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save of report %s: %w", report.ID, err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO forecast_reports
			(id, location_key, location_name, latitude, longitude, source, spot_name, spot_id, fetched_at, days)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.ID,
		key,
		report.Location.Name,
		report.Location.Lat,
		report.Location.Lng,
		string(report.Source),
		report.SpotName,
		report.SpotID,
		report.FetchedAt.UTC().UnixNano(),
		string(days),
	)
	if err != nil {
		return fmt.Errorf("inserting report %s: %w", report.ID, err)
	}

	// Enforce retention by count.
	if s.maxHistory > 0 {
		_, err = tx.Exec(`
			DELETE FROM forecast_reports
			WHERE location_key = ? AND id NOT IN (
				SELECT id FROM forecast_reports
				WHERE location_key = ?
				ORDER BY fetched_at DESC
				LIMIT ?)`,
			key, key, s.maxHistory)
		if err != nil {
			return fmt.Errorf("trimming reports for %s: %w", key, err)
		}
	}

	// Enforce retention by age, always keeping the report just saved.
	if s.maxAge > 0 {
		cutoff := s.now().Add(-s.maxAge).UTC().UnixNano()
		_, err = tx.Exec(`
			DELETE FROM forecast_reports
			WHERE location_key = ? AND fetched_at < ? AND id != ?`,
			key, cutoff, report.ID)
		if err != nil {
			return fmt.Errorf("expiring reports for %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit report %s: %w", report.ID, err)
	}
	return nil
}

// GetLatest returns the most recent report for a location.
func (s *SQLiteStore) GetLatest(loc surf.Location) (surf.Report, error) {
	row := s.db.QueryRow(`
		SELECT id, location_name, latitude, longitude, source, spot_name, spot_id, fetched_at, days
		FROM forecast_reports
		WHERE location_key = ?
		ORDER BY fetched_at DESC
		LIMIT 1`, loc.Key())

	r, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return surf.Report{}, ErrNotFound
	}
	return r, err
}

// GetRange returns all reports for a location fetched between from and to (inclusive).
func (s *SQLiteStore) GetRange(loc surf.Location, from, to time.Time) ([]surf.Report, error) {
	rows, err := s.db.Query(`
		SELECT id, location_name, latitude, longitude, source, spot_name, spot_id, fetched_at, days
		FROM forecast_reports
		WHERE location_key = ? AND fetched_at >= ? AND fetched_at <= ?
		ORDER BY fetched_at ASC`,
		loc.Key(), from.UTC().UnixNano(), to.UTC().UnixNano())
	if err != nil {
		return nil, fmt.Errorf("querying reports: %w", err)
	}
	defer rows.Close()

	var result []surf.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating reports: %w", err)
	}
	if len(result) == 0 {
		return nil, ErrNotFound
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReport(sc scanner) (surf.Report, error) {
	var (
		r                surf.Report
		source           string
		spotName, spotID sql.NullString
		fetchedAt        int64
		days             string
	)
	err := sc.Scan(&r.ID, &r.Location.Name, &r.Location.Lat, &r.Location.Lng,
		&source, &spotName, &spotID, &fetchedAt, &days)
	if err != nil {
		return surf.Report{}, err
	}

	r.Source = surf.Source(source)
	r.SpotName = spotName.String
	r.SpotID = spotID.String
	r.FetchedAt = time.Unix(0, fetchedAt).UTC()
	if err := json.Unmarshal([]byte(days), &r.Days); err != nil {
		return surf.Report{}, fmt.Errorf("decoding days of report %s: %w", r.ID, err)
	}
	return r, nil
}
