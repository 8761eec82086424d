// Package sqlite implements ReadingStore on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/uv-feed-service/internal/domain"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schema string

const (
	upsertReading = `
INSERT INTO readings (id, location_name, uv_index, full_time, last_update)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  location_name = excluded.location_name,
  uv_index      = excluded.uv_index,
  full_time     = excluded.full_time,
  last_update   = excluded.last_update`

	upsertMarker = `
INSERT INTO metadata (key, timestamp) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET timestamp = excluded.timestamp`

	selectReadings = `
SELECT id, location_name, uv_index, full_time, last_update
FROM readings
ORDER BY location_name, id`

	selectMarker = `SELECT timestamp FROM metadata WHERE key = ?`
)

// Store is a ReadingStore backed by SQLite.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the database at path and applies the schema.
// Use ":memory:" for a private in-memory database.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	dsn, err := buildDSN(path)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	// Each connection to ":memory:" is a separate database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	s, err := New(ctx, db, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing database handle and applies the schema.
func New(ctx context.Context, db *sql.DB, logger *slog.Logger) (*Store, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) UpsertAll(ctx context.Context, snapshot domain.Snapshot) error {
	ts := formatTime(snapshot.FetchedAt)
	for _, r := range snapshot.Readings {
		if _, err := s.db.ExecContext(ctx, upsertReading, r.ID, r.LocationName, r.Index, r.FullTime, ts); err != nil {
			return &domain.StoreError{Op: "upsert reading " + r.ID, Err: err}
		}
	}
	if _, err := s.db.ExecContext(ctx, upsertMarker, domain.MetadataLastUpdateKey, ts); err != nil {
		return &domain.StoreError{Op: "write marker", Err: err}
	}
	return nil
}

func (s *Store) ReadLatest(ctx context.Context, limit int) ([]domain.Reading, error) {
	query := selectReadings
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &domain.StoreError{Op: "read latest", Err: err}
	}
	defer rows.Close()

	out := make([]domain.Reading, 0)
	for rows.Next() {
		var (
			id, name, updated string
			index             sql.NullFloat64
			fullTime          sql.NullString
		)
		if err := rows.Scan(&id, &name, &index, &fullTime, &updated); err != nil {
			return nil, &domain.StoreError{Op: "read latest", Err: err}
		}

		doc := domain.ReadingDocument{LocationName: name}
		if index.Valid {
			doc.Index = &index.Float64
		}
		if fullTime.Valid {
			doc.FullTime = &fullTime.String
		}
		doc.LastUpdate, err = parseTime(updated)
		if err != nil {
			s.logger.Warn("skipping reading with bad last_update", "id", id, "error", err)
			continue
		}

		r, err := doc.Reading(id)
		if err != nil {
			s.logger.Warn("skipping incomplete reading", "id", id, "error", err)
			continue
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StoreError{Op: "read latest", Err: err}
	}
	return out, nil
}

func (s *Store) LastUpdate(ctx context.Context) (time.Time, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, selectMarker, domain.MetadataLastUpdateKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, &domain.StoreError{Op: "read marker", Err: err}
	}
	ts, err := parseTime(raw)
	if err != nil {
		return time.Time{}, &domain.StoreError{Op: "read marker", Err: err}
	}
	return ts, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func buildDSN(path string) (string, error) {
	if path == ":memory:" {
		return path, nil
	}

	// Ensure directory exists for file-backed sqlite db
	dir := filepath.Dir(strings.TrimPrefix(path, "file:"))
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	params := []string{"_busy_timeout=5000", "_journal_mode=WAL"}
	if strings.HasPrefix(path, "file:") {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return path + sep + strings.Join(params, "&"), nil
	}
	return fmt.Sprintf("file:%s?%s", path, strings.Join(params, "&")), nil
}
