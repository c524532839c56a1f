// Package meterlog persists accepted telegrams to a local SQLite file.
// The log is append-only: the bridge inserts one row per telegram and
// readers pull the latest document or row counts. Anything beyond that
// (aggregation, retention) lives outside this process.
package meterlog

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/NotCoffee418/dbmigrator"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// ErrNoReadings is returned by Latest on an empty log.
var ErrNoReadings = errors.New("meterlog: no readings")

// Reading is one accepted telegram as stored.
type Reading struct {
	ReceivedAt int64
	DeviceID   string
	CRC        uint16
	Payload    string
}

// Store is an open reading log.
type Store struct {
	db *sql.DB
}

// Open creates or opens the SQLite file at path and applies pending
// migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open reading log: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open reading log: %w", err)
	}

	dbmigrator.SetDatabaseType(dbmigrator.SQLite)
	<-dbmigrator.MigrateUpCh(db, migrationFS, "migrations")

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Insert appends one reading.
func (s *Store) Insert(ctx context.Context, r Reading) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO readings (received_at, device_id, crc, payload) VALUES (?, ?, ?, ?)",
		r.ReceivedAt, r.DeviceID, r.CRC, r.Payload)
	if err != nil {
		return fmt.Errorf("insert reading: %w", err)
	}
	return nil
}

// Latest returns the most recently inserted reading.
func (s *Store) Latest(ctx context.Context) (Reading, error) {
	var r Reading
	err := s.db.QueryRowContext(ctx,
		"SELECT received_at, device_id, crc, payload FROM readings ORDER BY id DESC LIMIT 1").
		Scan(&r.ReceivedAt, &r.DeviceID, &r.CRC, &r.Payload)
	if errors.Is(err, sql.ErrNoRows) {
		return Reading{}, ErrNoReadings
	}
	if err != nil {
		return Reading{}, fmt.Errorf("latest reading: %w", err)
	}
	return r, nil
}

// Count returns the number of stored readings.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM readings").Scan(&n); err != nil {
		return 0, fmt.Errorf("count readings: %w", err)
	}
	return n, nil
}
