// Package store persists servo calibrations and the session history in a
// SQLite file.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/cjeanneret/PongGo/internal/debug"
	"github.com/cjeanneret/PongGo/internal/hw/servo"
	"github.com/cjeanneret/PongGo/internal/link"
	"github.com/cjeanneret/PongGo/internal/logic/session"
)

const timestampLayout = "2006-01-02 15:04:05.000"

const createTablesSQL = `
CREATE TABLE IF NOT EXISTS calibration (
    axis TEXT PRIMARY KEY,
    min_deg INTEGER NOT NULL,
    mid_deg INTEGER NOT NULL,
    max_deg INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    started_at TEXT NOT NULL,
    played_ms INTEGER NOT NULL,
    reason TEXT NOT NULL,
    config_frame TEXT NOT NULL
);`

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and makes sure the tables exist.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	// One connection serializes the history writer and web readers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(createTablesSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables in %s: %w", path, err)
	}
	debug.Info("Database ready: %s", path)
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// LoadCalibration returns the stored calibration for axis. ok is false when
// nothing was saved yet.
func (s *Store) LoadCalibration(axis string) (cal servo.Calibration, ok bool, err error) {
	row := s.db.QueryRow("SELECT min_deg, mid_deg, max_deg FROM calibration WHERE axis = ?", axis)
	err = row.Scan(&cal.Min, &cal.Mid, &cal.Max)
	if errors.Is(err, sql.ErrNoRows) {
		return servo.Calibration{}, false, nil
	}
	if err != nil {
		return servo.Calibration{}, false, fmt.Errorf("load calibration %s: %w", axis, err)
	}
	return cal, true, nil
}

// SaveCalibration stores cal for axis, replacing any previous value.
func (s *Store) SaveCalibration(axis string, cal servo.Calibration) error {
	_, err := s.db.Exec(`INSERT INTO calibration(axis, min_deg, mid_deg, max_deg) VALUES(?, ?, ?, ?)
ON CONFLICT(axis) DO UPDATE SET min_deg = excluded.min_deg, mid_deg = excluded.mid_deg, max_deg = excluded.max_deg`,
		axis, cal.Min, cal.Mid, cal.Max)
	if err != nil {
		return fmt.Errorf("save calibration %s: %w", axis, err)
	}
	debug.Verbose("Calibration %s saved: %d/%d/%d", axis, cal.Min, cal.Mid, cal.Max)
	return nil
}

// SaveRecord appends a finished session. The drill is stored as a config frame.
func (s *Store) SaveRecord(rec session.Record) error {
	_, err := s.db.Exec("INSERT INTO sessions(id, started_at, played_ms, reason, config_frame) VALUES(?, ?, ?, ?, ?)",
		rec.ID.String(),
		rec.StartedAt.UTC().Format(timestampLayout),
		rec.Played.Milliseconds(),
		string(rec.Reason),
		link.EncodeConfigFrame(rec.Config))
	if err != nil {
		return fmt.Errorf("save session %s: %w", rec.ID, err)
	}
	return nil
}

// Recent returns up to n sessions, newest first.
func (s *Store) Recent(n int) ([]session.Record, error) {
	rows, err := s.db.Query("SELECT id, started_at, played_ms, reason, config_frame FROM sessions ORDER BY started_at DESC LIMIT ?", n)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var records []session.Record
	for rows.Next() {
		var (
			id, started, reason, frame string
			playedMs                   int64
		)
		if err := rows.Scan(&id, &started, &playedMs, &reason, &frame); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		rec := session.Record{
			Played: time.Duration(playedMs) * time.Millisecond,
			Reason: session.StopReason(reason),
		}
		if rec.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("session id %q: %w", id, err)
		}
		if rec.StartedAt, err = time.Parse(timestampLayout, started); err != nil {
			return nil, fmt.Errorf("session %s start: %w", id, err)
		}
		if rec.Config, err = link.ParseConfigFrame(frame); err != nil {
			return nil, fmt.Errorf("session %s config: %w", id, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// RunHistoryWriter saves every record received on records until ctx is
// cancelled or records is closed. Records still buffered at cancellation are
// written before returning.
func (s *Store) RunHistoryWriter(ctx context.Context, records <-chan session.Record) error {
	debug.Verbose("History writer started")
	write := func(rec session.Record) {
		if err := s.SaveRecord(rec); err != nil {
			debug.Error(err)
			return
		}
		debug.Verbose("Session %s saved (%s, %s)", rec.ID, rec.Played, rec.Reason)
	}

	for {
		select {
		case rec, ok := <-records:
			if !ok {
				return nil
			}
			write(rec)
		case <-ctx.Done():
			for len(records) > 0 {
				write(<-records)
			}
			debug.Verbose("History writer stopped")
			return nil
		}
	}
}
