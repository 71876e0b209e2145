package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/moritzmair/water-usage-tracker/internal/models"
)

// ErrNotFound is returned when a delete targets an id that does not exist.
var ErrNotFound = errors.New("not found")

// Store persists meter readings in SQLite. Timestamps are stored in UTC and
// returned in the configured location.
type Store struct {
	db  *sql.DB
	loc *time.Location
}

func New(db *sql.DB, loc *time.Location) *Store {
	return &Store{db: db, loc: loc}
}

// InsertReading appends a reading stamped with the current time and returns
// it with its assigned id.
func (s *Store) InsertReading(value float64, automatic bool) (*models.Reading, error) {
	now := time.Now().UTC()
	res, err := s.db.Exec(`
		INSERT INTO readings (value, recorded_at, automatic)
		VALUES (?, ?, ?)
	`, value, now, automatic)
	if err != nil {
		return nil, fmt.Errorf("insert reading: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading id: %w", err)
	}

	return &models.Reading{
		ID:         id,
		Value:      value,
		RecordedAt: now.In(s.loc),
		Automatic:  automatic,
		CreatedAt:  now.In(s.loc),
	}, nil
}

// ListReadings returns every stored reading. No ordering is guaranteed;
// callers sort for their own needs.
func (s *Store) ListReadings() ([]models.Reading, error) {
	rows, err := s.db.Query(`
		SELECT id, value, recorded_at, automatic, created_at
		FROM readings
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var readings []models.Reading
	for rows.Next() {
		var r models.Reading
		if err := rows.Scan(&r.ID, &r.Value, &r.RecordedAt, &r.Automatic, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.RecordedAt = r.RecordedAt.In(s.loc)
		r.CreatedAt = r.CreatedAt.In(s.loc)
		readings = append(readings, r)
	}
	return readings, rows.Err()
}

// DeleteReading removes a reading by id. Deleting an unknown id is an error
// so the caller can report it instead of silently confirming.
func (s *Store) DeleteReading(id int64) error {
	res, err := s.db.Exec(`DELETE FROM readings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete reading %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("reading %d: %w", id, ErrNotFound)
	}
	return nil
}

func (s *Store) CountReadings() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM readings`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// LatestReading returns the most recent reading, or nil when none exist.
func (s *Store) LatestReading() (*models.Reading, error) {
	row := s.db.QueryRow(`
		SELECT id, value, recorded_at, automatic, created_at
		FROM readings
		ORDER BY recorded_at DESC
		LIMIT 1
	`)

	var r models.Reading
	err := row.Scan(&r.ID, &r.Value, &r.RecordedAt, &r.Automatic, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.RecordedAt = r.RecordedAt.In(s.loc)
	r.CreatedAt = r.CreatedAt.In(s.loc)
	return &r, nil
}
