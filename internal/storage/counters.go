package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/user/intruscan/internal/model"
)

// Counter names kept by the URL classifier.
const (
	CounterRequestsScanned = "total_requests_scanned"
	CounterThreatsDetected = "total_threats_detected"
)

// CounterStorage handles named counters and URL check history.
type CounterStorage struct {
	db *DB
}

// NewCounterStorage creates a new counter storage handler.
func NewCounterStorage(db *DB) *CounterStorage {
	return &CounterStorage{db: db}
}

// Increment adds delta to a counter, creating it at zero first.
func (s *CounterStorage) Increment(name string, delta int64) (int64, error) {
	var value int64
	err := s.db.WithLock(func() error {
		query := `INSERT INTO counters (name, value) VALUES (?, ?)
				  ON CONFLICT(name) DO UPDATE SET value = counters.value + excluded.value`
		if _, err := s.db.Exec(s.db.Rebind(query), name, delta); err != nil {
			return err
		}
		return s.db.QueryRow(s.db.Rebind(`SELECT value FROM counters WHERE name = ?`), name).Scan(&value)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to increment counter %s: %w", name, err)
	}
	return value, nil
}

// Get returns a counter's value. Unknown counters read as zero.
func (s *CounterStorage) Get(name string) (int64, error) {
	var value int64
	err := s.db.QueryRow(s.db.Rebind(`SELECT value FROM counters WHERE name = ?`), name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get counter %s: %w", name, err)
	}
	return value, nil
}

// URLCounters returns both classifier counters.
func (s *CounterStorage) URLCounters() (model.URLCounters, error) {
	var c model.URLCounters
	var err error
	if c.RequestsScanned, err = s.Get(CounterRequestsScanned); err != nil {
		return c, err
	}
	if c.ThreatsDetected, err = s.Get(CounterThreatsDetected); err != nil {
		return c, err
	}
	return c, nil
}

// Reset sets the named counters back to zero.
func (s *CounterStorage) Reset(names ...string) error {
	return s.db.WithLock(func() error {
		for _, name := range names {
			query := `INSERT INTO counters (name, value) VALUES (?, 0)
					  ON CONFLICT(name) DO UPDATE SET value = 0`
			if _, err := s.db.Exec(s.db.Rebind(query), name); err != nil {
				return fmt.Errorf("failed to reset counter %s: %w", name, err)
			}
		}
		return nil
	})
}

// RecordCheck stores a URL classification.
func (s *CounterStorage) RecordCheck(check *model.URLCheck) error {
	if check.CheckedAt.IsZero() {
		check.CheckedAt = time.Now()
	}
	query := `INSERT INTO url_checks (url, detected, matched, threat_level, checked_at)
			  VALUES (?, ?, ?, ?, ?)`

	_, err := s.db.Exec(s.db.Rebind(query),
		check.URL, check.Detected, check.Matched, string(check.ThreatLevel), check.CheckedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert URL check: %w", err)
	}
	return nil
}

// LastCheck returns the most recent URL classification.
func (s *CounterStorage) LastCheck() (*model.URLCheck, error) {
	query := `SELECT url, detected, matched, threat_level, checked_at
			  FROM url_checks ORDER BY checked_at DESC, id DESC LIMIT 1`

	var (
		check   model.URLCheck
		matched sql.NullString
		level   sql.NullString
	)
	err := s.db.QueryRow(query).Scan(&check.URL, &check.Detected, &matched, &level, &check.CheckedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last URL check: %w", err)
	}
	check.Matched = matched.String
	check.ThreatLevel = model.ThreatLevel(level.String)

	return &check, nil
}

// History returns URL checks since a given time, newest first.
func (s *CounterStorage) History(since time.Time) ([]model.URLCheck, error) {
	query := `SELECT url, detected, matched, threat_level, checked_at
			  FROM url_checks WHERE checked_at >= ? ORDER BY checked_at DESC, id DESC`

	rows, err := s.db.Query(s.db.Rebind(query), since.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query URL checks: %w", err)
	}
	defer rows.Close()

	var checks []model.URLCheck
	for rows.Next() {
		var (
			check   model.URLCheck
			matched sql.NullString
			level   sql.NullString
		)
		if err := rows.Scan(&check.URL, &check.Detected, &matched, &level, &check.CheckedAt); err != nil {
			return nil, fmt.Errorf("failed to scan URL check: %w", err)
		}
		check.Matched = matched.String
		check.ThreatLevel = model.ThreatLevel(level.String)
		checks = append(checks, check)
	}

	return checks, rows.Err()
}
