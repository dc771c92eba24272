// Package storage provides SQL persistence for intruscan scans and counters.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Supported drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// DB wraps the database connection and its dialect.
type DB struct {
	*sql.DB
	driver string
	mu     sync.RWMutex
}

var (
	instance *DB
	once     sync.Once
)

// GetDB returns the singleton database instance.
func GetDB() *DB {
	return instance
}

// Initialize opens the process-wide database once.
func Initialize(driver, dsn string) (*DB, error) {
	var initErr error
	once.Do(func() {
		instance, initErr = Open(driver, dsn)
	})
	if instance == nil && initErr == nil {
		initErr = errors.New("database initialization failed earlier")
	}
	return instance, initErr
}

// Open connects to a database and creates the schema.
func Open(driver, dsn string) (*DB, error) {
	source := dsn
	switch driver {
	case DriverSQLite:
		if !strings.Contains(source, "?") {
			source += "?_journal=WAL&_busy_timeout=5000"
		}
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	conn, err := sql.Open(driver, source)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver == DriverSQLite {
		conn.SetMaxOpenConns(1) // SQLite only supports one writer
		conn.SetMaxIdleConns(1)
	}

	db := &DB{DB: conn, driver: driver}
	if err := db.createTables(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return db, nil
}

// Driver returns the dialect in use.
func (db *DB) Driver() string {
	return db.driver
}

// Rebind rewrites ? placeholders for the active dialect.
func (db *DB) Rebind(query string) string {
	if db.driver != DriverPostgres {
		return query
	}

	var sb strings.Builder
	sb.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func (db *DB) createTables() error {
	timestamp, real, serial := "DATETIME", "REAL", "INTEGER PRIMARY KEY AUTOINCREMENT"
	if db.driver == DriverPostgres {
		timestamp, real, serial = "TIMESTAMPTZ", "DOUBLE PRECISION", "BIGSERIAL PRIMARY KEY"
	}

	tables := []string{
		`CREATE TABLE IF NOT EXISTS scans (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			filename TEXT NOT NULL,
			upload_date ` + timestamp + ` NOT NULL,
			status TEXT NOT NULL DEFAULT 'completed',
			risk_level TEXT NOT NULL DEFAULT 'Low',
			total_records INTEGER NOT NULL DEFAULT 0,
			anomalies_detected INTEGER NOT NULL DEFAULT 0,
			normal_records INTEGER NOT NULL DEFAULT 0,
			anomaly_rate ` + real + ` NOT NULL DEFAULT 0,
			processing_time ` + real + ` NOT NULL DEFAULT 0,
			results TEXT NOT NULL,
			ai_analysis TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scans_user_date ON scans(user_id, upload_date)`,
		`CREATE INDEX IF NOT EXISTS idx_scans_status ON scans(status)`,

		`CREATE TABLE IF NOT EXISTS counters (
			name TEXT PRIMARY KEY,
			value BIGINT NOT NULL DEFAULT 0
		)`,

		`CREATE TABLE IF NOT EXISTS url_checks (
			id ` + serial + `,
			url TEXT NOT NULL,
			detected BOOLEAN NOT NULL,
			matched TEXT,
			threat_level TEXT,
			checked_at ` + timestamp + ` NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_url_checks_checked_at ON url_checks(checked_at)`,
	}

	for _, table := range tables {
		if _, err := db.Exec(table); err != nil {
			return fmt.Errorf("failed to execute: %s: %w", table, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.DB.Close()
}

// WithLock executes a function with write lock.
func (db *DB) WithLock(fn func() error) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return fn()
}

// WithRLock executes a function with read lock.
func (db *DB) WithRLock(fn func() error) error {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return fn()
}
