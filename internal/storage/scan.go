package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/user/intruscan/internal/model"
)

// RecentRiskWindow is how many recent scans feed a user's risk level.
const RecentRiskWindow = 5

// ScanStorage handles scan record persistence.
type ScanStorage struct {
	db *DB
}

// NewScanStorage creates a new scan storage handler.
func NewScanStorage(db *DB) *ScanStorage {
	return &ScanStorage{db: db}
}

const scanColumns = `id, user_id, filename, upload_date, status, risk_level, results, ai_analysis`

// Save inserts or replaces a scan. A missing ID, upload date, status or
// risk level is filled in on the record.
func (s *ScanStorage) Save(rec *model.ScanRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.UploadDate.IsZero() {
		rec.UploadDate = time.Now()
	}
	rec.UploadDate = rec.UploadDate.UTC()
	if rec.Status == "" {
		rec.Status = model.StatusCompleted
	}
	if rec.RiskLevel == "" {
		rec.RiskLevel = model.RiskLevelFor(rec.Results.AnomalyRate)
	}

	results, err := json.Marshal(rec.Results)
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	analysis, err := encodeAnalysis(rec.AIAnalysis)
	if err != nil {
		return err
	}

	query := `INSERT INTO scans (id, user_id, filename, upload_date, status, risk_level,
			  total_records, anomalies_detected, normal_records, anomaly_rate, processing_time,
			  results, ai_analysis)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			  ON CONFLICT(id) DO UPDATE SET
			  user_id = excluded.user_id,
			  filename = excluded.filename,
			  upload_date = excluded.upload_date,
			  status = excluded.status,
			  risk_level = excluded.risk_level,
			  total_records = excluded.total_records,
			  anomalies_detected = excluded.anomalies_detected,
			  normal_records = excluded.normal_records,
			  anomaly_rate = excluded.anomaly_rate,
			  processing_time = excluded.processing_time,
			  results = excluded.results,
			  ai_analysis = excluded.ai_analysis`

	_, err = s.db.Exec(s.db.Rebind(query),
		rec.ID, rec.UserID, rec.Filename, rec.UploadDate, rec.Status, string(rec.RiskLevel),
		rec.Results.TotalRecords, rec.Results.AnomaliesDetected, rec.Results.NormalRecords,
		rec.Results.AnomalyRate, rec.Results.ProcessingTime,
		string(results), analysis)
	if err != nil {
		return fmt.Errorf("failed to save scan: %w", err)
	}

	return nil
}

// Get returns a scan by ID.
func (s *ScanStorage) Get(id string) (*model.ScanRecord, error) {
	query := `SELECT ` + scanColumns + ` FROM scans WHERE id = ?`

	rec, err := scanRecord(s.db.QueryRow(s.db.Rebind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("scan %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan: %w", err)
	}
	return rec, nil
}

// ListByUser returns a user's scans, newest first.
func (s *ScanStorage) ListByUser(userID string, limit int) ([]model.ScanRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `SELECT ` + scanColumns + ` FROM scans
			  WHERE user_id = ? ORDER BY upload_date DESC LIMIT ?`

	return s.list(query, userID, limit)
}

// ListMissingAnalysis returns completed scans without a narrative, oldest
// first.
func (s *ScanStorage) ListMissingAnalysis(limit int) ([]model.ScanRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `SELECT ` + scanColumns + ` FROM scans
			  WHERE ai_analysis IS NULL AND status = ?
			  ORDER BY upload_date ASC LIMIT ?`

	return s.list(query, model.StatusCompleted, limit)
}

func (s *ScanStorage) list(query string, args ...interface{}) ([]model.ScanRecord, error) {
	rows, err := s.db.Query(s.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query scans: %w", err)
	}
	defer rows.Close()

	var records []model.ScanRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		records = append(records, *rec)
	}

	return records, rows.Err()
}

// AttachAnalysis stores a generated narrative on a scan.
func (s *ScanStorage) AttachAnalysis(id string, analysis *model.AIAnalysis) error {
	encoded, err := encodeAnalysis(analysis)
	if err != nil {
		return err
	}

	result, err := s.db.Exec(s.db.Rebind(`UPDATE scans SET ai_analysis = ? WHERE id = ?`), encoded, id)
	if err != nil {
		return fmt.Errorf("failed to attach analysis: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("scan %s: %w", id, ErrNotFound)
	}

	return nil
}

// UpdateStatus changes a scan's processing status.
func (s *ScanStorage) UpdateStatus(id, status string) error {
	result, err := s.db.Exec(s.db.Rebind(`UPDATE scans SET status = ? WHERE id = ?`), status, id)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("scan %s: %w", id, ErrNotFound)
	}
	return nil
}

// Delete removes a user's scan.
func (s *ScanStorage) Delete(id, userID string) error {
	result, err := s.db.Exec(s.db.Rebind(`DELETE FROM scans WHERE id = ? AND user_id = ?`), id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete scan: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("scan %s: %w", id, ErrNotFound)
	}
	return nil
}

// UserStats aggregates a user's history. Risk comes from the average
// anomaly rate of the most recent scans.
func (s *ScanStorage) UserStats(userID string) (*model.UserStats, error) {
	stats := &model.UserStats{RiskLevel: model.RiskLow}

	query := `SELECT COUNT(*), COALESCE(SUM(anomalies_detected), 0), COALESCE(SUM(normal_records), 0)
			  FROM scans WHERE user_id = ?`
	err := s.db.QueryRow(s.db.Rebind(query), userID).Scan(
		&stats.TotalScans, &stats.AnomaliesDetected, &stats.NormalTraffic)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate scans: %w", err)
	}

	rows, err := s.db.Query(s.db.Rebind(`SELECT anomaly_rate FROM scans WHERE user_id = ?
			  ORDER BY upload_date DESC LIMIT ?`), userID, RecentRiskWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent scans: %w", err)
	}
	defer rows.Close()

	var sum float64
	n := 0
	for rows.Next() {
		var rate float64
		if err := rows.Scan(&rate); err != nil {
			return nil, fmt.Errorf("failed to scan rate: %w", err)
		}
		sum += rate
		n++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if n > 0 {
		stats.RiskLevel = model.RiskLevelFor(sum / float64(n))
	}

	return stats, nil
}

// Count returns the number of stored scans.
func (s *ScanStorage) Count() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM scans").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count scans: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*model.ScanRecord, error) {
	var (
		rec      model.ScanRecord
		risk     string
		results  string
		analysis sql.NullString
	)
	err := row.Scan(&rec.ID, &rec.UserID, &rec.Filename, &rec.UploadDate,
		&rec.Status, &risk, &results, &analysis)
	if err != nil {
		return nil, err
	}
	rec.RiskLevel = model.RiskLevel(risk)

	if err := json.Unmarshal([]byte(results), &rec.Results); err != nil {
		return nil, fmt.Errorf("failed to decode results for %s: %w", rec.ID, err)
	}
	if analysis.Valid && analysis.String != "" {
		var a model.AIAnalysis
		if err := json.Unmarshal([]byte(analysis.String), &a); err != nil {
			return nil, fmt.Errorf("failed to decode analysis for %s: %w", rec.ID, err)
		}
		rec.AIAnalysis = &a
	}

	return &rec, nil
}

func encodeAnalysis(a *model.AIAnalysis) (interface{}, error) {
	if a == nil {
		return nil, nil
	}
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("failed to encode analysis: %w", err)
	}
	return string(data), nil
}
