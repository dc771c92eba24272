// Package model defines core data structures for intruscan.
package model

import (
	"encoding/json"
	"time"
)

// Scan status values as stored with each record.
const (
	StatusCompleted  = "completed"
	StatusProcessing = "processing"
	StatusFailed     = "failed"
)

// AnomalyScoreSummary summarises per-record anomaly scores.
type AnomalyScoreSummary struct {
	Min   float64 `json:"min" yaml:"min"`
	Max   float64 `json:"max" yaml:"max"`
	Avg   float64 `json:"avg" yaml:"avg"`
	Count int     `json:"count" yaml:"count"`
}

// ScanResults is the result block returned by the inference service and
// persisted with each scan.
type ScanResults struct {
	TotalRecords      int                  `json:"total_records" yaml:"total_records"`
	AnomaliesDetected int                  `json:"anomalies_detected" yaml:"anomalies_detected"`
	NormalRecords     int                  `json:"normal_records" yaml:"normal_records"`
	AnomalyRate       float64              `json:"anomaly_rate" yaml:"anomaly_rate"`
	ProcessingTime    float64              `json:"processing_time" yaml:"processing_time"`
	AnomalyScores     *AnomalyScoreSummary `json:"anomaly_scores_summary,omitempty" yaml:"anomaly_scores_summary,omitempty"`
	ClassDistribution ClassDistribution    `json:"class_distribution,omitempty" yaml:"class_distribution,omitempty"`
}

// nestedResults is the inner "results" object some inference versions
// use for the score summary and class distribution.
type nestedResults struct {
	AnomalyScores     *AnomalyScoreSummary `json:"anomaly_scores_summary,omitempty"`
	ClassDistribution ClassDistribution    `json:"class_distribution,omitempty"`
}

// UnmarshalJSON accepts both the flat and the nested response shapes.
func (r *ScanResults) UnmarshalJSON(data []byte) error {
	type plain ScanResults
	var raw struct {
		plain
		Nested        *nestedResults `json:"results,omitempty"`
		RawScoreArray []float64      `json:"anomaly_scores,omitempty"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = ScanResults(raw.plain)
	if raw.Nested != nil {
		if r.AnomalyScores == nil {
			r.AnomalyScores = raw.Nested.AnomalyScores
		}
		if r.ClassDistribution == nil {
			r.ClassDistribution = raw.Nested.ClassDistribution
		}
	}
	if r.AnomalyScores != nil && r.AnomalyScores.Count == 0 && len(raw.RawScoreArray) > 0 {
		r.AnomalyScores.Count = len(raw.RawScoreArray)
	}
	if r.AnomalyScores == nil && len(raw.RawScoreArray) > 0 {
		r.AnomalyScores = SummarizeScores(raw.RawScoreArray)
	}
	return nil
}

// SummarizeScores reduces raw scores to min/max/avg/count.
func SummarizeScores(scores []float64) *AnomalyScoreSummary {
	if len(scores) == 0 {
		return nil
	}
	s := &AnomalyScoreSummary{Min: scores[0], Max: scores[0], Count: len(scores)}
	var sum float64
	for _, v := range scores {
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
		sum += v
	}
	s.Avg = sum / float64(len(scores))
	return s
}

// AIAnalysis is the narrative produced by the text-generation service.
type AIAnalysis struct {
	Analysis    string    `json:"analysis" yaml:"analysis"`
	Prompt      string    `json:"prompt" yaml:"prompt"`
	GeneratedAt time.Time `json:"generatedAt" yaml:"generatedAt"`
}

// ScanRecord is a stored scan as exchanged with the scan store.
type ScanRecord struct {
	ID         string      `json:"id" yaml:"id"`
	UserID     string      `json:"userId" yaml:"userId"`
	Filename   string      `json:"filename" yaml:"filename"`
	UploadDate time.Time   `json:"uploadDate" yaml:"uploadDate"`
	Status     string      `json:"status" yaml:"status"`
	RiskLevel  RiskLevel   `json:"riskLevel" yaml:"riskLevel"`
	Results    ScanResults `json:"results" yaml:"results"`
	AIAnalysis *AIAnalysis `json:"aiAnalysis,omitempty" yaml:"aiAnalysis,omitempty"`
}

// Summary returns the immutable report input derived from the record.
func (r *ScanRecord) Summary() ScanSummary {
	var scores *AnomalyScoreSummary
	if r.Results.AnomalyScores != nil {
		s := *r.Results.AnomalyScores
		scores = &s
	}
	return ScanSummary{
		Filename:              r.Filename,
		UploadDate:            r.UploadDate,
		TotalRecords:          r.Results.TotalRecords,
		AnomaliesDetected:     r.Results.AnomaliesDetected,
		NormalRecords:         r.Results.NormalRecords,
		AnomalyRatePercent:    r.Results.AnomalyRate,
		ProcessingTimeSeconds: r.Results.ProcessingTime,
		ClassDistribution:     r.Results.ClassDistribution.Clone(),
		AnomalyScores:         scores,
	}
}

// ScanSummary is the read-only view of a completed analysis that reports
// are built from.
type ScanSummary struct {
	Filename              string
	UploadDate            time.Time
	TotalRecords          int
	AnomaliesDetected     int
	NormalRecords         int
	AnomalyRatePercent    float64
	ProcessingTimeSeconds float64
	ClassDistribution     ClassDistribution
	AnomalyScores         *AnomalyScoreSummary
}

// NewScanSummary derives normal records and the anomaly rate from the
// two counts. A zero total yields a zero rate.
func NewScanSummary(filename string, uploaded time.Time, total, anomalies int, processing float64) ScanSummary {
	return ScanSummary{
		Filename:              filename,
		UploadDate:            uploaded,
		TotalRecords:          total,
		AnomaliesDetected:     anomalies,
		NormalRecords:         total - anomalies,
		AnomalyRatePercent:    Percent(anomalies, total),
		ProcessingTimeSeconds: processing,
	}
}

// RiskLevel returns the tier for the summary's anomaly rate.
func (s ScanSummary) RiskLevel() RiskLevel {
	return RiskLevelFor(s.AnomalyRatePercent)
}

// Percent returns part/total*100, or 0 when total is not positive.
func Percent(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// UserStats aggregates a user's scan history for dashboards.
type UserStats struct {
	TotalScans        int       `json:"totalScans"`
	AnomaliesDetected int       `json:"anomaliesDetected"`
	NormalTraffic     int       `json:"normalTraffic"`
	RiskLevel         RiskLevel `json:"riskLevel"`
}

// URLCheck is the outcome of classifying one URL.
type URLCheck struct {
	URL         string      `json:"url"`
	Detected    bool        `json:"detected"`
	Matched     string      `json:"matched,omitempty"`
	ThreatLevel ThreatLevel `json:"threatLevel"`
	CheckedAt   time.Time   `json:"checkedAt"`
}

// ThreatLevel grades a URL keyword match.
type ThreatLevel string

const (
	ThreatLow    ThreatLevel = "low"
	ThreatMedium ThreatLevel = "medium"
	ThreatHigh   ThreatLevel = "high"
)

// URLCounters are the process-wide classifier totals.
type URLCounters struct {
	RequestsScanned int64 `json:"totalRequestsScanned"`
	ThreatsDetected int64 `json:"totalThreatsDetected"`
}

// ServiceHealth is the last observed state of an external collaborator.
type ServiceHealth struct {
	Name      string        `json:"name"`
	Healthy   bool          `json:"healthy"`
	Detail    string        `json:"detail,omitempty"`
	Latency   time.Duration `json:"latency"`
	CheckedAt time.Time     `json:"checkedAt"`
}
