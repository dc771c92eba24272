package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/user/intruscan/internal/model"
)

// HistorySource is the part of the scan store a history report reads.
type HistorySource interface {
	ListByUser(userID string, limit int) ([]model.ScanRecord, error)
	UserStats(userID string) (*model.UserStats, error)
}

// HistoryGenerator builds per-user scan history reports.
type HistoryGenerator struct {
	scans HistorySource
	now   func() time.Time
}

// NewHistoryGenerator creates a new history report generator.
func NewHistoryGenerator(scans HistorySource) *HistoryGenerator {
	return &HistoryGenerator{scans: scans, now: time.Now}
}

// HistoryData holds all data for a history report.
type HistoryData struct {
	GeneratedAt time.Time
	UserID      string
	Stats       model.UserStats

	// Scans are newest first.
	Scans       []model.ScanRecord
	ClassTotals model.ClassDistribution
	RiskChanges []RiskChange
}

// RiskChange marks a scan whose risk level differs from the one before it.
type RiskChange struct {
	Filename  string
	OldLevel  model.RiskLevel
	NewLevel  model.RiskLevel
	Timestamp time.Time
}

// Generate collects the last limit scans of a user.
func (g *HistoryGenerator) Generate(userID string, limit int) (*HistoryData, error) {
	stats, err := g.scans.UserStats(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user stats: %w", err)
	}

	scans, err := g.scans.ListByUser(userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}

	data := &HistoryData{
		GeneratedAt: g.now(),
		UserID:      userID,
		Stats:       *stats,
		Scans:       scans,
		ClassTotals: model.ClassDistribution{},
	}
	for _, s := range scans {
		for k, v := range s.Results.ClassDistribution {
			data.ClassTotals[k] += v
		}
	}
	data.RiskChanges = detectRiskChanges(scans)

	return data, nil
}

func detectRiskChanges(records []model.ScanRecord) []RiskChange {
	var changes []RiskChange

	for i := 0; i < len(records)-1; i++ {
		curr, prev := records[i], records[i+1]
		if curr.RiskLevel != prev.RiskLevel {
			changes = append(changes, RiskChange{
				Filename:  curr.Filename,
				OldLevel:  prev.RiskLevel,
				NewLevel:  curr.RiskLevel,
				Timestamp: curr.UploadDate,
			})
		}
	}

	return changes
}

// FormatHistoryMarkdown renders a history report as Markdown.
func FormatHistoryMarkdown(data *HistoryData, productName string) string {
	if productName == "" {
		productName = "IntruScan"
	}
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# %s Scan History\n\n", productName))
	sb.WriteString(fmt.Sprintf("**User:** %s  \n", data.UserID))
	sb.WriteString(fmt.Sprintf("**Generated:** %s\n\n", data.GeneratedAt.Format("2006-01-02 15:04:05")))

	sb.WriteString("## Overview\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Scans | %s |\n", formatCount(data.Stats.TotalScans)))
	sb.WriteString(fmt.Sprintf("| Anomalies Detected | %s |\n", formatCount(data.Stats.AnomaliesDetected)))
	sb.WriteString(fmt.Sprintf("| Normal Traffic | %s |\n", formatCount(data.Stats.NormalTraffic)))
	sb.WriteString(fmt.Sprintf("| Current Risk | %s |\n", data.Stats.RiskLevel))
	sb.WriteString("\n")

	if len(data.Scans) == 0 {
		sb.WriteString("No scans recorded.\n")
		return sb.String()
	}

	sb.WriteString("## Recent Scans\n\n")
	sb.WriteString("| Uploaded | File | Records | Anomalies | Rate | Risk |\n")
	sb.WriteString("|----------|------|---------|-----------|------|------|\n")
	for _, s := range data.Scans {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %.2f%% | %s |\n",
			s.UploadDate.Format("2006-01-02 15:04"), s.Filename,
			formatCount(s.Results.TotalRecords), formatCount(s.Results.AnomaliesDetected),
			s.Results.AnomalyRate, s.RiskLevel))
	}
	sb.WriteString("\n")

	if attacks := data.ClassTotals.Attacks(); len(attacks) > 0 {
		sb.WriteString("## Attack Types Across Scans\n\n")
		var entries []ChartEntry
		for _, c := range attacks.Sorted() {
			entries = append(entries, ChartEntry{Key: c.Key, Label: model.ClassLabel(c.Key), Value: c.Count})
		}
		sb.WriteString(mermaidPie("Attack Types", entries))
		sb.WriteString("\n")
	}

	if len(data.RiskChanges) > 0 {
		sb.WriteString("## Risk Level Changes\n\n")
		sb.WriteString(mermaidRiskTimeline(data.RiskChanges))
		sb.WriteString("\n")
	}

	return sb.String()
}
