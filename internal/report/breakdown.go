package report

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/user/intruscan/internal/model"
)

// MaxBreakdownRows caps the attack breakdown table.
const MaxBreakdownRows = 10

// ChartEntry is one data point of a chart slot.
type ChartEntry struct {
	Key   string
	Label string
	Value int
	Color Color
}

// chartEntries returns the data behind a slot, sorted descending by
// value with ties broken by key.
func chartEntries(slot ChartSlot, s model.ScanSummary) []ChartEntry {
	switch slot {
	case SlotTraffic:
		normal := ChartEntry{Key: "normal", Label: "Normal Traffic", Value: s.NormalRecords, Color: colorCardGreen}
		anomalous := ChartEntry{Key: "anomalous", Label: "Anomalous Traffic", Value: s.AnomaliesDetected, Color: colorCardRed}
		if anomalous.Value > normal.Value {
			return []ChartEntry{anomalous, normal}
		}
		return []ChartEntry{normal, anomalous}

	case SlotAttackTypes:
		sorted := s.ClassDistribution.Attacks().Sorted()
		out := make([]ChartEntry, 0, len(sorted))
		for _, c := range sorted {
			info := model.LookupClass(c.Key)
			out = append(out, ChartEntry{Key: c.Key, Label: info.Label, Value: c.Count, Color: info.Color})
		}
		return out
	}
	return nil
}

// fallbackLines renders chart entries as "label: count (pct%)" using
// totalRecords as the denominator.
func fallbackLines(entries []ChartEntry, total int) []string {
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("%s: %s (%s)", sanitizeText(e.Label), formatCount(e.Value), formatPercent(e.Value, total)))
	}
	return lines
}

// breakdownRows returns the top entries of the distribution for the
// breakdown table.
func breakdownRows(dist model.ClassDistribution, total int) []BreakdownRow {
	sorted := dist.Sorted()
	if len(sorted) > MaxBreakdownRows {
		sorted = sorted[:MaxBreakdownRows]
	}

	rows := make([]BreakdownRow, 0, len(sorted))
	for _, c := range sorted {
		category := "Threat"
		if model.IsNormal(c.Key) {
			category = "Normal"
		}
		rows = append(rows, BreakdownRow{
			Key:        c.Key,
			Label:      sanitizeText(model.ClassLabel(c.Key)),
			Count:      c.Count,
			Percentage: formatPercent(c.Count, total),
			Category:   category,
		})
	}
	return rows
}

// formatPercent renders part of total with two decimals. A zero total
// renders 0.00%.
func formatPercent(part, total int) string {
	return fmt.Sprintf("%.2f%%", model.Percent(part, total))
}

// formatCount renders n with thousands separators.
func formatCount(n int) string {
	return message.NewPrinter(language.English).Sprintf("%d", n)
}
