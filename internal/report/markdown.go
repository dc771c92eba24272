package report

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders a report as Markdown. Percentages use
// totalRecords as the denominator, matching the PDF layout.
func RenderMarkdown(in Input, productName string) string {
	s := in.Summary
	generated := in.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}
	if productName == "" {
		productName = "IntruScan"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# %s Security Analysis Report\n\n", productName))
	sb.WriteString(fmt.Sprintf("**Generated:** %s  \n", generated.Format("2006-01-02 15:04:05")))
	sb.WriteString(fmt.Sprintf("**File:** %s\n\n", s.Filename))

	sb.WriteString("## Executive Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Risk Level | %s |\n", s.RiskLevel()))
	sb.WriteString(fmt.Sprintf("| Total Records | %s |\n", formatCount(s.TotalRecords)))
	sb.WriteString(fmt.Sprintf("| Anomalies Detected | %s |\n", formatCount(s.AnomaliesDetected)))
	sb.WriteString(fmt.Sprintf("| Normal Records | %s |\n", formatCount(s.NormalRecords)))
	sb.WriteString(fmt.Sprintf("| Anomaly Rate | %.2f%% |\n", s.AnomalyRatePercent))
	sb.WriteString(fmt.Sprintf("| Processing Time | %.2fs |\n", s.ProcessingTimeSeconds))
	if !s.UploadDate.IsZero() {
		sb.WriteString(fmt.Sprintf("| Uploaded | %s |\n", s.UploadDate.Format("2006-01-02 15:04")))
	}
	sb.WriteString("\n")

	if sc := s.AnomalyScores; sc != nil {
		sb.WriteString("### Anomaly Scores\n\n")
		sb.WriteString(fmt.Sprintf("- Min: %.4f\n- Avg: %.4f\n- Max: %.4f\n- Samples: %d\n\n", sc.Min, sc.Avg, sc.Max, sc.Count))
	}

	traffic := chartEntries(SlotTraffic, s)
	sb.WriteString("## Traffic Distribution\n\n")
	for _, line := range fallbackLines(traffic, s.TotalRecords) {
		sb.WriteString("- " + line + "\n")
	}
	sb.WriteString("\n")
	if s.TotalRecords > 0 {
		sb.WriteString(mermaidPie(SlotTraffic.Title(), traffic))
		sb.WriteString("\n")
	}

	if len(s.ClassDistribution) > 0 {
		sb.WriteString("## Detailed Attack Types Breakdown\n\n")
		sb.WriteString("| Attack Type | Count | Percentage | Category |\n")
		sb.WriteString("|-------------|-------|------------|----------|\n")
		for _, row := range breakdownRows(s.ClassDistribution, s.TotalRecords) {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
				row.Label, formatCount(row.Count), row.Percentage, row.Category))
		}
		sb.WriteString("\n")
	}

	if strings.TrimSpace(in.Narrative) != "" {
		sb.WriteString("## AI Security Analysis & Recommendations\n\n")
		sb.WriteString(strings.TrimSpace(in.Narrative))
		sb.WriteString("\n\n")
	}

	sb.WriteString("---\n")
	sb.WriteString(fmt.Sprintf("*Generated by %s*\n", productName))

	return sb.String()
}

// FileName returns the download name for a report generated at t.
func FileName(productName string, t time.Time, format Format) string {
	if productName == "" {
		productName = "IntruScan"
	}
	name := strings.ReplaceAll(sanitizeText(productName), " ", "-")
	return fmt.Sprintf("%s-Professional-Report-%s.%s", name, t.UTC().Format("2006-01-02T15-04-05"), format.Ext())
}

// Format selects the export encoding.
type Format string

const (
	FormatPDF      Format = "pdf"
	FormatMarkdown Format = "markdown"
)

// ParseFormat accepts pdf, markdown or md.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "pdf":
		return FormatPDF, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported report format %q", s)
	}
}

// Ext returns the file extension without the dot.
func (f Format) Ext() string {
	if f == FormatMarkdown {
		return "md"
	}
	return "pdf"
}

// ContentType returns the MIME type of the encoding.
func (f Format) ContentType() string {
	if f == FormatMarkdown {
		return "text/markdown; charset=utf-8"
	}
	return "application/pdf"
}
