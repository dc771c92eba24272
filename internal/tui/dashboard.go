package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/user/intruscan/internal/model"
)

// maxScans is how many recent scans the dashboard lists.
const maxScans = 10

// DashboardData holds data for the dashboard view.
type DashboardData struct {
	Product       string
	User          string
	Stats         model.UserStats
	Scans         []model.ScanRecord
	URLCounters   model.URLCounters
	LastURLCheck  *model.URLCheck
	DaemonRunning bool
	Ingested      int
	Failed        int
	Health        []model.ServiceHealth
}

// Dashboard is the main dashboard view.
type Dashboard struct {
	data   *DashboardData
	width  int
	height int
}

// NewDashboard creates a new dashboard.
func NewDashboard(msg dataMsg, width, height int) *Dashboard {
	return &Dashboard{
		data:   msg.Data,
		width:  width,
		height: height,
	}
}

// SetSize updates the dashboard size.
func (d *Dashboard) SetSize(width, height int) {
	d.width = width
	d.height = height
}

// View renders the dashboard.
func (d *Dashboard) View() string {
	var sb strings.Builder

	product := d.data.Product
	if product == "" {
		product = "IntruScan"
	}
	header := HeaderStyle.Width(d.width).Render(product + " Dashboard · " + d.data.User)
	sb.WriteString(header)
	sb.WriteString("\n\n")

	sb.WriteString(d.renderStatsSection())
	sb.WriteString("\n")

	sb.WriteString(d.renderScansSection())
	sb.WriteString("\n")

	sb.WriteString(d.renderServicesSection())
	sb.WriteString("\n")

	help := HelpStyle.Render("Press 'r' to refresh • 'q' to quit")
	sb.WriteString(help)

	return sb.String()
}

func (d *Dashboard) sectionWidth() int {
	w := d.width - 4
	if w < 60 {
		w = 60
	}
	return w
}

func (d *Dashboard) renderStatsSection() string {
	s := d.data.Stats
	total := s.AnomaliesDetected + s.NormalTraffic

	content := fmt.Sprintf(
		"%s %s\n%s %s\n%s %s %s\n%s %s",
		LabelStyle.Render("Scans:"),
		ValueStyle.Render(fmt.Sprintf("%d", s.TotalScans)),
		LabelStyle.Render("Normal:"),
		ValueStyle.Render(fmt.Sprintf("%d", s.NormalTraffic)),
		LabelStyle.Render("Anomalies:"),
		ValueStyle.Render(fmt.Sprintf("%d", s.AnomaliesDetected)),
		RenderBar(s.AnomaliesDetected, total, 30),
		LabelStyle.Render("Risk:"),
		RenderRisk(s.RiskLevel),
	)

	return SectionStyle.Width(d.sectionWidth()).Render(
		SectionTitleStyle.Render("Overview") + "\n" + content)
}

func (d *Dashboard) renderScansSection() string {
	title := SectionTitleStyle.Render("Recent Scans")
	if len(d.data.Scans) == 0 {
		return SectionStyle.Width(d.sectionWidth()).Render(
			title + "\n" + DimStyle.Render("No scans recorded yet"))
	}

	var rows []string
	rows = append(rows, fmt.Sprintf("%-16s %-24s %9s %9s %8s  %s", "Uploaded", "File", "Records", "Anomalies", "Rate", "Risk"))
	rows = append(rows, strings.Repeat("─", 78))

	n := len(d.data.Scans)
	if n > maxScans {
		n = maxScans
	}
	for _, s := range d.data.Scans[:n] {
		name := s.Filename
		if len(name) > 24 {
			name = name[:21] + "..."
		}
		rows = append(rows, fmt.Sprintf("%-16s %-24s %9d %9d %7.2f%%  %s",
			s.UploadDate.Local().Format("2006-01-02 15:04"), name,
			s.Results.TotalRecords, s.Results.AnomaliesDetected, s.Results.AnomalyRate,
			RenderRisk(s.RiskLevel)))
	}

	return SectionStyle.Width(d.sectionWidth()).Render(title + "\n" + strings.Join(rows, "\n"))
}

func (d *Dashboard) renderServicesSection() string {
	var lines []string

	lines = append(lines, fmt.Sprintf("%s %s", LabelStyle.Render("Daemon:"),
		RenderStatus(d.data.DaemonRunning, "running", "stopped")))
	if d.data.DaemonRunning {
		lines = append(lines, fmt.Sprintf("%s %s", LabelStyle.Render("Ingested:"),
			ValueStyle.Render(fmt.Sprintf("%d ok, %d failed", d.data.Ingested, d.data.Failed))))
	}
	for _, h := range d.data.Health {
		detail := h.Detail
		if detail == "" {
			detail = "unhealthy"
		}
		lines = append(lines, fmt.Sprintf("%s %s", LabelStyle.Render(h.Name+":"),
			RenderStatus(h.Healthy, fmt.Sprintf("healthy (%s)", h.Latency.Round(time.Millisecond)), detail)))
	}

	c := d.data.URLCounters
	lines = append(lines, fmt.Sprintf("%s %s", LabelStyle.Render("URL checks:"),
		ValueStyle.Render(fmt.Sprintf("%d scanned, %d threats", c.RequestsScanned, c.ThreatsDetected))))
	if last := d.data.LastURLCheck; last != nil {
		verdict := SuccessStyle.Render("clean")
		if last.Detected {
			verdict = ErrorStyle.Render(fmt.Sprintf("%s (%s)", last.Matched, strings.ToUpper(string(last.ThreatLevel))))
		}
		lines = append(lines, fmt.Sprintf("%s %s %s", LabelStyle.Render("Last URL:"), last.URL, verdict))
	}

	return SectionStyle.Width(d.sectionWidth()).Render(
		SectionTitleStyle.Render("Services") + "\n" + strings.Join(lines, "\n"))
}
