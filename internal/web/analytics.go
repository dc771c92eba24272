package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/user/intruscan/internal/model"
	"github.com/user/intruscan/internal/report"
)

// historyLimit is how many scans the analytics endpoints look back over.
const historyLimit = 50

// TrendPoint is one scan on the anomaly rate timeline.
type TrendPoint struct {
	Timestamp   time.Time       `json:"timestamp"`
	ScanID      string          `json:"scan_id"`
	Filename    string          `json:"filename"`
	AnomalyRate float64         `json:"anomaly_rate"`
	Anomalies   int             `json:"anomalies"`
	RiskLevel   model.RiskLevel `json:"risk_level"`
}

// ClassTotal is one category summed across the caller's scans.
type ClassTotal struct {
	Key   string    `json:"key"`
	Label string    `json:"label"`
	Count int       `json:"count"`
	Color model.RGB `json:"color"`
}

func (h *Handlers) historyData(w http.ResponseWriter, r *http.Request) (*report.HistoryData, bool) {
	user, ok := h.user(w, r)
	if !ok {
		return nil, false
	}

	limit := historyLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	data, err := h.history.Generate(user, limit)
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return nil, false
	}
	return data, true
}

// APIGetTrend returns anomaly rates oldest first.
func (h *Handlers) APIGetTrend(w http.ResponseWriter, r *http.Request) {
	data, ok := h.historyData(w, r)
	if !ok {
		return
	}

	points := make([]TrendPoint, 0, len(data.Scans))
	for i := len(data.Scans) - 1; i >= 0; i-- {
		s := data.Scans[i]
		points = append(points, TrendPoint{
			Timestamp:   s.UploadDate,
			ScanID:      s.ID,
			Filename:    s.Filename,
			AnomalyRate: s.Results.AnomalyRate,
			Anomalies:   s.Results.AnomaliesDetected,
			RiskLevel:   s.RiskLevel,
		})
	}

	writeJSON(w, map[string]interface{}{
		"points":       points,
		"risk_changes": data.RiskChanges,
	})
}

// APIGetClassTotals returns category counts summed over recent scans.
func (h *Handlers) APIGetClassTotals(w http.ResponseWriter, r *http.Request) {
	data, ok := h.historyData(w, r)
	if !ok {
		return
	}

	totals := make([]ClassTotal, 0, len(data.ClassTotals))
	for _, c := range data.ClassTotals.Sorted() {
		info := model.LookupClass(c.Key)
		totals = append(totals, ClassTotal{Key: c.Key, Label: info.Label, Count: c.Count, Color: info.Color})
	}

	writeJSON(w, totals)
}

// APIDownloadHistory returns the caller's history report as Markdown.
func (h *Handlers) APIDownloadHistory(w http.ResponseWriter, r *http.Request) {
	data, ok := h.historyData(w, r)
	if !ok {
		return
	}

	content := report.FormatHistoryMarkdown(data, h.config.ProductName)

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=intruscan_history.md")
	w.Write([]byte(content))
}
