package report

import (
	"strings"
	"testing"
	"time"

	"github.com/user/intruscan/internal/model"
)

type historySource struct {
	scans []model.ScanRecord
	stats model.UserStats
}

func (h historySource) ListByUser(_ string, limit int) ([]model.ScanRecord, error) {
	if limit < len(h.scans) {
		return h.scans[:limit], nil
	}
	return h.scans, nil
}

func (h historySource) UserStats(string) (*model.UserStats, error) {
	return &h.stats, nil
}

func TestHistoryGenerator(t *testing.T) {
	src := historySource{
		stats: model.UserStats{TotalScans: 3, AnomaliesDetected: 60, NormalTraffic: 240, RiskLevel: model.RiskMedium},
		scans: []model.ScanRecord{
			{Filename: "c.csv", UploadDate: testTime.Add(2 * time.Hour), RiskLevel: model.RiskHigh,
				Results: model.ScanResults{TotalRecords: 100, AnomaliesDetected: 40, AnomalyRate: 40,
					ClassDistribution: model.ClassDistribution{"class_0": 60, "class_1": 40}}},
			{Filename: "b.csv", UploadDate: testTime.Add(time.Hour), RiskLevel: model.RiskLow,
				Results: model.ScanResults{TotalRecords: 100, AnomaliesDetected: 5, AnomalyRate: 5,
					ClassDistribution: model.ClassDistribution{"class_0": 95, "class_1": 5}}},
			{Filename: "a.csv", UploadDate: testTime, RiskLevel: model.RiskLow,
				Results: model.ScanResults{TotalRecords: 100, AnomaliesDetected: 15, AnomalyRate: 15,
					ClassDistribution: model.ClassDistribution{"class_0": 85, "class_6": 15}}},
		},
	}
	gen := NewHistoryGenerator(src)
	gen.now = func() time.Time { return testTime }

	data, err := gen.Generate("alice", 10)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if data.ClassTotals["class_1"] != 45 || data.ClassTotals["class_6"] != 15 {
		t.Errorf("class totals = %v", data.ClassTotals)
	}
	if len(data.RiskChanges) != 1 {
		t.Fatalf("risk changes = %+v", data.RiskChanges)
	}
	if c := data.RiskChanges[0]; c.Filename != "c.csv" || c.OldLevel != model.RiskLow || c.NewLevel != model.RiskHigh {
		t.Errorf("change = %+v", c)
	}

	out := FormatHistoryMarkdown(data, "")
	for _, want := range []string{
		"# IntruScan Scan History",
		"| Current Risk | Medium |",
		"| 2025-03-14 11:30 | c.csv | 100 | 40 | 40.00% | High |",
		`"DoS/DDoS Attacks" : 45`,
		"Low to High",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("history markdown missing %q\n%s", want, out)
		}
	}
}

func TestFormatHistoryMarkdown_Empty(t *testing.T) {
	out := FormatHistoryMarkdown(&HistoryData{UserID: "bob", Stats: model.UserStats{RiskLevel: model.RiskLow}}, "IntruScan")
	if !strings.Contains(out, "No scans recorded.") {
		t.Errorf("empty history = %q", out)
	}
}

func TestMermaidPie(t *testing.T) {
	out := mermaidPie("Traffic: All", []ChartEntry{{Label: "Normal Traffic", Value: 10}, {Label: "Anomalous Traffic", Value: 0}})
	if !strings.Contains(out, "pie showData title Traffic  All") {
		t.Errorf("title not escaped: %q", out)
	}
	if strings.Contains(out, "Anomalous") {
		t.Errorf("zero entry rendered: %q", out)
	}
}
