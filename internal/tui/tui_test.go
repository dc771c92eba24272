package tui

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/user/intruscan/internal/model"
	"github.com/user/intruscan/internal/storage"
	"github.com/user/intruscan/internal/util"
)

func testDB(t *testing.T) (*storage.DB, *util.Config) {
	t.Helper()
	dir := t.TempDir()
	db, err := storage.Open(storage.DriverSQLite, filepath.Join(dir, "tui.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := util.DefaultConfig()
	cfg.DataDir = dir
	return db, cfg
}

func TestFetchDashboardData(t *testing.T) {
	db, cfg := testDB(t)
	scans := storage.NewScanStorage(db)
	for i, rate := range []float64{5, 25} {
		anomalies := int(rate)
		err := scans.Save(&model.ScanRecord{
			UserID: "alice", Filename: "capture.csv",
			UploadDate: time.Now().Add(time.Duration(i) * time.Minute),
			Results: model.ScanResults{TotalRecords: 100, AnomaliesDetected: anomalies,
				NormalRecords: 100 - anomalies, AnomalyRate: rate},
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	counters := storage.NewCounterStorage(db)
	counters.Increment(storage.CounterRequestsScanned, 3)

	data, err := fetchDashboardData(db, cfg, "alice")
	if err != nil {
		t.Fatalf("fetchDashboardData() error = %v", err)
	}
	if data.Stats.TotalScans != 2 || data.Stats.AnomaliesDetected != 30 {
		t.Errorf("stats = %+v", data.Stats)
	}
	if len(data.Scans) != 2 || data.Scans[0].Results.AnomalyRate != 25 {
		t.Errorf("scans not newest first: %+v", data.Scans)
	}
	if data.URLCounters.RequestsScanned != 3 {
		t.Errorf("counters = %+v", data.URLCounters)
	}
	if data.DaemonRunning {
		t.Error("daemon reported running without a status file")
	}
}

func TestDashboardView(t *testing.T) {
	d := NewDashboard(dataMsg{Data: &DashboardData{
		Product: "IntruScan",
		User:    "alice",
		Stats:   model.UserStats{TotalScans: 1, AnomaliesDetected: 40, NormalTraffic: 60, RiskLevel: model.RiskHigh},
		Scans: []model.ScanRecord{{
			Filename: "a-very-long-capture-file-name.csv", RiskLevel: model.RiskHigh,
			Results: model.ScanResults{TotalRecords: 100, AnomaliesDetected: 40, AnomalyRate: 40},
		}},
		LastURLCheck: &model.URLCheck{URL: "http://x/malware", Detected: true, Matched: "malware", ThreatLevel: model.ThreatHigh},
		Health:       []model.ServiceHealth{{Name: "inference", Healthy: false, Detail: "connection refused"}},
	}}, 100, 40)

	view := d.View()
	for _, want := range []string{"IntruScan Dashboard", "alice", "a-very-long-capture-f...", "40.00%", "High", "malware (HIGH)", "connection refused"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}

	empty := NewDashboard(dataMsg{Data: &DashboardData{User: "bob"}}, 80, 24).View()
	if !strings.Contains(empty, "No scans recorded yet") {
		t.Error("empty dashboard missing placeholder")
	}
}

func TestModelUpdate(t *testing.T) {
	db, cfg := testDB(t)
	m := newModel(db, cfg, "alice")

	if !strings.Contains(m.View(), "Loading") {
		t.Errorf("initial view = %q", m.View())
	}

	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	next, _ = next.Update(dataMsg{Data: &DashboardData{User: "alice"}})
	if got := next.(appModel); !got.ready || got.dashboard == nil || got.width != 120 {
		t.Errorf("model after data = %+v", got)
	}

	_, cmd := next.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("q produced no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
}

func TestRenderBar(t *testing.T) {
	if got := RenderBar(0, 0, 4); !strings.Contains(got, "░░░░") {
		t.Errorf("empty bar = %q", got)
	}
	if got := RenderBar(10, 5, 4); !strings.Contains(got, "████") {
		t.Errorf("overfull bar = %q", got)
	}
}
