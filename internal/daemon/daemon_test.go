package daemon

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/user/intruscan/internal/model"
	"github.com/user/intruscan/internal/storage"
	"github.com/user/intruscan/internal/util"
)

type stubAnalyzer struct{}

func (stubAnalyzer) Analyze(_ context.Context, filename string, r io.Reader) (*model.ScanResults, error) {
	data, _ := io.ReadAll(r)
	if strings.Contains(string(data), "corrupt") {
		return nil, errors.New("no matching features")
	}
	return &model.ScanResults{
		TotalRecords: 100, AnomaliesDetected: 30, NormalRecords: 70, AnomalyRate: 30,
		ClassDistribution: model.ClassDistribution{"class_0": 70, "class_5": 30},
	}, nil
}

func testDaemon(t *testing.T) *Daemon {
	t.Helper()
	dir := t.TempDir()
	cfg := util.DefaultConfig()
	cfg.DataDir = dir
	cfg.InboxDir = filepath.Join(dir, "inbox")
	cfg.ReportOutputDir = filepath.Join(dir, "reports")
	cfg.DefaultUser = "ops"

	db, err := storage.Open(storage.DriverSQLite, filepath.Join(dir, "d.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	for _, d := range []string{cfg.InboxDir, cfg.ReportOutputDir} {
		if err := os.MkdirAll(d, 0755); err != nil {
			t.Fatal(err)
		}
	}
	return NewWithDeps(cfg, Deps{DB: db, Analyzer: stubAnalyzer{}})
}

func TestRunIngest(t *testing.T) {
	d := testDaemon(t)
	inbox := d.config.InboxDir
	os.WriteFile(filepath.Join(inbox, "good.csv"), []byte("a,b\n1,2\n"), 0644)
	os.WriteFile(filepath.Join(inbox, "bad.csv"), []byte("corrupt"), 0644)
	os.WriteFile(filepath.Join(inbox, "notes.txt"), []byte("ignored"), 0644)

	err := d.runIngest(context.Background())
	if err == nil || !strings.Contains(err.Error(), "1 of 2") {
		t.Errorf("runIngest() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(inbox, processedDir, "good.csv")); err != nil {
		t.Errorf("good.csv not moved to processed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(inbox, failedDir, "bad.csv")); err != nil {
		t.Errorf("bad.csv not moved to failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(inbox, "notes.txt")); err != nil {
		t.Errorf("non-CSV file touched: %v", err)
	}

	scans, err := d.scans.ListByUser("ops", 10)
	if err != nil || len(scans) != 1 {
		t.Fatalf("stored scans = %v, %v", scans, err)
	}
	if scans[0].RiskLevel != model.RiskHigh {
		t.Errorf("risk = %s", scans[0].RiskLevel)
	}

	reports, _ := filepath.Glob(filepath.Join(d.config.ReportOutputDir, "*.pdf"))
	if len(reports) != 1 {
		t.Errorf("reports written = %v", reports)
	}

	status := d.GetStatus()
	if status.Ingested != 1 || status.Failed != 1 {
		t.Errorf("status counts = %d/%d", status.Ingested, status.Failed)
	}

	// A second run finds nothing left to do.
	if err := d.runIngest(context.Background()); err != nil {
		t.Errorf("second runIngest() error = %v", err)
	}
}

func TestRunBackfill_Disabled(t *testing.T) {
	d := testDaemon(t)
	if err := d.runBackfill(context.Background()); err != nil {
		t.Errorf("runBackfill() error = %v", err)
	}
}

func TestScheduler(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewScheduler(ctx)
	s.tick = 5 * time.Millisecond
	s.initialDelay = 0

	var runs int32
	s.AddJob(&Job{Name: "ok", Interval: time.Hour, Run: func(context.Context) error {
		atomic.AddInt32(&runs, 1)
		return nil
	}})
	s.AddJob(&Job{Name: "broken", Interval: time.Hour, Run: func(context.Context) error {
		return errors.New("boom")
	}})

	done := make(chan struct{})
	go func() {
		s.Run()
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for {
		statuses := s.GetJobStatuses()
		if statuses[0].RunCount > 0 && statuses[1].RunCount > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("jobs did not run: %+v", statuses)
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done

	statuses := s.GetJobStatuses()
	if statuses[1].LastError != "boom" || statuses[1].ErrorCount != 1 {
		t.Errorf("broken status = %+v", statuses[1])
	}
	if atomic.LoadInt32(&runs) != 1 {
		t.Errorf("ok job ran %d times with an hour interval", runs)
	}
	if !s.TriggerJob("ok") || s.TriggerJob("missing") {
		t.Error("TriggerJob results wrong")
	}
}

func TestControlFiles(t *testing.T) {
	dir := t.TempDir()

	if running, _ := CheckRunning(dir); running {
		t.Error("running without PID file")
	}

	os.WriteFile(PIDFile(dir), []byte(strconv.Itoa(os.Getpid())), 0644)
	running, pid := CheckRunning(dir)
	if !running || pid != os.Getpid() {
		t.Errorf("CheckRunning() = %v, %d", running, pid)
	}

	os.WriteFile(PIDFile(dir), []byte("garbage"), 0644)
	if running, _ := CheckRunning(dir); running {
		t.Error("garbage PID reported running")
	}

	status := &DaemonStatus{
		Running:   true,
		PID:       42,
		StartTime: time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC),
		Uptime:    90 * time.Second,
		Ingested:  3,
		Health:    []model.ServiceHealth{{Name: "inference", Healthy: true}},
		Jobs:      []JobStatus{{Name: "inbox_ingest", Interval: "1m0s"}},
	}
	if err := WriteStatusFile(dir, status); err != nil {
		t.Fatal(err)
	}
	sf, err := ReadStatusFile(dir)
	if err != nil {
		t.Fatal(err)
	}
	if sf.PID != 42 || sf.Uptime != "1m30s" || sf.Ingested != 3 || len(sf.Health) != 1 || sf.Jobs[0].Name != "inbox_ingest" {
		t.Errorf("status file = %+v", sf)
	}
}
