package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/user/intruscan/internal/model"
	"github.com/user/intruscan/internal/pipeline"
	"github.com/user/intruscan/internal/report"
	"github.com/user/intruscan/internal/storage"
	"github.com/user/intruscan/internal/urlscan"
	"github.com/user/intruscan/internal/util"
)

type fakeAnalyzer struct{}

func (fakeAnalyzer) Analyze(_ context.Context, name string, r io.Reader) (*model.ScanResults, error) {
	io.Copy(io.Discard, r)
	if strings.HasPrefix(name, "inconsistent") {
		return &model.ScanResults{TotalRecords: 10, AnomaliesDetected: 20, AnomalyRate: 200}, nil
	}
	return &model.ScanResults{
		TotalRecords: 200, AnomaliesDetected: 50, NormalRecords: 150, AnomalyRate: 25,
		ClassDistribution: model.ClassDistribution{"class_0": 150, "class_2": 50},
	}, nil
}

type panicRenderer struct{}

func (panicRenderer) RenderChart(context.Context, report.ChartSpec) ([]byte, error) {
	panic("renderer exploded")
}

type testEnv struct {
	handler http.Handler
	scans   *storage.ScanStorage
}

func newTestEnv(t *testing.T, renderer report.ChartRenderer) *testEnv {
	t.Helper()
	dir := t.TempDir()

	db, err := storage.Open(storage.DriverSQLite, filepath.Join(dir, "web.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := util.DefaultConfig()
	cfg.DataDir = dir
	cfg.DefaultUser = ""

	scans := storage.NewScanStorage(db)
	h := NewHandlers(cfg, Deps{
		DB:       db,
		Pipeline: pipeline.New(fakeAnalyzer{}, scans, nil),
		Renderer: renderer,
		Tracker:  urlscan.NewTracker(urlscan.NewClassifier(nil), storage.NewCounterStorage(db)),
	})

	return &testEnv{handler: h.Routes(), scans: scans}
}

func (e *testEnv) do(t *testing.T, method, path, user string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) seed(t *testing.T, user string, rate float64, at time.Time) *model.ScanRecord {
	t.Helper()
	anomalies := int(rate)
	rec := &model.ScanRecord{
		UserID: user, Filename: "capture.csv", UploadDate: at,
		Results: model.ScanResults{
			TotalRecords: 100, AnomaliesDetected: anomalies, NormalRecords: 100 - anomalies, AnomalyRate: rate,
			ClassDistribution: model.ClassDistribution{"class_0": 100 - anomalies, "class_1": anomalies},
		},
	}
	if err := e.scans.Save(rec); err != nil {
		t.Fatal(err)
	}
	return rec
}

func TestMissingUser(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, path := range []string{"/", "/api/scans", "/api/stats", "/api/analytics/trend"} {
		rec := env.do(t, http.MethodGet, path, "", nil, "")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("GET %s = %d, want 401", path, rec.Code)
		}
	}

	rec := env.do(t, http.MethodGet, "/api/scans", "bad user!", nil, "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("invalid header = %d, want 401", rec.Code)
	}
}

func TestAnalyzeUpload(t *testing.T) {
	env := newTestEnv(t, nil)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, _ := mw.CreateFormFile("file", "../../capture.csv")
	fw.Write([]byte("duration,protocol\n1,tcp\n"))
	mw.Close()

	rec := env.do(t, http.MethodPost, "/api/analyze", "alice", &body, mw.FormDataContentType())
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var got model.ScanRecord
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Filename != "capture.csv" || got.UserID != "alice" || got.RiskLevel != model.RiskHigh {
		t.Errorf("scan = %+v", got)
	}

	list := env.do(t, http.MethodGet, "/api/scans", "alice", nil, "")
	var scans []model.ScanRecord
	json.NewDecoder(list.Body).Decode(&scans)
	if len(scans) != 1 || scans[0].ID != got.ID {
		t.Errorf("list = %+v", scans)
	}

	missing := env.do(t, http.MethodPost, "/api/analyze", "alice", strings.NewReader(""), "multipart/form-data; boundary=x")
	if missing.Code != http.StatusBadRequest {
		t.Errorf("upload without file = %d, want 400", missing.Code)
	}
}

func TestAnalyzeUpload_InconsistentResults(t *testing.T) {
	env := newTestEnv(t, nil)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, _ := mw.CreateFormFile("file", "inconsistent.csv")
	fw.Write([]byte("duration,protocol\n1,tcp\n"))
	mw.Close()

	rec := env.do(t, http.MethodPost, "/api/analyze", "alice", &body, mw.FormDataContentType())
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}

	list := env.do(t, http.MethodGet, "/api/scans", "alice", nil, "")
	var scans []model.ScanRecord
	json.NewDecoder(list.Body).Decode(&scans)
	if len(scans) != 1 || scans[0].Status != model.StatusFailed {
		t.Errorf("list = %+v", scans)
	}
}

func TestScanOwnership(t *testing.T) {
	env := newTestEnv(t, nil)
	scan := env.seed(t, "alice", 15, time.Now())

	tests := []struct {
		method string
		path   string
		user   string
		want   int
	}{
		{http.MethodGet, "/api/scans/" + scan.ID, "alice", http.StatusOK},
		{http.MethodGet, "/api/scans/" + scan.ID, "mallory", http.StatusNotFound},
		{http.MethodGet, "/api/scans/nope", "alice", http.StatusNotFound},
		{http.MethodGet, "/api/scans/" + scan.ID + "/report", "mallory", http.StatusNotFound},
		{http.MethodDelete, "/api/scans/" + scan.ID, "mallory", http.StatusNotFound},
		{http.MethodPost, "/api/scans/" + scan.ID + "/analysis", "alice", http.StatusServiceUnavailable},
		{http.MethodDelete, "/api/scans/" + scan.ID, "alice", http.StatusNoContent},
		{http.MethodGet, "/api/scans/" + scan.ID, "alice", http.StatusNotFound},
	}

	for _, tt := range tests {
		rec := env.do(t, tt.method, tt.path, tt.user, nil, "")
		if rec.Code != tt.want {
			t.Errorf("%s %s as %s = %d, want %d", tt.method, tt.path, tt.user, rec.Code, tt.want)
		}
	}
}

func TestDownloadReport(t *testing.T) {
	env := newTestEnv(t, nil)
	scan := env.seed(t, "alice", 15, time.Now())

	rec := env.do(t, http.MethodGet, "/api/scans/"+scan.ID+"/report", "alice", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("Content-Type = %s", ct)
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), "IntruScan-Professional-Report-") {
		t.Errorf("Content-Disposition = %s", rec.Header().Get("Content-Disposition"))
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")) {
		t.Error("body is not a PDF")
	}

	md := env.do(t, http.MethodGet, "/api/scans/"+scan.ID+"/report?format=md", "alice", nil, "")
	if md.Code != http.StatusOK || !strings.Contains(md.Body.String(), "| Risk Level | Medium |") {
		t.Errorf("markdown report = %d %s", md.Code, md.Body.String())
	}

	bad := env.do(t, http.MethodGet, "/api/scans/"+scan.ID+"/report?format=docx", "alice", nil, "")
	if bad.Code != http.StatusBadRequest {
		t.Errorf("unsupported format = %d, want 400", bad.Code)
	}
}

func TestDownloadReport_Failures(t *testing.T) {
	env := newTestEnv(t, panicRenderer{})
	scan := env.seed(t, "alice", 40, time.Now())

	rec := env.do(t, http.MethodGet, "/api/scans/"+scan.ID+"/report", "alice", nil, "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var body map[string]string
	json.NewDecoder(rec.Body).Decode(&body)
	if body["error"] != "report generation failed, try again" {
		t.Errorf("error = %q", body["error"])
	}

	broken := &model.ScanRecord{UserID: "alice", Filename: "broken.csv",
		Results: model.ScanResults{TotalRecords: 10, AnomaliesDetected: 20, AnomalyRate: 50}}
	if err := env.scans.Save(broken); err != nil {
		t.Fatal(err)
	}
	rec = env.do(t, http.MethodGet, "/api/scans/"+broken.ID+"/report", "alice", nil, "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("invalid scan = %d, want 422", rec.Code)
	}
}

func TestURLCheck(t *testing.T) {
	env := newTestEnv(t, nil)

	check := func(url string) model.URLCheck {
		rec := env.do(t, http.MethodPost, "/api/urlcheck", "", strings.NewReader(`{"url":"`+url+`"}`), "application/json")
		if rec.Code != http.StatusOK {
			t.Fatalf("check %s = %d %s", url, rec.Code, rec.Body.String())
		}
		var c model.URLCheck
		json.NewDecoder(rec.Body).Decode(&c)
		return c
	}

	if c := check("http://evil.example/malware.exe"); !c.Detected || c.ThreatLevel != model.ThreatHigh {
		t.Errorf("malware url = %+v", c)
	}
	if c := check("https://example.com/about"); c.Detected {
		t.Errorf("clean url = %+v", c)
	}

	rec := env.do(t, http.MethodGet, "/api/urlcheck/counters", "", nil, "")
	var counters model.URLCounters
	json.NewDecoder(rec.Body).Decode(&counters)
	if counters.RequestsScanned != 2 || counters.ThreatsDetected != 1 {
		t.Errorf("counters = %+v", counters)
	}

	if rec := env.do(t, http.MethodPost, "/api/urlcheck", "", strings.NewReader(`{"url":"no-scheme"}`), ""); rec.Code != http.StatusBadRequest {
		t.Errorf("relative url = %d, want 400", rec.Code)
	}

	env.do(t, http.MethodDelete, "/api/urlcheck/counters", "", nil, "")
	rec = env.do(t, http.MethodGet, "/api/urlcheck/counters", "", nil, "")
	counters = model.URLCounters{}
	json.NewDecoder(rec.Body).Decode(&counters)
	if counters.RequestsScanned != 0 || counters.ThreatsDetected != 0 {
		t.Errorf("counters after reset = %+v", counters)
	}
}

func TestAnalytics(t *testing.T) {
	env := newTestEnv(t, nil)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	env.seed(t, "alice", 5, base)
	env.seed(t, "alice", 30, base.Add(time.Hour))
	env.seed(t, "bob", 90, base)

	rec := env.do(t, http.MethodGet, "/api/analytics/trend", "alice", nil, "")
	var trend struct {
		Points      []TrendPoint        `json:"points"`
		RiskChanges []report.RiskChange `json:"risk_changes"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&trend); err != nil {
		t.Fatal(err)
	}
	if len(trend.Points) != 2 || trend.Points[0].AnomalyRate != 5 || trend.Points[1].AnomalyRate != 30 {
		t.Errorf("points = %+v", trend.Points)
	}
	if len(trend.RiskChanges) != 1 || trend.RiskChanges[0].NewLevel != model.RiskHigh {
		t.Errorf("risk changes = %+v", trend.RiskChanges)
	}

	rec = env.do(t, http.MethodGet, "/api/analytics/classes", "alice", nil, "")
	var totals []ClassTotal
	json.NewDecoder(rec.Body).Decode(&totals)
	if len(totals) != 2 || totals[0].Key != "class_0" || totals[0].Count != 165 || totals[1].Count != 35 {
		t.Errorf("class totals = %+v", totals)
	}

	rec = env.do(t, http.MethodGet, "/api/analytics/history.md", "alice", nil, "")
	if !strings.Contains(rec.Header().Get("Content-Disposition"), "intruscan_history.md") {
		t.Errorf("Content-Disposition = %s", rec.Header().Get("Content-Disposition"))
	}
	if !strings.Contains(rec.Body.String(), "pie showData") {
		t.Errorf("history markdown = %s", rec.Body.String())
	}
}

func TestDashboard(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seed(t, "alice", 25, time.Now())

	rec := env.do(t, http.MethodGet, "/", "alice", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"IntruScan Security Dashboard", "capture.csv", "25.00%", "risk-High"} {
		if !strings.Contains(body, want) {
			t.Errorf("dashboard missing %q", want)
		}
	}

	stats := env.do(t, http.MethodGet, "/api/stats", "alice", nil, "")
	var s model.UserStats
	json.NewDecoder(stats.Body).Decode(&s)
	if s.TotalScans != 1 || s.AnomaliesDetected != 25 || s.RiskLevel != model.RiskHigh {
		t.Errorf("stats = %+v", s)
	}
}
