package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/user/intruscan/internal/daemon"
	"github.com/user/intruscan/internal/inference"
	"github.com/user/intruscan/internal/model"
	"github.com/user/intruscan/internal/monitor"
	"github.com/user/intruscan/internal/narrative"
	"github.com/user/intruscan/internal/pipeline"
	"github.com/user/intruscan/internal/report"
	"github.com/user/intruscan/internal/storage"
	"github.com/user/intruscan/internal/urlscan"
	"github.com/user/intruscan/internal/util"
)

// maxUploadSize bounds a capture upload.
const maxUploadSize = 200 << 20

var (
	errNoUser      = errors.New("missing or invalid user identity")
	errScanMissing = errors.New("scan not found")
)

// Deps are the collaborators behind the HTTP surface.
type Deps struct {
	DB       *storage.DB
	Pipeline *pipeline.Pipeline
	Renderer report.ChartRenderer
	Tracker  *urlscan.Tracker
	Monitor  *monitor.Monitor
}

// Handlers contains HTTP handlers.
type Handlers struct {
	config   *util.Config
	scans    *storage.ScanStorage
	pipeline *pipeline.Pipeline
	reports  *report.Service
	history  *report.HistoryGenerator
	tracker  *urlscan.Tracker
	monitor  *monitor.Monitor
	users    UserResolver
}

// NewHandlers creates new handlers.
func NewHandlers(cfg *util.Config, deps Deps) *Handlers {
	scans := storage.NewScanStorage(deps.DB)
	return &Handlers{
		config:   cfg,
		scans:    scans,
		pipeline: deps.Pipeline,
		reports:  report.NewService(scans, report.NewEngine(cfg.ProductName, deps.Renderer)),
		history:  report.NewHistoryGenerator(scans),
		tracker:  deps.Tracker,
		monitor:  deps.Monitor,
		users:    UserResolver{Header: cfg.UserHeader, Fallback: cfg.DefaultUser},
	}
}

// user resolves the caller or writes a 401.
func (h *Handlers) user(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := h.users.Resolve(r)
	if id == "" {
		writeError(w, errNoUser, http.StatusUnauthorized)
		return "", false
	}
	return id, true
}

// ownedScan loads a scan belonging to the caller or writes an error.
func (h *Handlers) ownedScan(w http.ResponseWriter, r *http.Request) (*model.ScanRecord, string, bool) {
	user, ok := h.user(w, r)
	if !ok {
		return nil, "", false
	}

	rec, err := h.scans.Get(r.PathValue("id"))
	if errors.Is(err, storage.ErrNotFound) || (err == nil && rec.UserID != user) {
		writeError(w, errScanMissing, http.StatusNotFound)
		return nil, "", false
	}
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return nil, "", false
	}
	return rec, user, true
}

// APIAnalyze accepts a multipart capture upload in field "file".
func (h *Handlers) APIAnalyze(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	file, hdr, err := r.FormFile("file")
	if err != nil {
		writeError(w, errors.New("no file uploaded"), http.StatusBadRequest)
		return
	}
	defer file.Close()

	name := filepath.Base(hdr.Filename)
	rec, err := h.pipeline.Ingest(r.Context(), user, name, file)
	if err != nil {
		util.Error("Analyze %s: %v", name, err)
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, inference.ErrService):
			status = http.StatusBadGateway
		case errors.Is(err, report.ErrInvalidInput):
			status = http.StatusUnprocessableEntity
		}
		writeError(w, errors.New("failed to analyze file"), status)
		return
	}

	writeJSONStatus(w, http.StatusCreated, rec)
}

// APIListScans returns the caller's scans, newest first.
func (h *Handlers) APIListScans(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}

	limit := 10
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	scans, err := h.scans.ListByUser(user, limit)
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	if scans == nil {
		scans = []model.ScanRecord{}
	}

	writeJSON(w, scans)
}

// APIGetScan returns one scan.
func (h *Handlers) APIGetScan(w http.ResponseWriter, r *http.Request) {
	rec, _, ok := h.ownedScan(w, r)
	if !ok {
		return
	}
	writeJSON(w, rec)
}

// APIDeleteScan removes one scan.
func (h *Handlers) APIDeleteScan(w http.ResponseWriter, r *http.Request) {
	rec, user, ok := h.ownedScan(w, r)
	if !ok {
		return
	}
	if err := h.scans.Delete(rec.ID, user); err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// APIGenerateAnalysis requests a narrative for a scan.
func (h *Handlers) APIGenerateAnalysis(w http.ResponseWriter, r *http.Request) {
	rec, _, ok := h.ownedScan(w, r)
	if !ok {
		return
	}

	if err := h.pipeline.Narrate(r.Context(), rec); err != nil {
		if errors.Is(err, narrative.ErrNotConfigured) {
			writeError(w, errors.New("AI analysis is not configured"), http.StatusServiceUnavailable)
			return
		}
		util.Error("Narrative for scan %s: %v", rec.ID, err)
		writeError(w, errors.New("AI analysis failed"), http.StatusBadGateway)
		return
	}

	writeJSON(w, rec.AIAnalysis)
}

// APIDownloadReport renders a scan report. The body is written only after
// the whole document is encoded.
func (h *Handlers) APIDownloadReport(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}

	format, err := report.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}

	art, err := h.reports.Render(r.Context(), r.PathValue("id"), user, format)
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, report.ErrScanNotFound):
		writeError(w, errScanMissing, http.StatusNotFound)
		return
	case errors.Is(err, report.ErrInvalidInput):
		writeError(w, err, http.StatusUnprocessableEntity)
		return
	default:
		util.Error("Report for scan %s: %v", r.PathValue("id"), err)
		writeError(w, report.ErrGenerationFailure, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(art.Name))
	w.Header().Set("Content-Length", strconv.Itoa(len(art.Data)))
	w.Write(art.Data)
}

// APIGetStats returns the caller's aggregate statistics.
func (h *Handlers) APIGetStats(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}

	stats, err := h.scans.UserStats(user)
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}

	writeJSON(w, stats)
}

// APICheckURL classifies a URL and updates the counters.
func (h *Handlers) APICheckURL(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		writeError(w, errors.New("invalid request body"), http.StatusBadRequest)
		return
	}
	if u, err := url.Parse(strings.TrimSpace(req.URL)); err != nil || u.Scheme == "" {
		writeError(w, errors.New("url must be absolute"), http.StatusBadRequest)
		return
	}

	check, err := h.tracker.Check(strings.TrimSpace(req.URL))
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}

	writeJSON(w, check)
}

// APIGetURLCounters returns the classifier totals.
func (h *Handlers) APIGetURLCounters(w http.ResponseWriter, r *http.Request) {
	c, err := h.tracker.Counters()
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, c)
}

// APIResetURLCounters zeroes the classifier totals.
func (h *Handlers) APIResetURLCounters(w http.ResponseWriter, r *http.Request) {
	if err := h.tracker.Reset(); err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, model.URLCounters{})
}

// APIGetStatus returns daemon and collaborator status.
func (h *Handlers) APIGetStatus(w http.ResponseWriter, r *http.Request) {
	running, pid := daemon.CheckRunning(h.config.DataDir)

	status := map[string]interface{}{
		"running":   running,
		"pid":       pid,
		"narrative": h.pipeline.HasNarrator(),
	}

	if count, err := h.scans.Count(); err == nil {
		status["scans"] = count
	}
	if h.monitor != nil {
		status["health"] = h.monitor.Snapshot()
	}

	writeJSON(w, status)
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	writeJSONStatus(w, http.StatusOK, data)
}

func writeJSONStatus(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
