// Package web serves the intruscan dashboard and JSON API.
package web

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/user/intruscan/internal/util"
)

// Server is the web server.
type Server struct {
	handlers *Handlers
	port     int
	srv      *http.Server
}

// NewServer creates a new web server.
func NewServer(h *Handlers, port int) *Server {
	return &Server{handlers: h, port: port}
}

// Routes returns the HTTP handler with all routes registered.
func (h *Handlers) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", h.Dashboard)
	mux.HandleFunc("GET /api/status", h.APIGetStatus)

	mux.HandleFunc("POST /api/analyze", h.APIAnalyze)
	mux.HandleFunc("GET /api/scans", h.APIListScans)
	mux.HandleFunc("GET /api/scans/{id}", h.APIGetScan)
	mux.HandleFunc("DELETE /api/scans/{id}", h.APIDeleteScan)
	mux.HandleFunc("POST /api/scans/{id}/analysis", h.APIGenerateAnalysis)
	mux.HandleFunc("GET /api/scans/{id}/report", h.APIDownloadReport)
	mux.HandleFunc("GET /api/stats", h.APIGetStats)

	mux.HandleFunc("POST /api/urlcheck", h.APICheckURL)
	mux.HandleFunc("GET /api/urlcheck/counters", h.APIGetURLCounters)
	mux.HandleFunc("DELETE /api/urlcheck/counters", h.APIResetURLCounters)

	// Analytics routes
	mux.HandleFunc("GET /api/analytics/trend", h.APIGetTrend)
	mux.HandleFunc("GET /api/analytics/classes", h.APIGetClassTotals)
	mux.HandleFunc("GET /api/analytics/history.md", h.APIDownloadHistory)

	return mux
}

// Start serves until SIGINT or SIGTERM.
func (s *Server) Start() error {
	s.srv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.handlers.Routes(),
		ReadTimeout:  5 * time.Minute, // large capture uploads
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		s.srv.Shutdown(ctx)
	}()

	util.Info("Web server starting on port %d", s.port)

	if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}

	return nil
}

// Stop stops the web server.
func (s *Server) Stop() error {
	if s.srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.srv.Shutdown(ctx)
}
