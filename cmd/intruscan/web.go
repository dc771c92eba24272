package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/user/intruscan/internal/daemon"
	"github.com/user/intruscan/internal/pipeline"
	"github.com/user/intruscan/internal/storage"
	"github.com/user/intruscan/internal/util"
	"github.com/user/intruscan/internal/web"
)

var webPort int

var webCmd = &cobra.Command{
	Use:   "web",
	Short: "Start the web dashboard",
	Long: `Start the web dashboard and JSON API.

The web server provides:
- Capture upload and analysis
- Per-user scan history and risk level
- PDF and Markdown report downloads
- URL threat checks

Callers are identified by the user_header request header.

Examples:
  intruscan web
  intruscan web --port 8080`,
	RunE: runWeb,
}

func init() {
	webCmd.Flags().IntVarP(&webPort, "port", "p", 0, "Web server port (default: web_port)")
}

func runWeb(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	port := webPort
	if port == 0 {
		port = cfg.WebPort
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv, err := newWebServer(ctx, db, port)
	if err != nil {
		return err
	}

	fmt.Printf("Starting web server on http://localhost:%d\n", port)
	fmt.Println("Press Ctrl+C to stop")

	return srv.Start()
}

// newWebServer wires the HTTP handlers over db. Health checks run until
// ctx is done.
func newWebServer(ctx context.Context, db *storage.DB, port int) (*web.Server, error) {
	deps, err := daemon.BuildDeps(cfg, db)
	if err != nil {
		return nil, err
	}

	tracker, err := newTracker(db, "")
	if err != nil {
		return nil, err
	}

	scans := storage.NewScanStorage(db)
	h := web.NewHandlers(cfg, web.Deps{
		DB:       db,
		Pipeline: pipeline.New(deps.Analyzer, scans, deps.Narrator),
		Renderer: deps.Renderer,
		Tracker:  tracker,
		Monitor:  deps.Monitor,
	})

	if deps.Monitor != nil {
		go deps.Monitor.Run(ctx, cfg.HealthInterval, nil)
	}
	util.Debug("Web handlers ready (narrative enabled: %v)", deps.Narrator != nil)

	return web.NewServer(h, port), nil
}
