// Package daemon runs intruscan's background jobs.
package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/user/intruscan/internal/charts"
	"github.com/user/intruscan/internal/inference"
	"github.com/user/intruscan/internal/model"
	"github.com/user/intruscan/internal/monitor"
	"github.com/user/intruscan/internal/narrative"
	"github.com/user/intruscan/internal/pipeline"
	"github.com/user/intruscan/internal/report"
	"github.com/user/intruscan/internal/storage"
	"github.com/user/intruscan/internal/util"
)

// Deps are the collaborators the daemon drives.
type Deps struct {
	DB       *storage.DB
	Analyzer pipeline.Analyzer
	Narrator narrative.Generator
	Renderer report.ChartRenderer
	Monitor  *monitor.Monitor
}

// Daemon manages the background service.
type Daemon struct {
	config    *util.Config
	scheduler *Scheduler
	db        *storage.DB
	scans     *storage.ScanStorage
	pipeline  *pipeline.Pipeline
	reports   *report.Service
	monitor   *monitor.Monitor
	pidFile   string
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	running   bool
	startTime time.Time
	ingested  int
	failed    int
	mu        sync.RWMutex
}

// New creates a daemon with production collaborators.
func New(cfg *util.Config) (*Daemon, error) {
	db, err := storage.Initialize(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps, err := BuildDeps(cfg, db)
	if err != nil {
		return nil, err
	}
	return NewWithDeps(cfg, deps), nil
}

// BuildDeps creates the inference client, narrative generator, chart
// renderer and health monitor from configuration.
func BuildDeps(cfg *util.Config, db *storage.DB) (Deps, error) {
	client, err := inference.NewClient(cfg.InferenceURL, cfg.InferenceTimeout)
	if err != nil {
		return Deps{}, err
	}

	deps := Deps{
		DB:       db,
		Analyzer: client,
		Renderer: charts.NewRenderer(),
	}
	if cfg.GeminiAPIKey != "" {
		deps.Narrator = narrative.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.NarrativeTimeout)
	} else {
		util.Warn("No Gemini API key configured; narratives disabled")
	}

	targets := []monitor.Target{
		{Name: "inference", Probe: client.Health},
		{Name: "database", Probe: db.PingContext},
	}
	if deps.Narrator != nil {
		if addr, err := monitor.EndpointAddr(narrative.DefaultEndpoint); err == nil {
			targets = append(targets, monitor.Target{Name: "narrative", Probe: monitor.TCPProbe(addr)})
		}
	}
	deps.Monitor = monitor.New(targets...)

	return deps, nil
}

// NewWithDeps creates a daemon over explicit collaborators.
func NewWithDeps(cfg *util.Config, deps Deps) *Daemon {
	ctx, cancel := context.WithCancel(context.Background())

	scans := storage.NewScanStorage(deps.DB)
	engine := report.NewEngine(cfg.ProductName, deps.Renderer)

	d := &Daemon{
		config:   cfg,
		db:       deps.DB,
		scans:    scans,
		pipeline: pipeline.New(deps.Analyzer, scans, deps.Narrator),
		reports:  report.NewService(scans, engine),
		monitor:  deps.Monitor,
		pidFile:  PIDFile(cfg.DataDir),
		ctx:      ctx,
		cancel:   cancel,
	}
	d.scheduler = NewScheduler(ctx)

	return d
}

// Start starts the daemon.
func (d *Daemon) Start() error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon already running")
	}
	d.running = true
	d.startTime = time.Now()
	d.mu.Unlock()

	for _, dir := range []string{d.config.InboxDir, d.config.ReportOutputDir} {
		if err := util.EnsureDir(dir); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	if err := d.writePIDFile(); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}

	util.Info("Daemon starting...")

	d.registerJobs()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.scheduler.Run()
	}()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.handleSignals()
	}()

	util.Info("Daemon started with PID %d", os.Getpid())

	return nil
}

// Wait waits for the daemon to finish.
func (d *Daemon) Wait() {
	d.wg.Wait()
}

// Stop stops the daemon gracefully.
func (d *Daemon) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return nil
	}
	d.running = false
	d.mu.Unlock()

	util.Info("Daemon stopping...")

	d.cancel()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		util.Info("Daemon stopped gracefully")
	case <-time.After(30 * time.Second):
		util.Warn("Daemon stop timed out")
	}

	if err := WriteStatusFile(d.config.DataDir, d.GetStatus()); err != nil {
		util.Warn("Failed to write status file: %v", err)
	}
	d.removePIDFile()
	if d.db != nil {
		d.db.Close()
	}

	return nil
}

func (d *Daemon) handleSignals() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		util.Info("Received signal: %v", sig)
		// Stop waits on this goroutine, so it must run elsewhere.
		go d.Stop()
	case <-d.ctx.Done():
	}
}

func (d *Daemon) writePIDFile() error {
	return os.WriteFile(d.pidFile, []byte(strconv.Itoa(os.Getpid())), 0644)
}

func (d *Daemon) removePIDFile() {
	os.Remove(d.pidFile)
}

// IsRunning returns whether the daemon is running.
func (d *Daemon) IsRunning() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.running
}

// DaemonStatus holds the current daemon status.
type DaemonStatus struct {
	Running   bool
	PID       int
	StartTime time.Time
	Uptime    time.Duration
	Ingested  int
	Failed    int
	Health    []model.ServiceHealth
	Jobs      []JobStatus
}

// GetStatus returns the daemon status.
func (d *Daemon) GetStatus() *DaemonStatus {
	d.mu.RLock()
	defer d.mu.RUnlock()

	status := &DaemonStatus{
		Running:   d.running,
		PID:       os.Getpid(),
		StartTime: d.startTime,
		Uptime:    time.Since(d.startTime),
		Ingested:  d.ingested,
		Failed:    d.failed,
		Jobs:      d.scheduler.GetJobStatuses(),
	}
	if d.monitor != nil {
		status.Health = d.monitor.Snapshot()
	}
	return status
}

// Scheduler returns the job scheduler.
func (d *Daemon) Scheduler() *Scheduler {
	return d.scheduler
}

// DB returns the daemon's database handle.
func (d *Daemon) DB() *storage.DB {
	return d.db
}
