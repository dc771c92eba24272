package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/user/intruscan/internal/model"
	"github.com/user/intruscan/internal/report"
	"github.com/user/intruscan/internal/util"
)

// Inbox subdirectories for handled captures.
const (
	processedDir = "processed"
	failedDir    = "failed"
)

// backfillBatch bounds narratives requested per run.
const backfillBatch = 10

// registerJobs registers all background jobs with the scheduler.
func (d *Daemon) registerJobs() {
	d.scheduler.AddJob(&Job{
		Name:     "inbox_ingest",
		Interval: d.config.IngestInterval,
		Run:      d.runIngest,
	})

	d.scheduler.AddJob(&Job{
		Name:     "narrative_backfill",
		Interval: d.config.NarrativeInterval,
		Run:      d.runBackfill,
	})

	if d.monitor != nil {
		d.scheduler.AddJob(&Job{
			Name:     "health_check",
			Interval: d.config.HealthInterval,
			Run:      d.runHealthCheck,
		})
	}
}

// pendingCaptures lists CSV files waiting in the inbox, oldest name first.
func pendingCaptures(inbox string) ([]string, error) {
	entries, err := os.ReadDir(inbox)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)
	return files, nil
}

func (d *Daemon) runIngest(ctx context.Context) error {
	files, err := pendingCaptures(d.config.InboxDir)
	if err != nil {
		return fmt.Errorf("failed to read inbox: %w", err)
	}
	if len(files) == 0 {
		util.Debug("Inbox empty")
		return nil
	}

	util.Debug("Ingesting %d captures", len(files))

	var failures int
	for _, name := range files {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rec, err := d.ingestFile(ctx, name)
		dest := processedDir
		if err != nil {
			util.Warn("Capture %s failed: %v", name, err)
			dest = failedDir
			failures++
		}

		d.mu.Lock()
		if err != nil {
			d.failed++
		} else {
			d.ingested++
		}
		d.mu.Unlock()

		if moveErr := moveInto(d.config.InboxDir, dest, name); moveErr != nil {
			util.Warn("Failed to move %s to %s: %v", name, dest, moveErr)
		}

		if rec != nil {
			util.Info("Capture %s stored as scan %s", name, rec.ID)
		}
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d captures failed", failures, len(files))
	}
	return nil
}

func (d *Daemon) ingestFile(ctx context.Context, name string) (*model.ScanRecord, error) {
	f, err := os.Open(filepath.Join(d.config.InboxDir, name))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rec, err := d.pipeline.Ingest(ctx, d.config.DefaultUser, name, f)
	if err != nil {
		return nil, err
	}

	sink := report.FileSink{Dir: d.config.ReportOutputDir}
	out, err := d.reports.Export(ctx, rec.ID, rec.UserID, report.FormatPDF, sink)
	if err != nil {
		// The scan is stored; a report can be exported later.
		util.Warn("Report for scan %s failed: %v", rec.ID, err)
		return rec, nil
	}
	util.Info("Report written to %s", sink.Path(out))

	return rec, nil
}

// moveInto moves inbox/name into inbox/sub/name.
func moveInto(inbox, sub, name string) error {
	dir := filepath.Join(inbox, sub)
	if err := util.EnsureDir(dir); err != nil {
		return err
	}
	return os.Rename(filepath.Join(inbox, name), filepath.Join(dir, name))
}

func (d *Daemon) runBackfill(ctx context.Context) error {
	if !d.pipeline.HasNarrator() {
		util.Debug("Narrative backfill disabled (no generator configured)")
		return nil
	}

	n, err := d.pipeline.Backfill(ctx, backfillBatch)
	if n > 0 {
		util.Info("Narrative backfill: %d scans updated", n)
	}
	return err
}

func (d *Daemon) runHealthCheck(ctx context.Context) error {
	var unhealthy []string
	for _, h := range d.monitor.CheckAll(ctx) {
		if !h.Healthy {
			unhealthy = append(unhealthy, h.Name)
			util.Warn("Service %s unhealthy: %s", h.Name, h.Detail)
		}
	}

	if err := WriteStatusFile(d.config.DataDir, d.GetStatus()); err != nil {
		util.Warn("Failed to write status file: %v", err)
	}

	if len(unhealthy) > 0 {
		return fmt.Errorf("unhealthy services: %s", strings.Join(unhealthy, ", "))
	}
	return nil
}
