// Package pipeline runs a capture through inference, storage and narrative
// generation.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/user/intruscan/internal/model"
	"github.com/user/intruscan/internal/narrative"
	"github.com/user/intruscan/internal/report"
	"github.com/user/intruscan/internal/util"
)

// Analyzer classifies an uploaded capture.
type Analyzer interface {
	Analyze(ctx context.Context, filename string, r io.Reader) (*model.ScanResults, error)
}

// ScanStore is the part of the scan store the pipeline writes.
type ScanStore interface {
	Save(rec *model.ScanRecord) error
	AttachAnalysis(id string, analysis *model.AIAnalysis) error
	ListMissingAnalysis(limit int) ([]model.ScanRecord, error)
}

// Pipeline wires the collaborators of a scan together.
type Pipeline struct {
	analyzer Analyzer
	scans    ScanStore
	narrator narrative.Generator
	now      func() time.Time
}

// New creates a pipeline. A nil narrator disables narratives.
func New(analyzer Analyzer, scans ScanStore, narrator narrative.Generator) *Pipeline {
	return &Pipeline{analyzer: analyzer, scans: scans, narrator: narrator, now: time.Now}
}

// Ingest analyzes a capture and stores the scan for userID. Results that
// cannot be reported on are stored as failed and returned as an error
// wrapping report.ErrInvalidInput. Narrative failures are logged and leave
// the scan without an analysis.
func (p *Pipeline) Ingest(ctx context.Context, userID, filename string, r io.Reader) (*model.ScanRecord, error) {
	if p.analyzer == nil {
		return nil, errors.New("no inference service configured")
	}

	results, err := p.analyzer.Analyze(ctx, filename, r)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze %s: %w", filename, err)
	}

	rec := &model.ScanRecord{
		UserID:     userID,
		Filename:   filename,
		UploadDate: p.now(),
		Status:     model.StatusCompleted,
		RiskLevel:  model.RiskLevelFor(results.AnomalyRate),
		Results:    *results,
	}
	if verr := report.Validate(rec.Summary()); verr != nil {
		rec.Status = model.StatusFailed
		if err := p.scans.Save(rec); err != nil {
			return nil, fmt.Errorf("failed to store scan: %w", err)
		}
		util.Warn("Scan %s for %s stored as failed: %v", rec.ID, userID, verr)
		return rec, fmt.Errorf("invalid results for %s: %w", filename, verr)
	}

	if err := p.scans.Save(rec); err != nil {
		return nil, fmt.Errorf("failed to store scan: %w", err)
	}
	util.Info("Stored scan %s for %s: %d/%d anomalous (%s risk)",
		rec.ID, userID, results.AnomaliesDetected, results.TotalRecords, rec.RiskLevel)

	if p.narrator != nil {
		if err := p.Narrate(ctx, rec); err != nil {
			util.Warn("Narrative for scan %s failed: %v", rec.ID, err)
		}
	}

	return rec, nil
}

// Narrate generates and stores the narrative of a scan.
func (p *Pipeline) Narrate(ctx context.Context, rec *model.ScanRecord) error {
	if p.narrator == nil {
		return narrative.ErrNotConfigured
	}

	analysis, err := p.narrator.Analyze(ctx, rec.Results)
	if err != nil {
		return err
	}
	if err := p.scans.AttachAnalysis(rec.ID, analysis); err != nil {
		return err
	}
	rec.AIAnalysis = analysis
	return nil
}

// Backfill narrates up to limit scans that have none. It stops at the
// first failure and reports how many succeeded.
func (p *Pipeline) Backfill(ctx context.Context, limit int) (int, error) {
	if p.narrator == nil {
		return 0, nil
	}

	pending, err := p.scans.ListMissingAnalysis(limit)
	if err != nil {
		return 0, err
	}

	done := 0
	for i := range pending {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		if err := p.Narrate(ctx, &pending[i]); err != nil {
			return done, fmt.Errorf("scan %s: %w", pending[i].ID, err)
		}
		done++
	}

	return done, nil
}

// HasNarrator reports whether narratives can be generated.
func (p *Pipeline) HasNarrator() bool {
	return p.narrator != nil
}
