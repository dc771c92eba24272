package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/user/intruscan/internal/model"
	"github.com/user/intruscan/internal/util"
)

// ErrScanNotFound is returned when a scan does not exist for the caller.
var ErrScanNotFound = errors.New("scan not found")

// ScanSource loads stored scans.
type ScanSource interface {
	Get(id string) (*model.ScanRecord, error)
}

// Artifact is an encoded report ready for delivery.
type Artifact struct {
	Name   string
	Format Format
	Data   []byte
}

// Service builds and delivers reports for stored scans.
type Service struct {
	scans  ScanSource
	engine *Engine
	now    func() time.Time
}

// NewService creates a report service.
func NewService(scans ScanSource, engine *Engine) *Service {
	return &Service{scans: scans, engine: engine, now: time.Now}
}

// Build lays out and encodes a report. Any layout or encoding failure
// other than invalid input or cancellation is ErrGenerationFailure.
func (s *Service) Build(ctx context.Context, in Input, format Format) (*Artifact, error) {
	if in.GeneratedAt.IsZero() {
		in.GeneratedAt = s.now()
	}
	name := FileName(s.engine.productName, in.GeneratedAt, format)

	if format == FormatMarkdown {
		if err := Validate(in.Summary); err != nil {
			return nil, err
		}
		return &Artifact{Name: name, Format: format, Data: []byte(RenderMarkdown(in, s.engine.productName))}, nil
	}

	doc, err := s.engine.Generate(ctx, in)
	if err != nil {
		return nil, err
	}
	data, err := EncodePDF(doc)
	if err != nil {
		util.Error("Failed to encode report for %s: %v", in.Summary.Filename, err)
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailure, err)
	}
	return &Artifact{Name: name, Format: format, Data: data}, nil
}

// Render loads scan id for userID and builds its report.
func (s *Service) Render(ctx context.Context, id, userID string, format Format) (*Artifact, error) {
	rec, err := s.scans.Get(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load scan %s: %w", id, err)
	}
	if userID != "" && rec.UserID != userID {
		return nil, fmt.Errorf("%w: %s", ErrScanNotFound, id)
	}
	return s.Build(ctx, InputFromRecord(rec), format)
}

// Export renders the report for a stored scan and hands the finished
// artifact to sink. Nothing is delivered when any step fails.
func (s *Service) Export(ctx context.Context, id, userID string, format Format, sink Sink) (string, error) {
	art, err := s.Render(ctx, id, userID, format)
	if err != nil {
		return "", err
	}
	if err := sink.Deliver(ctx, art.Name, art.Data); err != nil {
		return "", fmt.Errorf("failed to deliver report: %w", err)
	}
	return art.Name, nil
}
