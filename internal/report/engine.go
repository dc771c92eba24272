// Package report lays out scan results as paginated PDF reports.
package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"math"
	"strings"
	"time"

	"github.com/user/intruscan/internal/model"
	"github.com/user/intruscan/internal/util"
)

// chart block geometry
const (
	chartWidth       = 85.0
	chartHeight      = 65.0
	chartTitleStep   = 10.0
	chartBlockHeight = chartTitleStep + chartHeight + 5
	fallbackLineStep = 6.0

	statsCardHeight  = 20.0
	statsGutter      = 5.0
	statsBlockHeight = 10 + statsCardHeight + 10

	tableRowHeight = 8.0
	tableTitleStep = 15.0
	tableTailSpace = 10.0
)

var tableColumns = []struct {
	Header string
	Share  float64
}{
	{"Attack Type", 0.40},
	{"Count", 0.20},
	{"Percentage", 0.20},
	{"Category", 0.20},
}

// ChartSpec describes the chart a ChartRenderer is asked to rasterize.
type ChartSpec struct {
	Slot    ChartSlot
	Title   string
	Entries []ChartEntry
}

// ChartRenderer rasterizes chart data into a PNG image. Returning an
// error or no bytes makes the slot fall back to a text listing.
type ChartRenderer interface {
	RenderChart(ctx context.Context, spec ChartSpec) ([]byte, error)
}

// Input is everything a report is built from.
type Input struct {
	Summary     model.ScanSummary
	Narrative   string
	ChartImages map[ChartSlot][]byte
	GeneratedAt time.Time
}

// InputFromRecord builds report input from a stored scan.
func InputFromRecord(rec *model.ScanRecord) Input {
	in := Input{Summary: rec.Summary()}
	if rec.AIAnalysis != nil {
		in.Narrative = rec.AIAnalysis.Analysis
	}
	return in
}

// Engine lays out report documents. An Engine holds no per-report state
// and may be shared between goroutines.
type Engine struct {
	productName string
	renderer    ChartRenderer
	newMeasurer func() TextMeasurer
	now         func() time.Time
}

// NewEngine creates an engine. renderer may be nil, in which case only
// pre-rendered chart images are embedded.
func NewEngine(productName string, renderer ChartRenderer) *Engine {
	if productName == "" {
		productName = "IntruScan"
	}
	return &Engine{
		productName: productName,
		renderer:    renderer,
		newMeasurer: newFPDFMeasurer,
		now:         time.Now,
	}
}

// Generate validates the input and lays out a finalized document. It
// returns ErrInvalidInput for a malformed summary, the context error when
// ctx ends mid-layout, and ErrGenerationFailure for anything else. No
// document is returned alongside an error.
func (e *Engine) Generate(ctx context.Context, in Input) (doc *Document, err error) {
	if err := Validate(in.Summary); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			util.Error("Report layout panicked for %s: %v", in.Summary.Filename, r)
			doc, err = nil, ErrGenerationFailure
		}
	}()

	doc, err = e.layout(ctx, in)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, ctxErr
		}
		util.Error("Report layout failed for %s: %v", in.Summary.Filename, err)
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailure, err)
	}
	return doc, nil
}

func (e *Engine) layout(ctx context.Context, in Input) (*Document, error) {
	generated := in.GeneratedAt
	if generated.IsZero() {
		generated = e.now()
	}

	s := in.Summary
	m := e.newMeasurer()
	b := newBuilder()
	doc := &Document{
		productName: e.productName,
		generatedAt: generated,
		width:       pageWidth,
		height:      pageHeight,
		riskLevel:   s.RiskLevel(),
	}

	e.layoutHeader(b, m, s, generated)
	e.layoutSummary(b, m, s, generated)
	layoutStats(b, s)

	slots := []ChartSlot{SlotTraffic}
	if len(s.ClassDistribution) > 0 {
		slots = append(slots, SlotAttackTypes)
	}
	for _, slot := range slots {
		placement, err := e.layoutChart(ctx, b, slot, in)
		if err != nil {
			return nil, err
		}
		doc.charts = append(doc.charts, placement)
	}

	if len(s.ClassDistribution) > 0 {
		doc.breakdown = layoutTable(b, m, s)
	}

	if strings.TrimSpace(in.Narrative) != "" {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b.newPage()
		ops, end := layoutNarrative(m, in.Narrative, b.cur)
		b.addPlaced(ops)
		b.moveTo(end)
		doc.narrative = true
	}

	doc.pages = e.finalize(b, generated)
	return doc, nil
}

func (e *Engine) layoutHeader(b *builder, m TextMeasurer, s model.ScanSummary, generated time.Time) {
	title := sanitizeText(e.productName) + " Security Analysis Report"
	b.add(TextOp{X: pageWidth / 2, Y: b.cur.Y, Text: title, Size: 20, Style: StyleBold,
		Color: colorHeading, Align: AlignCenter})
	b.cur.Y += 15

	file := truncateToWidth(m, "File: "+sanitizeText(s.Filename), 12, StyleRegular, contentWidth)
	b.add(
		TextOp{X: pageWidth / 2, Y: b.cur.Y, Text: "Generated: " + generated.Format("2006-01-02 15:04:05"),
			Size: 12, Color: colorMuted, Align: AlignCenter},
		TextOp{X: pageWidth / 2, Y: b.cur.Y + 5, Text: file, Size: 12, Color: colorMuted, Align: AlignCenter},
	)
	b.cur.Y += 20
}

func (e *Engine) layoutSummary(b *builder, m TextMeasurer, s model.ScanSummary, generated time.Time) {
	b.add(RectOp{X: 10, Y: b.cur.Y, W: pageWidth - 20, H: 45,
		Stroke: colorPtr(colorAlert), Fill: colorPtr(colorAlertFill)})
	b.text(marginX, 8, "Executive Summary", 14, StyleBold, colorAlert)

	left := []string{
		"Risk Level: " + string(s.RiskLevel()),
		"Total Records: " + formatCount(s.TotalRecords),
		"Anomalies Detected: " + formatCount(s.AnomaliesDetected),
	}
	right := []string{
		fmt.Sprintf("Anomaly Rate: %.2f%%", s.AnomalyRatePercent),
		fmt.Sprintf("Processing Time: %.2fs", s.ProcessingTimeSeconds),
		"Analysis Date: " + generated.Format("2006-01-02"),
	}
	for i := range left {
		dy := 18 + float64(i)*8
		b.text(marginX, dy, left[i], 10, StyleRegular, colorBlack)
		b.text(100, dy, right[i], 10, StyleRegular, colorBlack)
	}

	name := truncateToWidth(m, "File Name: "+sanitizeText(s.Filename), 10, StyleRegular, pageWidth-20-10)
	b.text(marginX, 42, name, 10, StyleRegular, colorBlack)
	b.cur.Y += 55
}

func layoutStats(b *builder, s model.ScanSummary) {
	b.reserve(statsBlockHeight)
	b.text(marginX, 0, "Key Statistics", 14, StyleBold, colorHeading)
	b.cur.Y += 10

	cards := []struct {
		label string
		value string
		color Color
	}{
		{"Total Records", formatCount(s.TotalRecords), colorCardBlue},
		{"Anomalies", formatCount(s.AnomaliesDetected), colorCardRed},
		{"Normal Records", formatCount(s.NormalRecords), colorCardGreen},
		{"Anomaly Rate", fmt.Sprintf("%.2f%%", s.AnomalyRatePercent), colorCardPurple},
	}

	cardWidth := (pageWidth - 40) / 4
	for i, c := range cards {
		x := marginX + float64(i)*(cardWidth+statsGutter)
		b.add(
			RectOp{X: x, Y: b.cur.Y, W: cardWidth, H: statsCardHeight,
				Stroke: colorPtr(c.color), Fill: colorPtr(tint(c.color))},
			TextOp{X: x + 2, Y: b.cur.Y + 6, Text: c.label, Size: 8, Color: colorMuted},
			TextOp{X: x + 2, Y: b.cur.Y + 15, Text: c.value, Size: 12, Style: StyleBold, Color: c.color},
		)
	}
	b.cur.Y += statsCardHeight + 10
}

// chartImage returns a decodable PNG for the slot or a ChartCaptureError.
func (e *Engine) chartImage(ctx context.Context, slot ChartSlot, in Input, entries []ChartEntry) ([]byte, error) {
	data, ok := in.ChartImages[slot]
	if !ok || len(data) == 0 {
		if e.renderer == nil {
			return nil, &ChartCaptureError{Slot: slot, Err: errors.New("no image supplied")}
		}
		var err error
		data, err = e.renderer.RenderChart(ctx, ChartSpec{Slot: slot, Title: slot.Title(), Entries: entries})
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if err != nil {
			return nil, &ChartCaptureError{Slot: slot, Err: err}
		}
		if len(data) == 0 {
			return nil, &ChartCaptureError{Slot: slot, Err: errors.New("renderer returned no image")}
		}
	}

	if _, err := png.DecodeConfig(bytes.NewReader(data)); err != nil {
		return nil, &ChartCaptureError{Slot: slot, Err: fmt.Errorf("invalid PNG: %w", err)}
	}
	return data, nil
}

func (e *Engine) layoutChart(ctx context.Context, b *builder, slot ChartSlot, in Input) (ChartPlacement, error) {
	entries := chartEntries(slot, in.Summary)
	placement := ChartPlacement{Slot: slot}

	data, err := e.chartImage(ctx, slot, in, entries)
	var capture *ChartCaptureError
	switch {
	case err == nil:
		b.reserve(chartBlockHeight)
		b.text(marginX, 0, slot.Title(), 12, StyleBold, colorHeading)
		b.cur.Y += chartTitleStep
		b.add(ImageOp{X: marginX, Y: b.cur.Y, W: chartWidth, H: chartHeight,
			Name: fmt.Sprintf("chart-%d", slot), Data: data})
		b.cur.Y += chartHeight + 15
		placement.Embedded = true
		return placement, nil

	case errors.As(err, &capture):
		util.Warn("%v; using text listing", capture)

	default:
		return placement, err
	}

	lines := fallbackLines(entries, in.Summary.TotalRecords)
	placement.Fallback = lines
	if len(lines) == 0 {
		lines = []string{"No attack traffic detected"}
	}

	b.reserve(chartTitleStep + float64(len(lines))*fallbackLineStep + 5)
	b.text(marginX, 0, slot.Title(), 12, StyleBold, colorHeading)
	b.cur.Y += chartTitleStep
	for i, line := range lines {
		if i < len(entries) {
			b.add(RectOp{X: marginX, Y: b.cur.Y - 3, W: 3, H: 3, Fill: colorPtr(entries[i].Color)})
		}
		b.text(marginX+5, 0, line, 10, StyleRegular, colorBlack)
		b.cur.Y += fallbackLineStep
	}
	b.cur.Y += 5
	return placement, nil
}

func layoutTable(b *builder, m TextMeasurer, s model.ScanSummary) []BreakdownRow {
	rows := breakdownRows(s.ClassDistribution, s.TotalRecords)

	b.reserve(tableTitleStep + float64(len(rows)+1)*tableRowHeight + tableTailSpace)
	b.text(marginX, 0, "Detailed Attack Types Breakdown", 14, StyleBold, colorHeading)
	b.cur.Y += tableTitleStep

	b.add(RectOp{X: marginX, Y: b.cur.Y, W: contentWidth, H: tableRowHeight,
		Stroke: colorPtr(colorTableHead), Fill: colorPtr(colorTableFill)})
	x := marginX
	for _, col := range tableColumns {
		b.text(x+2, 6, col.Header, 9, StyleBold, colorTableHead)
		x += col.Share * contentWidth
	}
	b.cur.Y += tableRowHeight

	for i, row := range rows {
		if i%2 == 0 {
			b.add(RectOp{X: marginX, Y: b.cur.Y, W: contentWidth, H: tableRowHeight, Fill: colorPtr(colorStripe)})
		}
		cells := []string{row.Label, formatCount(row.Count), row.Percentage, row.Category}
		x := marginX
		for j, cell := range cells {
			width := tableColumns[j].Share * contentWidth
			if lines := wrapText(m, cell, 8, StyleRegular, width-4); len(lines) > 0 {
				cell = lines[0]
			}
			b.text(x+2, 6, cell, 8, StyleRegular, colorBlack)
			x += width
		}
		b.cur.Y += tableRowHeight
	}
	b.cur.Y += tableTailSpace

	return rows
}

// finalize stamps every page footer once the page count is known.
func (e *Engine) finalize(b *builder, generated time.Time) []Page {
	total := len(b.pages)
	pages := make([]Page, total)
	product := "Generated by " + sanitizeText(e.productName)
	date := generated.Format("2006-01-02")

	for i, ops := range b.pages {
		n := i + 1
		footer := []Op{
			TextOp{X: pageWidth - 30, Y: footerY, Text: fmt.Sprintf("Page %d of %d", n, total), Size: 8, Color: colorFooter},
			TextOp{X: marginX, Y: footerY, Text: product, Size: 8, Color: colorFooter},
			TextOp{X: pageWidth / 2, Y: footerY, Text: date, Size: 8, Color: colorFooter, Align: AlignCenter},
		}
		pages[i] = Page{Number: n, Total: total, Ops: append(append([]Op(nil), ops...), footer...)}
	}
	return pages
}

// Validate rejects a summary with negative or inconsistent counts.
func Validate(s model.ScanSummary) error {
	switch {
	case s.TotalRecords < 0:
		return invalidInput("total_records %d is negative", s.TotalRecords)
	case s.AnomaliesDetected < 0:
		return invalidInput("anomalies_detected %d is negative", s.AnomaliesDetected)
	case s.NormalRecords < 0:
		return invalidInput("normal_records %d is negative", s.NormalRecords)
	case s.AnomaliesDetected > s.TotalRecords:
		return invalidInput("anomalies_detected %d exceeds total_records %d", s.AnomaliesDetected, s.TotalRecords)
	case s.NormalRecords > s.TotalRecords:
		return invalidInput("normal_records %d exceeds total_records %d", s.NormalRecords, s.TotalRecords)
	case s.NormalRecords+s.AnomaliesDetected > s.TotalRecords:
		return invalidInput("normal_records + anomalies_detected exceeds total_records %d", s.TotalRecords)
	case math.IsNaN(s.AnomalyRatePercent) || s.AnomalyRatePercent < 0 || s.AnomalyRatePercent > 100:
		return invalidInput("anomaly_rate %v outside [0, 100]", s.AnomalyRatePercent)
	case math.IsNaN(s.ProcessingTimeSeconds) || math.IsInf(s.ProcessingTimeSeconds, 0) || s.ProcessingTimeSeconds < 0:
		return invalidInput("processing_time %v is not a non-negative number", s.ProcessingTimeSeconds)
	}

	for key, count := range s.ClassDistribution {
		if count < 0 {
			return invalidInput("class %s count %d is negative", key, count)
		}
	}
	if sum := s.ClassDistribution.Sum(); sum > s.TotalRecords {
		return invalidInput("class distribution sum %d exceeds total_records %d", sum, s.TotalRecords)
	}

	if sc := s.AnomalyScores; sc != nil {
		if sc.Count < 0 {
			return invalidInput("anomaly score count %d is negative", sc.Count)
		}
		if math.IsNaN(sc.Min) || math.IsNaN(sc.Avg) || math.IsNaN(sc.Max) || sc.Min > sc.Avg || sc.Avg > sc.Max {
			return invalidInput("anomaly scores must satisfy min <= avg <= max, got %v/%v/%v", sc.Min, sc.Avg, sc.Max)
		}
	}

	return nil
}
