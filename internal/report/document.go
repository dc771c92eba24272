package report

import (
	"time"

	"github.com/user/intruscan/internal/model"
)

// Color is an RGB colour used by draw operations.
type Color = model.RGB

// FontStyle selects the Helvetica face.
type FontStyle string

const (
	StyleRegular FontStyle = ""
	StyleBold    FontStyle = "B"
)

// Align positions a text run relative to its X coordinate.
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

// Op is a positioned draw operation on a page. Coordinates are in
// millimetres from the top-left corner; text Y is the baseline.
type Op interface {
	isOp()
}

// TextOp draws a single line of text.
type TextOp struct {
	X, Y  float64
	Text  string
	Size  float64
	Style FontStyle
	Color Color
	Align Align
}

// RectOp draws a rectangle with an optional border and fill.
type RectOp struct {
	X, Y, W, H float64
	Stroke     *Color
	Fill       *Color
}

// ImageOp places a PNG bitmap.
type ImageOp struct {
	X, Y, W, H float64
	Name       string
	Data       []byte
}

func (TextOp) isOp()  {}
func (RectOp) isOp()  {}
func (ImageOp) isOp() {}

// Page is one laid-out page. Number is 1-based.
type Page struct {
	Number int
	Total  int
	Ops    []Op
}

// ChartSlot identifies one of the two chart positions in a report.
type ChartSlot int

const (
	SlotTraffic ChartSlot = iota
	SlotAttackTypes
)

// Title returns the section heading for the slot.
func (s ChartSlot) Title() string {
	switch s {
	case SlotTraffic:
		return "Traffic Distribution Analysis"
	case SlotAttackTypes:
		return "Anomaly Types Distribution"
	default:
		return "Chart"
	}
}

// ChartPlacement records how a chart slot was rendered.
type ChartPlacement struct {
	Slot     ChartSlot
	Embedded bool
	Fallback []string
}

// BreakdownRow is one rendered row of the attack breakdown table.
type BreakdownRow struct {
	Key        string
	Label      string
	Count      int
	Percentage string
	Category   string
}

// Document is a finalized report. It is immutable; accessors return copies.
type Document struct {
	productName string
	generatedAt time.Time
	width       float64
	height      float64
	riskLevel   model.RiskLevel
	pages       []Page
	charts      []ChartPlacement
	breakdown   []BreakdownRow
	narrative   bool
}

// Pages returns the laid-out pages in order.
func (d *Document) Pages() []Page {
	out := make([]Page, len(d.pages))
	for i, p := range d.pages {
		out[i] = Page{Number: p.Number, Total: p.Total, Ops: append([]Op(nil), p.Ops...)}
	}
	return out
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int { return len(d.pages) }

// Size returns the page width and height in millimetres.
func (d *Document) Size() (float64, float64) { return d.width, d.height }

// GeneratedAt returns the generation timestamp stamped on the document.
func (d *Document) GeneratedAt() time.Time { return d.generatedAt }

// ProductName returns the product label used in the footer.
func (d *Document) ProductName() string { return d.productName }

// RiskLevel returns the risk tier shown in the executive summary.
func (d *Document) RiskLevel() model.RiskLevel { return d.riskLevel }

// Charts returns how each chart slot was rendered.
func (d *Document) Charts() []ChartPlacement {
	out := make([]ChartPlacement, len(d.charts))
	for i, c := range d.charts {
		out[i] = ChartPlacement{Slot: c.Slot, Embedded: c.Embedded, Fallback: append([]string(nil), c.Fallback...)}
	}
	return out
}

// Breakdown returns the rows of the attack breakdown table, if rendered.
func (d *Document) Breakdown() []BreakdownRow {
	return append([]BreakdownRow(nil), d.breakdown...)
}

// HasNarrative reports whether the narrative section was laid out.
func (d *Document) HasNarrative() bool { return d.narrative }
