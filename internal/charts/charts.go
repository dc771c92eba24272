// Package charts rasterizes report charts to PNG with go-chart.
package charts

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/user/intruscan/internal/report"
)

// Default raster size in pixels. The report embeds charts at 85x65 mm.
const (
	DefaultWidth  = 680
	DefaultHeight = 520
)

// ErrNoData is returned when a chart has nothing to draw.
var ErrNoData = errors.New("chart has no data")

// Renderer draws a pie chart for the traffic slot and a bar chart for the
// attack type slot.
type Renderer struct {
	Width  int
	Height int
}

// NewRenderer creates a renderer with the default raster size.
func NewRenderer() *Renderer {
	return &Renderer{Width: DefaultWidth, Height: DefaultHeight}
}

// RenderChart implements report.ChartRenderer.
func (r *Renderer) RenderChart(ctx context.Context, spec report.ChartSpec) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	values := toValues(spec.Entries)
	if len(values) == 0 {
		return nil, fmt.Errorf("%s: %w", spec.Title, ErrNoData)
	}

	var buf bytes.Buffer
	var err error
	switch spec.Slot {
	case report.SlotTraffic:
		err = r.pie(spec.Title, values).Render(chart.PNG, &buf)
	case report.SlotAttackTypes:
		err = r.bar(spec.Title, values).Render(chart.PNG, &buf)
	default:
		return nil, fmt.Errorf("unknown chart slot %q", spec.Slot)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", spec.Title, err)
	}

	return buf.Bytes(), nil
}

func (r *Renderer) size() (int, int) {
	w, h := r.Width, r.Height
	if w <= 0 {
		w = DefaultWidth
	}
	if h <= 0 {
		h = DefaultHeight
	}
	return w, h
}

func (r *Renderer) pie(title string, values []chart.Value) chart.PieChart {
	w, h := r.size()
	return chart.PieChart{
		Title:  title,
		Width:  w,
		Height: h,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		Values: values,
	}
}

func (r *Renderer) bar(title string, values []chart.Value) chart.BarChart {
	w, h := r.size()
	barWidth := (w - 120) / (len(values) * 2)
	if barWidth > 60 {
		barWidth = 60
	}
	if barWidth < 8 {
		barWidth = 8
	}
	// A fixed range from zero keeps equal or single bars drawable.
	maxValue := 1.0
	for _, v := range values {
		if v.Value > maxValue {
			maxValue = v.Value
		}
	}
	return chart.BarChart{
		Title:  title,
		Width:  w,
		Height: h,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: maxValue},
		},
		BarWidth: barWidth,
		Bars:     values,
	}
}

// toValues converts chart entries, dropping empty ones.
func toValues(entries []report.ChartEntry) []chart.Value {
	values := make([]chart.Value, 0, len(entries))
	for _, e := range entries {
		if e.Value <= 0 {
			continue
		}
		values = append(values, chart.Value{
			Label: e.Label,
			Value: float64(e.Value),
			Style: chart.Style{
				FillColor:   drawing.Color{R: e.Color.R, G: e.Color.G, B: e.Color.B, A: 255},
				StrokeColor: drawing.ColorWhite,
				StrokeWidth: 1,
			},
		})
	}
	return values
}
