package charts

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"testing"

	"github.com/user/intruscan/internal/model"
	"github.com/user/intruscan/internal/report"
)

func TestRenderChart(t *testing.T) {
	r := &Renderer{Width: 320, Height: 240}

	tests := []struct {
		name string
		spec report.ChartSpec
	}{
		{"traffic pie", report.ChartSpec{
			Slot:  report.SlotTraffic,
			Title: report.SlotTraffic.Title(),
			Entries: []report.ChartEntry{
				{Key: "normal", Label: "Normal Traffic", Value: 550, Color: model.RGB{R: 34, G: 197, B: 94}},
				{Key: "anomalous", Label: "Anomalous Traffic", Value: 450, Color: model.RGB{R: 239, G: 68, B: 68}},
			},
		}},
		{"attack bars", report.ChartSpec{
			Slot:  report.SlotAttackTypes,
			Title: report.SlotAttackTypes.Title(),
			Entries: []report.ChartEntry{
				{Key: "class_2", Label: "Port Scans", Value: 300},
				{Key: "class_1", Label: "DoS/DDoS Attacks", Value: 150},
			},
		}},
		{"single attack bar", report.ChartSpec{
			Slot:    report.SlotAttackTypes,
			Title:   report.SlotAttackTypes.Title(),
			Entries: []report.ChartEntry{{Key: "class_3", Label: "Bot Attacks", Value: 5}},
		}},
		{"equal attack bars", report.ChartSpec{
			Slot:  report.SlotAttackTypes,
			Title: report.SlotAttackTypes.Title(),
			Entries: []report.ChartEntry{
				{Key: "class_3", Label: "Bot Attacks", Value: 5},
				{Key: "class_5", Label: "Web Attacks", Value: 5},
			},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := r.RenderChart(context.Background(), tt.spec)
			if err != nil {
				t.Fatalf("RenderChart() error = %v", err)
			}
			cfg, err := png.DecodeConfig(bytes.NewReader(data))
			if err != nil {
				t.Fatalf("output is not a PNG: %v", err)
			}
			if cfg.Width != 320 || cfg.Height != 240 {
				t.Errorf("size = %dx%d", cfg.Width, cfg.Height)
			}
		})
	}
}

func TestRenderChart_NoData(t *testing.T) {
	r := NewRenderer()
	spec := report.ChartSpec{
		Slot:    report.SlotAttackTypes,
		Title:   report.SlotAttackTypes.Title(),
		Entries: []report.ChartEntry{{Key: "class_1", Label: "DoS/DDoS Attacks", Value: 0}},
	}
	if _, err := r.RenderChart(context.Background(), spec); !errors.Is(err, ErrNoData) {
		t.Errorf("error = %v, want ErrNoData", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.RenderChart(ctx, spec); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
