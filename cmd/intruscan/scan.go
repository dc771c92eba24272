package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/user/intruscan/internal/daemon"
	"github.com/user/intruscan/internal/model"
	"github.com/user/intruscan/internal/pipeline"
	"github.com/user/intruscan/internal/report"
	"github.com/user/intruscan/internal/storage"
)

var scanWithReport bool

var scanCmd = &cobra.Command{
	Use:   "scan <capture.csv>",
	Short: "Analyze a traffic capture",
	Long: `Upload a CSV traffic capture to the anomaly detection service and
store the results in the scan history.

Examples:
  intruscan scan capture.csv
  intruscan scan capture.csv --user alice --report`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().String("user", "", "User the scan belongs to (default: default_user)")
	scanCmd.Flags().BoolVar(&scanWithReport, "report", false,
		"Also write a PDF report to the report output directory")
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	path := args[0]
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open capture: %w", err)
	}
	defer f.Close()

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	deps, err := daemon.BuildDeps(cfg, db)
	if err != nil {
		return err
	}

	scans := storage.NewScanStorage(db)
	p := pipeline.New(deps.Analyzer, scans, deps.Narrator)

	fmt.Printf("Analyzing %s...\n", filepath.Base(path))
	rec, err := p.Ingest(ctx, userFlag(cmd), filepath.Base(path), f)
	if err != nil {
		return err
	}

	printScan(rec)

	if scanWithReport {
		svc := report.NewService(scans, report.NewEngine(cfg.ProductName, deps.Renderer))
		sink := report.FileSink{Dir: cfg.ReportOutputDir}
		name, err := svc.Export(ctx, rec.ID, rec.UserID, report.FormatPDF, sink)
		if err != nil {
			return err
		}
		fmt.Printf("Report saved to: %s\n", sink.Path(name))
	}

	return nil
}

var (
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99")).MarginBottom(1)

	riskStyles = map[model.RiskLevel]lipgloss.Style{
		model.RiskLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Bold(true),
		model.RiskMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
		model.RiskHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
	}
)

func renderRisk(level model.RiskLevel) string {
	if style, ok := riskStyles[level]; ok {
		return style.Render(string(level))
	}
	return string(level)
}

func printScan(rec *model.ScanRecord) {
	r := rec.Results
	fmt.Println()
	fmt.Println(titleStyle.Render("Scan " + rec.ID))
	row := func(label, value string) {
		fmt.Printf("  %s %s\n", labelStyle.Render(fmt.Sprintf("%-16s", label)), value)
	}
	row("File:", valueStyle.Render(rec.Filename))
	row("Records:", valueStyle.Render(fmt.Sprintf("%d", r.TotalRecords)))
	row("Anomalies:", valueStyle.Render(fmt.Sprintf("%d (%.2f%%)", r.AnomaliesDetected, r.AnomalyRate)))
	row("Normal:", valueStyle.Render(fmt.Sprintf("%d", r.NormalRecords)))
	row("Processing:", valueStyle.Render(fmt.Sprintf("%.2fs", r.ProcessingTime)))
	row("Risk:", renderRisk(rec.RiskLevel))

	for _, c := range r.ClassDistribution.Sorted() {
		info := model.LookupClass(c.Key)
		row("  "+info.Label+":", valueStyle.Render(fmt.Sprintf("%d", c.Count)))
	}

	if rec.AIAnalysis != nil {
		row("AI analysis:", valueStyle.Render("attached"))
	}
}
