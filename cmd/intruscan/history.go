package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/user/intruscan/internal/report"
	"github.com/user/intruscan/internal/storage"
)

var (
	historyLimit    int
	historyMarkdown bool
	historyOutput   string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show scan history",
	Long: `List a user's recent scans, newest first.

Examples:
  intruscan history
  intruscan history --user alice --limit 25
  intruscan history --markdown -o history.md`,
	RunE: runHistory,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show a user's aggregate statistics",
	RunE:  runStats,
}

func init() {
	historyCmd.Flags().String("user", "", "User whose history to show (default: default_user)")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "Number of scans")
	historyCmd.Flags().BoolVar(&historyMarkdown, "markdown", false,
		"Print a Markdown history report with Mermaid charts")
	historyCmd.Flags().StringVarP(&historyOutput, "output", "o", "",
		"Write the Markdown report to a file")

	statsCmd.Flags().String("user", "", "User whose statistics to show (default: default_user)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	user := userFlag(cmd)
	gen := report.NewHistoryGenerator(storage.NewScanStorage(db))
	data, err := gen.Generate(user, historyLimit)
	if err != nil {
		return err
	}

	if historyMarkdown || historyOutput != "" {
		content := report.FormatHistoryMarkdown(data, cfg.ProductName)
		if historyOutput == "" || historyOutput == "-" {
			fmt.Print(content)
			return nil
		}
		if err := os.WriteFile(historyOutput, []byte(content), 0644); err != nil {
			return fmt.Errorf("failed to write history: %w", err)
		}
		fmt.Printf("History saved to: %s\n", historyOutput)
		return nil
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("Scan History: %s", user)))
	if len(data.Scans) == 0 {
		fmt.Println(labelStyle.Render("  No scans recorded"))
		return nil
	}

	fmt.Printf("  %s\n", labelStyle.Render(fmt.Sprintf("%-36s  %-16s  %-24s  %9s  %8s  %s",
		"ID", "Uploaded", "File", "Anomalies", "Rate", "Risk")))
	for _, s := range data.Scans {
		name := s.Filename
		if len(name) > 24 {
			name = name[:21] + "..."
		}
		fmt.Printf("  %-36s  %-16s  %-24s  %9d  %7.2f%%  %s\n",
			s.ID, s.UploadDate.Local().Format("2006-01-02 15:04"), name,
			s.Results.AnomaliesDetected, s.Results.AnomalyRate, renderRisk(s.RiskLevel))
	}

	if len(data.RiskChanges) > 0 {
		fmt.Println()
		fmt.Println(titleStyle.Render("Risk Changes"))
		for _, c := range data.RiskChanges {
			fmt.Printf("  %s  %s: %s -> %s\n",
				c.Timestamp.Local().Format("2006-01-02 15:04"), c.Filename,
				renderRisk(c.OldLevel), renderRisk(c.NewLevel))
		}
	}

	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	user := userFlag(cmd)
	stats, err := storage.NewScanStorage(db).UserStats(user)
	if err != nil {
		return err
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("Statistics: %s", user)))
	fmt.Printf("  %s %s\n", labelStyle.Render("Total scans:       "), valueStyle.Render(fmt.Sprintf("%d", stats.TotalScans)))
	fmt.Printf("  %s %s\n", labelStyle.Render("Anomalies detected:"), valueStyle.Render(fmt.Sprintf("%d", stats.AnomaliesDetected)))
	fmt.Printf("  %s %s\n", labelStyle.Render("Normal traffic:    "), valueStyle.Render(fmt.Sprintf("%d", stats.NormalTraffic)))
	fmt.Printf("  %s %s\n", labelStyle.Render("Risk level:        "), renderRisk(stats.RiskLevel))

	return nil
}
