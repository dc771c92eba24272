package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/user/intruscan/internal/daemon"
	"github.com/user/intruscan/internal/storage"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	Long:  "Show the current status of the intruscan daemon, its jobs and the scan store.",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	runningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("46")).
		Bold(true)

	stoppedStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("196")).
		Bold(true)

	// Check daemon status
	running, pid := daemon.CheckRunning(cfg.DataDir)

	fmt.Println(titleStyle.Render("IntruScan Status"))

	// Daemon status
	fmt.Print(labelStyle.Render("Daemon: "))
	if running {
		fmt.Println(runningStyle.Render(fmt.Sprintf("Running (PID %d)", pid)))
	} else {
		fmt.Println(stoppedStyle.Render("Stopped"))
	}

	// Try to read status file for more details
	if sf, err := daemon.ReadStatusFile(cfg.DataDir); err == nil {
		fmt.Print(labelStyle.Render("Started: "))
		fmt.Println(valueStyle.Render(sf.StartTime.Local().Format("2006-01-02 15:04:05")))

		fmt.Print(labelStyle.Render("Uptime: "))
		fmt.Println(valueStyle.Render(sf.Uptime))

		fmt.Print(labelStyle.Render("Captures: "))
		fmt.Println(valueStyle.Render(fmt.Sprintf("%d ingested, %d failed", sf.Ingested, sf.Failed)))

		if len(sf.Health) > 0 {
			fmt.Println()
			fmt.Println(titleStyle.Render("Services"))
			for _, h := range sf.Health {
				state := runningStyle.Render("healthy")
				if !h.Healthy {
					state = stoppedStyle.Render("down: " + h.Detail)
				}
				fmt.Printf("  %s: %s\n", labelStyle.Render(h.Name), state)
			}
		}

		if len(sf.Jobs) > 0 {
			fmt.Println()
			fmt.Println(titleStyle.Render("Jobs"))

			for _, job := range sf.Jobs {
				statusStr := "idle"
				if job.Running {
					statusStr = "running"
				}
				fmt.Printf("  %s: %s (every %s, runs: %d, last: %s, errors: %d)\n",
					labelStyle.Render(job.Name),
					valueStyle.Render(statusStr),
					job.Interval,
					job.RunCount,
					job.LastRun.Local().Format("15:04:05"),
					job.ErrorCount)
				if job.LastError != "" {
					fmt.Printf("    %s\n", stoppedStyle.Render(job.LastError))
				}
			}
		}
	}

	// Get database stats
	db, err := openDB()
	if err == nil {
		defer db.Close()

		fmt.Println()
		fmt.Println(titleStyle.Render("Database Stats"))

		if count, err := storage.NewScanStorage(db).Count(); err == nil {
			fmt.Printf("  %s %s\n",
				labelStyle.Render("Scans:"),
				valueStyle.Render(fmt.Sprintf("%d", count)))
		}

		counters := storage.NewCounterStorage(db)
		if c, err := counters.URLCounters(); err == nil {
			fmt.Printf("  %s %s\n",
				labelStyle.Render("URL checks:"),
				valueStyle.Render(fmt.Sprintf("%d scanned, %d threats", c.RequestsScanned, c.ThreatsDetected)))
		}
	}

	return nil
}
