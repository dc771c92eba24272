package main

import (
	"github.com/spf13/cobra"

	"github.com/user/intruscan/internal/tui"
)

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Launch the terminal dashboard",
	Long: `Launch an interactive terminal dashboard for one user's scans.

The dashboard shows:
- Aggregate statistics and the current risk level
- Recent scans
- Daemon and service health
- URL check counters

Press 'r' to refresh, 'q' to quit.`,
	RunE: runUI,
}

func init() {
	uiCmd.Flags().String("user", "", "User whose scans to show (default: default_user)")
}

func runUI(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	app := tui.NewApp(db, cfg, userFlag(cmd))
	return app.Run()
}
