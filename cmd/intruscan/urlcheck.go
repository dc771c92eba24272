package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/intruscan/internal/model"
)

var threatRisk = map[model.ThreatLevel]model.RiskLevel{
	model.ThreatLow:    model.RiskLow,
	model.ThreatMedium: model.RiskMedium,
	model.ThreatHigh:   model.RiskHigh,
}

func renderThreat(level model.ThreatLevel) string {
	label := strings.ToUpper(string(level))
	if style, ok := riskStyles[threatRisk[level]]; ok {
		return style.Render(label)
	}
	return label
}

var (
	urlcheckReset    bool
	urlcheckKeywords string
)

var urlcheckCmd = &cobra.Command{
	Use:   "urlcheck [url...]",
	Short: "Classify URLs against the threat keyword list",
	Long: `Check URLs for threat keywords and update the scanned/detected counters.
Without arguments, print the counters and the most recent check.

Examples:
  intruscan urlcheck http://example.com/login-verify
  intruscan urlcheck --keywords ./keywords.yaml http://a.example http://b.example
  intruscan urlcheck --reset`,
	RunE: runURLCheck,
}

func init() {
	urlcheckCmd.Flags().BoolVar(&urlcheckReset, "reset", false, "Reset the counters to zero")
	urlcheckCmd.Flags().StringVar(&urlcheckKeywords, "keywords", "",
		"YAML keyword list (default: keywords_file or built-in list)")
}

func runURLCheck(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	tracker, err := newTracker(db, urlcheckKeywords)
	if err != nil {
		return err
	}

	if urlcheckReset {
		if err := tracker.Reset(); err != nil {
			return err
		}
		fmt.Println("Counters reset")
	}

	for _, u := range args {
		check, err := tracker.Check(u)
		if err != nil {
			return err
		}
		if check.Detected {
			fmt.Printf("%s %s (keyword %q)\n", renderThreat(check.ThreatLevel), check.URL, check.Matched)
		} else {
			fmt.Printf("%s %s\n", riskStyles[model.RiskLow].Render("CLEAN "), check.URL)
		}
	}

	counters, err := tracker.Counters()
	if err != nil {
		return err
	}
	fmt.Println()
	fmt.Printf("  %s %s\n", labelStyle.Render("Requests scanned:"), valueStyle.Render(fmt.Sprintf("%d", counters.RequestsScanned)))
	fmt.Printf("  %s %s\n", labelStyle.Render("Threats detected:"), valueStyle.Render(fmt.Sprintf("%d", counters.ThreatsDetected)))

	if len(args) == 0 && !urlcheckReset {
		if last, err := tracker.LastCheck(); err == nil && last != nil {
			fmt.Printf("  %s %s at %s\n", labelStyle.Render("Last check:      "), last.URL,
				last.CheckedAt.Local().Format("2006-01-02 15:04:05"))
		}
	}

	return nil
}
