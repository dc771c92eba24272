package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/user/intruscan/internal/storage"
	"github.com/user/intruscan/internal/urlscan"
	"github.com/user/intruscan/internal/util"
)

var (
	cfgFile string
	cfg     *util.Config
)

// version is overridden at build time with -ldflags.
var version = "1.0.0"

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "intruscan",
	Short: "Network anomaly detection and reporting",
	Long: `IntruScan analyzes network traffic captures for intrusions:
- Uploads CSV captures to the anomaly detection service
- Stores scan history per user with a rolling risk level
- Writes AI-assisted security narratives
- Renders paginated PDF and Markdown reports
- Classifies URLs against a threat keyword list

It can run as a background daemon that ingests captures from an inbox.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is $HOME/.intruscan/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info",
		"log level (debug, info, warn, error)")

	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))

	// Add subcommands
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(urlcheckCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(webCmd)
	rootCmd.AddCommand(uiCmd)
	rootCmd.AddCommand(versionCmd)

	// Add shell completion
	rootCmd.AddCommand(completionCmd)
}

func initConfig() {
	var err error
	cfg, err = util.LoadConfig(viper.GetViper(), cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	util.InitLogger(cfg.LogLevel, cfg.LogFile)
}

// openDB opens the configured scan store.
func openDB() (*storage.DB, error) {
	db, err := storage.Initialize(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return db, nil
}

// newTracker builds the URL classifier from keywordsFile, falling back
// to the configured list and then the built-in one.
func newTracker(db *storage.DB, keywordsFile string) (*urlscan.Tracker, error) {
	if keywordsFile == "" {
		keywordsFile = cfg.KeywordsFile
	}

	var keywords []urlscan.Keyword
	if keywordsFile != "" {
		var err error
		keywords, err = urlscan.LoadKeywords(keywordsFile)
		if err != nil {
			return nil, err
		}
	}

	return urlscan.NewTracker(urlscan.NewClassifier(keywords), storage.NewCounterStorage(db)), nil
}

// userFlag returns the --user value or the configured default.
func userFlag(cmd *cobra.Command) string {
	if u, _ := cmd.Flags().GetString("user"); u != "" {
		return u
	}
	return cfg.DefaultUser
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("intruscan version %s\n", version)
	},
}

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion script for intruscan.

To load completions:

Bash:
  $ source <(intruscan completion bash)

Zsh:
  $ source <(intruscan completion zsh)

Fish:
  $ intruscan completion fish | source

PowerShell:
  PS> intruscan completion powershell | Out-String | Invoke-Expression
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	Run: func(cmd *cobra.Command, args []string) {
		switch args[0] {
		case "bash":
			cmd.Root().GenBashCompletion(os.Stdout)
		case "zsh":
			cmd.Root().GenZshCompletion(os.Stdout)
		case "fish":
			cmd.Root().GenFishCompletion(os.Stdout, true)
		case "powershell":
			cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
		}
	},
}
