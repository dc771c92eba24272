// Package util provides common utilities for intruscan.
package util

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	DataDir  string `mapstructure:"data_dir"`
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`

	Database DatabaseConfig `mapstructure:"database"`

	// Inference service
	InferenceURL     string        `mapstructure:"inference_url"`
	InferenceTimeout time.Duration `mapstructure:"inference_timeout"`

	// Narrative generation
	GeminiAPIKey     string        `mapstructure:"gemini_api_key"`
	GeminiModel      string        `mapstructure:"gemini_model"`
	NarrativeTimeout time.Duration `mapstructure:"narrative_timeout"`

	// Report settings
	ReportOutputDir string `mapstructure:"report_output_dir"`
	ProductName     string `mapstructure:"product_name"`

	// Web server
	WebPort     int    `mapstructure:"web_port"`
	UserHeader  string `mapstructure:"user_header"`
	DefaultUser string `mapstructure:"default_user"`

	// Background jobs
	InboxDir          string        `mapstructure:"inbox_dir"`
	IngestInterval    time.Duration `mapstructure:"ingest_interval"`
	NarrativeInterval time.Duration `mapstructure:"narrative_interval"`
	HealthInterval    time.Duration `mapstructure:"health_interval"`

	// URL classifier
	KeywordsFile string `mapstructure:"keywords_file"`
}

// DatabaseConfig selects the scan store backend.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".intruscan")

	return &Config{
		DataDir:  dataDir,
		LogLevel: "info",
		LogFile:  filepath.Join(dataDir, "intruscan.log"),

		Database: DatabaseConfig{
			Driver: "sqlite3",
			DSN:    filepath.Join(dataDir, "intruscan.db"),
		},

		InferenceURL:     "http://localhost:5000/analyze",
		InferenceTimeout: 5 * time.Minute,

		GeminiModel:      "gemini-2.5-flash",
		NarrativeTimeout: 2 * time.Minute,

		ReportOutputDir: filepath.Join(dataDir, "reports"),
		ProductName:     "IntruScan",

		WebPort:     8080,
		UserHeader:  "X-User-ID",
		DefaultUser: "local",

		InboxDir:          filepath.Join(dataDir, "inbox"),
		IngestInterval:    1 * time.Minute,
		NarrativeInterval: 10 * time.Minute,
		HealthInterval:    1 * time.Minute,
	}
}

// LoadConfig loads configuration from file and environment into v.
// An explicit cfgFile must exist; the default search path may be empty.
func LoadConfig(v *viper.Viper, cfgFile string) (*Config, error) {
	cfg := DefaultConfig()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(cfg.DataDir)
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("intruscan")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("gemini_api_key", "INTRUSCAN_GEMINI_API_KEY", "GEMINI_API_KEY")

	setDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := EnsureDir(cfg.DataDir); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("data_dir", cfg.DataDir)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("log_file", cfg.LogFile)
	v.SetDefault("database.driver", cfg.Database.Driver)
	v.SetDefault("database.dsn", cfg.Database.DSN)
	v.SetDefault("inference_url", cfg.InferenceURL)
	v.SetDefault("inference_timeout", cfg.InferenceTimeout)
	v.SetDefault("gemini_api_key", "")
	v.SetDefault("gemini_model", cfg.GeminiModel)
	v.SetDefault("narrative_timeout", cfg.NarrativeTimeout)
	v.SetDefault("report_output_dir", cfg.ReportOutputDir)
	v.SetDefault("product_name", cfg.ProductName)
	v.SetDefault("web_port", cfg.WebPort)
	v.SetDefault("user_header", cfg.UserHeader)
	v.SetDefault("default_user", cfg.DefaultUser)
	v.SetDefault("inbox_dir", cfg.InboxDir)
	v.SetDefault("ingest_interval", cfg.IngestInterval)
	v.SetDefault("narrative_interval", cfg.NarrativeInterval)
	v.SetDefault("health_interval", cfg.HealthInterval)
	v.SetDefault("keywords_file", "")
}

// Validate checks values that would otherwise fail much later.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn must be set")
	}
	if c.WebPort <= 0 || c.WebPort > 65535 {
		return fmt.Errorf("invalid web_port %d", c.WebPort)
	}
	if c.ProductName == "" {
		c.ProductName = "IntruScan"
	}
	return nil
}

// EnsureDir ensures a directory exists.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}
