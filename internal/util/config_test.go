package util

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoadConfig_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("INTRUSCAN_DATA_DIR", dir)

	cfg, err := LoadConfig(viper.New(), "")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.DataDir != dir {
		t.Errorf("DataDir = %s, want %s", cfg.DataDir, dir)
	}
	if cfg.Database.Driver != "sqlite3" {
		t.Errorf("Database.Driver = %s, want sqlite3", cfg.Database.Driver)
	}
	if cfg.ProductName != "IntruScan" {
		t.Errorf("ProductName = %s, want IntruScan", cfg.ProductName)
	}
	if cfg.UserHeader != "X-User-ID" {
		t.Errorf("UserHeader = %s, want X-User-ID", cfg.UserHeader)
	}
}

func TestLoadConfig_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `data_dir: ` + dir + `
log_level: debug
web_port: 9090
inference_url: http://ml.internal/analyze
inference_timeout: 30s
database:
  driver: postgres
  dsn: postgres://intruscan@localhost/intruscan?sslmode=disable
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(viper.New(), path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.WebPort != 9090 {
		t.Errorf("WebPort = %d, want 9090", cfg.WebPort)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %s, want debug", cfg.LogLevel)
	}
	if cfg.InferenceTimeout != 30*time.Second {
		t.Errorf("InferenceTimeout = %v, want 30s", cfg.InferenceTimeout)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("Database.Driver = %s, want postgres", cfg.Database.Driver)
	}
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	t.Setenv("INTRUSCAN_DATA_DIR", t.TempDir())

	if _, err := LoadConfig(viper.New(), filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"bad driver", func(c *Config) { c.Database.Driver = "mysql" }, true},
		{"empty dsn", func(c *Config) { c.Database.DSN = "" }, true},
		{"bad port", func(c *Config) { c.WebPort = 70000 }, true},
		{"empty product", func(c *Config) { c.ProductName = "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(LevelWarn, &buf)

	l.Info("hidden %d", 1)
	l.Warn("shown %d", 2)
	l.Error("shown %d", 3)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message logged at warn level: %q", out)
	}
	if !strings.Contains(out, "WARN: shown 2") || !strings.Contains(out, "ERROR: shown 3") {
		t.Errorf("missing messages in %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"warning": LevelWarn,
		"error":   LevelError,
		"bogus":   LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
