package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/user/intruscan/internal/charts"
	"github.com/user/intruscan/internal/model"
	"github.com/user/intruscan/internal/report"
	"github.com/user/intruscan/internal/storage"
)

var (
	reportScanID     string
	reportInput      string
	reportFormat     string
	reportOutput     string
	reportSignKey    string
	reportPassphrase string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a scan report",
	Long: `Generate a PDF or Markdown security report for a stored scan or for a
scan record read from a JSON or YAML file.

Examples:
  intruscan report --scan 3f2a...
  intruscan report --scan 3f2a... --format markdown -o -
  intruscan report --input scan.yaml -o ./report.pdf --sign-key key.asc`,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportScanID, "scan", "", "ID of a stored scan")
	reportCmd.Flags().StringVar(&reportInput, "input", "",
		"Scan record file (.json, .yaml or .yml)")
	reportCmd.Flags().StringVar(&reportFormat, "format", "pdf",
		"Output format (pdf, markdown)")
	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "",
		"Output file path, - for stdout (default: report output directory)")
	reportCmd.Flags().StringVar(&reportSignKey, "sign-key", "",
		"Armoured OpenPGP private key; writes a detached .asc signature")
	reportCmd.Flags().StringVar(&reportPassphrase, "sign-passphrase", "",
		"Passphrase for an encrypted signing key")
	reportCmd.Flags().String("user", "", "Owner of the scan (default: default_user)")
	reportCmd.MarkFlagsMutuallyExclusive("scan", "input")
	reportCmd.MarkFlagsOneRequired("scan", "input")
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	format, err := report.ParseFormat(reportFormat)
	if err != nil {
		return err
	}
	if reportSignKey != "" && reportOutput == "-" {
		return errors.New("cannot sign a report written to stdout")
	}

	var art *report.Artifact
	if reportInput != "" {
		rec, err := readRecordFile(reportInput)
		if err != nil {
			return err
		}
		svc := report.NewService(nil, report.NewEngine(cfg.ProductName, charts.NewRenderer()))
		art, err = svc.Build(ctx, report.InputFromRecord(rec), format)
		if err != nil {
			return err
		}
	} else {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		scans := storage.NewScanStorage(db)
		svc := report.NewService(scans, report.NewEngine(cfg.ProductName, charts.NewRenderer()))
		art, err = svc.Render(ctx, reportScanID, userFlag(cmd), format)
		if err != nil {
			return err
		}
	}

	if reportOutput == "-" {
		_, err := os.Stdout.Write(art.Data)
		return err
	}

	sink := report.FileSink{Dir: cfg.ReportOutputDir}
	name := art.Name
	if reportOutput != "" {
		sink.Dir = filepath.Dir(reportOutput)
		name = filepath.Base(reportOutput)
	}
	if err := sink.Deliver(ctx, name, art.Data); err != nil {
		return err
	}
	path := sink.Path(name)
	fmt.Printf("Report saved to: %s\n", path)

	if reportSignKey != "" {
		sigPath, err := signReport(path, art.Data)
		if err != nil {
			return err
		}
		fmt.Printf("Signature saved to: %s\n", sigPath)
	}

	return nil
}

// readRecordFile decodes a scan record from JSON or YAML by extension.
func readRecordFile(path string) (*model.ScanRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	var rec model.ScanRecord
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &rec)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &rec)
	default:
		return nil, fmt.Errorf("unsupported input type %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if rec.Filename == "" {
		rec.Filename = filepath.Base(path)
	}
	return &rec, nil
}

func signReport(path string, data []byte) (string, error) {
	key, err := os.Open(reportSignKey)
	if err != nil {
		return "", fmt.Errorf("failed to open signing key: %w", err)
	}
	defer key.Close()

	var sig bytes.Buffer
	if err := report.SignDetached(&sig, bytes.NewReader(data), key, []byte(reportPassphrase)); err != nil {
		return "", err
	}

	sigPath := path + ".asc"
	if err := os.WriteFile(sigPath, sig.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("failed to write signature: %w", err)
	}
	return sigPath, nil
}
