package report

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/user/intruscan/internal/util"
)

// Sink delivers a fully encoded report. Sinks only ever see complete
// artifacts.
type Sink interface {
	Deliver(ctx context.Context, name string, data []byte) error
}

// FileSink writes reports into a directory. The file appears under its
// final name only once it has been written completely.
type FileSink struct {
	Dir string
}

// Deliver writes data to Dir/name via a temp file and rename.
func (s FileSink) Deliver(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := util.EnsureDir(s.Dir); err != nil {
		return fmt.Errorf("failed to create report dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.Dir, ".report-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close report: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	dest := filepath.Join(s.Dir, filepath.Base(name))
	if err := os.Rename(tmpName, dest); err != nil {
		return fmt.Errorf("failed to move report into place: %w", err)
	}
	committed = true

	util.Info("Report saved to %s", dest)
	return nil
}

// Path returns where Deliver places a report with the given name.
func (s FileSink) Path(name string) string {
	return filepath.Join(s.Dir, filepath.Base(name))
}

// WriterSink streams a report to an io.Writer such as stdout or an HTTP
// response.
type WriterSink struct {
	W io.Writer
}

// Deliver writes data to the underlying writer.
func (s WriterSink) Deliver(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.W.Write(data); err != nil {
		return fmt.Errorf("failed to write report %s: %w", name, err)
	}
	return nil
}
