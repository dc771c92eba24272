package daemon

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/user/intruscan/internal/model"
)

const (
	pidFileName    = "intruscan.pid"
	statusFileName = "status.json"
)

// PIDFile returns the PID file path under dataDir.
func PIDFile(dataDir string) string {
	return filepath.Join(dataDir, pidFileName)
}

// CheckRunning reports whether the PID file names a live process.
func CheckRunning(dataDir string) (bool, int) {
	data, err := os.ReadFile(PIDFile(dataDir))
	if err != nil {
		return false, 0
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return false, 0
	}

	// Signal 0 only checks that the process exists. EPERM means it exists
	// under another user.
	if err := unix.Kill(pid, 0); err != nil && err != unix.EPERM {
		return false, 0
	}

	return true, pid
}

// SendStop asks the running daemon to shut down.
func SendStop(dataDir string) error {
	running, pid := CheckRunning(dataDir)
	if !running {
		return fmt.Errorf("daemon is not running")
	}

	if err := unix.Kill(pid, unix.SIGTERM); err != nil {
		return fmt.Errorf("failed to send signal: %w", err)
	}

	return nil
}

// StatusFile holds serialized daemon status.
type StatusFile struct {
	Running   bool                  `json:"running"`
	PID       int                   `json:"pid"`
	StartTime time.Time             `json:"start_time"`
	Uptime    string                `json:"uptime"`
	UpdatedAt time.Time             `json:"updated_at"`
	Ingested  int                   `json:"ingested"`
	Failed    int                   `json:"failed"`
	Health    []model.ServiceHealth `json:"health,omitempty"`
	Jobs      []JobStatus           `json:"jobs"`
}

// WriteStatusFile writes the daemon status atomically.
func WriteStatusFile(dataDir string, status *DaemonStatus) error {
	sf := StatusFile{
		Running:   status.Running,
		PID:       status.PID,
		StartTime: status.StartTime,
		Uptime:    status.Uptime.Round(time.Second).String(),
		UpdatedAt: time.Now(),
		Ingested:  status.Ingested,
		Failed:    status.Failed,
		Health:    status.Health,
		Jobs:      status.Jobs,
	}

	data, err := json.MarshalIndent(sf, "", "  ")
	if err != nil {
		return err
	}

	path := filepath.Join(dataDir, statusFileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// ReadStatusFile reads the daemon status from a file.
func ReadStatusFile(dataDir string) (*StatusFile, error) {
	data, err := os.ReadFile(filepath.Join(dataDir, statusFileName))
	if err != nil {
		return nil, err
	}

	var sf StatusFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, err
	}

	return &sf, nil
}
