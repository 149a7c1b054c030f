// Package hostappconfig resolves filesystem locations used by the babyseg CLI
// on the host: the config dir, the SIF image store, the state database, and
// per-run log files.
package hostappconfig

import (
	"fmt"
	"os"
	"path/filepath"
)

// ensureFolder recursively creates a folder if it does not exist.
func ensureFolder(path string) error {
	return os.MkdirAll(path, 0o755)
}

// ensureFile ensures that the parent folder exists and the file exists.
func ensureFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create/open file: %w", err)
	}
	defer f.Close()

	return nil
}

func ConfigBasePath() string {
	homedir, err := os.UserHomeDir()
	if err != nil {
		homedir = "/usr/local/config/babyseg"
	}

	return filepath.Join(homedir, ".config", "babyseg")
}

// ImagesPath is the default directory for SIF files when BABYSEG_SIF does not
// point elsewhere.
func ImagesPath() string {
	p := filepath.Join(ConfigBasePath(), "images")
	ensureFolder(p)
	return p
}

// CheckpointsPath is the default destination for downloaded model weights.
func CheckpointsPath() string {
	return "checkpoints"
}

// DataPath is the default destination for downloaded test volumes.
func DataPath() string {
	return "data"
}

func StateDBFile() string {
	return filepath.Join(ConfigBasePath(), "state.db")
}

func logsPath() string {
	return filepath.Join(ConfigBasePath(), "logs")
}

func RunLogPath(runID string) string {
	p := filepath.Join(logsPath(), "run-"+runID+".log")
	ensureFile(p)
	return p
}
