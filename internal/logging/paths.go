package logging

import (
	"os"
	"path/filepath"
)

// DefaultLogDir returns ~/.repoctx/logs, falling back to the system temp
// directory when the home directory can't be resolved.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".repoctx", "logs")
	}
	return filepath.Join(home, ".repoctx", "logs")
}

// DefaultLogPath returns the default path for the CLI's log file.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "repoctx.log")
}

// EnsureLogDir creates the log directory if it doesn't already exist.
func EnsureLogDir() error {
	return os.MkdirAll(DefaultLogDir(), 0o755)
}
