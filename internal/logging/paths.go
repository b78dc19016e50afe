package logging

import (
	"os"
	"path/filepath"
)

// DefaultLogDir returns ~/.titlesearch/logs, or a temp-dir equivalent when
// the home directory is unknown.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".titlesearch", "logs")
	}
	return filepath.Join(home, ".titlesearch", "logs")
}

// DefaultLogPath returns the default server log path.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "server.log")
}
