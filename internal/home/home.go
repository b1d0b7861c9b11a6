package home

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDirName is the default name for the oracle home directory.
	DefaultDirName = ".oracle"

	// DataDirName is the subdirectory for local state.
	DataDirName = "data"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"

	// ProphecyFileName is the local fallback store for prophecy records.
	ProphecyFileName = "prophecies.json"

	// DefraDirName holds DefraDB data when the container is managed by oracle.
	DefraDirName = "defradb"

	// LogFileName is the default log file written by `oracle serve --log-file`.
	LogFileName = "oracle.log"
)

// Dir represents the oracle home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.oracle).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// DataPath returns the path to the data directory.
func (d *Dir) DataPath() string {
	return filepath.Join(d.path, DataDirName)
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// ProphecyStorePath returns the path of the local JSON prophecy store.
func (d *Dir) ProphecyStorePath() string {
	return filepath.Join(d.DataPath(), ProphecyFileName)
}

// DefraDataPath returns the bind-mount directory for a managed DefraDB container.
func (d *Dir) DefraDataPath() string {
	return filepath.Join(d.path, DefraDirName)
}

// LogPath returns the default log file path.
func (d *Dir) LogPath() string {
	return filepath.Join(d.path, LogFileName)
}

// EnsureExists creates the home directory and subdirectories if they don't exist.
func (d *Dir) EnsureExists() error {
	// Create data directory (this also creates the parent)
	if err := os.MkdirAll(d.DataPath(), 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	return nil
}

// EnsureDefraDataPath creates the DefraDB data directory.
func (d *Dir) EnsureDefraDataPath() error {
	if err := os.MkdirAll(d.DefraDataPath(), 0o755); err != nil {
		return fmt.Errorf("failed to create defradb directory: %w", err)
	}
	return nil
}

// Exists returns true if the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}
