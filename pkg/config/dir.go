package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Dir is a value object that resolves paths within the mixbridge
// configuration directory.
type Dir struct {
	root string
}

// NewDir creates a Dir rooted at the given path. The path is converted to an
// absolute path. No I/O is performed.
func NewDir(root string) Dir {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}

	return Dir{root: abs}
}

// DefaultDir returns the per-user directory, e.g. ~/.config/mixbridge.
func DefaultDir() (Dir, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return Dir{}, fmt.Errorf("config: locate user config dir: %w", err)
	}

	return NewDir(filepath.Join(base, "mixbridge")), nil
}

// Root returns the absolute path to the directory.
func (d Dir) Root() string { return d.root }

// ConfigPath returns the path to the main config file.
func (d Dir) ConfigPath() string { return filepath.Join(d.root, "config.yaml") }

// EnvPath returns the path to the optional .env file.
func (d Dir) EnvPath() string { return filepath.Join(d.root, ".env") }

// LogPath returns the path logs are written to when a surface owns the
// terminal.
func (d Dir) LogPath() string { return filepath.Join(d.root, "mixbridge.log") }

// Exists reports whether the directory exists on disk.
func (d Dir) Exists() bool {
	info, err := os.Stat(d.root)

	return err == nil && info.IsDir()
}

// Ensure creates the directory if it is missing.
func (d Dir) Ensure() error {
	if err := os.MkdirAll(d.root, 0o750); err != nil {
		return fmt.Errorf("config: create %s: %w", d.root, err)
	}
	return nil
}
