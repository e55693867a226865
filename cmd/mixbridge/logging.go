package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/germanamz/mixbridge/pkg/config"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// newLogger builds the process logger. Logs go to stderr unless a surface
// owns the terminal, in which case they go to a file.
func newLogger(cfg config.Config) (*slog.Logger, io.Closer, error) {
	level, err := cfg.Log.SlogLevel()
	if err != nil {
		return nil, nil, err
	}

	path := cfg.Log.File
	if path == "" && cfg.OwnsTerminal() {
		dir, err := config.DefaultDir()
		if err != nil {
			return nil, nil, err
		}
		if err := dir.Ensure(); err != nil {
			return nil, nil, err
		}
		path = dir.LogPath()
	}

	var (
		w      io.Writer = os.Stderr
		closer io.Closer = nopCloser{}
	)

	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, nil, fmt.Errorf("log: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600) //nolint:gosec // path comes from configuration
		if err != nil {
			return nil, nil, fmt.Errorf("log: %w", err)
		}
		w, closer = f, f
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(handler), closer, nil
}
