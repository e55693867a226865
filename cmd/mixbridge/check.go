package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/germanamz/mixbridge/pkg/config"
	"github.com/germanamz/mixbridge/pkg/obsws"
	"github.com/germanamz/mixbridge/pkg/session"
	"github.com/germanamz/mixbridge/pkg/surface"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)

var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func runCheck(configPath, envFile string, timeout time.Duration) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	configPath, envFile, err := resolvePaths(configPath, envFile)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(configPath, envFile)
	if err != nil {
		return err
	}

	level, err := cfg.Log.SlogLevel()
	if err != nil {
		return err
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, cancelTimeout := context.WithTimeout(ctx, timeout)
	defer cancelTimeout()

	mgr := session.New(session.Options{
		Client:   obsws.New(log),
		Settings: config.File{Path: configPath},
		Logger:   log,
	})
	defer func() { _ = mgr.Close() }()

	if err := mgr.Init(ctx); err != nil {
		return fmt.Errorf("%s: %s", cfg.OBS.Address, mgr.Status())
	}

	printControls(os.Stdout, mgr.Registry().Snapshots())
	return nil
}

// printControls writes snapshots as a table.
func printControls(w io.Writer, snaps []surface.Snapshot) {
	rows := make([][]string, 0, len(snaps))
	for _, s := range snaps {
		rows = append(rows, []string{s.Kind.String(), s.ID, s.Name, controlValue(s)})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("KIND", "ID", "NAME", "VALUE").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	fmt.Fprintln(w, t.Render())
	fmt.Fprintf(w, "%d controls\n", len(snaps))
}

func controlValue(s surface.Snapshot) string {
	switch s.Kind {
	case surface.KindLevel:
		v := fmt.Sprintf("%3.0f%%", s.Volume*100)
		if s.Muted {
			v += " muted"
		}
		return v
	case surface.KindToggle:
		if s.Active {
			return "active"
		}
		return ""
	default:
		return ""
	}
}
