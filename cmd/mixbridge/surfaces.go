package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/germanamz/mixbridge/pkg/config"
	"github.com/germanamz/mixbridge/pkg/surface"
	"github.com/germanamz/mixbridge/pkg/surfaces/mcpsurface"
	"github.com/germanamz/mixbridge/pkg/surfaces/midisurface"
	"github.com/germanamz/mixbridge/pkg/surfaces/tui"

	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver
)

// surfaceSet is the opened control surfaces. Runners block until their
// surface is done; the process exits when any of them returns.
type surfaceSet struct {
	hosts   []surface.Host
	runners []func(ctx context.Context) error
	closers []io.Closer
}

func (s *surfaceSet) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// openSurfaces opens every surface named in cfg. reconnect is bound to the
// TUI reconnect key.
func openSurfaces(cfg config.Config, log *slog.Logger, reconnect func()) (*surfaceSet, error) {
	set := &surfaceSet{}

	for _, name := range cfg.Surfaces {
		switch name {
		case config.SurfaceTUI:
			h := tui.New(tui.Options{OnReconnect: reconnect})
			set.hosts = append(set.hosts, h)
			set.runners = append(set.runners, h.Run)
		case config.SurfaceMIDI:
			s, err := midisurface.Open(cfg.MIDI, log)
			if err != nil {
				_ = set.Close()
				return nil, err
			}
			set.hosts = append(set.hosts, s)
			set.closers = append(set.closers, s)
		case config.SurfaceMCP:
			s := mcpsurface.New("mixbridge", version)
			set.hosts = append(set.hosts, s)
			set.runners = append(set.runners, s.ServeStdio)
		}
	}

	if len(set.hosts) == 0 {
		set.hosts = append(set.hosts, surface.Discard{})
	}

	return set, nil
}
