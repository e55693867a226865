package main

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"sync"
	"syscall"

	"github.com/germanamz/mixbridge/pkg/config"
	"github.com/germanamz/mixbridge/pkg/metrics"
	"github.com/germanamz/mixbridge/pkg/obsws"
	"github.com/germanamz/mixbridge/pkg/session"
	"github.com/germanamz/mixbridge/pkg/surface"
	"golang.org/x/sync/errgroup"
)

const eventBuffer = 32

func run(configPath, envFile string) error {
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

	log, logCloser, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logCloser.Close() }()
	slog.SetDefault(log)

	reconnect := make(chan struct{}, 1)
	requestReconnect := func() {
		select {
		case reconnect <- struct{}{}:
		default:
		}
	}

	surfaces, err := openSurfaces(cfg, log, requestReconnect)
	if err != nil {
		return err
	}
	defer func() { _ = surfaces.Close() }()

	host := surface.NewFanout(surfaces.hosts...)
	defer func() { _ = host.Close() }()
	mgr := session.New(session.Options{
		Client:   obsws.New(log),
		Host:     host,
		Settings: config.File{Path: configPath},
		Logger:   log,
	})
	defer func() { _ = mgr.Close() }()

	events := mgr.Events().Subscribe(eventBuffer)
	defer mgr.Events().Unsubscribe(events)

	log.Info("mixbridge starting", "version", version, "config", configPath, "surfaces", cfg.Surfaces)

	ctx, stop := context.WithCancel(ctx)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return ignoreCanceled(mgr.Run(gctx)) })
	g.Go(func() error { return reconnectLoop(gctx, mgr, reconnect, log) })
	g.Go(func() error { return relayEvents(gctx, events, host, log) })

	if cfg.Metrics.Listen != "" {
		g.Go(func() error { return metrics.Serve(gctx, cfg.Metrics.Listen, log) })
	}

	if cfg.WatchConfig {
		g.Go(func() error {
			return ignoreCanceled(config.Watch(gctx, configPath, config.DefaultDebounce, log, func() {
				log.Info("config changed, reconnecting")
				requestReconnect()
			}))
		})
	}

	for _, r := range surfaces.runners {
		g.Go(func() error {
			defer stop()
			return ignoreCanceled(r(gctx))
		})
	}

	requestReconnect()

	err = g.Wait()
	log.Info("mixbridge stopped", "error", err)
	return err
}

// reconnectLoop starts a new session Init for every request. A request that
// arrives while an Init is in flight supersedes it.
func reconnectLoop(ctx context.Context, mgr *session.Manager, reconnect <-chan struct{}, log *slog.Logger) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-reconnect:
		}

		wg.Go(func() {
			err := mgr.Init(ctx)
			switch {
			case err == nil:
				log.Info("mixer synced", "controls", mgr.Registry().Len())
			case ctx.Err() != nil, errors.Is(err, session.ErrSuperseded):
				log.Debug("connection attempt superseded")
			default:
				log.Warn("connection attempt failed", "error", err)
			}
		})
	}
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
