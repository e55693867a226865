package syncengine

import (
	"context"
	"fmt"
	"time"

	"github.com/germanamz/mixbridge/pkg/metrics"
	"github.com/germanamz/mixbridge/pkg/mixer"
	"github.com/germanamz/mixbridge/pkg/registry"
	"github.com/germanamz/mixbridge/pkg/surface"
	"golang.org/x/sync/errgroup"
)

// FullSync enumerates the mixer and registers a control for every source,
// audio-monitor filter and scene under generation gen. Sources and scenes
// are enumerated concurrently; per source, volume, mute and filters are
// fetched concurrently. The first failure cancels the rest and is returned.
// Controls registered before a failure stay until the next Clear.
func (e *Engine) FullSync(ctx context.Context, gen uint64) error {
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return e.syncSources(gctx, gen) })
	g.Go(func() error { return e.syncScenes(gctx, gen) })

	err := g.Wait()
	metrics.SyncDuration.Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		metrics.Syncs.WithLabelValues("ok").Inc()
		metrics.Controls.WithLabelValues(surface.KindLevel.String()).Set(float64(len(e.reg.Levels())))
		metrics.Controls.WithLabelValues(surface.KindToggle.String()).Set(float64(len(e.reg.Toggles())))
		e.log.InfoContext(ctx, "full sync finished",
			"controls", e.reg.Len(),
			"scene", e.CurrentScene(),
			"duration", time.Since(start),
		)
	case e.reg.Generation() != gen:
		metrics.Syncs.WithLabelValues("superseded").Inc()
		return ErrStale
	default:
		metrics.Syncs.WithLabelValues("error").Inc()
	}

	return err
}

func (e *Engine) syncSources(ctx context.Context, gen uint64) error {
	sources, err := e.client.Sources(ctx)
	if err != nil {
		return fmt.Errorf("syncengine: list sources: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, src := range sources {
		g.Go(func() error { return e.syncSource(gctx, gen, src.Name) })
	}

	return g.Wait()
}

func (e *Engine) syncSource(ctx context.Context, gen uint64, source string) error {
	var (
		volume  float64
		muted   bool
		filters []mixer.Filter
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := e.client.Volume(gctx, source)
		if err != nil {
			return fmt.Errorf("syncengine: source %q: get volume: %w", source, err)
		}
		volume = v
		return nil
	})
	g.Go(func() error {
		m, err := e.client.Muted(gctx, source)
		if err != nil {
			return fmt.Errorf("syncengine: source %q: get mute: %w", source, err)
		}
		muted = m
		return nil
	})
	g.Go(func() error {
		fs, err := e.client.Filters(gctx, source)
		if err != nil {
			return fmt.Errorf("syncengine: source %q: get filters: %w", source, err)
		}
		filters = fs
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	level := surface.NewLevel(source, surface.LevelOptions{
		Name:   source,
		Source: source,
		Volume: volume,
		Muted:  muted,
	})
	if !e.reg.PutIfCurrent(gen, registry.LevelKey(source), level) {
		return ErrStale
	}

	for _, f := range filters {
		if f.Kind != mixer.FilterKindAudioMonitor {
			continue
		}

		raw, ok := f.Volume()
		if !ok {
			e.log.WarnContext(ctx, "audio monitor filter has no volume setting, skipping",
				"source", source,
				"filter", f.Name,
			)
			continue
		}

		id := mixer.FilterControlID(source, f.Name)
		fl := surface.NewLevel(id, surface.LevelOptions{
			Name:   id,
			Source: source,
			Filter: f.Name,
			Volume: raw / 100,
			// Filters have no mute of their own; the flag mirrors the
			// source at discovery and is never updated.
			Muted: muted,
		})
		if !e.reg.PutIfCurrent(gen, registry.LevelKey(id), fl) {
			return ErrStale
		}
	}

	return nil
}

func (e *Engine) syncScenes(ctx context.Context, gen uint64) error {
	list, err := e.client.Scenes(ctx)
	if err != nil {
		return fmt.Errorf("syncengine: list scenes: %w", err)
	}

	if e.reg.Generation() != gen {
		return ErrStale
	}
	e.setScene(list.Current)

	for _, sc := range list.Scenes {
		t := surface.NewToggle(sc.Name, surface.ToggleOptions{
			Name:   mixer.SceneDisplayName(sc.Name),
			Scene:  sc.Name,
			Active: sc.Name == list.Current,
		})
		if !e.reg.PutIfCurrent(gen, registry.ToggleKey(sc.Name), t) {
			return ErrStale
		}
	}

	return nil
}
