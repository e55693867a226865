// Package metrics exposes Prometheus instruments for the synchronization
// core and an HTTP endpoint to scrape them.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// EventsApplied counts remote events that mutated the mirror.
	// Labels: kind.
	EventsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mixbridge_events_applied_total",
		Help: "Remote mixer events applied to mirrored controls",
	}, []string{"kind"})

	// EventsIgnored counts remote events for identifiers that are not
	// mirrored, or that did not change anything. Labels: kind.
	EventsIgnored = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mixbridge_events_ignored_total",
		Help: "Remote mixer events that left the mirror unchanged",
	}, []string{"kind"})

	// CommandsSent counts commands issued to the remote mixer.
	// Labels: kind, result ("ok" or "error").
	CommandsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mixbridge_commands_sent_total",
		Help: "Commands sent to the remote mixer by kind and result",
	}, []string{"kind", "result"})

	// Syncs counts full syncs. Labels: result ("ok", "error", "superseded").
	Syncs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mixbridge_syncs_total",
		Help: "Full syncs by result",
	}, []string{"result"})

	SyncDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mixbridge_sync_duration_seconds",
		Help:    "Full sync duration",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	})

	// Controls is the number of mirrored controls. Labels: kind.
	Controls = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "mixbridge_controls",
		Help: "Mirrored controls by kind",
	}, []string{"kind"})
)

// Result returns the result label for err.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Handler returns the scrape handler for the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.InfoContext(ctx, "metrics listening", "addr", addr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics: serve: %w", err)
	}
	return nil
}
