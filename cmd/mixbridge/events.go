package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/germanamz/mixbridge/pkg/session"
	"github.com/germanamz/mixbridge/pkg/surface"
)

// relayEvents shows session events that have no other outlet on the
// surfaces: rejected commands and finished syncs. It returns when ctx ends
// or sub is unsubscribed.
func relayEvents(ctx context.Context, sub *session.Subscription, n surface.Notifier, log *slog.Logger) error {
	for {
		select {
		case <-ctx.Done():
			if d := sub.Dropped(); d > 0 {
				log.Debug("session events missed by relay", "count", d)
			}
			return nil
		case e, ok := <-sub.C:
			if !ok {
				return nil
			}
			if text, ok := notice(e); ok {
				n.Notify(text)
			}
		}
	}
}

func notice(e session.Event) (string, bool) {
	switch e.Kind {
	case session.EventCommandFailed:
		return fmt.Sprintf("%s failed: %s", e.Command, session.ErrorText(e.Err)), true
	case session.EventSynced:
		return fmt.Sprintf("Synced %d controls", e.Controls), true
	default:
		return "", false
	}
}
