package services

import (
	"context"
	"log/slog"

	"fincycle/internal/core"
)

// SyncPublisher hands a change event to the synchronizer, directly or through
// a queue.
type SyncPublisher interface {
	PublishSync(ctx context.Context, ev core.SyncEvent) error
}

// InlinePublisher runs the synchronizer in the caller's goroutine. It is used
// when no message broker is configured.
type InlinePublisher struct {
	sync *Synchronizer
}

func NewInlinePublisher(s *Synchronizer) *InlinePublisher {
	return &InlinePublisher{sync: s}
}

func (p *InlinePublisher) PublishSync(ctx context.Context, ev core.SyncEvent) error {
	_, err := p.sync.Sync(ctx, ev)
	return err
}

// publish sends ev and only logs failures: the ledger write already succeeded
// and a later edit or webhook re-triggers the sync.
func publish(ctx context.Context, p SyncPublisher, ev core.SyncEvent) {
	if p == nil {
		slog.WarnContext(ctx, "No sync publisher configured, skipping sync trigger", "table", ev.Table)
		return
	}
	if err := p.PublishSync(ctx, ev); err != nil {
		subject := ev.Subject()
		slog.ErrorContext(ctx, "Failed to publish sync trigger",
			"table", ev.Table, "type", ev.Type, "source_id", subject.ID, "error", err)
	}
}
