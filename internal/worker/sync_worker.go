package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fincycle/internal/amqp"
	"fincycle/internal/core"
	applog "fincycle/internal/log"
	"fincycle/internal/services"
)

// Syncer applies one change event to materialized cycles.
type Syncer interface {
	Sync(ctx context.Context, ev core.SyncEvent) (services.SyncReport, error)
}

// SyncWorker turns queued sync triggers into Synchronizer runs.
type SyncWorker struct {
	syncer  Syncer
	timeout time.Duration
	events  *applog.StructuredLogger
}

func NewSyncWorker(syncer Syncer, timeout time.Duration) *SyncWorker {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &SyncWorker{
		syncer:  syncer,
		timeout: timeout,
		events:  applog.NewStructuredLogger(applog.FromContext(context.Background())),
	}
}

// WithEvents replaces the logger used for per-message reports.
func (w *SyncWorker) WithEvents(events *applog.StructuredLogger) *SyncWorker {
	w.events = events
	return w
}

// HandleSyncMessage runs the synchronizer for one message. A returned error
// requeues the message; replays are idempotent. Invalid events can never
// succeed and are logged and dropped.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.SyncMessage) error {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	subject := msg.Event.Subject()
	if subject == nil {
		slog.ErrorContext(ctx, "Dropping sync message without a record", "table", msg.Event.Table)
		return nil
	}
	slog.InfoContext(ctx, "Processing sync message",
		"table", msg.Event.Table,
		"type", msg.Event.Type,
		"source_id", subject.ID,
		"queued_at", msg.Timestamp)

	report, err := w.syncer.Sync(ctx, msg.Event)
	w.events.LogSync(ctx, msg.Event.Table, string(msg.Event.Type), subject.ID,
		report.Upserted, report.Skipped, report.Pruned, len(report.Failed))
	if err == nil {
		return nil
	}
	if errors.Is(err, core.ErrValidation) {
		slog.ErrorContext(ctx, "Dropping invalid sync message",
			"table", msg.Event.Table,
			"source_id", subject.ID,
			"error", err)
		return nil
	}
	return fmt.Errorf("sync %s %s (%d months failed): %w", msg.Event.Table, subject.ID, len(report.Failed), err)
}

// Run consumes until ctx is cancelled.
func (w *SyncWorker) Run(ctx context.Context, client *amqp.Client) error {
	return client.ConsumeSync(ctx, w.HandleSyncMessage)
}
