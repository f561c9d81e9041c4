// Package audit records who did what to which claim. Recording never blocks
// or fails the business operation: entries travel over the event bus and are
// persisted by a subscriber.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/expense-claims/internal"
	coreAudit "github.com/frahmantamala/expense-claims/internal/core/audit"
	"github.com/frahmantamala/expense-claims/internal/core/events"
	"github.com/frahmantamala/expense-claims/internal/metrics"
)

type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type Subscriber interface {
	Subscribe(eventType string, handler events.Handler)
}

// Writer is the append-only side of the store.
type Writer interface {
	Insert(ctx context.Context, entry *coreAudit.Entry) error
}

// Trail implements coreAudit.Recorder.
type Trail struct {
	bus    Publisher
	logger *slog.Logger
	now    func() time.Time
}

func NewTrail(bus Publisher, logger *slog.Logger) *Trail {
	return &Trail{bus: bus, logger: logger, now: time.Now}
}

func (t *Trail) Record(ctx context.Context, entry coreAudit.Entry) {
	meta := internal.RequestMetaFromContext(ctx)
	if entry.IP == "" {
		entry.IP = meta.IP
	}
	if entry.UserAgent == "" {
		entry.UserAgent = meta.UserAgent
	}
	if entry.Metadata == nil {
		entry.Metadata = coreAudit.Metadata{}
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = t.now().UTC()
	}

	if err := t.bus.Publish(ctx, events.NewAuditRecordedEvent(entry)); err != nil {
		metrics.AuditWriteFailures.Inc()
		t.logger.Error("failed to publish audit entry", "action", entry.Action, "target_id", entry.TargetID, "error", err)
	}
}

// Persist returns the bus handler that writes audit entries.
func Persist(store Writer, logger *slog.Logger) events.Handler {
	return func(ctx context.Context, event events.Event) error {
		entry, ok := events.AuditEntry(event)
		if !ok {
			return fmt.Errorf("unexpected event %T on %s", event, event.EventType())
		}
		if err := store.Insert(ctx, &entry); err != nil {
			metrics.AuditWriteFailures.Inc()
			logger.Error("failed to write audit entry",
				"action", entry.Action,
				"actor_id", entry.ActorID,
				"target_type", entry.TargetType,
				"target_id", entry.TargetID,
				"error", err)
			return err
		}
		return nil
	}
}

// Register subscribes the store to audit events.
func Register(bus Subscriber, store Writer, logger *slog.Logger) {
	bus.Subscribe(events.EventTypeAuditRecorded, Persist(store, logger))
}
