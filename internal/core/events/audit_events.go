package events

import (
	coreAudit "github.com/frahmantamala/expense-claims/internal/core/audit"
	"github.com/google/uuid"
)

const EventTypeAuditRecorded = "audit.recorded"

// AuditRecordedEvent carries one entry from the request path to the audit store.
type AuditRecordedEvent struct {
	BaseEvent
	Entry coreAudit.Entry `json:"entry"`
}

func NewAuditRecordedEvent(entry coreAudit.Entry) *AuditRecordedEvent {
	return &AuditRecordedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeAuditRecorded,
			Timestamp: entry.CreatedAt,
			Data: map[string]interface{}{
				"action":      string(entry.Action),
				"actor_id":    entry.ActorID,
				"target_type": string(entry.TargetType),
				"target_id":   entry.TargetID,
			},
		},
		Entry: entry,
	}
}

// AuditEntry extracts the entry from an audit event.
func AuditEntry(event Event) (coreAudit.Entry, bool) {
	switch e := event.(type) {
	case *AuditRecordedEvent:
		return e.Entry, true
	case AuditRecordedEvent:
		return e.Entry, true
	}
	return coreAudit.Entry{}, false
}

var _ Event = (*AuditRecordedEvent)(nil)
