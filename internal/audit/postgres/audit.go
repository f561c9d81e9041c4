package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/frahmantamala/expense-claims/internal/audit"
	auditDatamodel "github.com/frahmantamala/expense-claims/internal/core/datamodel/audit"
	coreAudit "github.com/frahmantamala/expense-claims/internal/core/audit"
	coreUser "github.com/frahmantamala/expense-claims/internal/core/user"
	"github.com/jmoiron/sqlx"
)

const insertEntry = `
INSERT INTO audit_logs (company_id, actor_id, action, target_type, target_id, metadata, ip, user_agent, created_at)
VALUES (:company_id, :actor_id, :action, :target_type, :target_id, :metadata, :ip, :user_agent, :created_at)`

const selectTimeline = `
SELECT a.id, a.company_id, a.actor_id, a.action, a.target_type, a.target_id,
       a.metadata, a.ip, a.user_agent, a.created_at,
       u.name AS actor_name, u.email AS actor_email, u.role AS actor_role
FROM audit_logs a
LEFT JOIN users u ON u.id = a.actor_id
WHERE a.target_type = ? AND a.target_id = ?
ORDER BY a.created_at ASC, a.id ASC`

// Store is the append-only audit log. It only ever inserts and selects.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Insert(ctx context.Context, entry *coreAudit.Entry) error {
	row := auditDatamodel.AuditLog{
		CompanyID:  entry.CompanyID,
		ActorID:    entry.ActorID,
		Action:     string(entry.Action),
		TargetType: string(entry.TargetType),
		TargetID:   entry.TargetID,
		Metadata:   entry.Metadata,
		IP:         entry.IP,
		UserAgent:  entry.UserAgent,
		CreatedAt:  entry.CreatedAt,
	}
	if row.Metadata == nil {
		row.Metadata = coreAudit.Metadata{}
	}
	if _, err := s.db.NamedExecContext(ctx, insertEntry, row); err != nil {
		return fmt.Errorf("insert audit entry %s: %w", entry.Action, err)
	}
	return nil
}

type timelineRow struct {
	auditDatamodel.AuditLog
	ActorName  sql.NullString `db:"actor_name"`
	ActorEmail sql.NullString `db:"actor_email"`
	ActorRole  sql.NullString `db:"actor_role"`
}

func (s *Store) ListForTarget(ctx context.Context, targetType coreAudit.TargetType, targetID int64) ([]*audit.TimelineEntry, error) {
	var rows []timelineRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(selectTimeline), string(targetType), targetID); err != nil {
		return nil, fmt.Errorf("list audit entries for %s %d: %w", targetType, targetID, err)
	}

	entries := make([]*audit.TimelineEntry, 0, len(rows))
	for _, row := range rows {
		entry := &audit.TimelineEntry{
			ID:         row.ID,
			CompanyID:  row.CompanyID,
			Action:     coreAudit.Action(row.Action),
			TargetType: coreAudit.TargetType(row.TargetType),
			TargetID:   row.TargetID,
			Metadata:   row.Metadata,
			IP:         row.IP,
			UserAgent:  row.UserAgent,
			CreatedAt:  row.CreatedAt,
		}
		if row.ActorName.Valid {
			entry.Actor = &audit.Actor{
				ID:    row.ActorID,
				Name:  row.ActorName.String,
				Email: row.ActorEmail.String,
				Role:  coreUser.Role(row.ActorRole.String),
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
