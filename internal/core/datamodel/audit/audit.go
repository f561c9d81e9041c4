package audit

import (
	"time"

	coreAudit "github.com/frahmantamala/expense-claims/internal/core/audit"
)

// AuditLog is shared by the gorm schema (tests, seeding) and the sqlx store.
type AuditLog struct {
	ID         int64              `gorm:"primaryKey" db:"id"`
	CompanyID  *int64             `gorm:"column:company_id;index" db:"company_id"`
	ActorID    int64              `gorm:"column:actor_id;not null;index" db:"actor_id"`
	Action     string             `gorm:"column:action;not null;index" db:"action"`
	TargetType string             `gorm:"column:target_type;not null" db:"target_type"`
	TargetID   int64              `gorm:"column:target_id;not null;index" db:"target_id"`
	Metadata   coreAudit.Metadata `gorm:"column:metadata;type:jsonb" db:"metadata"`
	IP         string             `gorm:"column:ip" db:"ip"`
	UserAgent  string             `gorm:"column:user_agent" db:"user_agent"`
	CreatedAt  time.Time          `gorm:"column:created_at;autoCreateTime" db:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
