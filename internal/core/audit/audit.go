package audit

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type Action string

const (
	ActionExpenseCreated    Action = "expense.created"
	ActionExpenseApproved   Action = "expense.approved"
	ActionExpenseRejected   Action = "expense.rejected"
	ActionExpenseDeleted    Action = "expense.deleted"
	ActionExpensesEmailed   Action = "expenses.emailed"
	ActionPasswordChanged   Action = "user.password.changed"
	ActionInviteRegenerated Action = "company.invite.regenerated"
	ActionMemberUpdated     Action = "company.member.updated"
)

type TargetType string

const (
	TargetExpense TargetType = "expense"
	TargetUser    TargetType = "user"
	TargetCompany TargetType = "company"
)

// Entry is one immutable audit record.
type Entry struct {
	ID         int64
	CompanyID  *int64
	ActorID    int64
	Action     Action
	TargetType TargetType
	TargetID   int64
	Metadata   Metadata
	IP         string
	UserAgent  string
	CreatedAt  time.Time
}

// Recorder accepts entries without blocking the caller. Implementations own
// persistence failures; they never reach the business operation.
type Recorder interface {
	Record(ctx context.Context, entry Entry)
}

// Metadata is free-form context stored as a JSON document.
type Metadata map[string]interface{}

func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal audit metadata: %w", err)
	}
	return string(b), nil
}

func (m *Metadata) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*m = Metadata{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported audit metadata type %T", src)
	}
	if len(raw) == 0 {
		*m = Metadata{}
		return nil
	}
	out := Metadata{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("unmarshal audit metadata: %w", err)
	}
	*m = out
	return nil
}
