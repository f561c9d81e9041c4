package audit

import (
	"context"
	"log/slog"
	"time"

	coreAudit "github.com/frahmantamala/expense-claims/internal/core/audit"
	coreUser "github.com/frahmantamala/expense-claims/internal/core/user"
	"github.com/frahmantamala/expense-claims/internal/expense"
	"github.com/frahmantamala/expense-claims/internal/policy"
)

// Actor is the user behind an entry. It is nil when the user no longer exists.
type Actor struct {
	ID    int64         `json:"id"`
	Name  string        `json:"name"`
	Email string        `json:"email"`
	Role  coreUser.Role `json:"role"`
}

type TimelineEntry struct {
	ID         int64                `json:"id"`
	CompanyID  *int64               `json:"company_id"`
	Action     coreAudit.Action     `json:"action"`
	TargetType coreAudit.TargetType `json:"target_type"`
	TargetID   int64                `json:"target_id"`
	Metadata   coreAudit.Metadata   `json:"metadata"`
	Actor      *Actor               `json:"actor"`
	IP         string               `json:"ip"`
	UserAgent  string               `json:"user_agent"`
	CreatedAt  time.Time            `json:"created_at"`
}

// Reader lists the entries of one target, oldest first.
type Reader interface {
	ListForTarget(ctx context.Context, targetType coreAudit.TargetType, targetID int64) ([]*TimelineEntry, error)
}

type ClaimLookup interface {
	GetByID(ctx context.Context, id int64) (*expense.Expense, error)
}

type Service struct {
	claims ClaimLookup
	reader Reader
	logger *slog.Logger
}

func NewService(claims ClaimLookup, reader Reader, logger *slog.Logger) *Service {
	return &Service{claims: claims, reader: reader, logger: logger}
}

// Timeline returns the history of a claim to anyone allowed to read the claim.
func (s *Service) Timeline(ctx context.Context, caller coreUser.Identity, expenseID int64) ([]*TimelineEntry, error) {
	e, err := s.claims.GetByID(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	if err := policy.CanView(caller, e.Claim()).Err(); err != nil {
		s.logger.Warn("audit timeline denied", "expense_id", expenseID, "user_id", caller.UserID)
		return nil, err
	}

	entries, err := s.reader.ListForTarget(ctx, coreAudit.TargetExpense, expenseID)
	if err != nil {
		s.logger.Error("failed to load audit timeline", "expense_id", expenseID, "error", err)
		return nil, err
	}
	return entries, nil
}
