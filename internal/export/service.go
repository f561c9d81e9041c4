package export

import (
	"context"
	"log/slog"
	"time"

	"github.com/frahmantamala/expense-claims/internal"
	coreAudit "github.com/frahmantamala/expense-claims/internal/core/audit"
	"github.com/frahmantamala/expense-claims/internal/core/common/validation"
	coreUser "github.com/frahmantamala/expense-claims/internal/core/user"
	"github.com/frahmantamala/expense-claims/internal/expense"
	"github.com/frahmantamala/expense-claims/internal/mailer"
	"github.com/frahmantamala/expense-claims/internal/metrics"
	"github.com/frahmantamala/expense-claims/internal/policy"
)

type Lister interface {
	List(ctx context.Context, filter policy.ListFilter) ([]*expense.Expense, error)
}

type Service struct {
	expenses    Lister
	files       mailer.FileReader
	sender      mailer.Sender
	audit       coreAudit.Recorder
	logger      *slog.Logger
	now         func() time.Time
	sendTimeout time.Duration
}

func NewService(expenses Lister, files mailer.FileReader, sender mailer.Sender, audit coreAudit.Recorder, logger *slog.Logger) *Service {
	return &Service{
		expenses:    expenses,
		files:       files,
		sender:      sender,
		audit:       audit,
		logger:      logger,
		now:         time.Now,
		sendTimeout: 60 * time.Second,
	}
}

// EmailExpenses mails the caller's exportable claims to dto.To. Solo callers
// export all their claims, managers the approved claims of their company.
func (s *Service) EmailExpenses(ctx context.Context, caller coreUser.Identity, dto EmailExpensesDTO) (*EmailExpensesResponse, error) {
	dto.Normalize()
	if appErr := validation.Struct(dto); appErr != nil {
		return nil, appErr
	}

	filter, decision := policy.ExportScope(caller)
	if !decision.Allowed() {
		s.logger.Warn("expense export denied", "user_id", caller.UserID, "reason", decision.Reason())
		return nil, decision.Err()
	}

	expenses, err := s.expenses.List(ctx, filter)
	if err != nil {
		s.logger.Error("failed to load expenses for export", "user_id", caller.UserID, "error", err)
		return nil, err
	}

	summary := Summarize(expenses)
	for _, err := range summary.LoadAttachments(s.files) {
		s.logger.Warn("receipt left out of export", "user_id", caller.UserID, "error", err)
	}
	msg := &mailer.Message{
		To:          dto.To,
		Subject:     "Expense report " + s.now().Format(expense.DateLayout),
		Text:        summary.Text(dto.Message),
		Attachments: summary.Attachments,
	}

	// Delivery is detached from the request; a sent mail is always audited.
	sendCtx, cancel := internal.DetachedTimeout(ctx, s.sendTimeout)
	defer cancel()

	if err := s.sender.Send(sendCtx, msg); err != nil {
		metrics.EmailsSent.WithLabelValues(metrics.OutcomeFailure).Inc()
		s.logger.Error("failed to email expenses", "user_id", caller.UserID, "to", dto.To, "error", err)
		return nil, internal.ErrMailDeliveryFailed.WithCause(err)
	}
	metrics.EmailsSent.WithLabelValues(metrics.OutcomeSuccess).Inc()

	s.audit.Record(sendCtx, coreAudit.Entry{
		CompanyID:  caller.CompanyID,
		ActorID:    caller.UserID,
		Action:     coreAudit.ActionExpensesEmailed,
		TargetType: coreAudit.TargetUser,
		TargetID:   caller.UserID,
		Metadata: coreAudit.Metadata{
			"to":          dto.To,
			"count":       len(summary.Lines),
			"total":       summary.Total.StringFixed(2),
			"attachments": len(summary.Attachments),
			"truncated":   summary.NotAttached(),
			"missing":     summary.Missing,
		},
	})

	s.logger.Info("expenses emailed",
		"user_id", caller.UserID,
		"count", len(summary.Lines),
		"attachments", len(summary.Attachments))

	return &EmailExpensesResponse{
		OK:          true,
		Count:       len(summary.Lines),
		Total:       summary.Total.StringFixed(2),
		Attachments: len(summary.Attachments),
		Truncated:   summary.NotAttached(),
	}, nil
}
