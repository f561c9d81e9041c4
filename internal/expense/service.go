package expense

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/frahmantamala/expense-claims/internal"
	coreAudit "github.com/frahmantamala/expense-claims/internal/core/audit"
	"github.com/frahmantamala/expense-claims/internal/core/common/validation"
	coreExpense "github.com/frahmantamala/expense-claims/internal/core/expense"
	coreUser "github.com/frahmantamala/expense-claims/internal/core/user"
	"github.com/frahmantamala/expense-claims/internal/metrics"
	"github.com/frahmantamala/expense-claims/internal/policy"
	"github.com/frahmantamala/expense-claims/internal/receipt"
)

// RepositoryAPI is the storage contract of the lifecycle engine.
type RepositoryAPI interface {
	Create(ctx context.Context, e *Expense) error
	GetByID(ctx context.Context, id int64) (*Expense, error)
	List(ctx context.Context, filter policy.ListFilter) ([]*Expense, error)
	// Transition moves a pending claim to a terminal status. It returns
	// ErrExpenseAlreadyProcessed when the claim is no longer pending.
	Transition(ctx context.Context, id int64, change Transition) (*Expense, error)
	// DeletePending removes a claim only while it is pending.
	DeletePending(ctx context.Context, id int64) error
}

// Transition is a conditional status change.
type Transition struct {
	To              coreExpense.Status
	ValidatedBy     int64
	ValidatedAt     time.Time
	RejectionReason string
}

// MemberLookup loads the live identity of the user a claim is created for.
type MemberLookup interface {
	GetIdentity(ctx context.Context, userID int64) (*coreUser.Identity, error)
}

type ReceiptStore interface {
	Save(ctx context.Context, upload *receipt.Upload) (*receipt.Stored, error)
	Remove(path string) error
}

type Service struct {
	repo         RepositoryAPI
	members      MemberLookup
	receipts     ReceiptStore
	audit        coreAudit.Recorder
	logger       *slog.Logger
	now          func() time.Time
	writeTimeout time.Duration
}

func NewService(repo RepositoryAPI, members MemberLookup, receipts ReceiptStore, audit coreAudit.Recorder, logger *slog.Logger) *Service {
	return &Service{
		repo:         repo,
		members:      members,
		receipts:     receipts,
		audit:        audit,
		logger:       logger,
		now:          time.Now,
		writeTimeout: 5 * time.Second,
	}
}

// WithClock replaces the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Create stores a new claim, deciding its owner and initial status through policy.
func (s *Service) Create(ctx context.Context, caller coreUser.Identity, dto CreateExpenseDTO, upload *receipt.Upload) (*Expense, error) {
	input, err := dto.Parse()
	if err != nil {
		return nil, err
	}

	target, err := s.loadTarget(ctx, caller, input.EmployeeID)
	if err != nil {
		return nil, err
	}

	plan, decision := policy.PlanCreate(caller, target)
	if !decision.Allowed() {
		s.logger.Warn("expense creation denied",
			"user_id", caller.UserID,
			"employee_id", input.EmployeeID,
			"reason", decision.Reason())
		return nil, decision.Err()
	}

	writeCtx, cancel := internal.DetachedTimeout(ctx, s.writeTimeout)
	defer cancel()

	var stored *receipt.Stored
	if upload != nil {
		stored, err = s.receipts.Save(writeCtx, upload)
		if err != nil {
			return nil, err
		}
	}

	e := NewExpense(plan, input, stored, s.now())
	if err := s.repo.Create(writeCtx, e); err != nil {
		s.logger.Error("failed to create expense", "error", err, "user_id", caller.UserID)
		s.discardReceipt(stored)
		return nil, err
	}

	metrics.ExpenseTransitions.WithLabelValues(string(e.Status), strconv.FormatBool(plan.AutoApproved())).Inc()

	meta := coreAudit.Metadata{
		"status":        e.Status,
		"amount":        e.Amount.StringFixed(2),
		"created_by_ai": e.CreatedByAI,
	}
	if e.UserID != caller.UserID {
		meta["on_behalf_of"] = e.UserID
	}
	s.record(ctx, caller, coreAudit.ActionExpenseCreated, e, meta)

	s.logger.Info("expense created",
		"expense_id", e.ID,
		"user_id", e.UserID,
		"created_by", caller.UserID,
		"status", e.Status,
		"amount", e.Amount.String())

	return e, nil
}

// loadTarget returns nil when the claim is for the caller.
func (s *Service) loadTarget(ctx context.Context, caller coreUser.Identity, employeeID *int64) (*coreUser.Identity, error) {
	if employeeID == nil {
		return nil, nil
	}
	if *employeeID == caller.UserID {
		self := caller
		return &self, nil
	}

	target, err := s.members.GetIdentity(ctx, *employeeID)
	if err != nil {
		if appErr, ok := internal.AsAppError(err); ok && appErr.Type == internal.ErrorTypeNotFound {
			// unknown ids look the same as users of another company
			return nil, internal.ErrAccessDenied
		}
		return nil, err
	}
	return target, nil
}

// List returns the claims in the caller's scope, newest expense date first.
func (s *Service) List(ctx context.Context, caller coreUser.Identity, status string) ([]*Expense, error) {
	parsed, ok := coreExpense.ParseStatusFilter(status)
	if !ok {
		return nil, internal.ErrInvalidStatusFilter
	}

	filter := policy.ListScope(caller)
	filter.Status = parsed

	expenses, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list expenses", "error", err, "user_id", caller.UserID)
		return nil, err
	}
	return expenses, nil
}

func (s *Service) Get(ctx context.Context, caller coreUser.Identity, id int64) (*Expense, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.CanView(caller, e.Claim()).Err(); err != nil {
		s.logger.Warn("expense access denied", "expense_id", id, "user_id", caller.UserID)
		return nil, err
	}
	return e, nil
}

func (s *Service) Approve(ctx context.Context, caller coreUser.Identity, id int64) (*Expense, error) {
	return s.transition(ctx, caller, id, coreExpense.StatusApproved, "")
}

func (s *Service) Reject(ctx context.Context, caller coreUser.Identity, id int64, dto RejectExpenseDTO) (*Expense, error) {
	dto.Normalize()
	if appErr := validation.Struct(dto); appErr != nil {
		return nil, appErr
	}
	return s.transition(ctx, caller, id, coreExpense.StatusRejected, dto.Reason)
}

func (s *Service) transition(ctx context.Context, caller coreUser.Identity, id int64, to coreExpense.Status, reason string) (*Expense, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if decision := policy.CanTransition(caller, current.Claim()); !decision.Allowed() {
		s.logger.Warn("expense transition denied",
			"expense_id", id,
			"manager_id", caller.UserID,
			"to", to,
			"reason", decision.Reason())
		return nil, decision.Err()
	}

	writeCtx, cancel := internal.DetachedTimeout(ctx, s.writeTimeout)
	defer cancel()

	updated, err := s.repo.Transition(writeCtx, id, Transition{
		To:              to,
		ValidatedBy:     caller.UserID,
		ValidatedAt:     s.now(),
		RejectionReason: reason,
	})
	if err != nil {
		s.logger.Warn("expense transition failed", "expense_id", id, "to", to, "error", err)
		return nil, err
	}

	metrics.ExpenseTransitions.WithLabelValues(string(to), "false").Inc()

	action := coreAudit.ActionExpenseApproved
	if to == coreExpense.StatusRejected {
		action = coreAudit.ActionExpenseRejected
	}
	s.record(ctx, caller, action, updated, coreAudit.Metadata{
		"from":   coreExpense.StatusPending,
		"to":     to,
		"reason": reason,
	})

	s.logger.Info("expense processed",
		"expense_id", id,
		"manager_id", caller.UserID,
		"status", to)

	return updated, nil
}

// Delete removes a pending claim and its receipt file.
func (s *Service) Delete(ctx context.Context, caller coreUser.Identity, id int64) error {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if decision := policy.CanDelete(caller, e.Claim()); !decision.Allowed() {
		s.logger.Warn("expense deletion denied", "expense_id", id, "user_id", caller.UserID, "reason", decision.Reason())
		return decision.Err()
	}

	writeCtx, cancel := internal.DetachedTimeout(ctx, s.writeTimeout)
	defer cancel()

	if err := s.repo.DeletePending(writeCtx, id); err != nil {
		return err
	}

	if e.Receipt != nil {
		s.discardReceipt(&receipt.Stored{Path: e.Receipt.Path})
	}

	s.record(ctx, caller, coreAudit.ActionExpenseDeleted, e, coreAudit.Metadata{
		"status": e.Status,
		"title":  e.Title,
		"amount": e.Amount.StringFixed(2),
	})

	s.logger.Info("expense deleted", "expense_id", id, "user_id", caller.UserID)
	return nil
}

func (s *Service) discardReceipt(stored *receipt.Stored) {
	if stored == nil {
		return
	}
	if err := s.receipts.Remove(stored.Path); err != nil {
		s.logger.Warn("failed to remove receipt file", "path", stored.Path, "error", err)
	}
}

func (s *Service) record(ctx context.Context, caller coreUser.Identity, action coreAudit.Action, e *Expense, meta coreAudit.Metadata) {
	s.audit.Record(ctx, coreAudit.Entry{
		CompanyID:  e.CompanyID,
		ActorID:    caller.UserID,
		Action:     action,
		TargetType: coreAudit.TargetExpense,
		TargetID:   e.ID,
		Metadata:   meta,
	})
}
