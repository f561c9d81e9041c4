package company

import (
	"context"
	"log/slog"
	"time"

	"github.com/frahmantamala/expense-claims/internal"
	coreAudit "github.com/frahmantamala/expense-claims/internal/core/audit"
	coreUser "github.com/frahmantamala/expense-claims/internal/core/user"
	"github.com/frahmantamala/expense-claims/internal/policy"
)

type RepositoryAPI interface {
	CodeStore
	GetByID(ctx context.Context, id int64) (*Company, error)
	GetByInviteCode(ctx context.Context, code string) (*Company, error)
	UpdateInviteCode(ctx context.Context, companyID int64, code string) error
	ListMembers(ctx context.Context, companyID int64) ([]*Member, error)
	GetMemberIdentity(ctx context.Context, userID int64) (*coreUser.Identity, error)
	SetMemberActive(ctx context.Context, userID int64, active bool) error
}

type Service struct {
	repo         RepositoryAPI
	invites      *InviteGenerator
	audit        coreAudit.Recorder
	logger       *slog.Logger
	writeTimeout time.Duration
}

func NewService(repo RepositoryAPI, invites *InviteGenerator, audit coreAudit.Recorder, logger *slog.Logger) *Service {
	return &Service{
		repo:         repo,
		invites:      invites,
		audit:        audit,
		logger:       logger,
		writeTimeout: 5 * time.Second,
	}
}

// GetMine returns the caller's company; the invite code is only filled for managers.
func (s *Service) GetMine(ctx context.Context, caller coreUser.Identity) (*CompanyResponse, error) {
	if caller.AccountType != coreUser.AccountCompany || !caller.HasCompany() {
		return nil, internal.ErrNoCompany
	}

	c, err := s.repo.GetByID(ctx, *caller.CompanyID)
	if err != nil {
		return nil, err
	}

	resp := &CompanyResponse{ID: c.ID, Name: c.Name, Settings: c.Settings}
	if policy.CanSeeInviteCode(caller) {
		code := c.InviteCode
		resp.InviteCode = &code
	}
	return resp, nil
}

func (s *Service) ListMembers(ctx context.Context, caller coreUser.Identity) ([]*Member, error) {
	if err := policy.CanManageCompany(caller).Err(); err != nil {
		return nil, err
	}

	members, err := s.repo.ListMembers(ctx, *caller.CompanyID)
	if err != nil {
		s.logger.Error("failed to list company members", "error", err, "company_id", *caller.CompanyID)
		return nil, err
	}
	return members, nil
}

// SetMemberActive activates or deactivates an employee of the caller's company.
func (s *Service) SetMemberActive(ctx context.Context, caller coreUser.Identity, targetID int64, active bool) (*MemberStatusResponse, error) {
	if err := policy.CanManageCompany(caller).Err(); err != nil {
		return nil, err
	}

	target, err := s.repo.GetMemberIdentity(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if err := policy.CanManageMember(caller, *target).Err(); err != nil {
		s.logger.Warn("member update denied",
			"manager_id", caller.UserID,
			"target_id", targetID,
			"reason", err.Error())
		return nil, err
	}

	writeCtx, cancel := internal.DetachedTimeout(ctx, s.writeTimeout)
	defer cancel()
	if err := s.repo.SetMemberActive(writeCtx, targetID, active); err != nil {
		s.logger.Error("failed to update member", "error", err, "target_id", targetID)
		return nil, err
	}

	s.audit.Record(ctx, coreAudit.Entry{
		CompanyID:  caller.CompanyID,
		ActorID:    caller.UserID,
		Action:     coreAudit.ActionMemberUpdated,
		TargetType: coreAudit.TargetUser,
		TargetID:   targetID,
		Metadata:   coreAudit.Metadata{"from": target.IsActive, "to": active},
	})

	s.logger.Info("company member updated",
		"company_id", *caller.CompanyID,
		"target_id", targetID,
		"is_active", active)

	return &MemberStatusResponse{OK: true, UserID: targetID, IsActive: active}, nil
}

// RegenerateInvite replaces the company invite code.
func (s *Service) RegenerateInvite(ctx context.Context, caller coreUser.Identity) (string, error) {
	if err := policy.CanManageCompany(caller).Err(); err != nil {
		return "", err
	}

	code, err := s.invites.CreateUnique(ctx)
	if err != nil {
		s.logger.Error("failed to create invite code", "error", err, "company_id", *caller.CompanyID)
		return "", err
	}

	writeCtx, cancel := internal.DetachedTimeout(ctx, s.writeTimeout)
	defer cancel()
	if err := s.repo.UpdateInviteCode(writeCtx, *caller.CompanyID, code); err != nil {
		return "", err
	}

	s.audit.Record(ctx, coreAudit.Entry{
		CompanyID:  caller.CompanyID,
		ActorID:    caller.UserID,
		Action:     coreAudit.ActionInviteRegenerated,
		TargetType: coreAudit.TargetCompany,
		TargetID:   *caller.CompanyID,
	})

	return code, nil
}

// Resolve looks up the company behind an invite code typed by a new member.
func (s *Service) Resolve(ctx context.Context, rawCode string) (*Company, error) {
	code := NormalizeInviteCode(rawCode)
	if len(code) != InviteCodeLength {
		return nil, internal.ErrInvalidInviteCode
	}
	c, err := s.repo.GetByInviteCode(ctx, code)
	if err != nil {
		if internalErr, ok := internal.AsAppError(err); ok && internalErr.Type == internal.ErrorTypeNotFound {
			return nil, internal.ErrInvalidInviteCode
		}
		return nil, err
	}
	return c, nil
}

// NewInviteCode exposes the generator to registration.
func (s *Service) NewInviteCode(ctx context.Context) (string, error) {
	return s.invites.CreateUnique(ctx)
}
