package user

import (
	"context"
	"log/slog"
	"time"

	"github.com/frahmantamala/expense-claims/internal"
	"github.com/frahmantamala/expense-claims/internal/auth"
	"github.com/frahmantamala/expense-claims/internal/company"
	coreAudit "github.com/frahmantamala/expense-claims/internal/core/audit"
	"github.com/frahmantamala/expense-claims/internal/core/common/validation"
	coreUser "github.com/frahmantamala/expense-claims/internal/core/user"
	"golang.org/x/crypto/bcrypt"
)

type RepositoryAPI interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	Create(ctx context.Context, u *User) error
	// CreateWithCompany inserts the founder and the company and links them,
	// all in one transaction.
	CreateWithCompany(ctx context.Context, founder *User, c *company.Company) error
	UpdateProfile(ctx context.Context, id int64, name, email *string) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}

// CompanyDirectory is the part of the company service registration needs.
type CompanyDirectory interface {
	Resolve(ctx context.Context, rawCode string) (*company.Company, error)
	NewInviteCode(ctx context.Context) (string, error)
}

type TokenIssuer interface {
	IssueTokens(subject auth.Subject) (*auth.AuthTokens, error)
}

type Service struct {
	repo       RepositoryAPI
	companies  CompanyDirectory
	tokens     TokenIssuer
	audit      coreAudit.Recorder
	logger     *slog.Logger
	bcryptCost int
	writeTTL   time.Duration
}

func NewService(repo RepositoryAPI, companies CompanyDirectory, tokens TokenIssuer, audit coreAudit.Recorder, logger *slog.Logger, bcryptCost int) *Service {
	if bcryptCost <= 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		repo:       repo,
		companies:  companies,
		tokens:     tokens,
		audit:      audit,
		logger:     logger,
		bcryptCost: bcryptCost,
		writeTTL:   5 * time.Second,
	}
}

var (
	errCompanyChoice = internal.NewValidationFieldError("company_name",
		"provide either company_name or invite_code, not both", internal.ErrCodeValidationFailed)
	errCompanyMissing = internal.NewValidationFieldError("company_name",
		"company accounts need company_name or invite_code", internal.ErrCodeValidationFailed)
	errSoloWithCompany = internal.NewValidationFieldError("account_type",
		"solo accounts cannot create or join a company", internal.ErrCodeValidationFailed)
	errWrongPassword = internal.NewValidationFieldError("current_password",
		"current password is incorrect", internal.ErrCodeInvalidCredentials)
)

// Register creates a solo account, a company with its founding manager, or an
// employee joining through an invite code.
func (s *Service) Register(ctx context.Context, dto RegisterDTO) (*RegisterResponse, error) {
	dto.Normalize()
	if appErr := validation.Struct(dto); appErr != nil {
		return nil, appErr
	}

	hasName, hasCode := dto.CompanyName != "", dto.InviteCode != ""
	switch {
	case dto.AccountType == coreUser.AccountSolo && (hasName || hasCode):
		return nil, errSoloWithCompany
	case hasName && hasCode:
		return nil, errCompanyChoice
	case dto.AccountType == coreUser.AccountCompany && !hasName && !hasCode:
		return nil, errCompanyMissing
	}

	hash, err := auth.HashPassword(dto.Password, s.bcryptCost)
	if err != nil {
		return nil, internal.NewInternalError("failed to hash password", err)
	}

	now := time.Now()
	u := &User{
		Name:         dto.Name,
		Email:        dto.Email,
		PasswordHash: hash,
		AccountType:  dto.AccountType,
		Role:         coreUser.RoleManager,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	writeCtx, cancel := internal.DetachedTimeout(ctx, s.writeTTL)
	defer cancel()

	var joined *company.Company
	switch {
	case dto.AccountType == coreUser.AccountSolo:
		if err := s.repo.Create(writeCtx, u); err != nil {
			return nil, err
		}

	case hasName:
		code, err := s.companies.NewInviteCode(ctx)
		if err != nil {
			return nil, err
		}
		joined = company.NewCompany(dto.CompanyName, 0, code)
		if err := s.repo.CreateWithCompany(writeCtx, u, joined); err != nil {
			return nil, err
		}

	default:
		joined, err = s.companies.Resolve(ctx, dto.InviteCode)
		if err != nil {
			return nil, err
		}
		u.Role = coreUser.RoleEmployee
		u.CompanyID = &joined.ID
		if err := s.repo.Create(writeCtx, u); err != nil {
			return nil, err
		}
	}

	tokens, err := s.tokens.IssueTokens(auth.Subject{Identity: u.Identity(), Email: u.Email})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered",
		"user_id", u.ID,
		"account_type", u.AccountType,
		"role", u.Role,
		"company_id", u.CompanyID)

	resp := &RegisterResponse{AuthTokens: *tokens, User: u}
	if joined != nil {
		view := &CompanyView{ID: joined.ID, Name: joined.Name}
		if u.Role.IsManager() {
			code := joined.InviteCode
			view.InviteCode = &code
		}
		resp.Company = view
	}
	return resp, nil
}

func (s *Service) GetByID(ctx context.Context, userID int64) (*User, error) {
	return s.repo.GetByID(ctx, userID)
}

// UpdateProfile changes the caller's name and/or email.
func (s *Service) UpdateProfile(ctx context.Context, caller coreUser.Identity, dto UpdateProfileDTO) (*User, error) {
	dto.Normalize()
	if appErr := validation.Struct(dto); appErr != nil {
		return nil, appErr
	}
	if dto.Name == nil && dto.Email == nil {
		return s.repo.GetByID(ctx, caller.UserID)
	}

	writeCtx, cancel := internal.DetachedTimeout(ctx, s.writeTTL)
	defer cancel()
	if err := s.repo.UpdateProfile(writeCtx, caller.UserID, dto.Name, dto.Email); err != nil {
		return nil, err
	}

	s.logger.Info("profile updated", "user_id", caller.UserID)
	return s.repo.GetByID(ctx, caller.UserID)
}

// ChangePassword verifies the current password before storing the new hash.
func (s *Service) ChangePassword(ctx context.Context, caller coreUser.Identity, dto ChangePasswordDTO) error {
	if appErr := validation.Struct(dto); appErr != nil {
		return appErr
	}

	u, err := s.repo.GetByID(ctx, caller.UserID)
	if err != nil {
		return err
	}
	if err := auth.VerifyPassword(u.PasswordHash, dto.CurrentPassword); err != nil {
		return errWrongPassword
	}

	hash, err := auth.HashPassword(dto.NewPassword, s.bcryptCost)
	if err != nil {
		return internal.NewInternalError("failed to hash password", err)
	}

	writeCtx, cancel := internal.DetachedTimeout(ctx, s.writeTTL)
	defer cancel()
	if err := s.repo.UpdatePassword(writeCtx, caller.UserID, hash); err != nil {
		return err
	}

	s.audit.Record(ctx, coreAudit.Entry{
		CompanyID:  caller.CompanyID,
		ActorID:    caller.UserID,
		Action:     coreAudit.ActionPasswordChanged,
		TargetType: coreAudit.TargetUser,
		TargetID:   caller.UserID,
	})
	return nil
}
