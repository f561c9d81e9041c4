package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/frahmantamala/expense-claims/internal"
	"github.com/frahmantamala/expense-claims/internal/core/common/validation"
	coreUser "github.com/frahmantamala/expense-claims/internal/core/user"
)

// Service is the main auth service with dependencies
type Service struct {
	repo     RepositoryAPI
	tokens   TokenGeneratorAPI
	resolver *Resolver
	logger   *slog.Logger
}

func NewService(repo RepositoryAPI, tokens TokenGeneratorAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		tokens:   tokens,
		resolver: NewResolver(tokens, repo, logger),
		logger:   logger,
	}
}

// Authenticate validates credentials and returns tokens
func (s *Service) Authenticate(ctx context.Context, dto LoginDTO) (*AuthResponse, error) {
	dto.Normalize()
	if appErr := validation.Struct(dto); appErr != nil {
		return nil, appErr
	}

	creds, err := s.repo.GetCredentials(ctx, dto.Email)
	if err != nil {
		if errors.Is(err, internal.ErrUserNotFound) {
			return nil, internal.ErrInvalidCredentials
		}
		return nil, internal.NewInternalError("failed to load credentials", err)
	}

	if err := VerifyPassword(creds.PasswordHash, dto.Password); err != nil {
		s.logger.Info("login rejected", "user_id", creds.Identity.UserID)
		return nil, internal.ErrInvalidCredentials
	}
	if !creds.Identity.IsActive {
		return nil, internal.ErrUserInactive
	}

	tokens, err := s.IssueTokens(Subject{Identity: creds.Identity, Email: creds.Email})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", "user_id", creds.Identity.UserID)
	return &AuthResponse{
		AuthTokens: *tokens,
		User: UserView{
			ID:          creds.Identity.UserID,
			Name:        creds.Name,
			Email:       creds.Email,
			Role:        creds.Identity.Role,
			AccountType: creds.Identity.AccountType,
			CompanyID:   creds.Identity.CompanyID,
		},
	}, nil
}

// RefreshTokens validates the refresh token against the live user and issues a new pair.
func (s *Service) RefreshTokens(ctx context.Context, refreshToken string) (*AuthTokens, error) {
	if refreshToken == "" {
		return nil, internal.NewValidationFieldError("refresh_token", "refresh_token is required", internal.ErrCodeValidationFailed)
	}

	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	identity, err := s.repo.GetIdentity(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, internal.ErrUserNotFound) {
			return nil, internal.ErrInvalidToken
		}
		return nil, internal.NewInternalError("failed to load user", err)
	}
	if !identity.IsActive {
		return nil, internal.ErrUserInactive
	}

	return s.IssueTokens(Subject{Identity: *identity, Email: claims.Email})
}

func (s *Service) ResolveCaller(ctx context.Context, token string) (*coreUser.Identity, error) {
	return s.resolver.ResolveCaller(ctx, token)
}

// IssueTokens signs an access and refresh pair for subject.
func (s *Service) IssueTokens(subject Subject) (*AuthTokens, error) {
	accessToken, err := s.tokens.GenerateAccessToken(subject)
	if err != nil {
		return nil, internal.NewInternalError("failed to issue token", err)
	}

	refreshToken, err := s.tokens.GenerateRefreshToken(subject)
	if err != nil {
		return nil, internal.NewInternalError("failed to issue token", err)
	}

	return &AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}
