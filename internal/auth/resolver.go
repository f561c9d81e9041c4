package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/frahmantamala/expense-claims/internal"
	coreUser "github.com/frahmantamala/expense-claims/internal/core/user"
)

var errUserGone = internal.NewUnauthorizedError("User no longer exists", internal.ErrCodeMissingToken)

// Resolver turns a bearer token into the caller's live identity.
type Resolver struct {
	tokens TokenGeneratorAPI
	store  IdentityStore
	logger *slog.Logger
}

func NewResolver(tokens TokenGeneratorAPI, store IdentityStore, logger *slog.Logger) *Resolver {
	return &Resolver{tokens: tokens, store: store, logger: logger}
}

// ResolveCaller verifies the token and then reloads the user, so a role change,
// a company move or a deactivation takes effect on the next request.
func (r *Resolver) ResolveCaller(ctx context.Context, token string) (*coreUser.Identity, error) {
	if token == "" {
		return nil, internal.ErrMissingToken
	}

	claims, err := r.tokens.ValidateAccessToken(token)
	if err != nil {
		return nil, err
	}

	identity, err := r.store.GetIdentity(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, internal.ErrUserNotFound) {
			r.logger.Warn("token for deleted user", "user_id", claims.UserID)
			return nil, errUserGone
		}
		return nil, internal.NewInternalError("failed to load caller", err)
	}

	if !identity.IsActive {
		return nil, internal.ErrUserInactive
	}

	if string(identity.Role) != claims.Role || (identity.CompanyID == nil) != (claims.CompanyID == nil) {
		r.logger.Debug("token claims are stale, using stored membership", "user_id", identity.UserID)
	}
	return identity, nil
}
