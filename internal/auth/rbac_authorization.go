package auth

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/expense-claims/internal"
	"github.com/frahmantamala/expense-claims/internal/policy"
	"github.com/frahmantamala/expense-claims/internal/transport"
)

// RBACAuthorization gates whole route groups on the caller's scope. Per-claim
// rules stay in the services.
type RBACAuthorization struct {
	*transport.BaseHandler
	logger *slog.Logger
}

func NewRBACAuthorization(logger *slog.Logger) *RBACAuthorization {
	return &RBACAuthorization{
		BaseHandler: transport.NewBaseHandler(logger),
		logger:      logger,
	}
}

// RequireManager admits managers and admins attached to a company.
func (ra *RBACAuthorization) RequireManager() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, ok := internal.IdentityFromContext(r.Context())
			if !ok {
				ra.WriteAppError(w, internal.ErrMissingToken)
				return
			}

			decision := policy.CanManageCompany(*caller)
			if !decision.Allowed() {
				ra.logger.WarnContext(r.Context(), "access denied: manager required",
					"user_id", caller.UserID,
					"role", caller.Role,
					"reason", decision.Reason())
				ra.HandleServiceError(w, r, decision.Err())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
