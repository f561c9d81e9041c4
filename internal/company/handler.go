package company

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/expense-claims/internal"
	coreUser "github.com/frahmantamala/expense-claims/internal/core/user"
	"github.com/frahmantamala/expense-claims/internal/transport"
	"github.com/frahmantamala/expense-claims/pkg/logger"
)

type ServiceAPI interface {
	GetMine(ctx context.Context, caller coreUser.Identity) (*CompanyResponse, error)
	ListMembers(ctx context.Context, caller coreUser.Identity) ([]*Member, error)
	SetMemberActive(ctx context.Context, caller coreUser.Identity, targetID int64, active bool) (*MemberStatusResponse, error)
	RegenerateInvite(ctx context.Context, caller coreUser.Identity) (string, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
	}
}

func (h *Handler) GetMine(w http.ResponseWriter, r *http.Request) {
	caller, ok := internal.IdentityFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrMissingToken)
		return
	}

	resp, err := h.Service.GetMine(r.Context(), *caller)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	caller, ok := internal.IdentityFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrMissingToken)
		return
	}

	members, err := h.Service.ListMembers(r.Context(), *caller)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"employees": members})
}

func (h *Handler) UpdateMember(w http.ResponseWriter, r *http.Request) {
	caller, ok := internal.IdentityFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrMissingToken)
		return
	}

	targetID, appErr := h.PathID(r, "id")
	if appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	var dto SetMemberActiveDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}
	active, err := dto.Value()
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	resp, err := h.Service.SetMemberActive(r.Context(), *caller, targetID, active)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) RegenerateInvite(w http.ResponseWriter, r *http.Request) {
	caller, ok := internal.IdentityFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrMissingToken)
		return
	}

	code, err := h.Service.RegenerateInvite(r.Context(), *caller)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.Logger.Info("invite code regenerated", "company_id", *caller.CompanyID, "user_id", caller.UserID)
	h.WriteJSON(w, http.StatusOK, InviteCodeResponse{InviteCode: code})
}
