package category

import (
	"net/http"

	"github.com/frahmantamala/expense-claims/internal/transport"
)

type Handler struct {
	*transport.BaseHandler
}

func NewHandler(baseHandler *transport.BaseHandler) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
	}
}

// GetCategories lists the fixed set. Claims without a category fall back to
// Default.
func (h *Handler) GetCategories(w http.ResponseWriter, r *http.Request) {
	all := All()
	resp := CategoriesResponse{
		Categories: make([]CategoryResponse, 0, len(all)),
		Default:    Other,
	}
	for _, c := range all {
		resp.Categories = append(resp.Categories, c.ToResponse())
	}

	h.WriteJSON(w, http.StatusOK, resp)
}
