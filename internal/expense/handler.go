package expense

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"

	"github.com/frahmantamala/expense-claims/internal"
	coreUser "github.com/frahmantamala/expense-claims/internal/core/user"
	"github.com/frahmantamala/expense-claims/internal/receipt"
	"github.com/frahmantamala/expense-claims/internal/transport"
	"github.com/frahmantamala/expense-claims/pkg/logger"
)

type ServiceAPI interface {
	Create(ctx context.Context, caller coreUser.Identity, dto CreateExpenseDTO, upload *receipt.Upload) (*Expense, error)
	List(ctx context.Context, caller coreUser.Identity, status string) ([]*Expense, error)
	Get(ctx context.Context, caller coreUser.Identity, id int64) (*Expense, error)
	Approve(ctx context.Context, caller coreUser.Identity, id int64) (*Expense, error)
	Reject(ctx context.Context, caller coreUser.Identity, id int64, dto RejectExpenseDTO) (*Expense, error)
	Delete(ctx context.Context, caller coreUser.Identity, id int64) error
}

type ScanAPI interface {
	Scan(ctx context.Context, upload *receipt.Upload) (*receipt.Draft, error)
}

type Handler struct {
	*transport.BaseHandler
	Service         ServiceAPI
	Scanner         ScanAPI
	MaxReceiptBytes int64
}

func NewHandler(service ServiceAPI, scanner ScanAPI, maxReceiptBytes int64) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	if maxReceiptBytes <= 0 {
		maxReceiptBytes = receipt.DefaultMaxBytes
	}
	return &Handler{
		BaseHandler:     transport.NewBaseHandler(lg),
		Service:         service,
		Scanner:         scanner,
		MaxReceiptBytes: maxReceiptBytes,
	}
}

// CreateExpense accepts JSON, or a multipart form with an optional receipt part.
func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	caller, ok := internal.IdentityFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrMissingToken)
		return
	}

	var (
		dto    CreateExpenseDTO
		upload *receipt.Upload
	)
	if isMultipart(r) {
		var appErr *internal.AppError
		upload, appErr = h.readUpload(w, r, false)
		if appErr != nil {
			h.WriteAppError(w, appErr)
			return
		}
		parsed, err := CreateExpenseDTOFromForm(r.MultipartForm.Value)
		if err != nil {
			h.HandleServiceError(w, r, err)
			return
		}
		dto = parsed
	} else if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	e, err := h.Service.Create(r.Context(), *caller, dto, upload)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, e)
}

func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	caller, ok := internal.IdentityFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrMissingToken)
		return
	}

	expenses, err := h.Service.List(r.Context(), *caller, r.URL.Query().Get("status"))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, ListExpensesResponse{Expenses: expenses, Count: len(expenses)})
}

func (h *Handler) GetExpense(w http.ResponseWriter, r *http.Request) {
	caller, ok := internal.IdentityFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrMissingToken)
		return
	}

	id, appErr := h.PathID(r, "id")
	if appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	e, err := h.Service.Get(r.Context(), *caller, id)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, e)
}

func (h *Handler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	caller, ok := internal.IdentityFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrMissingToken)
		return
	}

	id, appErr := h.PathID(r, "id")
	if appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	if err := h.Service.Delete(r.Context(), *caller, id); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, DeleteExpenseResponse{OK: true, ID: id})
}

func (h *Handler) ApproveExpense(w http.ResponseWriter, r *http.Request) {
	caller, ok := internal.IdentityFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrMissingToken)
		return
	}

	id, appErr := h.PathID(r, "id")
	if appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	e, err := h.Service.Approve(r.Context(), *caller, id)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, e)
}

func (h *Handler) RejectExpense(w http.ResponseWriter, r *http.Request) {
	caller, ok := internal.IdentityFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrMissingToken)
		return
	}

	id, appErr := h.PathID(r, "id")
	if appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	var dto RejectExpenseDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	e, err := h.Service.Reject(r.Context(), *caller, id, dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, e)
}

// ScanReceipt returns a draft for the client to review; nothing is persisted.
func (h *Handler) ScanReceipt(w http.ResponseWriter, r *http.Request) {
	if _, ok := internal.IdentityFromContext(r.Context()); !ok {
		h.WriteAppError(w, internal.ErrMissingToken)
		return
	}
	if !isMultipart(r) {
		h.WriteAppError(w, internal.NewValidationFieldError("receipt", "a multipart receipt file is required", internal.ErrCodeInvalidReceipt))
		return
	}

	upload, appErr := h.readUpload(w, r, true)
	if appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	draft, err := h.Scanner.Scan(r.Context(), upload)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, draft)
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

// readUpload parses the multipart body and returns the "receipt" part, or nil
// when it is absent and not required.
func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request, required bool) (*receipt.Upload, *internal.AppError) {
	const formOverhead = 1 << 20
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxReceiptBytes+formOverhead)
	if err := r.ParseMultipartForm(h.MaxReceiptBytes + formOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, receipt.TooLargeError(h.MaxReceiptBytes)
		}
		return nil, internal.NewValidationError("invalid multipart body", internal.ErrCodeValidationFailed).WithCause(err)
	}

	file, header, err := r.FormFile("receipt")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) && !required {
			return nil, nil
		}
		return nil, internal.NewValidationFieldError("receipt", "receipt file is required", internal.ErrCodeInvalidReceipt)
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(io.LimitReader(file, h.MaxReceiptBytes+1))
	if err != nil {
		return nil, internal.NewValidationError("failed to read receipt", internal.ErrCodeInvalidReceipt).WithCause(err)
	}
	if int64(len(data)) > h.MaxReceiptBytes {
		return nil, receipt.TooLargeError(h.MaxReceiptBytes)
	}

	return &receipt.Upload{
		OriginalName: header.Filename,
		DeclaredType: header.Header.Get("Content-Type"),
		Data:         data,
	}, nil
}
