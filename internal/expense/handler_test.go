package expense_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/frahmantamala/expense-claims/internal"
	coreExpense "github.com/frahmantamala/expense-claims/internal/core/expense"
	coreUser "github.com/frahmantamala/expense-claims/internal/core/user"
	"github.com/frahmantamala/expense-claims/internal/expense"
	"github.com/frahmantamala/expense-claims/internal/receipt"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

type stubService struct {
	createDTO    expense.CreateExpenseDTO
	createUpload *receipt.Upload
	listStatus   string
	rejectDTO    expense.RejectExpenseDTO
	err          error
}

func (s *stubService) Create(_ context.Context, caller coreUser.Identity, dto expense.CreateExpenseDTO, upload *receipt.Upload) (*expense.Expense, error) {
	s.createDTO, s.createUpload = dto, upload
	if s.err != nil {
		return nil, s.err
	}
	return &expense.Expense{ID: 7, UserID: caller.UserID, Title: dto.Title, Amount: dto.Amount.Decimal, Status: coreExpense.StatusPending}, nil
}

func (s *stubService) List(_ context.Context, _ coreUser.Identity, status string) ([]*expense.Expense, error) {
	s.listStatus = status
	if s.err != nil {
		return nil, s.err
	}
	return []*expense.Expense{{ID: 1, Title: "Taxi"}, {ID: 2, Title: "Hotel"}}, nil
}

func (s *stubService) Get(_ context.Context, _ coreUser.Identity, id int64) (*expense.Expense, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &expense.Expense{ID: id, Title: "Taxi"}, nil
}

func (s *stubService) Approve(_ context.Context, _ coreUser.Identity, id int64) (*expense.Expense, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &expense.Expense{ID: id, Status: coreExpense.StatusApproved}, nil
}

func (s *stubService) Reject(_ context.Context, _ coreUser.Identity, id int64, dto expense.RejectExpenseDTO) (*expense.Expense, error) {
	s.rejectDTO = dto
	if s.err != nil {
		return nil, s.err
	}
	return &expense.Expense{ID: id, Status: coreExpense.StatusRejected, RejectionReason: dto.Reason}, nil
}

func (s *stubService) Delete(_ context.Context, _ coreUser.Identity, _ int64) error {
	return s.err
}

type stubScanner struct {
	upload *receipt.Upload
}

func (s *stubScanner) Scan(_ context.Context, upload *receipt.Upload) (*receipt.Draft, error) {
	s.upload = upload
	return &receipt.Draft{Title: "Cafe", Amount: decimal.RequireFromString("4.20"), Currency: "EUR", Confidence: 0.9}, nil
}

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

func authed(req *http.Request, caller coreUser.Identity) *http.Request {
	return req.WithContext(internal.ContextWithIdentity(req.Context(), &caller))
}

func withID(req *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func multipartBody(fields map[string]string, file []byte) (*bytes.Buffer, string) {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for k, v := range fields {
		Expect(mw.WriteField(k, v)).To(Succeed())
	}
	if file != nil {
		part, err := mw.CreateFormFile("receipt", "taxi.png")
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write(file)
		Expect(err).NotTo(HaveOccurred())
	}
	Expect(mw.Close()).To(Succeed())
	return body, mw.FormDataContentType()
}

func errorCode(w *httptest.ResponseRecorder) string {
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	Expect(json.Unmarshal(w.Body.Bytes(), &body)).To(Succeed())
	return body.Error.Code
}

func fieldCode(w *httptest.ResponseRecorder) string {
	var body struct {
		Error struct {
			Details internal.ValidationErrors `json:"details"`
		} `json:"error"`
	}
	Expect(json.Unmarshal(w.Body.Bytes(), &body)).To(Succeed())
	Expect(body.Error.Details.Errors).NotTo(BeEmpty())
	return body.Error.Details.Errors[0].Code
}

var _ = Describe("Handler", func() {
	var (
		service *stubService
		scanner *stubScanner
		handler *expense.Handler
		w       *httptest.ResponseRecorder
	)

	BeforeEach(func() {
		service = &stubService{}
		scanner = &stubScanner{}
		handler = expense.NewHandler(service, scanner, 1024)
		w = httptest.NewRecorder()
	})

	Describe("CreateExpense", func() {
		It("creates from JSON", func() {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/expenses",
				strings.NewReader(`{"title":"Taxi","amount":42.5,"date":"2024-03-15"}`))
			req.Header.Set("Content-Type", "application/json")

			handler.CreateExpense(w, authed(req, employee))

			Expect(w.Code).To(Equal(http.StatusCreated))
			Expect(service.createDTO.Title).To(Equal("Taxi"))
			Expect(service.createDTO.Amount.Decimal.String()).To(Equal("42.5"))
			Expect(service.createUpload).To(BeNil())
		})

		It("creates from a multipart form with a receipt", func() {
			body, contentType := multipartBody(map[string]string{
				"title": "Taxi", "amount": "42,50", "date": "2024-03-15", "employee_id": "20",
			}, pngBytes)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/expenses", body)
			req.Header.Set("Content-Type", contentType)

			handler.CreateExpense(w, authed(req, manager))

			Expect(w.Code).To(Equal(http.StatusCreated))
			Expect(service.createDTO.Amount.Decimal.String()).To(Equal("42.5"))
			Expect(*service.createDTO.EmployeeID).To(Equal(int64(20)))
			Expect(service.createUpload).NotTo(BeNil())
			Expect(service.createUpload.OriginalName).To(Equal("taxi.png"))
			Expect(service.createUpload.Data).To(Equal(pngBytes))
		})

		It("rejects an oversized receipt", func() {
			body, contentType := multipartBody(map[string]string{"title": "Taxi"}, bytes.Repeat([]byte{'x'}, 2048))
			req := httptest.NewRequest(http.MethodPost, "/api/v1/expenses", body)
			req.Header.Set("Content-Type", contentType)

			handler.CreateExpense(w, authed(req, employee))

			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(fieldCode(w)).To(Equal(string(internal.ErrCodeReceiptTooLarge)))
			Expect(service.createUpload).To(BeNil())
		})

		It("requires an identity", func() {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/expenses", strings.NewReader(`{}`))

			handler.CreateExpense(w, req)

			Expect(w.Code).To(Equal(http.StatusUnauthorized))
		})

		It("maps service errors", func() {
			service.err = internal.ErrEmployeeRequired
			req := httptest.NewRequest(http.MethodPost, "/api/v1/expenses", strings.NewReader(`{"title":"Taxi"}`))

			handler.CreateExpense(w, authed(req, manager))

			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(errorCode(w)).To(Equal(string(internal.ErrCodeMissingEmployee)))
		})
	})

	Describe("ListExpenses", func() {
		It("passes the status filter and counts results", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/expenses?status=pending", nil)

			handler.ListExpenses(w, authed(req, manager))

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(service.listStatus).To(Equal("pending"))
			var resp struct {
				Count int `json:"count"`
			}
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Count).To(Equal(2))
		})
	})

	Describe("claim routes", func() {
		It("rejects a malformed id", func() {
			req := withID(httptest.NewRequest(http.MethodGet, "/api/v1/expenses/abc", nil), "abc")

			handler.GetExpense(w, authed(req, manager))

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("reports conflicts on approve", func() {
			service.err = internal.ErrExpenseAlreadyProcessed
			req := withID(httptest.NewRequest(http.MethodPost, "/api/v1/expenses/3/approve", nil), "3")

			handler.ApproveExpense(w, authed(req, manager))

			Expect(w.Code).To(Equal(http.StatusConflict))
		})

		It("decodes the rejection reason", func() {
			req := withID(httptest.NewRequest(http.MethodPost, "/api/v1/expenses/3/reject", strings.NewReader(`{"reason":"no receipt"}`)), "3")

			handler.RejectExpense(w, authed(req, manager))

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(service.rejectDTO.Reason).To(Equal("no receipt"))
		})

		It("accepts a reject without a body", func() {
			req := withID(httptest.NewRequest(http.MethodPost, "/api/v1/expenses/3/reject", nil), "3")

			handler.RejectExpense(w, authed(req, manager))

			Expect(w.Code).To(Equal(http.StatusOK))
		})

		It("confirms a delete", func() {
			req := withID(httptest.NewRequest(http.MethodDelete, "/api/v1/expenses/9", nil), "9")

			handler.DeleteExpense(w, authed(req, employee))

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(MatchJSON(`{"ok":true,"id":9}`))
		})
	})

	Describe("ScanReceipt", func() {
		It("returns the draft", func() {
			body, contentType := multipartBody(nil, pngBytes)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/expenses/scan", body)
			req.Header.Set("Content-Type", contentType)

			handler.ScanReceipt(w, authed(req, employee))

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(scanner.upload.Data).To(Equal(pngBytes))
			Expect(w.Body.String()).To(ContainSubstring(`"title":"Cafe"`))
		})

		It("requires a file", func() {
			body, contentType := multipartBody(map[string]string{"note": "x"}, nil)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/expenses/scan", body)
			req.Header.Set("Content-Type", contentType)

			handler.ScanReceipt(w, authed(req, employee))

			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(fieldCode(w)).To(Equal(string(internal.ErrCodeInvalidReceipt)))
		})

		It("rejects a JSON body", func() {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/expenses/scan", strings.NewReader(`{}`))
			req.Header.Set("Content-Type", "application/json")

			handler.ScanReceipt(w, authed(req, employee))

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})
})
