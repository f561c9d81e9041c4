package rest_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/frahmantamala/expense-claims/api"
	"github.com/frahmantamala/expense-claims/internal"
	"github.com/frahmantamala/expense-claims/internal/audit"
	"github.com/frahmantamala/expense-claims/internal/auth"
	"github.com/frahmantamala/expense-claims/internal/category"
	"github.com/frahmantamala/expense-claims/internal/company"
	coreUser "github.com/frahmantamala/expense-claims/internal/core/user"
	"github.com/frahmantamala/expense-claims/internal/expense"
	"github.com/frahmantamala/expense-claims/internal/export"
	"github.com/frahmantamala/expense-claims/internal/transport"
	"github.com/frahmantamala/expense-claims/internal/transport/middleware"
	"github.com/frahmantamala/expense-claims/internal/transport/rest"
	"github.com/frahmantamala/expense-claims/internal/user"
	"github.com/frahmantamala/expense-claims/pkg/logger"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestRest(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Rest Suite")
}

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }

type stubAuth struct {
	caller *coreUser.Identity
	logins int
}

func (s *stubAuth) Authenticate(context.Context, auth.LoginDTO) (*auth.AuthResponse, error) {
	s.logins++
	return &auth.AuthResponse{AuthTokens: auth.AuthTokens{AccessToken: "a", RefreshToken: "r"}}, nil
}

func (s *stubAuth) RefreshTokens(context.Context, string) (*auth.AuthTokens, error) {
	return nil, internal.ErrInvalidToken
}

func (s *stubAuth) ResolveCaller(_ context.Context, token string) (*coreUser.Identity, error) {
	if token == "" || s.caller == nil {
		return nil, internal.ErrMissingToken
	}
	return s.caller, nil
}

var _ = Describe("Router", func() {
	var (
		router  *chi.Mux
		authSvc *stubAuth
		pinger  fakePinger
		opts    rest.Options
	)

	build := func() {
		router = chi.NewRouter()
		lg := logger.Discard()
		err := rest.RegisterAllRoutes(router, rest.Handlers{
			Health:   rest.NewHealthHandler(pinger),
			Auth:     auth.NewHandler(authSvc),
			User:     user.NewHandler(nil),
			Company:  company.NewHandler(nil),
			Category: category.NewHandler(transport.NewBaseHandler(lg)),
			Expense:  expense.NewHandler(nil, nil, 0),
			Export:   export.NewHandler(nil),
			Audit:    audit.NewHandler(nil),
		}, opts)
		Expect(err).NotTo(HaveOccurred())
	}

	serve := func(method, path, body string, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.RemoteAddr = "192.0.2.10:4000"
		if body != "" {
			req.Header.Set("Content-Type", "application/json")
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	// loginVia posts a login from the same peer with a caller-chosen
	// X-Forwarded-For header.
	loginVia := func(forwardedFor string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"erin@acme.test","password":"password"}`))
		req.RemoteAddr = "192.0.2.10:4000"
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", forwardedFor)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	BeforeEach(func() {
		authSvc = &stubAuth{}
		pinger = fakePinger{}
		doc, err := middleware.LoadOpenAPI(context.Background(), api.OpenAPI)
		Expect(err).NotTo(HaveOccurred())
		opts = rest.Options{
			Logger:      logger.Discard(),
			OpenAPISpec: api.OpenAPI,
			OpenAPI:     doc,
			MetricsPath: "/metrics",
		}
	})

	It("answers ping with a trace id", func() {
		build()

		w := serve(http.MethodGet, "/api/v1/ping", "", "")

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Header().Get(middleware.TraceHeader)).NotTo(BeEmpty())
	})

	It("reports an unreachable database", func() {
		pinger = fakePinger{err: errors.New("connection refused")}
		build()

		w := serve(http.MethodGet, "/api/v1/health", "", "")

		Expect(w.Code).To(Equal(http.StatusServiceUnavailable))
		Expect(w.Body.String()).To(ContainSubstring(`"unhealthy"`))
	})

	It("serves the API document and categories without a token", func() {
		build()

		Expect(serve(http.MethodGet, "/openapi.yml", "", "").Body.String()).To(ContainSubstring("openapi: 3.0.3"))
		Expect(serve(http.MethodGet, "/api/v1/categories", "", "").Code).To(Equal(http.StatusOK))
		Expect(serve(http.MethodGet, "/metrics", "", "").Code).To(Equal(http.StatusOK))
	})

	It("requires a token for claims", func() {
		build()

		w := serve(http.MethodGet, "/api/v1/expenses", "", "")

		Expect(w.Code).To(Equal(http.StatusUnauthorized))
	})

	It("rejects a login body that does not match the schema", func() {
		build()

		w := serve(http.MethodPost, "/api/v1/auth/login", `{"email":1,"password":"secret"}`, "")

		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(w.Body.String()).To(ContainSubstring(string(internal.ErrCodeRequestValidation)))
		Expect(authSvc.logins).To(BeZero())
	})

	It("asks for a token before validating a claim body", func() {
		build()

		w := serve(http.MethodPost, "/api/v1/expenses", `{"title":5}`, "")

		Expect(w.Code).To(Equal(http.StatusUnauthorized))
		Expect(w.Body.String()).NotTo(ContainSubstring(string(internal.ErrCodeRequestValidation)))
	})

	It("rejects a non-numeric claim id before the handler", func() {
		authSvc.caller = &coreUser.Identity{UserID: 1, Role: coreUser.RoleEmployee, AccountType: coreUser.AccountSolo, IsActive: true}
		build()

		w := serve(http.MethodGet, "/api/v1/expenses/abc", "", "token")

		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("keeps employees out of member management", func() {
		companyID := int64(1)
		authSvc.caller = &coreUser.Identity{UserID: 2, Role: coreUser.RoleEmployee, AccountType: coreUser.AccountCompany, CompanyID: &companyID, IsActive: true}
		build()

		w := serve(http.MethodGet, "/api/v1/company/employees", "", "token")

		Expect(w.Code).To(Equal(http.StatusForbidden))
	})

	It("throttles repeated logins from one address", func() {
		opts.AuthLimiter = middleware.NewIPRateLimiter(0.001, 1)
		build()
		body := `{"email":"erin@acme.test","password":"password"}`

		Expect(serve(http.MethodPost, "/api/v1/auth/login", body, "").Code).To(Equal(http.StatusOK))
		Expect(serve(http.MethodPost, "/api/v1/auth/login", body, "").Code).To(Equal(http.StatusTooManyRequests))
		Expect(authSvc.logins).To(Equal(1))
	})

	It("ignores forwarded addresses unless the proxy is trusted", func() {
		opts.AuthLimiter = middleware.NewIPRateLimiter(0.001, 1)
		build()

		Expect(loginVia("198.51.100.1")).To(Equal(http.StatusOK))
		Expect(loginVia("198.51.100.2")).To(Equal(http.StatusTooManyRequests))
		Expect(authSvc.logins).To(Equal(1))
	})

	It("keys the limiter on the forwarded address behind a trusted proxy", func() {
		opts.AuthLimiter = middleware.NewIPRateLimiter(0.001, 1)
		opts.TrustProxy = true
		build()

		Expect(loginVia("198.51.100.1")).To(Equal(http.StatusOK))
		Expect(loginVia("198.51.100.2")).To(Equal(http.StatusOK))
		Expect(authSvc.logins).To(Equal(2))
	})
})
