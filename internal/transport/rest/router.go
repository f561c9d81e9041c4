package rest

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/expense-claims/internal/audit"
	"github.com/frahmantamala/expense-claims/internal/auth"
	"github.com/frahmantamala/expense-claims/internal/category"
	"github.com/frahmantamala/expense-claims/internal/company"
	"github.com/frahmantamala/expense-claims/internal/expense"
	"github.com/frahmantamala/expense-claims/internal/export"
	"github.com/frahmantamala/expense-claims/internal/metrics"
	"github.com/frahmantamala/expense-claims/internal/transport/middleware"
	"github.com/frahmantamala/expense-claims/internal/transport/swagger"
	"github.com/frahmantamala/expense-claims/internal/user"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

// Handlers groups the HTTP handlers mounted under /api/v1.
type Handlers struct {
	Health   *HealthHandler
	Auth     *auth.Handler
	User     *user.Handler
	Company  *company.Handler
	Category *category.Handler
	Expense  *expense.Handler
	Export   *export.Handler
	Audit    *audit.Handler
}

// Options carries the cross-cutting parts of the router.
type Options struct {
	Logger         *slog.Logger
	AllowedOrigins []string
	// OpenAPISpec is served at /openapi.yml; OpenAPI, when set, validates
	// documented requests before they reach a handler.
	OpenAPISpec []byte
	OpenAPI     *openapi3.T
	// MetricsPath exposes the Prometheus registry; empty disables it.
	MetricsPath string
	// AuthLimiter throttles login, refresh and registration. UploadLimiter
	// throttles receipt scans and exports. Nil disables either.
	AuthLimiter   *middleware.IPRateLimiter
	UploadLimiter *middleware.IPRateLimiter
	// TrustProxy takes the client address from X-Forwarded-For and X-Real-IP.
	// Leave it off unless a proxy in front of the server overwrites them,
	// otherwise callers pick their own rate limit bucket.
	TrustProxy bool
}

func RegisterAllRoutes(router *chi.Mux, h Handlers, opts Options) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rbac := auth.NewRBACAuthorization(logger)

	router.Use(middleware.RequestID)
	if opts.TrustProxy {
		router.Use(chiMiddleware.RealIP)
	}
	router.Use(middleware.RequestMeta)
	router.Use(middleware.LoggingMiddleware)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.Metrics)
	router.Use(middleware.CORS(opts.AllowedOrigins))

	// Protected routes validate only after AuthMiddleware has accepted the caller.
	validate := passthrough
	if opts.OpenAPI != nil {
		v, err := middleware.OpenAPIValidator(opts.OpenAPI, logger)
		if err != nil {
			return fmt.Errorf("openapi validator: %w", err)
		}
		validate = v
	}

	if len(opts.OpenAPISpec) > 0 {
		router.Get(swagger.SpecPath, swagger.SpecHandler(opts.OpenAPISpec))
		router.Handle("/swagger/*", swagger.Handler())
	}
	if opts.MetricsPath != "" {
		router.Handle(opts.MetricsPath, metrics.Handler())
	}

	authLimit := limit(opts.AuthLimiter, logger)
	uploadLimit := limit(opts.UploadLimiter, logger)

	router.Route("/api/v1", func(r chi.Router) {
		if h.Health != nil {
			r.Get("/health", h.Health.Health)
			r.Get("/ping", h.Health.Ping)
		}
		if h.Category != nil {
			r.Get("/categories", h.Category.GetCategories)
		}

		r.Route("/auth", func(ar chi.Router) {
			ar.Use(authLimit)
			ar.Use(validate)
			ar.Post("/login", h.Auth.Login)
			ar.Post("/refresh", h.Auth.RefreshToken)
			ar.Post("/register", h.User.Register)
		})

		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)
			pr.Use(validate)

			pr.Route("/users/me", func(ur chi.Router) {
				ur.Get("/", h.User.GetCurrentUser)
				ur.Patch("/", h.User.UpdateCurrentUser)
				ur.Post("/password", h.User.ChangePassword)
			})

			pr.Route("/company", func(cr chi.Router) {
				cr.Get("/me", h.Company.GetMine)
				cr.Group(func(mr chi.Router) {
					mr.Use(rbac.RequireManager())
					mr.Get("/employees", h.Company.ListMembers)
					mr.Patch("/employees/{id}", h.Company.UpdateMember)
					mr.Post("/invite/regenerate", h.Company.RegenerateInvite)
				})
			})

			pr.Route("/expenses", func(er chi.Router) {
				er.Post("/", h.Expense.CreateExpense)
				er.Get("/", h.Expense.ListExpenses)
				er.With(uploadLimit).Post("/scan", h.Expense.ScanReceipt)
				er.With(uploadLimit).Post("/email", h.Export.EmailExpenses)
				er.Get("/{id}", h.Expense.GetExpense)
				er.Delete("/{id}", h.Expense.DeleteExpense)
				er.Patch("/{id}/approve", h.Expense.ApproveExpense)
				er.Patch("/{id}/reject", h.Expense.RejectExpense)
			})

			pr.Get("/audit/expenses/{id}", h.Audit.ExpenseTimeline)
		})
	})

	return nil
}

func passthrough(next http.Handler) http.Handler { return next }

func limit(l *middleware.IPRateLimiter, logger *slog.Logger) func(http.Handler) http.Handler {
	if l == nil {
		return passthrough
	}
	return l.Handler(logger)
}
