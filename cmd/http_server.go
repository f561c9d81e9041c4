package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/expense-claims/api"
	"github.com/frahmantamala/expense-claims/internal"
	"github.com/frahmantamala/expense-claims/internal/audit"
	auditPostgres "github.com/frahmantamala/expense-claims/internal/audit/postgres"
	"github.com/frahmantamala/expense-claims/internal/auth"
	authPostgres "github.com/frahmantamala/expense-claims/internal/auth/postgres"
	"github.com/frahmantamala/expense-claims/internal/category"
	"github.com/frahmantamala/expense-claims/internal/company"
	companyPostgres "github.com/frahmantamala/expense-claims/internal/company/postgres"
	"github.com/frahmantamala/expense-claims/internal/core/events"
	"github.com/frahmantamala/expense-claims/internal/expense"
	expensePostgres "github.com/frahmantamala/expense-claims/internal/expense/postgres"
	"github.com/frahmantamala/expense-claims/internal/export"
	"github.com/frahmantamala/expense-claims/internal/mailer"
	"github.com/frahmantamala/expense-claims/internal/receipt"
	"github.com/frahmantamala/expense-claims/internal/transport"
	"github.com/frahmantamala/expense-claims/internal/transport/middleware"
	"github.com/frahmantamala/expense-claims/internal/transport/rest"
	"github.com/frahmantamala/expense-claims/internal/user"
	userPostgres "github.com/frahmantamala/expense-claims/internal/user/postgres"
	"github.com/frahmantamala/expense-claims/pkg/logger"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return startHTTPServer()
	},
}

type Dependencies struct {
	Config   *internal.Config
	DB       *sqlx.DB
	Gorm     *gorm.DB
	EventBus *events.EventBus
	Router   *chi.Mux
	Logger   *slog.Logger
}

func startHTTPServer() error {
	deps, err := initializeDependencies()
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			_ = deps.DB.Close()
			return fmt.Errorf("server failed: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		deps.Logger.Error("Server shutdown error", "error", err)
	}
	// audit entries still in flight need the database
	if err := deps.EventBus.Wait(ctx); err != nil {
		deps.Logger.Error("Audit handlers did not finish", "error", err)
	}
	if err := deps.DB.Close(); err != nil {
		deps.Logger.Error("Database close error", "error", err)
	}

	deps.Logger.Info("Server stopped")
	return nil
}

func initializeDependencies() (*Dependencies, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	lg := logger.LoggerWrapper()

	db, err := initDB(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	gormDB, err := initGorm(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	bus := events.NewEventBus(lg)
	auditStore := auditPostgres.NewStore(db)
	audit.Register(bus, auditStore, lg)
	trail := audit.NewTrail(bus, lg)

	authRepo := authPostgres.NewRepository(gormDB)
	tokens := auth.NewJWTTokenGenerator(
		cfg.Security.AccessTokenSecret,
		cfg.Security.RefreshTokenSecret,
		cfg.Security.AccessTokenDuration,
		cfg.Security.RefreshTokenDuration,
	)
	authService := auth.NewService(authRepo, tokens, lg)

	companyRepo := companyPostgres.NewCompanyRepository(gormDB)
	companyService := company.NewService(companyRepo, company.NewInviteGenerator(companyRepo), trail, lg)

	userService := user.NewService(userPostgres.NewRepository(gormDB), companyService, authService, trail, lg, cfg.Security.BCryptCost)

	receipts := receipt.NewStorage(afero.NewOsFs(), cfg.Storage.ReceiptDir, cfg.Storage.MaxReceiptBytes)
	scanService := receipt.NewScanService(receipts, receipt.NewScanner(cfg.OCR, lg), lg)

	expenseRepo := expensePostgres.NewExpenseRepository(gormDB)
	expenseService := expense.NewService(expenseRepo, authRepo, receipts, trail, lg)

	sender := mailer.NewSMTPSender(cfg.Mail, receipts, lg)
	exportService := export.NewService(expenseRepo, receipts, sender, trail, lg)
	auditService := audit.NewService(expenseRepo, auditStore, lg)

	doc, err := middleware.LoadOpenAPI(context.Background(), api.OpenAPI)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	opts := rest.Options{
		Logger:         lg,
		AllowedOrigins: cfg.Server.Origins(),
		OpenAPISpec:    api.OpenAPI,
		OpenAPI:        doc,
		TrustProxy:     cfg.Server.TrustProxy,
	}
	if cfg.Observability.Metrics.Enabled {
		opts.MetricsPath = cfg.Observability.Metrics.Path
	}
	if cfg.RateLimit.RequestsPerSecond > 0 {
		opts.AuthLimiter = middleware.NewIPRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
		opts.UploadLimiter = middleware.NewIPRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	}

	router := chi.NewRouter()
	err = rest.RegisterAllRoutes(router, rest.Handlers{
		Health:   rest.NewHealthHandler(db),
		Auth:     auth.NewHandler(authService),
		User:     user.NewHandler(userService),
		Company:  company.NewHandler(companyService),
		Category: category.NewHandler(transport.NewBaseHandler(lg)),
		Expense:  expense.NewHandler(expenseService, scanService, receipts.MaxBytes()),
		Export:   export.NewHandler(exportService),
		Audit:    audit.NewHandler(auditService),
	}, opts)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Dependencies{
		Config:   cfg,
		DB:       db,
		Gorm:     gormDB,
		EventBus: bus,
		Router:   router,
		Logger:   lg,
	}, nil
}

// initDB opens the pgx-backed pool shared by sqlx and gorm.
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := dbConn.PingContext(ctx); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

func initGorm(db *sqlx.DB) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{TranslateError: true})
}
