package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/finadmin/expense-authorization/internal"
	"github.com/finadmin/expense-authorization/internal/auth"
	"github.com/finadmin/expense-authorization/internal/authtree"
	authtreePostgres "github.com/finadmin/expense-authorization/internal/authtree/postgres"
	"github.com/finadmin/expense-authorization/internal/core/events"
	"github.com/finadmin/expense-authorization/internal/expense"
	expensePostgres "github.com/finadmin/expense-authorization/internal/expense/postgres"
	"github.com/finadmin/expense-authorization/internal/notification"
	"github.com/finadmin/expense-authorization/internal/position"
	positionPostgres "github.com/finadmin/expense-authorization/internal/position/postgres"
	"github.com/finadmin/expense-authorization/internal/transport/rest"
	"github.com/finadmin/expense-authorization/pkg/logger"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config *internal.Config
	DB     *sqlx.DB
	GormDB *gorm.DB
	Router *chi.Mux
	Logger *slog.Logger

	AuthService     *auth.Service
	RBAC            *auth.RBACAuthorization
	TreeHandler     *authtree.Handler
	ExpenseHandler  *expense.Handler
	PositionHandler *position.Handler
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	rest.RegisterAllRoutes(
		deps.Router,
		deps.DB.DB,
		deps.AuthService,
		deps.RBAC,
		deps.TreeHandler,
		deps.ExpenseHandler,
		deps.PositionHandler,
		deps.Logger,
	)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	slog.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      deps.Router,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			slog.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(config.Observability.Logging.Level, config.Observability.Logging.Format)
	appLogger := logger.L()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := initGorm(db)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	publicKey, err := config.Security.GetPublicKey()
	if err != nil {
		return nil, fmt.Errorf("failed to load JWT public key: %w", err)
	}

	authService := auth.NewService(auth.NewRSATokenValidator(publicKey, config.Security.Issuer))
	checker := auth.NewPermissionChecker()
	rbac := auth.NewRBACAuthorization(checker, appLogger)

	eventBus := events.NewEventBus(appLogger)

	var notifier notification.Notifier = notification.NewLogNotifier(appLogger)
	if config.Notification.Enabled && config.Notification.WebhookURL != "" {
		notifier = notification.NewWebhookNotifier(config.Notification.WebhookURL)
	}
	notification.NewDispatcher(notifier, appLogger).Register(eventBus)

	treeRepo := authtreePostgres.NewTreeRepository(gormDB)
	treeService := authtree.NewService(treeRepo, appLogger)
	treeHandler := authtree.NewHandler(treeService)

	expenseRepo := expensePostgres.NewExpenseRepository(gormDB)
	expenseService := expense.NewService(expenseRepo, treeService, eventBus, appLogger)
	expenseHandler := expense.NewHandler(expenseService, checker)

	positionRepo := positionPostgres.NewPositionRepository(gormDB)
	positionService := position.NewService(positionRepo, appLogger)
	positionHandler := position.NewHandler(positionService)

	return &Dependencies{
		Config:          config,
		DB:              db,
		GormDB:          gormDB,
		Router:          chi.NewRouter(),
		Logger:          appLogger,
		AuthService:     authService,
		RBAC:            rbac,
		TreeHandler:     treeHandler,
		ExpenseHandler:  expenseHandler,
		PositionHandler: positionHandler,
	}, nil
}

// initDB initializes the database connection
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

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

// initGorm layers gorm over the already-open pgx pool so both layers share
// one connection budget.
func initGorm(db *sqlx.DB) (*gorm.DB, error) {
	return gorm.Open(gormPostgres.New(gormPostgres.Config{
		Conn: db.DB,
	}), &gorm.Config{})
}
