package main

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

	"github.com/hibiken/asynq"

	"github.com/autoshop-erp/autoshop/internal/app"
	"github.com/autoshop-erp/autoshop/internal/audit"
	audithttp "github.com/autoshop-erp/autoshop/internal/audit/http"
	"github.com/autoshop-erp/autoshop/internal/auth"
	"github.com/autoshop-erp/autoshop/internal/documents"
	"github.com/autoshop-erp/autoshop/internal/observability"
	"github.com/autoshop-erp/autoshop/internal/platform/cache"
	"github.com/autoshop-erp/autoshop/internal/platform/db"
	"github.com/autoshop-erp/autoshop/internal/rbac"
	"github.com/autoshop-erp/autoshop/internal/roles"
	"github.com/autoshop-erp/autoshop/internal/shared"
	"github.com/autoshop-erp/autoshop/internal/users"
	"github.com/autoshop-erp/autoshop/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	command, args := "serve", os.Args[1:]
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}

	var code int
	switch command {
	case "serve":
		if err := serve(ctx, stop, cfg, logger); err != nil {
			logger.Error("serve", slog.Any("error", err))
			code = 1
		}
	case "create-user":
		code = runCreateUser(ctx, cfg, logger, args)
	case "jobs":
		code = runJobs(ctx, cfg, args)
	default:
		_, _ = fmt.Fprintf(os.Stderr, "unknown command %q (want serve, create-user or jobs)\n", command)
		code = 2
	}
	stop()
	if code != 0 {
		os.Exit(code)
	}
}

func serve(ctx context.Context, stop context.CancelFunc, cfg *app.Config, logger *slog.Logger) error {
	if err := cfg.ValidateSessions(); err != nil {
		return err
	}
	pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConns})
	if err != nil {
		return err
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, cfg.SessionCookie, cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	metrics := observability.NewMetrics()
	table := rbac.DefaultTable()
	guard := rbac.Guard{Table: table, Logger: logger, Recorder: metrics}
	auditLogger := shared.NewAuditLogger(pool)

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo, cfg.BcryptCost)
	authHandler := auth.NewHandler(logger, authService, sessionManager, guard, auth.HandlerOptions{
		Audit:             auditLogger,
		AllowRegistration: cfg.AuthAllowRegistration,
	})

	usersService := users.NewService(authRepo, authService, auditLogger, sessionManager, logger)
	rolesService := roles.NewService(table)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		return err
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	documentsService := documents.NewService(documents.NewPGStore(pool), jobClient, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		Metrics:            metrics,
		AuthHandler:        authHandler,
		UsersHandler:       users.NewHandler(logger, usersService, guard),
		RolesHandler:       roles.NewHandler(rolesService, guard),
		PermissionsHandler: rbac.NewPermissionsHandler(table, guard),
		DocumentsHandler:   documents.NewHandler(logger, documentsService, guard),
		ReportsHandler:     documents.NewReportsHandler(logger, documentsService, guard),
		AuditHandler:       audithttp.NewHandler(logger, audit.NewService(audit.NewPGStore(pool)), guard),
		JobHandler:         jobs.NewHandler(inspector, logger, guard),
	})

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: cfg.AppReadTimeout,
		WriteTimeout:      cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
