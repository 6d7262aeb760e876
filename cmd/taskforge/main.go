package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/errgroup"

	"github.com/taskforge/taskforge/internal/app"
	"github.com/taskforge/taskforge/internal/audit"
	audithttp "github.com/taskforge/taskforge/internal/audit/http"
	"github.com/taskforge/taskforge/internal/auth"
	"github.com/taskforge/taskforge/internal/observability"
	"github.com/taskforge/taskforge/internal/platform/cache"
	"github.com/taskforge/taskforge/internal/platform/db"
	"github.com/taskforge/taskforge/internal/rbac"
	"github.com/taskforge/taskforge/internal/tasks"
	"github.com/taskforge/taskforge/jobs"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}
	if err := run(); err != nil {
		slog.Default().Error("taskforge exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}
	logger := app.NewLogger(cfg)
	if cfg.UsesInsecureSecret() {
		logger.Warn("JWT_SECRET is not set; tokens are signed with the insecure default secret")
	}

	pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: cfg.PGMaxConns})
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := db.Migrate(ctx, pool); err != nil {
		return err
	}
	sqlDB := stdlib.OpenDBFromPool(pool)
	defer sqlDB.Close()

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	spool := jobs.NewClient(redisOpts, cfg.AuditRetryMax)
	defer spool.Close()
	inspector := asynq.NewInspector(redisOpts)
	defer inspector.Close()

	metrics := observability.NewMetrics()

	issuer, err := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	if err != nil {
		return err
	}
	denylist := auth.NewRedisDenylist(redisClient)
	authenticator := auth.NewAuthenticator(issuer, denylist, logger)
	rbacMW := rbac.Middleware{Logger: logger, OnDeny: audit.Fail}

	auditStore := audit.NewSQLStore(sqlDB)
	recorder := audit.NewRecorder(audit.RecorderConfig{
		Store:   auditStore,
		Spool:   spool,
		Logger:  logger,
		Metrics: metrics,
	})

	authService := auth.NewService(auth.NewRepository(pool), issuer, denylist)
	taskService := tasks.NewService(tasks.NewRepository(pool))

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Metrics:            metrics,
		RBACMiddleware:     rbacMW,
		Authenticator:      authenticator,
		Recorder:           recorder,
		AuthHandler:        auth.NewHandler(logger, authService, authenticator, rbacMW),
		TaskHandler:        tasks.NewHandler(logger, taskService, rbacMW),
		AuditHandler:       audithttp.NewHandler(logger, audit.NewService(auditStore), rbacMW),
		PermissionsHandler: rbac.NewPermissionsHandler(logger),
		JobHandler:         jobs.NewHandler(inspector, logger),
		Readiness: map[string]app.ReadinessCheck{
			"postgres": func(ctx context.Context) error { return pool.Ping(ctx) },
			"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		},
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("env", cfg.AppEnv))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
