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

	"github.com/smartexpense/smartexpense/cmd/smartexpense/cli"
	"github.com/smartexpense/smartexpense/internal/app"
	"github.com/smartexpense/smartexpense/internal/auth"
	"github.com/smartexpense/smartexpense/internal/expenses"
	"github.com/smartexpense/smartexpense/internal/feedback"
	"github.com/smartexpense/smartexpense/internal/observability"
	"github.com/smartexpense/smartexpense/internal/platform/cache"
	"github.com/smartexpense/smartexpense/internal/platform/db"
	"github.com/smartexpense/smartexpense/internal/receipts"
	"github.com/smartexpense/smartexpense/internal/reports"
	"github.com/smartexpense/smartexpense/internal/reports/export"
	reportshttp "github.com/smartexpense/smartexpense/internal/reports/http"
	"github.com/smartexpense/smartexpense/internal/view"
	"github.com/smartexpense/smartexpense/jobs"
	"github.com/smartexpense/smartexpense/report"
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

	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		if err := cli.RunJobs(ctx, cfg.RedisAddr, os.Args[2:], os.Stdout); err != nil {
			logger.Error("jobs command", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	pool, err := db.Connect(ctx, cfg.DatabaseURL, db.RetryPolicy{
		Attempts: cfg.DBConnectRetries,
		Delay:    cfg.DBRetryDelay,
		Timeout:  cfg.DBConnectTimeout,
	}, logger)
	if err != nil {
		logger.Error("all retry attempts exhausted", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.DBAutoMigrate {
		if err := db.Migrate(ctx, pool); err != nil {
			logger.Error("migrate database", slog.Any("error", err))
			os.Exit(1)
		}
	}

	redisClient, err := cache.New(ctx, cfg.RedisAddr, logger)
	if err != nil {
		logger.Warn("report cache degraded, continuing without a reachable redis", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	parser := receipts.NewClient(cfg.AIServiceURL, logger,
		receipts.WithTimeout(cfg.AIServiceTimeout),
		receipts.WithMaxDimension(cfg.ReceiptMaxDimension),
		receipts.WithObserver(metrics),
	)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		_ = inspector.Close()
	}()

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL)
	authService := auth.NewService(auth.NewRepository(pool), tokens)
	authHandler := auth.NewHandler(logger, authService, tokens)

	reportCache := reports.NewCache(redisClient, cfg.ReportCacheTTL)
	expenseService := expenses.NewService(expenses.NewRepository(pool), parser, reportCache, logger).WithObserver(metrics)
	reportService := reports.NewService(expenseService, reportCache, logger)
	expenseHandler := expenses.NewHandler(expenseService, logger)

	templates, err := view.NewEngine(view.Options{})
	if err != nil {
		logger.Error("init templates", slog.Any("error", err))
		os.Exit(1)
	}
	pdfClient := report.NewClient(cfg.GotenbergURL)
	pingCtx, cancelPing := context.WithTimeout(ctx, 3*time.Second)
	if err := pdfClient.Ping(pingCtx); err != nil {
		logger.Warn("gotenberg unavailable, pdf export will fail until it is reachable", slog.Any("error", err))
	}
	cancelPing()
	reportHandler := reportshttp.NewHandler(logger, reportService, export.NewPDFExporter(templates, pdfClient))

	feedbackService := feedback.NewService(feedback.NewRepository(pool), jobClient, logger)
	feedbackHandler := feedback.NewHandler(feedbackService, logger)

	jobHandler := jobs.NewHandler(inspector, jobs.NewParserHealthStore(redisClient), logger)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		Verifier:        tokens,
		AuthHandler:     authHandler,
		ExpenseHandler:  expenseHandler,
		ReportHandler:   reportHandler,
		FeedbackHandler: feedbackHandler,
		JobHandler:      jobHandler,
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.Addr()), slog.String("env", cfg.AppEnv))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
