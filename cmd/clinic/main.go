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
	"golang.org/x/sync/errgroup"

	"github.com/himalclinic/himalclinic/internal/app"
	"github.com/himalclinic/himalclinic/internal/auth"
	"github.com/himalclinic/himalclinic/internal/console"
	"github.com/himalclinic/himalclinic/internal/contacts"
	"github.com/himalclinic/himalclinic/internal/content"
	"github.com/himalclinic/himalclinic/internal/observability"
	"github.com/himalclinic/himalclinic/internal/platform/cache"
	"github.com/himalclinic/himalclinic/internal/platform/db"
	"github.com/himalclinic/himalclinic/internal/shared"
	"github.com/himalclinic/himalclinic/internal/users"
	"github.com/himalclinic/himalclinic/internal/view"
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "clinic_session", cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	identity := auth.NewPGIdentity(pool)
	directory := auth.NewPGDirectory(pool)
	resolver := auth.NewResolver(identity, directory, logger)
	defer resolver.Close()
	authService := auth.NewService(identity, directory, resolver, cfg.SessionTTL, logger)

	adminLogin := console.NewAdminLogin(logger, authService, templates, sessionManager, csrfManager)
	viewerLogin := console.NewViewerLogin(logger, authService, templates, sessionManager, csrfManager)
	dashboard := console.NewDashboard(logger, templates, csrfManager)

	contentRepo := content.NewRepository(pool)
	contentCache := content.NewCache(redisClient, cfg.ContentCacheTTL)
	contentService := content.NewService(contentRepo, contentCache, logger)
	contentHandler := content.NewHandler(logger, contentService, templates, csrfManager)

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Warn("asynq close", slog.Any("error", err))
		}
	}()

	contactsRepo := contacts.NewRepository(pool)
	contactsService := contacts.NewService(contactsRepo, asynqClient, logger)
	contactsHandler := contacts.NewHandler(logger, contactsService, templates, csrfManager)

	usersRepo := users.NewRepository(pool)
	usersService := users.NewService(usersRepo)
	usersHandler := users.NewHandler(logger, usersService, templates, csrfManager)

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		Templates:       templates,
		SessionManager:  sessionManager,
		CSRFManager:     csrfManager,
		Resolver:        resolver,
		AdminLogin:      adminLogin,
		ViewerLogin:     viewerLogin,
		Dashboard:       dashboard,
		ContentHandler:  contentHandler,
		ContactsHandler: contactsHandler,
		UsersHandler:    usersHandler,
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}
