package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"refbot/internal/api"
	"refbot/internal/bot"
	"refbot/internal/export"
	"refbot/internal/middleware"
	"refbot/internal/service"
	"refbot/pkg/auth"
	"refbot/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	sweepSchedule   = "@every 1m"
	shutdownTimeout = 10 * time.Second
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot poller and the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}

	cfg, repo, cleanup, err := bootstrap()
	if err != nil {
		return err
	}
	defer cleanup()
	l := logger.Logger()

	if err := repo.Migrate(cfg.Database.Name); err != nil {
		return err
	}

	tg, err := bot.NewTelegram(bot.Config{
		BotToken:    cfg.Telegram.BotToken,
		Debug:       cfg.Telegram.Debug,
		PollTimeout: cfg.Telegram.PollTimeout,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	events := service.NewEventHub()
	ledger := service.NewLedger(repo, events)
	registry := service.NewCommandRegistry(repo)
	admins := service.NewAdminService(repo)
	settings := service.NewSettingsService(repo)

	if err := admins.EnsureBootstrap(ctx, cfg.Telegram.BootstrapAdminID); err != nil {
		return fmt.Errorf("failed to register bootstrap admin: %w", err)
	}

	authoring := service.NewAuthoring(registry, admins, bot.NewDiskImages(tg, cfg.Telegram.ImagesDir), cfg.Authoring.SessionTTL)
	if err := authoring.StartSweeper(sweepSchedule); err != nil {
		return err
	}
	defer authoring.Stop()

	handler := bot.NewHandler(tg, tg.Username(), bot.Services{
		Ledger:     ledger,
		Registry:   registry,
		Dispatcher: service.NewDispatcher(registry, admins),
		Gate:       service.NewGate(repo, tg),
		Authoring:  authoring,
		Admins:     admins,
		Settings:   settings,
		Broadcaster: service.NewBroadcaster(repo, tg, events, service.BroadcastConfig{
			RatePerSecond: cfg.Broadcast.RatePerSecond,
			Workers:       cfg.Broadcast.Workers,
		}),
	})

	router := gin.New()
	router.Use(gin.Recovery())

	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowMethods = []string{
		http.MethodHead,
		http.MethodGet,
		http.MethodPost,
		http.MethodPut,
		http.MethodPatch,
		http.MethodDelete,
	}
	config.AllowHeaders = []string{"*"}
	config.AllowCredentials = true
	config.MaxAge = 12 * time.Hour

	router.Use(cors.New(config))

	api.NewHealthRoutes(router)

	telegramAuth := auth.NewTelegramAuth(cfg.Telegram.BotToken, cfg.TelegramAuth.DebugMode)
	a := router.Group("/api/v1")
	api.NewUserRoutes(a, ledger, bot.NewNotifier(tg), tg.Username(), telegramAuth)
	api.NewAdminRoutes(a, ledger, export.NewExporter(repo), events, telegramAuth, middleware.NewAuthorization(admins))

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: router}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		l.Info("Starting server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		l.Info("Starting bot", zap.String("username", tg.Username()))
		tg.Listen(gctx, handler)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	l.Info("Stopped", zap.Error(err))
	return err
}
