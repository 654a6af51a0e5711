package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"mealmatch/internal/app"
	"mealmatch/internal/config"
	"mealmatch/internal/database"
	"mealmatch/internal/ghost"
	"mealmatch/internal/logging"
	"mealmatch/internal/metrics"
	"mealmatch/internal/planner"
	"mealmatch/internal/telegram"
)

func main() {
	cfg, err := config.NewFromEnv()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load config")
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to initialize database")
	}

	var ghostClient ghost.Client
	if cfg.RequireGhost() == nil {
		ghostClient = ghost.NewClient(cfg)
	}

	application := app.NewApp(cfg, db, ghostClient,
		planner.WithObserver(metrics.NewRecorder(prometheus.DefaultRegisterer)),
	)
	defer application.Close()

	bot, err := telegram.NewBot(cfg, application)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to initialize Telegram bot")
	}

	srv := &http.Server{
		Addr:    cfg.Telegram.ListenAddr,
		Handler: bot.Handler(),
	}

	go func() {
		logging.Info().Str("addr", srv.Addr).Msg("Telegram bot server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("server failed")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	logging.Info().Msg("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		logging.Error().Err(err).Msg("server forced to shutdown")
	}
	logging.Info().Msg("server exiting")
}
