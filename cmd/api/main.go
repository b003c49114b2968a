package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"story-shorts/internal/config"
	"story-shorts/internal/http/handlers"
	"story-shorts/internal/http/httpapi"
	"story-shorts/internal/infra"
)

func main() {
	// .env is optional; real deployments inject the environment.
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.App.Env)

	warns, err := cfg.Validate()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	for _, w := range warns {
		logger.Warn().Str("component", w.Component).Msg(w.Message)
	}

	ctx := context.Background()
	deps, err := wire(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to wire services")
	}
	defer deps.close()

	if cfg.Schedule.Autostart {
		if _, err := deps.scheduler.Start("", ""); err != nil {
			logger.Fatal().Err(err).Msg("failed to start scheduler")
		}
	}

	app := handlers.NewApp(deps.store, deps.orchestrator, deps.scheduler, deps.media, infra.Component(logger, "http"))
	router := httpapi.NewRouter(app, logger)
	server := infra.NewHTTPServer(cfg.App, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.App.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	if err := deps.scheduler.Stop(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("scheduler did not stop cleanly")
	}
	logger.Info().Msg("server stopped")
}
