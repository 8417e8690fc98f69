package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/egoritak/yesbut/go/internal/config"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	cfg := config.NewConfigFromEnv()
	setupLogging(cfg)

	services, err := setupServices(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up services")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := services.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start services")
	}

	server := setupServer(cfg, services)

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Bool("events_nats", cfg.NATSURL != "").
			Msg("starting yes-but server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}

	cancel()
	services.Stop()

	log.Info().Msg("server stopped")
}

func setupLogging(cfg config.Config) {
	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}
