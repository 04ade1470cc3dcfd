package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tavolohq/tavolo/internal/auth"
	"github.com/tavolohq/tavolo/internal/config"
	"github.com/tavolohq/tavolo/internal/notify"
	"github.com/tavolohq/tavolo/internal/server"
	"github.com/tavolohq/tavolo/internal/store/postgres"
	redisstore "github.com/tavolohq/tavolo/internal/store/redis"
	"github.com/tavolohq/tavolo/internal/stream"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
}

func run() error {
	// Local development convenience; a missing .env is not an error.
	_ = godotenv.Load()

	// Initialize structured logging from environment.
	level, parseErr := zerolog.ParseLevel(os.Getenv("TAVOLO_LOG_LEVEL"))
	if parseErr != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if os.Getenv("TAVOLO_LOG_FORMAT") == "text" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	ctx := context.Background()

	// Load configuration from environment.
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if cfg.Database.MaxConns < 0 || cfg.Database.MaxConns > math.MaxInt32 {
		return fmt.Errorf("database max_conns %d out of int32 range", cfg.Database.MaxConns)
	}

	// Connect to PostgreSQL.
	store, err := postgres.New(ctx, cfg.Database.DSN(), int32(cfg.Database.MaxConns)) //nolint:gosec // bounds checked above
	if err != nil {
		return err
	}
	defer store.Close()

	// Graceful shutdown on SIGINT / SIGTERM.
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Optional Redis relay for cross-instance event delivery. Without it the
	// registry still fans out within this process.
	var relay stream.Relay
	if cfg.Redis.Addr != "" {
		redisRelay, relayErr := redisstore.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if relayErr != nil {
			return relayErr
		}
		defer redisRelay.Close()
		relay = redisRelay
		log.Info().Str("addr", cfg.Redis.Addr).Msg("redis event relay enabled")
	} else {
		log.Info().Msg("redis not configured, events stay in-process")
	}

	// The connection registry and the broadcaster above it.
	registry := stream.NewRegistry(cfg.Stream.KeepAliveInterval, log.Logger)
	go registry.Run(ctx)

	broadcaster := stream.NewBroadcaster(registry, relay, log.Logger)
	go func() {
		if runErr := broadcaster.Run(ctx); runErr != nil && !errors.Is(runErr, context.Canceled) {
			log.Error().Err(runErr).Msg("event broadcaster stopped")
		}
	}()

	// Slack assignment notifications, when configured.
	var messenger notify.Messenger
	if cfg.Slack.BotToken != "" {
		messenger = notify.NewSlackMessengerFromToken(cfg.Slack.BotToken)
		log.Info().Str("channel", cfg.Slack.Channel).Msg("slack notifications enabled")
	}
	notifier := notify.New(messenger, cfg.Slack.Channel, log.Logger)

	// Create auth service.
	authSvc := auth.NewService(store.Users(), cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)

	// Create HTTP server with all routes wired.
	srv := server.New(ctx, cfg, store, authSvc, registry, broadcaster, notifier)

	// Start server in background goroutine.
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("starting server")
		if startErr := srv.Start(ctx); startErr != nil {
			log.Error().Err(startErr).Msg("server error")
		}
	}()

	// Block until shutdown signal.
	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		return shutdownErr
	}

	log.Info().Msg("stopped")
	return nil
}
