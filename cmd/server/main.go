package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/trivia-wave/internal/boost"
	"github.com/trivia-wave/internal/config"
	"github.com/trivia-wave/internal/handler"
	"github.com/trivia-wave/internal/kafka"
	"github.com/trivia-wave/internal/postgres"
	"github.com/trivia-wave/internal/redis"
	"github.com/trivia-wave/internal/service"
	"github.com/trivia-wave/internal/websocket"
	"github.com/trivia-wave/internal/worker"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "path", *configPath, "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("connecting to Redis", "addr", cfg.Redis.Addr)
	store, err := redis.NewStore(&cfg.Redis, logger)
	if err != nil {
		logger.Error("failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	logger.Info("connected to Redis")

	logger.Info("connecting to PostgreSQL", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
	repo, err := postgres.NewRepository(&cfg.Postgres, logger)
	if err != nil {
		logger.Error("failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("connected to PostgreSQL")

	if err := repo.RunMigrations(ctx); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	waves := service.NewWaveService(
		repo,
		store,
		redis.NewPublisher(store),
		boost.DefaultRegistry(),
		&cfg.Wave,
		&cfg.Rewards,
		logger,
	)

	wsHub := websocket.NewHub(logger)
	go wsHub.Run()
	logger.Info("WebSocket hub initialized")

	// Every instance renders screens for its own sockets
	fanOut := service.NewFanOut(waves, wsHub, logger)
	subscriber := redis.NewSubscriber(store, fanOut.HandleEvent, &cfg.Redis, logger)
	go func() {
		if err := subscriber.Run(ctx); err != nil {
			logger.Error("event subscriber stopped", "error", err)
		}
	}()

	reconciler := worker.NewReconcileWorker(waves, &cfg.Reconcile, logger)
	if cfg.Reconcile.Enabled {
		logger.Info("reconciling running waves on startup")
		reconciler.RunOnce(ctx)
		if err := reconciler.Start(ctx); err != nil {
			logger.Error("failed to start reconcile worker", "error", err)
			os.Exit(1)
		}
	}

	var kafkaConsumer *kafka.Consumer
	if cfg.Kafka.Enabled {
		logger.Info("initializing Kafka consumer",
			"brokers", cfg.Kafka.Brokers,
			"topic", cfg.Kafka.Topic,
		)
		kafkaConsumer, err = kafka.NewConsumer(&cfg.Kafka, waves, logger)
		if err != nil {
			logger.Warn("failed to create Kafka consumer, continuing without scheduler commands", "error", err)
		} else if err := kafkaConsumer.Start(); err != nil {
			logger.Warn("failed to start Kafka consumer, continuing without scheduler commands", "error", err)
			kafkaConsumer = nil
		} else {
			logger.Info("Kafka consumer started successfully")
		}
	}

	limiter := handler.NewRateLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst, cfg.RateLimit.IdleTTL)
	go limiter.RunCleanup(ctx, cfg.RateLimit.CleanupInterval)

	auth := handler.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	httpHandler := handler.NewHandler(waves, wsHub, auth, limiter, logger)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpHandler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("starting HTTP server", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server", "error", err)
	}

	if kafkaConsumer != nil {
		if err := kafkaConsumer.Stop(); err != nil {
			logger.Error("failed to stop Kafka consumer", "error", err)
		}
	}

	if err := reconciler.Stop(); err != nil {
		logger.Error("failed to stop reconcile worker", "error", err)
	}

	cancel()
	wsHub.Stop()

	logger.Info("server stopped")
}
