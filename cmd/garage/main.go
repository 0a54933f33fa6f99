package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"garage/internal/amqp"
	"garage/internal/auth"
	"garage/internal/config"
	"garage/internal/fleet"
	apphttp "garage/internal/http"
	"garage/internal/services"
	"garage/internal/storage"
	"garage/internal/storage/memory"
	"garage/internal/uploads"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	var store fleet.Store
	switch cfg.DataBackend {
	case "memory":
		store = memory.NewStore()
		logger.Info("Initialized in-memory backend", "backend", cfg.DataBackend)
	default:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		defer repo.Close()
		store = repo
		logger.Info("Initialized SQLite backend", "backend", cfg.DataBackend, "path", cfg.SQLiteDBPath)
	}

	// Ensure the single account exists before serving logins.
	hash, err := auth.HashPassword(cfg.Password)
	if err != nil {
		logger.Error("Failed to hash password", "error", err)
		os.Exit(1)
	}
	user, err := store.EnsureUser(context.Background(), cfg.Username, hash)
	if err != nil {
		logger.Error("Failed to ensure user account", "error", err)
		os.Exit(1)
	}
	logger.Info("User account ready", "username", user.Username)

	uploadStore, err := uploads.NewStore(cfg.UploadDir)
	if err != nil {
		logger.Error("Failed to initialize upload storage", "error", err, "dir", cfg.UploadDir)
		os.Exit(1)
	}

	tokens, err := auth.NewTokenIssuer(cfg.SecretKey, cfg.TokenTTL)
	if err != nil {
		logger.Error("Failed to initialize token issuer", "error", err)
		os.Exit(1)
	}

	// AMQP mirroring is optional; the API runs fine without a broker.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		logger.Info("AMQP publishing enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	records := services.NewRecordService(store, amqpClient)
	srv := apphttp.NewServer(":"+cfg.Port, store, records, uploadStore, tokens)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting garage server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
