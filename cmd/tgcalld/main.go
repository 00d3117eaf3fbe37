// Package main is the entry point for the tgcalld daemon
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tgcalld/internal/api"
	"tgcalld/internal/call"
	"tgcalld/internal/config"
	"tgcalld/internal/db"
	"tgcalld/internal/engine"
	"tgcalld/internal/media"
	"tgcalld/internal/notifications"
	"tgcalld/internal/state"
)

const version = "0.1.0"

func main() {
	// "tgcalld hash-token <token>" prints the bcrypt hash to configure as
	// TGCALLD_API_TOKEN_HASH and exits
	if len(os.Args) > 2 && os.Args[1] == "hash-token" {
		hash, err := api.HashToken(os.Args[2])
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		fmt.Println(hash)
		return
	}

	// Initialize structured logging
	level := slog.LevelInfo
	if os.Getenv("TGCALLD_DEBUG") != "" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	slog.Info("Starting tgcalld", "version", version)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Ensure data directories exist
	if err := cfg.EnsureDirectories(); err != nil {
		slog.Error("Failed to create data directories", "error", err)
		os.Exit(1)
	}

	// Initialize database
	database, err := db.New(cfg.DBPath())
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	// Run migrations
	if err := database.Migrate(); err != nil {
		slog.Error("Failed to run database migrations", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Call state publisher
	states := state.NewPublisher(logger)
	defer states.Close()

	// Forward state transitions to the controller webhook / Gotify
	if cfg.StateWebhookURL != "" || cfg.GotifyURL != "" {
		notifier := notifications.NewNotifier(cfg, logger)
		defer notifier.Close()
		states.Subscribe(notifier)
	}

	// Media pipeline for TTS synthesis and transcoding
	pipeline := media.NewPipeline(cfg.TTSCommand, cfg.FFmpegPath, cfg.WorkPath(), logger)

	// The engine connection is dialed lazily on the first call
	dial := func(ctx context.Context) (call.Conn, error) {
		client := engine.NewClient(cfg.EngineAddr, logger)
		if err := client.Connect(ctx); err != nil {
			return nil, err
		}
		return client, nil
	}

	supervisor := call.NewSupervisor(cfg, states, pipeline, database.CallLog, dial, logger)

	// Initialize and start HTTP server
	router := api.NewRouter(api.NewDependencies(cfg, supervisor, states, database))

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("HTTP server started", "port", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			cancel()
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
	case <-ctx.Done():
	}
	slog.Info("Shutdown signal received, initiating graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Shutdown HTTP server
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// End any in-flight call and stop the engine client
	supervisor.Shutdown(shutdownCtx)

	slog.Info("tgcalld shutdown complete")
}
