package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/murder-valley/internal/config"
	"github.com/jwebster45206/murder-valley/internal/handlers"
	"github.com/jwebster45206/murder-valley/internal/logger"
	"github.com/jwebster45206/murder-valley/internal/middleware"
	"github.com/jwebster45206/murder-valley/internal/services"
	"github.com/jwebster45206/murder-valley/internal/services/events"
	redisstorage "github.com/jwebster45206/murder-valley/internal/storage"
	"github.com/jwebster45206/murder-valley/pkg/puzzle"
	"github.com/jwebster45206/murder-valley/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	def, err := puzzle.LoadOrBuiltin(cfg.PuzzleFile)
	if err != nil {
		log.Error("Failed to load puzzle definition", "error", err, "path", cfg.PuzzleFile)
		os.Exit(1)
	}

	log.Info("Starting Murder Valley API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"puzzle_id", def.ID,
		"warning_max", cfg.Thresholds.WarningMax)

	var store storage.Storage
	var publisher events.Publisher = events.Nop{}
	var eventsHandler http.Handler

	if cfg.RedisURL != "" {
		redisStore, err := redisstorage.NewRedisStorage(cfg.RedisURL, cfg.SessionTTL, log)
		if err != nil {
			log.Error("Invalid Redis configuration", "error", err)
			os.Exit(1)
		}
		storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer storageCancel()
		if err := redisStore.WaitForConnection(storageCtx, 30, 2*time.Second); err != nil {
			log.Error("Failed to connect to storage", "error", err)
			os.Exit(1)
		}
		store = redisStore

		if cfg.EventsEnabled {
			publisher = events.NewBroadcaster(redisStore.Client(), log)
			eventsHandler = handlers.NewEventsHandler(redisStore.Client(), log)
		}
	} else {
		log.Info("No REDIS_URL set, keeping sessions in memory")
		store = storage.NewMemoryStorage(cfg.SessionTTL)
	}
	log.Info("Storage ready", "session_ttl", cfg.SessionTTL, "events", cfg.EventsEnabled)

	svc := services.NewPuzzleService(store, def, services.PuzzleOptions{
		Thresholds: &cfg.Thresholds,
		Events:     publisher,
		Logger:     log,
	})

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(store, def.ID, log)
	mux.Handle("/health", healthHandler)

	puzzleHandler := handlers.NewPuzzleHandler(svc, log)
	mux.Handle("/v1/puzzles", puzzleHandler)
	mux.Handle("/v1/puzzles/", puzzleHandler)

	if eventsHandler != nil {
		mux.Handle("/v1/events/puzzles/", eventsHandler)
	}

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     middleware.Logger(log, mux),
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: the SSE endpoint streams indefinitely
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	// Let in-flight victory follow-ups finish before the store goes away
	svc.Wait()

	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	log.Info("Server exited")
}
