package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/jwebster45206/murder-valley/internal/config"
	"github.com/jwebster45206/murder-valley/internal/logger"
	"github.com/jwebster45206/murder-valley/internal/mcptools"
	"github.com/jwebster45206/murder-valley/internal/services"
	"github.com/jwebster45206/murder-valley/internal/services/events"
	redisstorage "github.com/jwebster45206/murder-valley/internal/storage"
	"github.com/jwebster45206/murder-valley/pkg/puzzle"
	"github.com/jwebster45206/murder-valley/pkg/storage"
	"github.com/mark3labs/mcp-go/server"
)

const version = "0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	// stdout carries the MCP protocol
	log := logger.SetupWriter(cfg, os.Stderr)

	def, err := puzzle.LoadOrBuiltin(cfg.PuzzleFile)
	if err != nil {
		log.Error("Failed to load puzzle definition", "error", err, "path", cfg.PuzzleFile)
		os.Exit(1)
	}

	var store storage.Storage
	var publisher events.Publisher = events.Nop{}

	if cfg.RedisURL != "" {
		redisStore, err := redisstorage.NewRedisStorage(cfg.RedisURL, cfg.SessionTTL, log)
		if err != nil {
			log.Error("Invalid Redis configuration", "error", err)
			os.Exit(1)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err = redisStore.WaitForConnection(ctx, 10, 2*time.Second)
		cancel()
		if err != nil {
			log.Error("Failed to connect to storage", "error", err)
			os.Exit(1)
		}
		store = redisStore
		if cfg.EventsEnabled {
			publisher = events.NewBroadcaster(redisStore.Client(), log)
		}
	} else {
		store = storage.NewMemoryStorage(cfg.SessionTTL)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("Error closing storage connection", "error", err)
		}
	}()

	svc := services.NewPuzzleService(store, def, services.PuzzleOptions{
		Thresholds: &cfg.Thresholds,
		Events:     publisher,
		Logger:     log,
	})

	s := server.NewMCPServer("murder-valley", version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)
	mcptools.Register(s, svc)

	log.Info("Starting MCP server on stdio", "puzzle_id", def.ID)
	if err := server.ServeStdio(s); err != nil {
		log.Error("MCP server stopped", "error", err)
	}

	svc.Wait()
}
