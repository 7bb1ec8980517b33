package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/runassist/planner/internal/backend"
	"github.com/runassist/planner/internal/config"
	"github.com/runassist/planner/internal/engine"
	"github.com/runassist/planner/internal/memory"
	"github.com/runassist/planner/internal/server"
	"github.com/runassist/planner/internal/service"
)

func main() {
	// Set up structured logging
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("failed to run server", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	slog.Info("starting planner service",
		"http_port", cfg.HTTPPort,
		"environment", cfg.Environment,
		"model", cfg.ModelPath,
		"context_size", cfg.ContextSize,
	)

	// Initialize the generation engine. The scripted backend stands in until
	// a real inference backend is wired behind the same contract.
	eng := engine.New(newBackend())
	if err := eng.Init(cfg.ModelPath, cfg.ContextSize, cfg.AccelLayers); err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}
	defer eng.Shutdown()
	slog.Info("generation engine ready")

	// Initialize the planner service and plan store
	planner := service.NewPlannerService(eng, service.WithLogger(slog.Default()))
	store := memory.NewStore(cfg.PlanHistory, cfg.PlanTTL)

	// Create HTTP server
	httpServer := server.NewHTTPServer(server.HTTPServerConfig{
		Port:             cfg.HTTPPort,
		Logger:           slog.Default(),
		AllowedOrigins:   []string{"*"}, // Configure in production
		DefaultMaxTokens: cfg.DefaultMaxTokens,
	}, planner, store)

	// Start server
	errCh := make(chan error, 1)

	go func() {
		slog.Info("starting HTTP server", "port", cfg.HTTPPort)
		if err := httpServer.Start(); err != nil {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		slog.Info("received shutdown signal", "signal", sig)
	}

	// Graceful shutdown
	slog.Info("shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown HTTP server", "error", err)
	}

	slog.Info("server stopped")
	return nil
}

// newBackend picks the inference backend. Only the in-process scripted
// backend ships today; its reply is a deliberately messy plan so the
// recovery pipeline is exercised end to end in development.
func newBackend() backend.Backend {
	return &backend.Scripted{
		Reply: "```json\n" +
			`{"goal":"stay consistent","weeks":[{"week":1,"sessions":["easy run","strength","intervals"]}` +
			"\n```\n",
	}
}

// Ensure interfaces are satisfied at compile time
var _ backend.Backend = (*backend.Scripted)(nil)
