package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/golovatskygroup/mcp-devspace/internal/config"
	"github.com/golovatskygroup/mcp-devspace/internal/journal"
	"github.com/golovatskygroup/mcp-devspace/internal/logging"
	"github.com/golovatskygroup/mcp-devspace/internal/metrics"
	"github.com/golovatskygroup/mcp-devspace/internal/registry"
	"github.com/golovatskygroup/mcp-devspace/internal/server"
	"github.com/golovatskygroup/mcp-devspace/internal/tools"
	"github.com/rs/zerolog"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (.yaml, .yml or .toml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(os.Stderr, cfg.LogLevel)

	// A panic outside a tool call has no request to answer; log and exit.
	defer func() {
		if r := recover(); r != nil {
			log.Fatal().Interface("panic", r).Msg("Server crashed")
		}
	}()

	if err := run(cfg, log); err != nil {
		log.Error().Err(err).Msg("Server error")
		os.Exit(1)
	}
}

func run(cfg config.Config, log zerolog.Logger) error {
	log.Info().
		Str("version", cfg.Version).
		Str("log_level", cfg.LogLevel).
		Int("timeout_ms", cfg.TimeoutMS).
		Int("max_retries", cfg.MaxRetries).
		Msg("Starting DevSpace MCP Server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("Received signal, shutting down")
		cancel()
	}()

	m := metrics.New()
	if cfg.MetricsAddr != "" {
		go func() {
			if err := m.Serve(ctx, cfg.MetricsAddr); err != nil {
				log.Error().Err(err).Str("addr", cfg.MetricsAddr).Msg("Metrics server stopped")
			}
		}()
	}

	handlerOpts := tools.Options{
		Binary:  cfg.Binary,
		Timeout: cfg.Timeout(),
		Logger:  log,
		Metrics: m,
	}
	serverOpts := server.Options{
		Name:               cfg.Name,
		Version:            cfg.Version,
		MaxConcurrent:      cfg.MaxConcurrent,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Metrics:            m,
		Logger:             log,
	}

	if cfg.JournalPath != "" {
		store, err := journal.Open(cfg.JournalPath)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer store.Close()
		handlerOpts.Journal = store
		serverOpts.Journal = store
	}

	handler := tools.NewHandler(registry.DevSpace(), handlerOpts)
	srv := server.New(handler, os.Stdin, os.Stdout, serverOpts)
	return srv.Run(ctx)
}
